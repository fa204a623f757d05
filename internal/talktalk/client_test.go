package talktalk

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func TestSendText_WireFormat(t *testing.T) {
	var got map[string]any
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("invalid JSON body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL, Token: "tt-secret", Logger: testLogger()})
	if err := c.SendText(context.Background(), "u1", "hi there"); err != nil {
		t.Fatalf("SendText: %v", err)
	}

	if auth != "tt-secret" {
		t.Errorf("Authorization header: got %q", auth)
	}
	if got["event"] != "send" || got["user"] != "u1" {
		t.Errorf("unexpected payload: %v", got)
	}
	tc, _ := got["textContent"].(map[string]any)
	if tc["text"] != "hi there" {
		t.Errorf("textContent: got %v", got["textContent"])
	}
	if _, present := got["options"]; present {
		t.Error("send event should not carry options")
	}
}

func TestSendAction_WireFormat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL, Token: "t", Logger: testLogger()})
	if err := c.SendAction(context.Background(), "u1", "typingOn"); err != nil {
		t.Fatalf("SendAction: %v", err)
	}

	if got["event"] != "action" {
		t.Errorf("event: got %v", got["event"])
	}
	opts, _ := got["options"].(map[string]any)
	if opts["action"] != "typingOn" {
		t.Errorf("options.action: got %v", got["options"])
	}
	if _, present := got["textContent"]; present {
		t.Error("action event should not carry textContent")
	}
}

func TestPost_NonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(Config{APIURL: srv.URL, Token: "t", Logger: testLogger()})
	if err := c.SendText(context.Background(), "u1", "hi"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestPost_ContextTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	c := New(Config{APIURL: srv.URL, Token: "t", Logger: testLogger()})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := c.SendAction(ctx, "u1", "typingOff"); err == nil {
		t.Fatal("expected error when context deadline passes")
	}
}
