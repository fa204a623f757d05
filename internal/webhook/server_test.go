package webhook

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"talkbridge/internal/domain"
)

// fakeRelay returns canned results and captures the events it was driven with.
type fakeRelay struct {
	userResult domain.Result
	botResult  domain.Result
	userEvents []domain.Event
	botEvents  []domain.Event
}

func (f *fakeRelay) RelayUserMessage(ctx context.Context, ev domain.Event) domain.Result {
	f.userEvents = append(f.userEvents, ev)
	return f.userResult
}

func (f *fakeRelay) RelayBotReply(ctx context.Context, ev domain.Event) domain.Result {
	f.botEvents = append(f.botEvents, ev)
	return f.botResult
}

func newTestServer(relay Relay) *Server {
	return NewServer(ServerConfig{
		Addr:    ":0",
		Relay:   relay,
		Logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
		Version: "test",
	})
}

func doPost(t *testing.T, s *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestTalkTalkWebhook_SendEvent(t *testing.T) {
	relay := &fakeRelay{userResult: domain.Relayed}
	s := newTestServer(relay)

	rec := doPost(t, s, "/webhook", `{"event":"send","user":"u1","textContent":{"text":"hello"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body: %s", rec.Body.String())
	}
	if len(relay.userEvents) != 1 {
		t.Fatalf("relay driven %d times", len(relay.userEvents))
	}
	ev := relay.userEvents[0]
	if ev.UserID != "u1" || ev.Text != "hello" || ev.Kind != domain.KindMessage || ev.Direction != domain.UserToAgent {
		t.Errorf("event: %+v", ev)
	}
}

func TestTalkTalkWebhook_EchoEventIsSystemKind(t *testing.T) {
	relay := &fakeRelay{userResult: domain.Ignored}
	s := newTestServer(relay)

	rec := doPost(t, s, "/webhook", `{"event":"echo","user":"u1","textContent":{"text":"hello"}}`)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("echo must be acknowledged: %d %s", rec.Code, rec.Body.String())
	}
	if relay.userEvents[0].Kind != domain.KindSystem {
		t.Errorf("echo event kind: got %v, want system", relay.userEvents[0].Kind)
	}
}

func TestTalkTalkWebhook_FailureKeepsHTTP200WithErrorBody(t *testing.T) {
	for result, message := range map[domain.Result]string{
		domain.FailedParticipant: "failed to create or retrieve user",
		domain.FailedSend:        "failed to send message",
	} {
		relay := &fakeRelay{userResult: result}
		s := newTestServer(relay)

		rec := doPost(t, s, "/webhook", `{"event":"send","user":"u1","textContent":{"text":"x"}}`)

		if rec.Code != http.StatusOK {
			t.Errorf("%v: status got %d, want 200", result, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"status":"error"`) ||
			!strings.Contains(rec.Body.String(), message) {
			t.Errorf("%v: body %s", result, rec.Body.String())
		}
	}
}

func TestTalkTalkWebhook_InvalidJSON(t *testing.T) {
	s := newTestServer(&fakeRelay{})
	rec := doPost(t, s, "/webhook", `{"event":`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestTalkTalkWebhook_MethodNotAllowed(t *testing.T) {
	s := newTestServer(&fakeRelay{})
	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d, want 405", rec.Code)
	}
}

func TestSendbirdWebhook_MessageSend(t *testing.T) {
	relay := &fakeRelay{botResult: domain.Relayed}
	s := newTestServer(relay)

	rec := doPost(t, s, "/sbwebhook", `{
		"category": "group_channel:message_send",
		"channel": {"channel_url": "conv-1"},
		"sender": {"user_id": "support_bot"},
		"payload": {"message": "hi there"}
	}`)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("response: %d %s", rec.Code, rec.Body.String())
	}
	if len(relay.botEvents) != 1 {
		t.Fatalf("relay driven %d times", len(relay.botEvents))
	}
	ev := relay.botEvents[0]
	if ev.SenderID != "support_bot" || ev.ChannelURL != "conv-1" || ev.Text != "hi there" {
		t.Errorf("event: %+v", ev)
	}
}

func TestSendbirdWebhook_OtherCategoriesAcknowledgedNotRelayed(t *testing.T) {
	relay := &fakeRelay{}
	s := newTestServer(relay)

	rec := doPost(t, s, "/sbwebhook", `{"category":"group_channel:message_read"}`)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("response: %d %s", rec.Code, rec.Body.String())
	}
	if len(relay.botEvents) != 0 {
		t.Error("non message_send categories must not reach the relay")
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(&fakeRelay{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") || !strings.Contains(rec.Body.String(), "test") {
		t.Errorf("body: %s", rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(&fakeRelay{})
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "talkbridge_uptime_seconds") {
		t.Errorf("exposition should include uptime: %s", rec.Body.String())
	}
}
