package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"talkbridge/internal/domain"
)

// Wire format of TalkTalk webhook deliveries.
type talkEvent struct {
	Event       string `json:"event"`
	User        string `json:"user"`
	TextContent struct {
		Text string `json:"text"`
	} `json:"textContent"`
}

// handleTalkTalk decodes a TalkTalk delivery, runs it through the relay and
// answers in the webhook's status envelope. The upstream contract keeps HTTP
// 200 even for relay failures; the error is carried in the body.
func (s *Server) handleTalkTalk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var ev talkEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "invalid JSON",
		})
		return
	}

	reqID := uuid.NewString()[:8]
	log := s.logger.With("request_id", reqID, "event", ev.Event, "user", ev.User)
	log.Info("talktalk webhook received")

	kind := domain.KindSystem
	if ev.Event == "send" {
		kind = domain.KindMessage
	}

	res := s.relay.RelayUserMessage(r.Context(), domain.Event{
		Direction: domain.UserToAgent,
		UserID:    ev.User,
		Kind:      kind,
		Text:      ev.TextContent.Text,
	})
	log.Info("talktalk webhook handled", "result", res.String())

	switch res {
	case domain.FailedParticipant:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": "failed to create or retrieve user",
		})
	case domain.FailedSend:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": "failed to send message",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
