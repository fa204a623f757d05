package webhook

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"talkbridge/internal/domain"
)

// Category of Sendbird webhook deliveries the relay acts on.
const categoryMessageSend = "group_channel:message_send"

// Wire format of Sendbird webhook deliveries, reduced to the fields the relay
// reads.
type sendbirdEvent struct {
	Category string `json:"category"`
	Channel  struct {
		ChannelURL string `json:"channel_url"`
	} `json:"channel"`
	Sender struct {
		UserID string `json:"user_id"`
	} `json:"sender"`
	Payload struct {
		Message string `json:"message"`
	} `json:"payload"`
}

// handleSendbird decodes a Sendbird delivery and relays bot messages back to
// TalkTalk. Every delivery is acknowledged with {status: ok}.
func (s *Server) handleSendbird(w http.ResponseWriter, r *http.Request) {
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

	var ev sendbirdEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "invalid JSON",
		})
		return
	}

	if ev.Category != categoryMessageSend {
		s.logger.Debug("sendbird webhook category ignored", "category", ev.Category)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	reqID := uuid.NewString()[:8]
	log := s.logger.With("request_id", reqID, "channel", ev.Channel.ChannelURL, "sender", ev.Sender.UserID)
	log.Info("sendbird webhook received")

	res := s.relay.RelayBotReply(r.Context(), domain.Event{
		Direction:  domain.AgentToUser,
		SenderID:   ev.Sender.UserID,
		ChannelURL: ev.Channel.ChannelURL,
		Text:       ev.Payload.Message,
	})
	log.Info("sendbird webhook handled", "result", res.String())

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
