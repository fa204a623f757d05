// Package talktalk is a thin client for the Naver TalkTalk chatbot event API.
package talktalk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Wire format of the TalkTalk event API.
type eventRequest struct {
	Event       string       `json:"event"`
	User        string       `json:"user"`
	TextContent *textContent `json:"textContent,omitempty"`
	Options     *options     `json:"options,omitempty"`
}

type textContent struct {
	Text string `json:"text"`
}

type options struct {
	Action string `json:"action"`
}

// Client sends events to the TalkTalk gateway. It performs no retries; retry
// pressure belongs to the webhook sender.
type Client struct {
	apiURL string
	token  string
	client *http.Client
	logger *slog.Logger
}

type Config struct {
	APIURL  string
	Token   string
	Timeout time.Duration
	Logger  *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiURL: cfg.APIURL,
		token:  cfg.Token,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: cfg.Logger,
	}
}

// SendText delivers a reply to the user.
func (c *Client) SendText(ctx context.Context, userID, text string) error {
	return c.post(ctx, eventRequest{
		Event:       "send",
		User:        userID,
		TextContent: &textContent{Text: text},
	})
}

// SendAction sends a typing indicator (typingOn / typingOff).
func (c *Client) SendAction(ctx context.Context, userID, action string) error {
	return c.post(ctx, eventRequest{
		Event:   "action",
		User:    userID,
		Options: &options{Action: action},
	})
}

func (c *Client) post(ctx context.Context, ev eventRequest) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal talktalk event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build talktalk request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Authorization", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("talktalk %s event: %w", ev.Event, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("talktalk %s event: status %d: %s",
			ev.Event, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.logger.Debug("talktalk event delivered", "event", ev.Event, "user", ev.User)
	return nil
}
