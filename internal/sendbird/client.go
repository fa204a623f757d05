// Package sendbird is a thin client for the Sendbird Platform API operations
// the relay needs: provisioning a user and sending a distinct group message.
package sendbird

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

// Error code Sendbird returns from POST /users for a duplicate user_id.
const codeUserAlreadyExists = 400202

// Client talks to the Sendbird Platform API. It performs no retries.
type Client struct {
	apiURL   string
	apiToken string
	client   *http.Client
	logger   *slog.Logger
}

type Config struct {
	APIURL   string
	APIToken string
	Timeout  time.Duration
	Logger   *slog.Logger
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		apiURL:   strings.TrimRight(cfg.APIURL, "/"),
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
	}
}

type createUserRequest struct {
	UserID           string `json:"user_id"`
	Nickname         string `json:"nickname"`
	ProfileURL       string `json:"profile_url"`
	IssueAccessToken bool   `json:"issue_access_token"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type distinctMessageRequest struct {
	SenderID       string         `json:"sender_id"`
	ReceiverIDs    []string       `json:"receiver_ids"`
	MessagePayload messagePayload `json:"message_payload"`
	CreateChannel  bool           `json:"create_channel"`
}

type messagePayload struct {
	MessageType string `json:"message_type"`
	Message     string `json:"message"`
	UserID      string `json:"user_id"`
}

type distinctMessageResponse struct {
	ChannelURL string `json:"channel_url"`
}

// EnsureUser provisions userID on Sendbird. A 400 response carrying the
// "already exists" error code counts as success (idempotent provisioning).
func (c *Client) EnsureUser(ctx context.Context, userID string) error {
	status, body, err := c.post(ctx, "/users", createUserRequest{
		UserID:           userID,
		Nickname:         userID,
		ProfileURL:       "",
		IssueAccessToken: true,
	})
	if err != nil {
		return fmt.Errorf("sendbird create user %s: %w", userID, err)
	}

	switch {
	case status == http.StatusOK:
		c.logger.Debug("sendbird user created", "user", userID)
		return nil
	case status == http.StatusBadRequest:
		var e apiError
		if json.Unmarshal(body, &e) == nil && e.Code == codeUserAlreadyExists {
			c.logger.Debug("sendbird user already exists", "user", userID)
			return nil
		}
	}
	return fmt.Errorf("sendbird create user %s: status %d: %s",
		userID, status, strings.TrimSpace(string(body)))
}

// SendDistinctMessage sends text from senderID to receiverID in their distinct
// group channel, creating it on first contact, and returns the channel URL.
func (c *Client) SendDistinctMessage(ctx context.Context, senderID, receiverID, text string) (string, error) {
	status, body, err := c.post(ctx, "/group_channels/distinct_message", distinctMessageRequest{
		SenderID:    senderID,
		ReceiverIDs: []string{receiverID},
		MessagePayload: messagePayload{
			MessageType: "MESG",
			Message:     text,
			UserID:      senderID,
		},
		CreateChannel: true,
	})
	if err != nil {
		return "", fmt.Errorf("sendbird distinct message: %w", err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("sendbird distinct message: status %d: %s",
			status, strings.TrimSpace(string(body)))
	}

	var resp distinctMessageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse sendbird response: %w", err)
	}
	if resp.ChannelURL == "" {
		return "", fmt.Errorf("sendbird response missing channel_url")
	}
	return resp.ChannelURL, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")
	req.Header.Set("Api-Token", c.apiToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}
