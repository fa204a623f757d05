// Package webhook exposes the HTTP surface: the TalkTalk and Sendbird webhook
// endpoints plus liveness and metrics.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"talkbridge/internal/domain"
	"talkbridge/internal/metrics"
)

const maxBodyBytes = 1 << 20 // 1MB

// Relay is the subset of the relay engine the adapters drive.
type Relay interface {
	RelayUserMessage(ctx context.Context, ev domain.Event) domain.Result
	RelayBotReply(ctx context.Context, ev domain.Event) domain.Result
}

// Server hosts the webhook endpoints.
type Server struct {
	addr    string
	relay   Relay
	logger  *slog.Logger
	version string
	server  *http.Server
}

type ServerConfig struct {
	Addr    string
	Relay   Relay
	Logger  *slog.Logger
	Version string
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		addr:    cfg.Addr,
		relay:   cfg.Relay,
		logger:  cfg.Logger,
		version: cfg.Version,
	}
}

// Handler builds the route table. Exposed separately so tests can drive it
// without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.handleTalkTalk)
	mux.HandleFunc("/sbwebhook", s.handleSendbird)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/metrics", metrics.Default.Handler())
	return mux
}

// Start runs the HTTP server until the context is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Info("webhook server starting", "addr", s.addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("webhook server: %w", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
