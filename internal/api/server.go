// Package api exposes the chat service over HTTP: an SSE streaming chat
// endpoint, conversation and feedback management, and health probes, with
// per-IP rate limiting in front.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"schoolwijzer/internal/orchestrator"
	"schoolwijzer/internal/store"
)

// ServerConfig wires the API server.
type ServerConfig struct {
	Logger     *slog.Logger
	Engine     *orchestrator.Engine // Required
	Store      *store.Store         // Optional: nil limits the API to in-memory conversations
	Pool       *pgxpool.Pool        // Optional: nil disables the database readiness check
	TrustProxy bool                 // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	RateLimit  float64              // Tokens per second per IP (0 = default 1)
	RateBurst  int                  // Burst per IP (0 = default 60)
}

// Server is the HTTP API server.
type Server struct {
	handler http.Handler
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("engine is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 60
	}

	reg := newRegistry()
	ch := &chatHandler{engine: cfg.Engine, registry: reg, logger: logger}
	cv := &conversationHandler{engine: cfg.Engine, registry: reg, store: cfg.Store, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)
	mux.HandleFunc("POST /api/v1/conversations", cv.create)
	mux.HandleFunc("GET /api/v1/conversations/{id}/messages", cv.messages)
	mux.HandleFunc("DELETE /api/v1/conversations/{id}", cv.delete)
	mux.HandleFunc("POST /api/v1/messages/{id}/feedback", cv.feedback)
	mux.HandleFunc("GET /healthz", healthz)
	mux.HandleFunc("GET /readyz", readyz(cfg.Pool))

	rl := newRateLimiter(cfg.RateLimit, cfg.RateBurst)
	handler := rateLimitMiddleware(rl, cfg.TrustProxy, logger)(mux)

	return &Server{handler: handler}, nil
}

// Handler returns the server's root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}
