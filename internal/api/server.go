// Package api is the JSON HTTP surface of the medical assistant: chat,
// conversation management, health probes, and the embedded web client.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediblaze/mediblaze/internal/agent"
	"github.com/mediblaze/mediblaze/internal/markdown"
	"github.com/mediblaze/mediblaze/internal/security"
	"github.com/mediblaze/mediblaze/internal/session"
)

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       *slog.Logger
	Agent        ChatAgent      // Required
	Flow         *agent.Flow    // Optional: mounts the raw Genkit flow endpoint
	SessionStore *session.Store // Required
	Renderer     *markdown.Renderer
	Pool         *pgxpool.Pool // Optional: nil disables pool stats in /ready
	CORSOrigins  []string
	IsDev        bool // disables HSTS
	TrustProxy   bool // trust X-Real-IP/X-Forwarded-For
	RateBurst    int  // rate limiter burst per IP (0 = default 60)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if cfg.SessionStore == nil {
		return nil, errors.New("session store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = markdown.New()
	}

	ch := &chatHandler{
		agent:    cfg.Agent,
		sessions: cfg.SessionStore,
		renderer: renderer,
		screen:   security.NewPrompt(),
		logger:   logger,
	}
	cv := &conversationHandler{store: cfg.SessionStore, logger: logger}

	mux := http.NewServeMux()

	// Chat
	mux.HandleFunc("POST /api/v1/chat", ch.send)
	mux.HandleFunc("POST /api/v1/chat/stream", ch.stream)

	// Raw Genkit flow endpoint for Genkit-native clients and the DevUI.
	if cfg.Flow != nil {
		mux.Handle("POST /api/v1/flow/chat", genkit.Handler(cfg.Flow))
	}

	// Conversations
	mux.HandleFunc("POST /api/v1/conversations", cv.create)
	mux.HandleFunc("GET /api/v1/conversations", cv.list)
	mux.HandleFunc("GET /api/v1/conversations/{id}", cv.history)
	mux.HandleFunc("DELETE /api/v1/conversations/{id}/messages", cv.clear)
	mux.HandleFunc("DELETE /api/v1/conversations/{id}", cv.remove)

	// Embedded web client
	mux.Handle("GET /", staticHandler())

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Middleware stack (outermost first):
	//   Recovery -> Logging -> CORS -> RateLimit -> Routes
	// CORS sits before RateLimit so preflight OPTIONS gets proper headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	isDev := cfg.IsDev
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, isDev)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
