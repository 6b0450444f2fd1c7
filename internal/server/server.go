// Package server exposes the analysis and chat services over HTTP. Every
// response uses the same JSON envelope so clients can branch on success
// without inspecting status codes.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/safeguard-ai/safeguard/internal/analyzer"
	"github.com/safeguard-ai/safeguard/internal/cache"
	"github.com/safeguard-ai/safeguard/internal/chat"
	"github.com/safeguard-ai/safeguard/internal/models"
)

// envProduction hides internal error detail from clients.
const envProduction = "production"

// Server is the HTTP front for the analysis and chat services.
type Server struct {
	analyzer *analyzer.Analyzer
	chat     *chat.Manager
	cache    *cache.Cache
	env      string
	logger   *zap.Logger
	mux      *http.ServeMux
	started  time.Time

	limiterStop chan struct{}
	general     *rateLimiter
	analyze     *rateLimiter
	stats       *rateLimiter
}

// New creates a Server with all routes registered.
func New(a *analyzer.Analyzer, chatManager *chat.Manager, c *cache.Cache, env string, logger *zap.Logger) *Server {
	s := &Server{
		analyzer:    a,
		chat:        chatManager,
		cache:       c,
		env:         env,
		logger:      logger,
		mux:         http.NewServeMux(),
		started:     time.Now(),
		limiterStop: make(chan struct{}),
	}
	s.general = newRateLimiter(generalRate, generalWindow, s.limiterStop)
	s.analyze = newRateLimiter(analyzeRate, analyzeWindow, s.limiterStop)
	s.stats = newRateLimiter(statsRate, statsWindow, s.limiterStop)
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close stops the limiter cleanup goroutines.
func (s *Server) Close() {
	close(s.limiterStop)
}

// routes registers all HTTP routes on the server mux.
func (s *Server) routes() {
	// Analysis
	s.mux.HandleFunc("POST /api/analyze", s.limited(s.handleAnalyze, s.analyze))
	s.mux.HandleFunc("GET /api/history", s.limited(s.handleHistory))
	s.mux.HandleFunc("GET /api/analysis/{id}", s.limited(s.handleAnalysisByID))
	s.mux.HandleFunc("GET /api/analysis/address/{address}", s.limited(s.handleAnalysisByAddress))
	s.mux.HandleFunc("GET /api/stats", s.limited(s.handleStats, s.stats))

	// Chat
	s.mux.HandleFunc("POST /api/chat/session", s.limited(s.handleCreateSession))
	s.mux.HandleFunc("POST /api/chat/message", s.limited(s.handleSendMessage))
	s.mux.HandleFunc("GET /api/chat/history/{sessionId}", s.limited(s.handleChatHistory))
	s.mux.HandleFunc("DELETE /api/chat/session/{sessionId}", s.limited(s.handleDeleteSession))
	s.mux.HandleFunc("GET /api/chat/sessions", s.limited(s.handleListSessions))

	// Health
	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	// Unknown routes still get the JSON envelope.
	s.mux.HandleFunc("/", s.handleNotFound)
}

// limited wraps a handler with the general limiter plus any
// endpoint-specific limiters.
func (s *Server) limited(h http.HandlerFunc, extra ...*rateLimiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := getIP(r)
		if !s.general.allow(ip) {
			s.writeError(w, models.NewRateLimitError("Too many requests, please try again later"))
			return
		}
		for _, rl := range extra {
			if !rl.allow(ip) {
				s.writeError(w, models.NewRateLimitError("Rate limit exceeded for this endpoint"))
				return
			}
		}
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeSuccess(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"environment": s.env,
		"uptime":      time.Since(s.started).Seconds(),
		"cache":       s.cache.Stats(),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, models.NewNotFoundError("Route not found"))
}

// envelope is the uniform response shape.
type envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Cached    *bool      `json:"cached,omitempty"`
	Total     *int       `json:"total,omitempty"`
	Error     *errorBody `json:"error,omitempty"`
	Timestamp string     `json:"timestamp"`
}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, env envelope) {
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeSuccess(w http.ResponseWriter, status int, data any) {
	s.writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeError maps an error onto the envelope. Unclassified errors become
// a 500 whose message is hidden in production.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		s.writeJSON(w, apiErr.Status, envelope{
			Success: false,
			Error:   &errorBody{Message: apiErr.Message, Code: apiErr.Code},
		})
		return
	}

	s.logger.Error("unhandled error", zap.Error(err))
	msg := "Internal server error"
	if s.env != envProduction {
		msg = err.Error()
	}
	s.writeJSON(w, http.StatusInternalServerError, envelope{
		Success: false,
		Error:   &errorBody{Message: msg, Code: models.CodeInternal},
	})
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.NewValidationError("Request body must be valid JSON")
	}
	return nil
}
