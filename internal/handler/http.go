package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/career-sequence-game/internal/domain"
	"github.com/career-sequence-game/internal/game"
	"github.com/career-sequence-game/internal/websocket"
)

// Handler provides HTTP handlers for the game API
type Handler struct {
	engine *game.Engine
	hub    *websocket.Hub
	logger *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(engine *game.Engine, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		engine: engine,
		hub:    hub,
		logger: logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", h.StartSession)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.EndSession)
				r.Post("/guess", h.SubmitGuess)
				r.Post("/next", h.NextQuestion)
			})
		})

		r.Get("/players/lookup", h.LookupPlayer)
		r.Get("/stats", h.GetStats)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// handleError maps domain errors onto HTTP status codes
func (h *Handler) handleError(w http.ResponseWriter, err error) {
	var rateLimited *domain.RateLimitError
	switch {
	case errors.As(err, &rateLimited):
		w.Header().Set("Retry-After", strconv.Itoa(int(rateLimited.RetryAfter.Seconds())))
		h.writeError(w, http.StatusTooManyRequests, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrInvalidState):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrValidation):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrCatalogUnavailable):
		h.writeError(w, http.StatusServiceUnavailable, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": h.hub.GetTotalConnections(),
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

type startSessionRequest struct {
	Difficulty domain.DifficultyTier `json:"difficulty"`
	TopN       int                   `json:"top_n"`
}

// StartSession creates a new game session with a first question
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrValidation)
		return
	}

	result, err := h.engine.Start(r.Context(), req.Difficulty, req.TopN)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    result,
	})
}

// GetSession returns a session snapshot
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrValidation)
		return
	}

	session, err := h.engine.Status(r.Context(), sessionID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeSuccess(w, session)
}

// EndSession finalizes and deletes a session
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrValidation)
		return
	}

	result, err := h.engine.End(r.Context(), sessionID)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeSuccess(w, result)
}

type guessRequest struct {
	Guess string `json:"guess"`
}

// clientIdentity keys the guess rate limiter. The ephemeral port must be
// stripped, otherwise every new connection from the same client would get a
// fresh guess budget. RealIP may already have reduced the address to a bare
// IP, in which case it is used as is.
func clientIdentity(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// SubmitGuess submits a free-text guess against the session's current question.
// The guess rate limit is keyed by client IP, set by the RealIP middleware.
func (h *Handler) SubmitGuess(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrValidation)
		return
	}

	var req guessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrValidation)
		return
	}

	result, err := h.engine.Guess(r.Context(), sessionID, clientIdentity(r), req.Guess)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeSuccess(w, result)
}

// NextQuestion advances an answered session to a new question
func (h *Handler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrValidation)
		return
	}

	var overrides game.NextOverrides
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil {
			h.writeError(w, http.StatusBadRequest, domain.ErrValidation)
			return
		}
	}

	result, err := h.engine.Next(r.Context(), sessionID, overrides)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeSuccess(w, result)
}

// LookupPlayer finds a player's career path by approximate name
func (h *Handler) LookupPlayer(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")

	result, err := h.engine.LookupPlayer(r.Context(), name)
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeSuccess(w, result)
}

// GetStats returns question pool statistics
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		h.handleError(w, err)
		return
	}

	h.writeSuccess(w, stats)
}
