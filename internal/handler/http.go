package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nirajbawa/match-pair-game/internal/domain"
	"github.com/nirajbawa/match-pair-game/internal/game"
	"github.com/nirajbawa/match-pair-game/internal/leaderboard"
	"github.com/nirajbawa/match-pair-game/internal/service"
	"github.com/nirajbawa/match-pair-game/internal/store"
	"github.com/nirajbawa/match-pair-game/internal/websocket"
)

// sessionHeader carries the caller's session token, standing in for the
// browser tab's session scope.
const sessionHeader = "X-Session-Token"

// Handler provides HTTP handlers for the game API
type Handler struct {
	service    *service.GameService
	collection *store.Collection
	hub        *websocket.Hub
	logger     *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.GameService, collection *store.Collection, hub *websocket.Hub, logger *slog.Logger) *Handler {
	return &Handler{
		service:    service,
		collection: collection,
		hub:        hub,
		logger:     logger,
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
	r.Use(corsMiddleware)

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint
	r.Get("/ws", h.HandleWebSocket)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Player registration and identity
		r.Post("/players", h.Register)
		r.Get("/players/me", h.CurrentPlayer)
		r.Delete("/players/me", h.ClearSession)
		r.Get("/players/{playerID}", h.GetPlayer)

		// Game sessions
		r.Route("/games", func(r chi.Router) {
			r.Post("/", h.StartGame)

			r.Route("/{gameID}", func(r chi.Router) {
				r.Get("/", h.GetGame)
				r.Post("/matches", h.ProposeMatch)
				r.Delete("/matches/{questionID}", h.RemoveMatch)
				r.Post("/submit", h.SubmitScore)
			})
		})

		// Leaderboard
		r.Get("/leaderboard", h.GetLeaderboard)
		r.Get("/leaderboard/me", h.GetOwnRank)

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID, "+sessionHeader)

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
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

// writeDomainError maps a service error onto an HTTP status.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUsernameRequired) || errors.Is(err, domain.ErrInvalidRequest):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrUsernameTaken):
		h.writeError(w, http.StatusConflict, err)
	case errors.Is(err, domain.ErrNoIdentity):
		h.writeError(w, http.StatusUnauthorized, err)
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrGameIncomplete),
		errors.Is(err, domain.ErrAlreadySubmitted),
		errors.Is(err, domain.ErrSubmitInProgress):
		h.writeError(w, http.StatusConflict, err)
	default:
		h.logger.Error("request failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

func sessionToken(r *http.Request) string {
	return r.Header.Get(sessionHeader)
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

// RegisterRequest is the payload for claiming a display name.
type RegisterRequest struct {
	Username string `json:"username"`
}

// RegisterResponse returns the identity plus the session token to present
// on subsequent requests.
type RegisterResponse struct {
	Token  string          `json:"token"`
	Player domain.Identity `json:"player"`
}

// Register claims a display name for a session
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	token := sessionToken(r)
	if token == "" {
		token = uuid.NewString()
	}

	identity, err := h.service.Register(r.Context(), token, req.Username)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    RegisterResponse{Token: token, Player: identity},
	})
}

// CurrentPlayer returns the session's identity, if any
func (h *Handler) CurrentPlayer(w http.ResponseWriter, r *http.Request) {
	identity, err := h.service.Identity(r.Context(), sessionToken(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if identity == nil {
		h.writeError(w, http.StatusUnauthorized, domain.ErrNoIdentity)
		return
	}
	h.writeSuccess(w, identity)
}

// ClearSession forgets the session's identity
func (h *Handler) ClearSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearSession(r.Context(), sessionToken(r)); err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "cleared"})
}

// GetPlayer returns a player record by id
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	playerID := chi.URLParam(r, "playerID")
	if playerID == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	player, err := h.collection.Repo().GetPlayer(r.Context(), playerID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, player)
}

// GameState is the board as seen by the client.
type GameState struct {
	ID        string            `json:"id"`
	Questions []domain.Question `json:"questions"`
	Answers   []AnswerState     `json:"answers"`
	Matches   []domain.Match    `json:"matches"`
	Progress  int               `json:"progress"`
	Total     int               `json:"total"`
	Complete  bool              `json:"complete"`
	Completed bool              `json:"completed"`
	Score     int               `json:"score"`
}

// AnswerState is an answer plus whether it is currently held by a match.
type AnswerState struct {
	domain.Answer
	Used bool `json:"used"`
}

func gameState(gs *game.Session) GameState {
	e := gs.Engine
	answers := e.Answers()
	state := GameState{
		ID:        gs.ID,
		Questions: e.Questions(),
		Answers:   make([]AnswerState, len(answers)),
		Matches:   e.Matches(),
		Total:     e.Total(),
		Complete:  e.IsComplete(),
		Completed: e.Completed(),
		Score:     e.Score(),
	}
	state.Progress = len(state.Matches)
	for i, a := range answers {
		state.Answers[i] = AnswerState{Answer: a, Used: e.IsAnswerUsed(a.ID)}
	}
	return state
}

// StartGame deals a new board for the session's player
func (h *Handler) StartGame(w http.ResponseWriter, r *http.Request) {
	gs, err := h.service.StartGame(r.Context(), sessionToken(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    gameState(gs),
	})
}

// GetGame returns the current board state
func (h *Handler) GetGame(w http.ResponseWriter, r *http.Request) {
	gs, err := h.service.Game(r.Context(), sessionToken(r), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeSuccess(w, gameState(gs))
}

// ProposeMatchRequest pairs an answer with a question.
type ProposeMatchRequest struct {
	QuestionID int `json:"question_id"`
	AnswerID   int `json:"answer_id"`
}

// ProposeMatch drops an answer onto a question
func (h *Handler) ProposeMatch(w http.ResponseWriter, r *http.Request) {
	var req ProposeMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	gs, err := h.service.Game(r.Context(), sessionToken(r), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	// An already-used answer is a silent no-op, not an error; the board
	// state tells the client what happened.
	gs.Engine.ProposeMatch(req.QuestionID, req.AnswerID)
	h.writeSuccess(w, gameState(gs))
}

// RemoveMatch detaches the answer matched to a question
func (h *Handler) RemoveMatch(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.Atoi(chi.URLParam(r, "questionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	gs, err := h.service.Game(r.Context(), sessionToken(r), chi.URLParam(r, "gameID"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	gs.Engine.RemoveMatch(questionID)
	h.writeSuccess(w, gameState(gs))
}

// SubmitScore grades the board and persists the result
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	score, err := h.service.SubmitScore(r.Context(), sessionToken(r), gameID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeSuccess(w, map[string]interface{}{
		"status": "accepted",
		"score":  score,
	})
}

// GetLeaderboard returns the ranked view for a window, optionally narrowed
// by a username search that preserves assigned ranks
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	window := domain.ParseWindow(r.URL.Query().Get("window"))

	players, err := h.collection.Repo().QueryCompleted(r.Context(), window.Since(time.Now()))
	if err != nil {
		h.logger.Error("failed to query leaderboard", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	ranked := leaderboard.Rank(players)
	stats := leaderboard.Aggregate(ranked)
	entries := leaderboard.SearchEntries(ranked, r.URL.Query().Get("search"))

	h.writeSuccess(w, domain.LeaderboardView{
		Window:  window,
		Entries: entries,
		Stats:   stats,
	})
}

// GetOwnRank returns a player's entry in the ranked set. The player is the
// session's identity unless an explicit player id is given
func (h *Handler) GetOwnRank(w http.ResponseWriter, r *http.Request) {
	playerID := r.URL.Query().Get("player")
	if playerID == "" {
		identity, err := h.service.Identity(r.Context(), sessionToken(r))
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		if identity == nil {
			h.writeError(w, http.StatusUnauthorized, domain.ErrNoIdentity)
			return
		}
		playerID = identity.ID
	}

	window := domain.ParseWindow(r.URL.Query().Get("window"))
	players, err := h.collection.Repo().QueryCompleted(r.Context(), window.Since(time.Now()))
	if err != nil {
		h.logger.Error("failed to query leaderboard", "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
		return
	}

	for _, entry := range leaderboard.Rank(players) {
		if entry.ID == playerID {
			h.writeSuccess(w, entry)
			return
		}
	}
	h.writeError(w, http.StatusNotFound, domain.ErrPlayerNotFound)
}
