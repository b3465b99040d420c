package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// Session is one player's in-memory game attempt. Sessions are ephemeral:
// they live only until submitted, removed, or expired, and are never
// persisted.
type Session struct {
	ID        string
	PlayerID  string
	Engine    *Engine
	CreatedAt time.Time

	lastTouched time.Time
}

// Manager owns the active game sessions and expires abandoned ones on a
// background ticker.
type Manager struct {
	pairs   []domain.Pair
	shuffle Shuffler
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewManager creates a session manager over a pair pool.
func NewManager(pairs []domain.Pair, shuffle Shuffler, timeout time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		pairs:    pairs,
		shuffle:  shuffle,
		timeout:  timeout,
		logger:   logger,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Create starts a new game session for a player with a freshly dealt board.
func (m *Manager) Create(playerID string) *Session {
	now := time.Now()
	s := &Session{
		ID:          uuid.NewString(),
		PlayerID:    playerID,
		Engine:      NewEngine(m.pairs, m.shuffle),
		CreatedAt:   now,
		lastTouched: now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logger.Debug("game session created", "game_id", s.ID, "player_id", playerID)
	return s
}

// Get returns a session by id, refreshing its expiry.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	s.lastTouched = time.Now()
	return s, nil
}

// Remove drops a session, cancelling any in-flight drag.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		s.Engine.Pointer().Cancel()
	}
}

// Count returns the number of active sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Start begins the background expiry loop.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.mu.Unlock()

	m.logger.Info("game session manager started", "timeout", m.timeout)
	go m.run(ctx)
}

// Stop halts the expiry loop.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	m.mu.Unlock()

	close(m.stopCh)
	<-m.doneCh
	m.logger.Info("game session manager stopped")
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.timeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.expire()
		}
	}
}

func (m *Manager) expire() {
	cutoff := time.Now().Add(-m.timeout)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.lastTouched.Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Engine.Pointer().Cancel()
		m.logger.Debug("game session expired", "game_id", s.ID, "player_id", s.PlayerID)
	}
}
