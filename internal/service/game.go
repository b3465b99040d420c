package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nirajbawa/match-pair-game/internal/domain"
	"github.com/nirajbawa/match-pair-game/internal/events"
	"github.com/nirajbawa/match-pair-game/internal/game"
	"github.com/nirajbawa/match-pair-game/internal/session"
	"github.com/nirajbawa/match-pair-game/internal/store"
)

// GameService provides the registration and score-submission flows, tying
// the game sessions, the players collection and the session store together.
type GameService struct {
	collection *store.Collection
	sessions   session.Store
	games      *game.Manager
	publisher  events.Publisher
	logger     *slog.Logger
}

// NewGameService creates a new game service. publisher may be nil when the
// score event feed is disabled.
func NewGameService(
	collection *store.Collection,
	sessions session.Store,
	games *game.Manager,
	publisher events.Publisher,
	logger *slog.Logger,
) *GameService {
	return &GameService{
		collection: collection,
		sessions:   sessions,
		games:      games,
		publisher:  publisher,
		logger:     logger,
	}
}

// Register claims a display name for the session. An unseen username gets a
// fresh record; an existing record with an incomplete game is resumed; a
// username that already completed the game is rejected before any write.
//
// The uniqueness check is query-before-insert with no transactional
// guarantee; two racing registrations of the same name can both succeed.
func (s *GameService) Register(ctx context.Context, token, username string) (domain.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Identity{}, domain.ErrUsernameRequired
	}

	existing, err := s.collection.Repo().FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrPlayerNotFound) {
		return domain.Identity{}, fmt.Errorf("checking username: %w", err)
	}

	var player domain.Player
	switch {
	case existing != nil && existing.GameCompleted:
		return domain.Identity{}, domain.ErrUsernameTaken

	case existing != nil:
		// Resume the incomplete attempt under its existing record.
		if err := s.collection.Repo().Touch(ctx, existing.ID); err != nil {
			s.logger.Warn("failed to refresh player activity", "player_id", existing.ID, "error", err)
		}
		player = *existing
		s.logger.Info("resuming existing player", "player_id", player.ID, "username", username)

	default:
		player, err = s.collection.CreatePlayer(ctx, username)
		if err != nil {
			return domain.Identity{}, fmt.Errorf("creating player: %w", err)
		}
		s.logger.Info("player registered", "player_id", player.ID, "username", username)
	}

	identity := domain.IdentityOf(player)
	if err := s.sessions.Put(ctx, token, identity); err != nil {
		return domain.Identity{}, fmt.Errorf("storing session: %w", err)
	}
	return identity, nil
}

// Identity returns the session's current player identity, or nil.
func (s *GameService) Identity(ctx context.Context, token string) (*domain.Identity, error) {
	return s.sessions.Get(ctx, token)
}

// ClearSession forgets the session's identity.
func (s *GameService) ClearSession(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// StartGame deals a new board for the session's player. A player whose game
// is already completed cannot start another attempt.
func (s *GameService) StartGame(ctx context.Context, token string) (*game.Session, error) {
	identity, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if identity == nil {
		return nil, domain.ErrNoIdentity
	}
	if identity.GameCompleted {
		return nil, domain.ErrAlreadySubmitted
	}
	return s.games.Create(identity.ID), nil
}

// Game returns an active game session, verifying it belongs to the caller.
func (s *GameService) Game(ctx context.Context, token, gameID string) (*game.Session, error) {
	identity, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("reading session: %w", err)
	}
	if identity == nil {
		return nil, domain.ErrNoIdentity
	}

	gs, err := s.games.Get(gameID)
	if err != nil {
		return nil, err
	}
	if gs.PlayerID != identity.ID {
		return nil, domain.ErrGameNotFound
	}
	return gs, nil
}

// SubmitScore grades a completed board and writes the result to the players
// collection. On success the session identity is refreshed to reflect
// completion; on failure the game stays submittable and the error surfaces
// as a retryable status.
func (s *GameService) SubmitScore(ctx context.Context, token, gameID string) (int, error) {
	identity, err := s.sessions.Get(ctx, token)
	if err != nil {
		return 0, fmt.Errorf("reading session: %w", err)
	}
	if identity == nil {
		return 0, domain.ErrNoIdentity
	}

	gs, err := s.games.Get(gameID)
	if err != nil {
		return 0, err
	}
	if gs.PlayerID != identity.ID {
		return 0, domain.ErrGameNotFound
	}

	score, err := gs.Engine.Submit(ctx, func(ctx context.Context, score int) error {
		return s.collection.ApplyScore(ctx, domain.ScoreUpdate{
			PlayerID:    identity.ID,
			Score:       score,
			SubmittedAt: time.Now(),
		})
	})
	if err != nil {
		return 0, err
	}

	identity.Score = score
	identity.GameCompleted = true
	identity.Timestamp = time.Now()
	if err := s.sessions.Put(ctx, token, *identity); err != nil {
		// The remote record is authoritative; a stale session blob only
		// costs a re-read.
		s.logger.Warn("failed to refresh session after submit", "player_id", identity.ID, "error", err)
	}

	if s.publisher != nil {
		event := domain.ScoreEvent{
			PlayerID:  identity.ID,
			Username:  identity.Username,
			GameID:    gs.ID,
			Score:     score,
			Total:     gs.Engine.Total(),
			EventType: "submit",
		}
		if err := s.publisher.PublishScore(event); err != nil {
			s.logger.Warn("failed to publish score event", "player_id", identity.ID, "error", err)
		}
	}

	s.logger.Info("score submitted",
		"player_id", identity.ID,
		"game_id", gs.ID,
		"score", score,
	)
	return score, nil
}
