package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nirajbawa/match-pair-game/internal/config"
	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// PlayerRepository is the document-collection contract consumed by the
// service layer and the live collection: create with auto-id, point reads,
// a merge-style score update, and the filtered/ordered completed-games query.
type PlayerRepository interface {
	CreatePlayer(ctx context.Context, username string) (domain.Player, error)
	GetPlayer(ctx context.Context, id string) (*domain.Player, error)
	FindByUsername(ctx context.Context, username string) (*domain.Player, error)
	ApplyScore(ctx context.Context, update domain.ScoreUpdate) error
	Touch(ctx context.Context, id string) error
	QueryCompleted(ctx context.Context, since time.Time) ([]domain.Player, error)
}

// Repository provides PostgreSQL-based access to the players collection
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ PlayerRepository = (*Repository)(nil)

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS players (
			id UUID PRIMARY KEY,
			username VARCHAR(64) NOT NULL,
			score INT NOT NULL DEFAULT 0,
			level INT NOT NULL DEFAULT 1,
			game_completed BOOLEAN NOT NULL DEFAULT FALSE,
			submitted_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_active TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_players_username ON players(username)`,
		`CREATE INDEX IF NOT EXISTS idx_players_submitted ON players(submitted_at) WHERE game_completed`,
	}

	for _, migration := range migrations {
		if _, err := r.pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// CreatePlayer inserts a fresh, not-yet-completed record for a username and
// returns it with its generated id.
func (r *Repository) CreatePlayer(ctx context.Context, username string) (domain.Player, error) {
	p := domain.Player{
		ID:         uuid.NewString(),
		Username:   username,
		Score:      0,
		Level:      1,
		CreatedAt:  time.Now(),
		LastActive: time.Now(),
	}

	query := `
		INSERT INTO players (id, username, score, level, game_completed, created_at, last_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Username, p.Score, p.Level, p.GameCompleted, p.CreatedAt, p.LastActive,
	)
	if err != nil {
		return domain.Player{}, fmt.Errorf("creating player: %w", err)
	}
	return p, nil
}

const playerColumns = `id, username, score, level, game_completed, submitted_at, created_at, last_active`

func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(
		&p.ID,
		&p.Username,
		&p.Score,
		&p.Level,
		&p.GameCompleted,
		&p.SubmittedAt,
		&p.CreatedAt,
		&p.LastActive,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("scanning player: %w", err)
	}
	return &p, nil
}

// GetPlayer retrieves a player record by id
func (r *Repository) GetPlayer(ctx context.Context, id string) (*domain.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	return scanPlayer(r.pool.QueryRow(ctx, query, id))
}

// FindByUsername returns the record for a username, or ErrPlayerNotFound.
// Usernames are intended-unique; if duplicates exist the earliest wins.
func (r *Repository) FindByUsername(ctx context.Context, username string) (*domain.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE username = $1 ORDER BY created_at ASC LIMIT 1`
	return scanPlayer(r.pool.QueryRow(ctx, query, username))
}

// ApplyScore records a completed game: sets the score, marks the record
// completed and refreshes submitted_at and last_active in one update.
func (r *Repository) ApplyScore(ctx context.Context, update domain.ScoreUpdate) error {
	query := `
		UPDATE players
		SET score = $2, game_completed = TRUE, submitted_at = $3, last_active = $3
		WHERE id = $1
	`
	result, err := r.pool.Exec(ctx, query, update.PlayerID, update.Score, update.SubmittedAt)
	if err != nil {
		return fmt.Errorf("applying score: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// Touch refreshes last_active for a player
func (r *Repository) Touch(ctx context.Context, id string) error {
	query := `UPDATE players SET last_active = $2 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("touching player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

// QueryCompleted returns completed-game records with submitted_at at or after
// since (all records when since is zero), ordered by submitted_at ascending.
// The order is a pre-filter convenience; ranking does not depend on it.
func (r *Repository) QueryCompleted(ctx context.Context, since time.Time) ([]domain.Player, error) {
	query := `
		SELECT ` + playerColumns + `
		FROM players
		WHERE game_completed AND submitted_at IS NOT NULL AND submitted_at >= $1
		ORDER BY submitted_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("querying completed players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}
