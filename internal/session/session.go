package session

import (
	"context"

	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// Store holds the single "current player" identity blob per session token.
// An absent key means no current identity; a blob that fails to parse is
// treated the same way, never as an error.
type Store interface {
	Get(ctx context.Context, token string) (*domain.Identity, error)
	Put(ctx context.Context, token string, identity domain.Identity) error
	Delete(ctx context.Context, token string) error
}
