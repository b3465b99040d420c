package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// SnapshotFunc receives the full current result set of a subscription's
// query. It is invoked once immediately on subscribe and again after every
// successful mutation; the set is always complete, never a diff.
type SnapshotFunc func(players []domain.Player)

// ErrorFunc receives query failures on the subscription. A failed delivery
// leaves the subscription attached; a later mutation retries it.
type ErrorFunc func(err error)

type subscription struct {
	window     domain.Window
	onSnapshot SnapshotFunc
	onError    ErrorFunc
	active     atomic.Bool
}

// Collection wraps the player repository with live-query semantics: all
// writes go through it, and every acknowledged write re-runs each
// subscriber's query and re-delivers the full matching set.
type Collection struct {
	repo   PlayerRepository
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	subs map[string]*subscription
}

// NewCollection creates a live collection over a player repository.
func NewCollection(repo PlayerRepository, logger *slog.Logger) *Collection {
	return &Collection{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		subs:   make(map[string]*subscription),
	}
}

// Repo exposes the underlying repository for read-only access.
func (c *Collection) Repo() PlayerRepository {
	return c.repo
}

// CreatePlayer creates a record and notifies subscribers.
func (c *Collection) CreatePlayer(ctx context.Context, username string) (domain.Player, error) {
	p, err := c.repo.CreatePlayer(ctx, username)
	if err != nil {
		return domain.Player{}, err
	}
	c.notify(ctx)
	return p, nil
}

// ApplyScore applies a score update and notifies subscribers.
func (c *Collection) ApplyScore(ctx context.Context, update domain.ScoreUpdate) error {
	if err := c.repo.ApplyScore(ctx, update); err != nil {
		return err
	}
	c.notify(ctx)
	return nil
}

// Subscribe attaches a live query over the completed-games set for a window.
// The current snapshot is delivered synchronously before Subscribe returns.
// The returned function detaches the subscription; after it returns, no
// further deliveries reach the callbacks.
func (c *Collection) Subscribe(window domain.Window, onSnapshot SnapshotFunc, onError ErrorFunc) (unsubscribe func()) {
	sub := &subscription{
		window:     window,
		onSnapshot: onSnapshot,
		onError:    onError,
	}
	sub.active.Store(true)

	id := uuid.NewString()
	c.mu.Lock()
	c.subs[id] = sub
	c.mu.Unlock()

	c.deliver(context.Background(), sub)

	return func() {
		sub.active.Store(false)
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// SubscriberCount returns the number of attached subscriptions.
func (c *Collection) SubscriberCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func (c *Collection) notify(ctx context.Context) {
	c.mu.Lock()
	subs := make([]*subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	for _, sub := range subs {
		c.deliver(ctx, sub)
	}
}

func (c *Collection) deliver(ctx context.Context, sub *subscription) {
	if !sub.active.Load() {
		return
	}

	since := sub.window.Since(c.now())
	players, err := c.repo.QueryCompleted(ctx, since)
	if err != nil {
		c.logger.Warn("live query failed", "window", sub.window, "error", err)
		if sub.active.Load() && sub.onError != nil {
			sub.onError(err)
		}
		return
	}

	// Re-check after the query so a teardown racing the snapshot wins.
	if sub.active.Load() {
		sub.onSnapshot(players)
	}
}
