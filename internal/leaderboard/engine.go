package leaderboard

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/nirajbawa/match-pair-game/internal/domain"
	"github.com/nirajbawa/match-pair-game/internal/store"
)

// Source is the live-query port the engine subscribes through.
type Source interface {
	Subscribe(window domain.Window, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) (unsubscribe func())
}

// Engine turns full collection snapshots into a deterministic ranked view.
// It owns exactly one live subscription at a time: changing the window tears
// the old one down before the new one delivers, and Close releases it.
type Engine struct {
	source   Source
	logger   *slog.Logger
	onUpdate func(domain.LeaderboardView)

	mu          sync.Mutex
	window      domain.Window
	generation  uint64
	unsubscribe func()
	ranked      []domain.RankedEntry
	stats       domain.LeaderboardStats
	lastErr     error
}

// NewEngine creates a ranking engine and subscribes to the given window.
// onUpdate, if non-nil, is invoked with each recomputed view.
func NewEngine(source Source, window domain.Window, logger *slog.Logger, onUpdate func(domain.LeaderboardView)) *Engine {
	e := &Engine{
		source:   source,
		logger:   logger,
		onUpdate: onUpdate,
		window:   window,
	}
	e.resubscribe(window)
	return e
}

// Window returns the currently active time window.
func (e *Engine) Window() domain.Window {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.window
}

// SetWindow switches the time window. The previous subscription is fully
// detached before the new one attaches, so a stale snapshot can never
// overwrite the new window's view.
func (e *Engine) SetWindow(window domain.Window) {
	e.mu.Lock()
	if window == e.window && e.unsubscribe != nil {
		e.mu.Unlock()
		return
	}
	e.window = window
	e.mu.Unlock()

	e.resubscribe(window)
}

// Close releases the live subscription. Safe to call more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	e.generation++
	old := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if old != nil {
		old()
	}
}

func (e *Engine) resubscribe(window domain.Window) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	old := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if old != nil {
		old()
	}

	unsub := e.source.Subscribe(window,
		func(players []domain.Player) { e.apply(gen, players) },
		func(err error) { e.fail(gen, err) },
	)

	e.mu.Lock()
	if e.generation != gen {
		// A later SetWindow or Close raced this subscribe; ours is stale.
		e.mu.Unlock()
		unsub()
		return
	}
	e.unsubscribe = unsub
	e.mu.Unlock()
}

func (e *Engine) apply(gen uint64, players []domain.Player) {
	ranked := Rank(players)
	stats := Aggregate(ranked)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}
	e.ranked = ranked
	e.stats = stats
	e.lastErr = nil
	window := e.window
	cb := e.onUpdate
	e.mu.Unlock()

	if cb != nil {
		cb(domain.LeaderboardView{Window: window, Entries: ranked, Stats: stats})
	}
}

func (e *Engine) fail(gen uint64, err error) {
	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		return
	}
	e.lastErr = err
	e.mu.Unlock()

	e.logger.Warn("leaderboard refresh failed", "error", err)
}

// View returns the current ranked view with aggregates.
func (e *Engine) View() domain.LeaderboardView {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := make([]domain.RankedEntry, len(e.ranked))
	copy(entries, e.ranked)
	return domain.LeaderboardView{Window: e.window, Entries: entries, Stats: e.stats}
}

// Err returns the last refresh failure, or nil after a successful delivery.
// The failure is retryable: the next collection change retries the query.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Search narrows the displayed entries by case-insensitive substring match
// on the username. Retained entries keep the ranks assigned before the
// search; nothing is renumbered.
func (e *Engine) Search(term string) []domain.RankedEntry {
	e.mu.Lock()
	ranked := e.ranked
	e.mu.Unlock()
	return SearchEntries(ranked, term)
}

// EntryFor looks up a player's entry in the ranked set by id.
func (e *Engine) EntryFor(playerID string) (domain.RankedEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, entry := range e.ranked {
		if entry.ID == playerID {
			return entry, true
		}
	}
	return domain.RankedEntry{}, false
}

// Rank filters a snapshot down to rankable records and assigns a strict
// total order: score descending, then submitted_at ascending (the earlier
// submitter outranks a later equal scorer). Residual ties keep snapshot
// order, so identical snapshots always rank identically. Ranks are
// 1-based positions; ties never share a rank.
func Rank(players []domain.Player) []domain.RankedEntry {
	rankable := make([]domain.Player, 0, len(players))
	for _, p := range players {
		if !p.GameCompleted || p.SubmittedAt == nil {
			continue
		}
		rankable = append(rankable, p)
	}

	sort.SliceStable(rankable, func(i, j int) bool {
		if rankable[i].Score != rankable[j].Score {
			return rankable[i].Score > rankable[j].Score
		}
		return rankable[i].SubmittedAt.Before(*rankable[j].SubmittedAt)
	})

	ranked := make([]domain.RankedEntry, len(rankable))
	for i, p := range rankable {
		ranked[i] = domain.RankedEntry{Player: p, Rank: i + 1}
	}
	return ranked
}

// Aggregate computes the derived stats over the ranked, pre-search set.
func Aggregate(entries []domain.RankedEntry) domain.LeaderboardStats {
	stats := domain.LeaderboardStats{TotalPlayers: len(entries)}
	if len(entries) == 0 {
		return stats
	}

	sum := 0
	for _, entry := range entries {
		sum += entry.Score
		if entry.Score > stats.TopScore {
			stats.TopScore = entry.Score
		}
	}
	stats.AverageScore = int(math.Round(float64(sum) / float64(len(entries))))
	return stats
}

// SearchEntries filters entries by case-insensitive substring match on the
// username without touching their ranks.
func SearchEntries(entries []domain.RankedEntry, term string) []domain.RankedEntry {
	if term == "" {
		out := make([]domain.RankedEntry, len(entries))
		copy(out, entries)
		return out
	}

	needle := strings.ToLower(term)
	out := make([]domain.RankedEntry, 0, len(entries))
	for _, entry := range entries {
		if strings.Contains(strings.ToLower(entry.Username), needle) {
			out = append(out, entry)
		}
	}
	return out
}
