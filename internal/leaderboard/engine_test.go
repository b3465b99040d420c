package leaderboard

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nirajbawa/match-pair-game/internal/domain"
	"github.com/nirajbawa/match-pair-game/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSub struct {
	window     domain.Window
	onSnapshot store.SnapshotFunc
	onError    store.ErrorFunc
}

// fakeSource records subscriptions and lets tests push snapshots or
// failures into them.
type fakeSource struct {
	mu   sync.Mutex
	next int
	subs map[int]*fakeSub
}

func newFakeSource() *fakeSource {
	return &fakeSource{subs: make(map[int]*fakeSub)}
}

func (f *fakeSource) Subscribe(window domain.Window, onSnapshot store.SnapshotFunc, onError store.ErrorFunc) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = &fakeSub{window: window, onSnapshot: onSnapshot, onError: onError}
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.subs, id)
		f.mu.Unlock()
	}
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeSource) push(players []domain.Player) {
	f.mu.Lock()
	subs := make([]*fakeSub, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()
	for _, s := range subs {
		s.onSnapshot(players)
	}
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	subs := make([]*fakeSub, 0, len(f.subs))
	for _, s := range f.subs {
		subs = append(subs, s)
	}
	f.mu.Unlock()
	for _, s := range subs {
		s.onError(err)
	}
}

func ts(offset time.Duration) *time.Time {
	t := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).Add(offset)
	return &t
}

func completedPlayer(id, username string, score int, submitted *time.Time) domain.Player {
	return domain.Player{
		ID:            id,
		Username:      username,
		Score:         score,
		GameCompleted: true,
		SubmittedAt:   submitted,
	}
}

func TestRankOrdering(t *testing.T) {
	players := []domain.Player{
		completedPlayer("a", "alice", 2, ts(0)),
		completedPlayer("b", "bob", 4, ts(time.Minute)),
		completedPlayer("c", "carol", 4, ts(0)),
		completedPlayer("d", "dave", 3, ts(0)),
	}

	ranked := Rank(players)
	want := []string{"c", "b", "d", "a"}
	if len(ranked) != len(want) {
		t.Fatalf("len = %d, want %d", len(ranked), len(want))
	}
	for i, id := range want {
		if ranked[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, ranked[i].ID, id)
		}
		if ranked[i].Rank != i+1 {
			t.Errorf("rank at position %d = %d, want %d", i, ranked[i].Rank, i+1)
		}
	}
}

func TestRankEqualScoreEarlierSubmitterWins(t *testing.T) {
	players := []domain.Player{
		completedPlayer("late", "late", 4, ts(time.Hour)),
		completedPlayer("early", "early", 4, ts(0)),
	}

	ranked := Rank(players)
	if ranked[0].ID != "early" || ranked[0].Rank != 1 {
		t.Errorf("first = %s rank %d, want early rank 1", ranked[0].ID, ranked[0].Rank)
	}
	if ranked[1].ID != "late" || ranked[1].Rank != 2 {
		t.Errorf("second = %s rank %d, want late rank 2", ranked[1].ID, ranked[1].Rank)
	}
}

func TestRankFiltersUnrankable(t *testing.T) {
	players := []domain.Player{
		completedPlayer("ok", "ok", 3, ts(0)),
		{ID: "incomplete", Username: "incomplete", Score: 4},
		{ID: "no-time", Username: "no-time", Score: 4, GameCompleted: true},
	}

	ranked := Rank(players)
	if len(ranked) != 1 || ranked[0].ID != "ok" {
		t.Errorf("ranked = %+v, want only the completed record", ranked)
	}
}

func TestRankIdempotent(t *testing.T) {
	players := []domain.Player{
		completedPlayer("a", "a", 4, ts(0)),
		completedPlayer("b", "b", 4, ts(0)),
		completedPlayer("c", "c", 2, ts(0)),
	}

	first := Rank(players)
	second := Rank(players)
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Rank != second[i].Rank {
			t.Fatalf("rankings diverged at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestAggregate(t *testing.T) {
	ranked := Rank([]domain.Player{
		completedPlayer("a", "a", 4, ts(0)),
		completedPlayer("b", "b", 3, ts(0)),
		completedPlayer("c", "c", 2, ts(0)),
	})

	stats := Aggregate(ranked)
	if stats.TotalPlayers != 3 {
		t.Errorf("TotalPlayers = %d, want 3", stats.TotalPlayers)
	}
	if stats.TopScore != 4 {
		t.Errorf("TopScore = %d, want 4", stats.TopScore)
	}
	if stats.AverageScore != 3 {
		t.Errorf("AverageScore = %d, want 3", stats.AverageScore)
	}
}

func TestAggregateRoundsMean(t *testing.T) {
	ranked := Rank([]domain.Player{
		completedPlayer("a", "a", 4, ts(0)),
		completedPlayer("b", "b", 1, ts(0)),
	})
	if stats := Aggregate(ranked); stats.AverageScore != 3 {
		t.Errorf("AverageScore = %d, want 3 (2.5 rounds up)", stats.AverageScore)
	}
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil)
	if stats.TotalPlayers != 0 || stats.TopScore != 0 || stats.AverageScore != 0 {
		t.Errorf("stats = %+v, want zeros", stats)
	}
}

func TestSearchEntriesKeepsRanks(t *testing.T) {
	ranked := Rank([]domain.Player{
		completedPlayer("a", "Phoenix", 4, ts(0)),
		completedPlayer("b", "Shadow", 3, ts(0)),
		completedPlayer("c", "phoenixrider", 2, ts(0)),
	})

	found := SearchEntries(ranked, "PHOENIX")
	if len(found) != 2 {
		t.Fatalf("found %d entries, want 2", len(found))
	}
	if found[0].ID != "a" || found[0].Rank != 1 {
		t.Errorf("first = %s rank %d, want a rank 1", found[0].ID, found[0].Rank)
	}
	if found[1].ID != "c" || found[1].Rank != 3 {
		t.Errorf("second = %s rank %d, want c rank 3 (not renumbered)", found[1].ID, found[1].Rank)
	}
}

func TestSearchEntriesEmptyTerm(t *testing.T) {
	ranked := Rank([]domain.Player{
		completedPlayer("a", "a", 4, ts(0)),
		completedPlayer("b", "b", 3, ts(0)),
	})
	if found := SearchEntries(ranked, ""); len(found) != len(ranked) {
		t.Errorf("empty term returned %d entries, want %d", len(found), len(ranked))
	}
}

func TestEngineAppliesSnapshots(t *testing.T) {
	source := newFakeSource()

	var updates []domain.LeaderboardView
	e := NewEngine(source, domain.WindowAll, testLogger(), func(v domain.LeaderboardView) {
		updates = append(updates, v)
	})
	defer e.Close()

	if source.count() != 1 {
		t.Fatalf("subscriptions = %d, want 1", source.count())
	}

	source.push([]domain.Player{
		completedPlayer("a", "alice", 4, ts(0)),
		completedPlayer("b", "bob", 2, ts(0)),
	})

	view := e.View()
	if len(view.Entries) != 2 || view.Entries[0].ID != "a" {
		t.Errorf("view = %+v", view.Entries)
	}
	if view.Stats.TotalPlayers != 2 || view.Stats.TopScore != 4 {
		t.Errorf("stats = %+v", view.Stats)
	}
	if len(updates) != 1 {
		t.Errorf("onUpdate fired %d times, want 1", len(updates))
	}

	entry, ok := e.EntryFor("b")
	if !ok || entry.Rank != 2 {
		t.Errorf("EntryFor(b) = %+v ok=%v, want rank 2", entry, ok)
	}
}

func TestEngineSetWindowResubscribes(t *testing.T) {
	source := newFakeSource()
	e := NewEngine(source, domain.WindowAll, testLogger(), nil)
	defer e.Close()

	e.SetWindow(domain.WindowToday)
	if source.count() != 1 {
		t.Fatalf("subscriptions after SetWindow = %d, want 1", source.count())
	}
	if e.Window() != domain.WindowToday {
		t.Errorf("Window = %s, want today", e.Window())
	}

	source.mu.Lock()
	var window domain.Window
	for _, s := range source.subs {
		window = s.window
	}
	source.mu.Unlock()
	if window != domain.WindowToday {
		t.Errorf("live subscription window = %s, want today", window)
	}
}

func TestEngineSetWindowSameIsNoOp(t *testing.T) {
	source := newFakeSource()
	e := NewEngine(source, domain.WindowAll, testLogger(), nil)
	defer e.Close()

	before := source.next
	e.SetWindow(domain.WindowAll)
	if source.next != before {
		t.Error("SetWindow with the active window resubscribed")
	}
}

func TestEngineStaleSnapshotDropped(t *testing.T) {
	source := newFakeSource()
	e := NewEngine(source, domain.WindowAll, testLogger(), nil)
	defer e.Close()

	// Capture the first subscription's callback, then switch windows so it
	// becomes stale. Its delivery must not overwrite the new window's view.
	source.mu.Lock()
	var stale store.SnapshotFunc
	for _, s := range source.subs {
		stale = s.onSnapshot
	}
	source.mu.Unlock()

	e.SetWindow(domain.WindowToday)
	stale([]domain.Player{completedPlayer("ghost", "ghost", 4, ts(0))})

	if view := e.View(); len(view.Entries) != 0 {
		t.Errorf("stale snapshot applied: %+v", view.Entries)
	}
}

func TestEngineCloseUnsubscribes(t *testing.T) {
	source := newFakeSource()
	e := NewEngine(source, domain.WindowAll, testLogger(), nil)

	e.Close()
	if source.count() != 0 {
		t.Errorf("subscriptions after Close = %d, want 0", source.count())
	}
	e.Close()
}

func TestEngineErrClearedOnSuccess(t *testing.T) {
	source := newFakeSource()
	e := NewEngine(source, domain.WindowAll, testLogger(), nil)
	defer e.Close()

	refreshErr := errors.New("query failed")
	source.fail(refreshErr)
	if !errors.Is(e.Err(), refreshErr) {
		t.Fatalf("Err = %v, want the refresh failure", e.Err())
	}

	source.push([]domain.Player{completedPlayer("a", "a", 4, ts(0))})
	if e.Err() != nil {
		t.Errorf("Err after successful refresh = %v, want nil", e.Err())
	}
}
