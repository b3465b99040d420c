package domain

import "time"

// Window selects the time range a leaderboard view covers.
type Window string

const (
	WindowAll      Window = "all"
	WindowToday    Window = "today"
	WindowThisWeek Window = "week"
)

// ParseWindow maps a query value to a Window, defaulting to WindowAll.
func ParseWindow(s string) Window {
	switch Window(s) {
	case WindowToday:
		return WindowToday
	case WindowThisWeek:
		return WindowThisWeek
	default:
		return WindowAll
	}
}

// Since returns the inclusive lower bound for submitted_at in this window,
// or the zero time for WindowAll. Today starts at local midnight, matching
// what players see on their own clocks.
func (w Window) Since(now time.Time) time.Time {
	switch w {
	case WindowToday:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case WindowThisWeek:
		return now.Add(-7 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

// RankedEntry is a player record augmented with its computed rank.
// Ranks are recomputed from scratch on every snapshot; they are never stored.
type RankedEntry struct {
	Player
	Rank int `json:"rank"`
}

// LeaderboardStats are the aggregates derived from the ranked, pre-search set.
type LeaderboardStats struct {
	TotalPlayers int `json:"total_players"`
	TopScore     int `json:"top_score"`
	AverageScore int `json:"average_score"`
}

// LeaderboardView is one fully ranked snapshot of a window, as pushed to
// websocket subscribers and returned by the REST endpoint.
type LeaderboardView struct {
	Window  Window           `json:"window"`
	Entries []RankedEntry    `json:"entries"`
	Stats   LeaderboardStats `json:"stats"`
}
