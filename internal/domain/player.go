package domain

import "time"

// Player represents one username's persisted identity and score state
// in the players collection.
type Player struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Score         int        `json:"score"`
	Level         int        `json:"level"`
	GameCompleted bool       `json:"game_completed"`
	SubmittedAt   *time.Time `json:"submitted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActive    time.Time  `json:"last_active"`
}

// Identity is the lightweight player blob kept in the session store.
type Identity struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Level         int       `json:"level"`
	Score         int       `json:"score"`
	GameCompleted bool      `json:"game_completed"`
	Timestamp     time.Time `json:"timestamp"`
}

// IdentityOf builds the session blob for a player record.
func IdentityOf(p Player) Identity {
	return Identity{
		ID:            p.ID,
		Username:      p.Username,
		Level:         p.Level,
		Score:         p.Score,
		GameCompleted: p.GameCompleted,
		Timestamp:     time.Now(),
	}
}

// ScoreUpdate is the single merge-update issued against a player record
// when a completed game is submitted.
type ScoreUpdate struct {
	PlayerID    string    `json:"player_id"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submitted_at"`
}
