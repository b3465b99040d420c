package domain

// Pair is one canonical question/answer pairing from the static pool.
type Pair struct {
	ID     int    `json:"id"`
	Text   string `json:"text"`
	Answer string `json:"answer"`
}

// Question is a pool entry as presented on the board: the stable pair ID plus
// a randomized 1..N display label assigned after shuffling.
type Question struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	DisplayID int    `json:"display_id"`
}

// Answer is one draggable entry from the independently shuffled answer pool.
type Answer struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// Match is an ephemeral association between one question and one answer.
// At most one match exists per question, and an answer belongs to at most
// one match at a time.
type Match struct {
	QuestionID   int    `json:"question_id"`
	AnswerID     int    `json:"answer_id"`
	QuestionText string `json:"question_text"`
	AnswerText   string `json:"answer_text"`
}

// ScoreEvent is the fire-and-forget event published when a completed game's
// score is accepted.
type ScoreEvent struct {
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	GameID    string `json:"game_id"`
	Score     int    `json:"score"`
	Total     int    `json:"total"`
	EventType string `json:"event_type"`
}
