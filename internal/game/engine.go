package game

import (
	"context"
	"math/rand"
	"sync"

	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// Shuffler returns a permutation of [0, n). The engine uses it to order both
// the question list and the answer pool; tests supply a fixed permutation.
type Shuffler func(n int) []int

// RandomShuffle is the default Shuffler.
func RandomShuffle(n int) []int {
	return rand.Perm(n)
}

// Engine holds the state of one matching-game attempt: the shuffled board,
// the current matches, and the completion/score outcome.
type Engine struct {
	mu         sync.Mutex
	pairs      []domain.Pair
	shuffle    Shuffler
	questions  []domain.Question
	answers    []domain.Answer
	matches    []domain.Match
	completed  bool
	score      int
	submitting bool
	pointer    *PointerSession
}

// NewEngine creates an engine over a canonical pair pool and deals the first
// board. A nil shuffle falls back to RandomShuffle.
func NewEngine(pairs []domain.Pair, shuffle Shuffler) *Engine {
	if shuffle == nil {
		shuffle = RandomShuffle
	}
	e := &Engine{
		pairs:   pairs,
		shuffle: shuffle,
	}
	e.Reset()
	return e
}

// Reset re-deals the board: questions and answers are shuffled independently,
// questions get sequential display labels 1..N, and all matches, the
// completion flag and the score are cleared. Any in-flight drag is cancelled.
// Safe to call repeatedly.
func (e *Engine) Reset() {
	e.mu.Lock()
	pointer := e.pointer
	e.pointer = nil

	n := len(e.pairs)

	qperm := e.shuffle(n)
	e.questions = make([]domain.Question, n)
	for i, src := range qperm {
		e.questions[i] = domain.Question{
			ID:        e.pairs[src].ID,
			Text:      e.pairs[src].Text,
			DisplayID: i + 1,
		}
	}

	aperm := e.shuffle(n)
	e.answers = make([]domain.Answer, n)
	for i, src := range aperm {
		e.answers[i] = domain.Answer{
			ID:   i + 1,
			Text: e.pairs[src].Answer,
		}
	}

	e.matches = nil
	e.completed = false
	e.score = 0
	e.submitting = false
	e.mu.Unlock()

	if pointer != nil {
		pointer.Cancel()
	}
}

// Questions returns the shuffled question list.
func (e *Engine) Questions() []domain.Question {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Question, len(e.questions))
	copy(out, e.questions)
	return out
}

// Answers returns the shuffled answer pool.
func (e *Engine) Answers() []domain.Answer {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Answer, len(e.answers))
	copy(out, e.answers)
	return out
}

// Matches returns the current match set.
func (e *Engine) Matches() []domain.Match {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.Match, len(e.matches))
	copy(out, e.matches)
	return out
}

// Score returns the score of the last accepted submission.
func (e *Engine) Score() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.score
}

// Completed reports whether a score has been accepted for this attempt.
func (e *Engine) Completed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.completed
}

// ProposeMatch associates an answer with a question. An answer already used
// by another match is not droppable: the call is a silent no-op and returns
// false. If the question already has a match it is replaced, freeing its
// previous answer. Returns true when the match set changed.
func (e *Engine) ProposeMatch(questionID, answerID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	question, ok := e.questionLocked(questionID)
	if !ok {
		return false
	}
	answer, ok := e.answerLocked(answerID)
	if !ok {
		return false
	}
	if e.answerUsedLocked(answerID) {
		return false
	}

	kept := e.matches[:0]
	for _, m := range e.matches {
		if m.QuestionID != questionID {
			kept = append(kept, m)
		}
	}
	e.matches = append(kept, domain.Match{
		QuestionID:   question.ID,
		AnswerID:     answer.ID,
		QuestionText: question.Text,
		AnswerText:   answer.Text,
	})
	return true
}

// RemoveMatch removes the match for a question, freeing its answer.
// No-op when the question has no match.
func (e *Engine) RemoveMatch(questionID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i, m := range e.matches {
		if m.QuestionID == questionID {
			e.matches = append(e.matches[:i], e.matches[i+1:]...)
			return true
		}
	}
	return false
}

// IsComplete reports whether every question has a match. This gates the
// submit affordance; timing of the submit call itself does not.
func (e *Engine) IsComplete() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isCompleteLocked()
}

// IsAnswerUsed reports whether an answer is currently held by a match.
func (e *Engine) IsAnswerUsed(answerID int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.answerUsedLocked(answerID)
}

// Submit grades the board and issues exactly one remote write through the
// supplied function. Preconditions: the board is complete and no submission
// has been accepted or is in flight. On write failure the engine stays in
// its pre-submit state and the error is returned for a manual retry; on
// success the engine transitions to completed with the final score.
func (e *Engine) Submit(ctx context.Context, write func(ctx context.Context, score int) error) (int, error) {
	e.mu.Lock()
	if e.completed {
		e.mu.Unlock()
		return 0, domain.ErrAlreadySubmitted
	}
	if e.submitting {
		e.mu.Unlock()
		return 0, domain.ErrSubmitInProgress
	}
	if !e.isCompleteLocked() {
		e.mu.Unlock()
		return 0, domain.ErrGameIncomplete
	}
	final := e.gradeLocked()
	e.submitting = true
	e.mu.Unlock()

	if err := write(ctx, final); err != nil {
		e.mu.Lock()
		e.submitting = false
		e.mu.Unlock()
		return 0, err
	}

	e.mu.Lock()
	e.submitting = false
	e.completed = true
	e.score = final
	e.mu.Unlock()
	return final, nil
}

// Total returns the number of questions on the board.
func (e *Engine) Total() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.questions)
}

func (e *Engine) isCompleteLocked() bool {
	return len(e.questions) > 0 && len(e.matches) == len(e.questions)
}

// gradeLocked counts matches whose answer text equals the canonical answer
// for the question, compared exactly.
func (e *Engine) gradeLocked() int {
	score := 0
	for _, m := range e.matches {
		if canonical, ok := AnswerFor(e.pairs, m.QuestionID); ok && canonical == m.AnswerText {
			score++
		}
	}
	return score
}

func (e *Engine) questionLocked(id int) (domain.Question, bool) {
	for _, q := range e.questions {
		if q.ID == id {
			return q, true
		}
	}
	return domain.Question{}, false
}

func (e *Engine) answerLocked(id int) (domain.Answer, bool) {
	for _, a := range e.answers {
		if a.ID == id {
			return a, true
		}
	}
	return domain.Answer{}, false
}

func (e *Engine) answerUsedLocked(id int) bool {
	for _, m := range e.matches {
		if m.AnswerID == id {
			return true
		}
	}
	return false
}
