package game

import (
	"context"
	"errors"
	"testing"

	"github.com/nirajbawa/match-pair-game/internal/domain"
)

// identityShuffle keeps source order, so question i pairs with answer id i+1
// and every board deals identically.
func identityShuffle(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func reverseShuffle(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = n - 1 - i
	}
	return out
}

func completeBoard(t *testing.T, e *Engine) {
	t.Helper()
	for _, q := range e.Questions() {
		matched := false
		for _, a := range e.Answers() {
			if canonical, _ := AnswerFor(DefaultPairs, q.ID); a.Text == canonical && !e.IsAnswerUsed(a.ID) {
				if !e.ProposeMatch(q.ID, a.ID) {
					t.Fatalf("ProposeMatch(%d, %d) rejected", q.ID, a.ID)
				}
				matched = true
				break
			}
		}
		if !matched {
			t.Fatalf("no free canonical answer for question %d", q.ID)
		}
	}
}

func TestNewEngineDealsBoard(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)

	questions := e.Questions()
	answers := e.Answers()
	if len(questions) != len(DefaultPairs) || len(answers) != len(DefaultPairs) {
		t.Fatalf("board size = %d questions, %d answers, want %d each",
			len(questions), len(answers), len(DefaultPairs))
	}

	for i, q := range questions {
		if q.DisplayID != i+1 {
			t.Errorf("question %d DisplayID = %d, want %d", i, q.DisplayID, i+1)
		}
	}
	for i, a := range answers {
		if a.ID != i+1 {
			t.Errorf("answer %d ID = %d, want %d", i, a.ID, i+1)
		}
	}
	if len(e.Matches()) != 0 {
		t.Errorf("fresh board has %d matches, want 0", len(e.Matches()))
	}
	if e.IsComplete() {
		t.Error("fresh board reports complete")
	}
}

func TestResetRedealsAndClears(t *testing.T) {
	e := NewEngine(DefaultPairs, reverseShuffle)
	e.ProposeMatch(e.Questions()[0].ID, e.Answers()[0].ID)

	e.Reset()

	if len(e.Matches()) != 0 {
		t.Errorf("matches survived Reset: %d", len(e.Matches()))
	}
	if e.Completed() || e.Score() != 0 {
		t.Errorf("completion state survived Reset: completed=%v score=%d", e.Completed(), e.Score())
	}
	for i, q := range e.Questions() {
		if q.DisplayID != i+1 {
			t.Errorf("question %d DisplayID = %d after Reset, want %d", i, q.DisplayID, i+1)
		}
	}
}

func TestProposeMatchUsedAnswerIsNoOp(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	q := e.Questions()
	a := e.Answers()

	if !e.ProposeMatch(q[0].ID, a[0].ID) {
		t.Fatal("first match rejected")
	}
	if e.ProposeMatch(q[1].ID, a[0].ID) {
		t.Error("used answer was droppable on another question")
	}
	matches := e.Matches()
	if len(matches) != 1 || matches[0].QuestionID != q[0].ID {
		t.Errorf("match set changed by no-op drop: %+v", matches)
	}
}

func TestProposeMatchReplaceFreesAnswer(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	q := e.Questions()
	a := e.Answers()

	e.ProposeMatch(q[0].ID, a[0].ID)
	if !e.ProposeMatch(q[0].ID, a[1].ID) {
		t.Fatal("replacement drop rejected")
	}

	if e.IsAnswerUsed(a[0].ID) {
		t.Error("replaced answer still marked used")
	}
	if !e.IsAnswerUsed(a[1].ID) {
		t.Error("replacement answer not marked used")
	}
	if !e.ProposeMatch(q[1].ID, a[0].ID) {
		t.Error("freed answer not droppable elsewhere")
	}
}

func TestProposeMatchUnknownIDs(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	if e.ProposeMatch(99, 1) {
		t.Error("unknown question accepted")
	}
	if e.ProposeMatch(1, 99) {
		t.Error("unknown answer accepted")
	}
}

func TestRemoveMatch(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	q := e.Questions()
	a := e.Answers()

	e.ProposeMatch(q[0].ID, a[0].ID)
	if !e.RemoveMatch(q[0].ID) {
		t.Fatal("RemoveMatch rejected an existing match")
	}
	if e.IsAnswerUsed(a[0].ID) {
		t.Error("answer still used after RemoveMatch")
	}
	if e.RemoveMatch(q[0].ID) {
		t.Error("RemoveMatch reported success for an unmatched question")
	}
}

func TestIsComplete(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	completeBoard(t, e)
	if !e.IsComplete() {
		t.Error("fully matched board reports incomplete")
	}
	e.RemoveMatch(e.Questions()[0].ID)
	if e.IsComplete() {
		t.Error("board with a removed match reports complete")
	}
}

func TestSubmitGradesExactMatches(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	completeBoard(t, e)

	score, err := e.Submit(context.Background(), func(context.Context, int) error { return nil })
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if score != len(DefaultPairs) {
		t.Errorf("score = %d, want %d", score, len(DefaultPairs))
	}
	if !e.Completed() || e.Score() != score {
		t.Errorf("engine state after submit: completed=%v score=%d", e.Completed(), e.Score())
	}
}

func TestSubmitCountsSwappedAnswersWrong(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	q := e.Questions()
	a := e.Answers()

	// Swap the answers of the first two questions; both become wrong.
	e.ProposeMatch(q[0].ID, a[1].ID)
	e.ProposeMatch(q[1].ID, a[0].ID)
	e.ProposeMatch(q[2].ID, a[2].ID)
	e.ProposeMatch(q[3].ID, a[3].ID)

	score, err := e.Submit(context.Background(), func(context.Context, int) error { return nil })
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if want := len(DefaultPairs) - 2; score != want {
		t.Errorf("score = %d, want %d", score, want)
	}
}

func TestSubmitIncompleteBoard(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	_, err := e.Submit(context.Background(), func(context.Context, int) error { return nil })
	if !errors.Is(err, domain.ErrGameIncomplete) {
		t.Errorf("err = %v, want ErrGameIncomplete", err)
	}
}

func TestSubmitFailureKeepsStateForRetry(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	completeBoard(t, e)

	writeErr := errors.New("write failed")
	_, err := e.Submit(context.Background(), func(context.Context, int) error { return writeErr })
	if !errors.Is(err, writeErr) {
		t.Fatalf("err = %v, want wrapped write error", err)
	}
	if e.Completed() {
		t.Error("failed submit marked the engine completed")
	}
	if len(e.Matches()) != len(DefaultPairs) {
		t.Error("failed submit lost the match set")
	}

	score, err := e.Submit(context.Background(), func(context.Context, int) error { return nil })
	if err != nil {
		t.Fatalf("retry after failed submit: %v", err)
	}
	if score != len(DefaultPairs) {
		t.Errorf("retry score = %d, want %d", score, len(DefaultPairs))
	}
}

func TestSubmitTwiceRejected(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	completeBoard(t, e)

	if _, err := e.Submit(context.Background(), func(context.Context, int) error { return nil }); err != nil {
		t.Fatalf("first Submit: %v", err)
	}
	_, err := e.Submit(context.Background(), func(context.Context, int) error { return nil })
	if !errors.Is(err, domain.ErrAlreadySubmitted) {
		t.Errorf("err = %v, want ErrAlreadySubmitted", err)
	}
}

func TestSubmitReentrancyGuard(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	completeBoard(t, e)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := e.Submit(context.Background(), func(context.Context, int) error {
			close(entered)
			<-release
			return nil
		})
		done <- err
	}()

	<-entered
	_, err := e.Submit(context.Background(), func(context.Context, int) error { return nil })
	if !errors.Is(err, domain.ErrSubmitInProgress) {
		t.Errorf("concurrent submit err = %v, want ErrSubmitInProgress", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first submit: %v", err)
	}
}
