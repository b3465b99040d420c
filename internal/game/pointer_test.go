package game

import (
	"context"
	"testing"
)

func TestPointerDragAndDrop(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	p := e.Pointer()
	q := e.Questions()
	a := e.Answers()

	released := 0
	if !p.Start(a[0].ID, func() { released++ }) {
		t.Fatal("drag from a free answer rejected")
	}
	if p.State() != Dragging {
		t.Fatalf("state = %v, want Dragging", p.State())
	}

	if !p.DropOn(q[0].ID) {
		t.Fatal("drop on a question rejected")
	}
	if p.State() != DragIdle {
		t.Errorf("state after drop = %v, want DragIdle", p.State())
	}
	if released != 1 {
		t.Errorf("preview released %d times, want 1", released)
	}
	if len(e.Matches()) != 1 {
		t.Errorf("matches = %d, want 1", len(e.Matches()))
	}
}

func TestPointerStartFromUsedAnswerRejected(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	p := e.Pointer()
	q := e.Questions()
	a := e.Answers()

	e.ProposeMatch(q[0].ID, a[0].ID)

	released := 0
	if p.Start(a[0].ID, func() { released++ }) {
		t.Error("drag started from a matched answer")
	}
	if p.State() != DragIdle {
		t.Errorf("state = %v, want DragIdle", p.State())
	}
	if released != 1 {
		t.Errorf("preview released %d times, want 1", released)
	}
}

func TestPointerDropOutsideIsClean(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	p := e.Pointer()
	a := e.Answers()

	released := 0
	p.Start(a[0].ID, func() { released++ })
	p.DropOutside()

	if p.State() != DragIdle {
		t.Errorf("state = %v, want DragIdle", p.State())
	}
	if released != 1 {
		t.Errorf("preview released %d times, want 1", released)
	}
	if len(e.Matches()) != 0 {
		t.Errorf("drop outside created %d matches", len(e.Matches()))
	}
	if e.IsAnswerUsed(a[0].ID) {
		t.Error("answer marked used after drop outside")
	}
}

func TestPointerSecondStartCancelsFirst(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	p := e.Pointer()
	q := e.Questions()
	a := e.Answers()

	firstReleased := 0
	p.Start(a[0].ID, func() { firstReleased++ })
	if !p.Start(a[1].ID, nil) {
		t.Fatal("second drag rejected")
	}
	if firstReleased != 1 {
		t.Errorf("first preview released %d times, want 1", firstReleased)
	}

	// The live drag carries the second answer.
	if !p.DropOn(q[0].ID) {
		t.Fatal("drop rejected")
	}
	matches := e.Matches()
	if len(matches) != 1 || matches[0].AnswerID != a[1].ID {
		t.Errorf("matches = %+v, want one match with answer %d", matches, a[1].ID)
	}
}

func TestPointerRejectedAfterCompletion(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	completeBoard(t, e)
	if _, err := e.Submit(context.Background(), func(context.Context, int) error { return nil }); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// The submitted board keeps every answer matched, so nothing is
	// draggable, but the completed check fires even for a freed answer.
	e.RemoveMatch(e.Questions()[0].ID)

	released := 0
	if e.Pointer().Start(e.Answers()[0].ID, func() { released++ }) {
		t.Error("drag started on a completed board")
	}
	if released != 1 {
		t.Errorf("preview released %d times, want 1", released)
	}
}

func TestPointerCancelOnReset(t *testing.T) {
	e := NewEngine(DefaultPairs, identityShuffle)
	p := e.Pointer()

	released := 0
	p.Start(e.Answers()[0].ID, func() { released++ })
	e.Reset()

	if released != 1 {
		t.Errorf("preview released %d times after Reset, want 1", released)
	}
	if p.State() != DragIdle {
		t.Errorf("state after Reset = %v, want DragIdle", p.State())
	}
}

// Touch and mouse inputs drive the same state machine; identical call
// sequences must produce identical boards.
func TestPointerInputParity(t *testing.T) {
	run := func() []int {
		e := NewEngine(DefaultPairs, identityShuffle)
		p := e.Pointer()
		q := e.Questions()
		a := e.Answers()

		p.Start(a[0].ID, nil)
		p.DropOn(q[1].ID)
		p.Start(a[1].ID, nil)
		p.DropOutside()
		p.Start(a[1].ID, nil)
		p.DropOn(q[0].ID)

		var out []int
		for _, m := range e.Matches() {
			out = append(out, m.QuestionID, m.AnswerID)
		}
		return out
	}

	first := run()
	second := run()
	if len(first) != len(second) {
		t.Fatalf("sequences diverged: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sequences diverged at %d: %v vs %v", i, first, second)
		}
	}
}
