package game

import "sync"

// DragState is the state of the pointer session's drag machine.
type DragState int

const (
	// DragIdle means no drag is in progress.
	DragIdle DragState = iota
	// Dragging means an answer is being carried.
	Dragging
)

// PointerSession is the device-agnostic drag state machine: Idle →
// Dragging(answer) → Idle. Touch and mouse are two input bindings over this
// one machine; both end up in the same ProposeMatch call. The session also
// tracks the drag-preview resource, which is released on every exit path.
type PointerSession struct {
	engine *Engine

	mu       sync.Mutex
	state    DragState
	answerID int
	release  func()
}

// Pointer returns the engine's pointer session, creating it on first use.
// Reset cancels and detaches the current session.
func (e *Engine) Pointer() *PointerSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pointer == nil {
		e.pointer = &PointerSession{engine: e}
	}
	return e.pointer
}

// Start begins a drag from an answer. A drag may only start from an answer
// that is not currently matched; otherwise the call returns false and the
// session stays idle. release, if non-nil, is the preview resource teardown
// and is invoked exactly once when the drag ends by any path.
func (s *PointerSession) Start(answerID int, release func()) bool {
	if s.engine.Completed() || s.engine.IsAnswerUsed(answerID) {
		if release != nil {
			release()
		}
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Dragging {
		// One drag at a time; the stale one is cancelled first.
		s.endLocked()
	}
	s.state = Dragging
	s.answerID = answerID
	s.release = release
	return true
}

// State returns the current drag state.
func (s *PointerSession) State() DragState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DropOn ends the drag over a question target, proposing the match. Returns
// false when no drag is in progress or the engine rejected the match.
func (s *PointerSession) DropOn(questionID int) bool {
	s.mu.Lock()
	if s.state != Dragging {
		s.mu.Unlock()
		return false
	}
	answerID := s.answerID
	s.endLocked()
	s.mu.Unlock()

	return s.engine.ProposeMatch(questionID, answerID)
}

// DropOutside ends the drag over anything that is not a question target.
// No state changes besides returning to idle.
func (s *PointerSession) DropOutside() {
	s.Cancel()
}

// Cancel aborts any in-progress drag and releases the preview resource.
func (s *PointerSession) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endLocked()
}

func (s *PointerSession) endLocked() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
	s.state = DragIdle
	s.answerID = 0
}
