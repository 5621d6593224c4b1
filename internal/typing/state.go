package typing

import "time"

// ActionKind says what a progression step did.
type ActionKind int

const (
	// ActionChar emitted one character.
	ActionChar ActionKind = iota
	// ActionBreak emitted a paragraph break.
	ActionBreak
	// ActionAdvance moved past an exhausted text chunk without output.
	ActionAdvance
)

// Action is the outcome of a single Step.
type Action struct {
	Kind  ActionKind
	Char  rune          // Set for ActionChar.
	Delay time.Duration // Wait before the next step.
}

// State is the cursor of one render over its queue. Only Step mutates it.
type State struct {
	Queue      Queue
	ChunkIndex int
	CharIndex  int
	delays     Delays
}

// NewState starts a cursor at the head of q.
func NewState(q Queue, d Delays) *State {
	return &State{Queue: q, delays: d}
}

// Done reports whether every chunk has been consumed.
func (s *State) Done() bool {
	return s.ChunkIndex >= len(s.Queue)
}

// Step advances the cursor by one unit of work. It returns false once the
// queue is exhausted, and never mutates state in that case.
func (s *State) Step() (Action, bool) {
	if s.Done() {
		return Action{}, false
	}

	chunk := s.Queue[s.ChunkIndex]
	if chunk.IsBoundary() {
		s.ChunkIndex++
		s.CharIndex = 0
		return Action{Kind: ActionBreak, Delay: s.delays.Block}, true
	}

	if s.CharIndex < len(chunk.Text) {
		r := chunk.Text[s.CharIndex]
		s.CharIndex++
		return Action{Kind: ActionChar, Char: r, Delay: s.delays.Char}, true
	}

	s.ChunkIndex++
	s.CharIndex = 0
	return Action{Kind: ActionAdvance, Delay: s.delays.InterChunk}, true
}
