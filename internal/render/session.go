package render

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/stockreport/internal/typing"
)

// Phase is where a session is in its lifecycle.
type Phase string

const (
	PhaseQueued  Phase = "queued"
	PhaseLoading Phase = "loading"
	PhaseTyping  Phase = "typing"
	PhaseDone    Phase = "done"
)

// Outcome is how a session ended.
type Outcome string

const (
	OutcomePending     Outcome = "pending"
	OutcomeTyped       Outcome = "typed"       // Queue fully revealed.
	OutcomePlaceholder Outcome = "placeholder" // No document; empty-state markup shown.
	OutcomeRaw         Outcome = "raw"         // No report container; payload shown verbatim.
	OutcomeFailed      Outcome = "failed"
	OutcomeSuperseded  Outcome = "superseded"
	OutcomeCanceled    Outcome = "canceled"
)

// Session is one render of one stock code. It is created by Render and
// resolved exactly once.
type Session struct {
	ID         string
	SubjectID  string
	Generation uint64
	CreatedAt  time.Time

	done chan struct{}

	// Guarded by the owning Renderer's lock.
	loaded bool
	state  *typing.State

	mu         sync.Mutex
	phase      Phase
	outcome    Outcome
	err        error
	title      string
	sentiment  string
	textChunks int
	boundaries int
	chars      int
	finishedAt time.Time
}

func newSession(subjectID string, gen uint64) *Session {
	return &Session{
		ID:         uuid.NewString(),
		SubjectID:  subjectID,
		Generation: gen,
		CreatedAt:  time.Now(),
		done:       make(chan struct{}),
		phase:      PhaseQueued,
		outcome:    OutcomePending,
	}
}

// Done is closed once the session is resolved.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Err returns the failure, if any, once resolved.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Outcome returns the current outcome; OutcomePending until resolved.
func (s *Session) Outcome() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func (s *Session) setMeta(title, sentiment string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.title = title
	s.sentiment = sentiment
}

func (s *Session) setQueue(q typing.Queue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textChunks = q.TextChunks()
	s.boundaries = q.Boundaries()
	s.phase = PhaseTyping
}

func (s *Session) addChar() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chars++
}

// resolve records the outcome. It reports false if already resolved.
func (s *Session) resolve(o Outcome, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome != OutcomePending {
		return false
	}
	s.outcome = o
	s.err = err
	s.phase = PhaseDone
	s.finishedAt = time.Now()
	close(s.done)
	return true
}

// Snapshot is a JSON-safe copy of session state.
type Snapshot struct {
	ID         string    `json:"session_id"`
	StockCode  string    `json:"stock_code"`
	Generation uint64    `json:"generation"`
	Phase      Phase     `json:"phase"`
	Outcome    Outcome   `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	Title      string    `json:"report_title,omitempty"`
	Sentiment  string    `json:"sentiment_position,omitempty"`
	TextChunks int       `json:"text_chunks"`
	Boundaries int       `json:"boundaries"`
	CharsTyped int       `json:"chars_typed"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.ID,
		StockCode:  s.SubjectID,
		Generation: s.Generation,
		Phase:      s.phase,
		Outcome:    s.outcome,
		Title:      s.title,
		Sentiment:  s.sentiment,
		TextChunks: s.textChunks,
		Boundaries: s.boundaries,
		CharsTyped: s.chars,
		CreatedAt:  s.CreatedAt,
		FinishedAt: s.finishedAt,
	}
	if s.err != nil {
		snap.Error = s.err.Error()
	}
	return snap
}
