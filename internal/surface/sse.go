package surface

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// ErrStreamingUnsupported is returned when the response cannot be flushed.
var ErrStreamingUnsupported = errors.New("streaming unsupported")

// SSE relays surface, title and style calls to a browser as Server-Sent
// Events. It implements Surface, TitleLabel and StyleRegistry. After the
// first write error every later call is dropped.
type SSE struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	seq     int
	err     error
}

// NewSSE sets the event-stream headers on w.
func NewSSE(w http.ResponseWriter) (*SSE, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return &SSE{w: w, flusher: flusher}, nil
}

// Event writes one named event with a JSON payload.
func (s *SSE) Event(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, name, payload); err != nil {
		s.err = fmt.Errorf("write %s event: %w", name, err)
		return s.err
	}
	s.flusher.Flush()
	return nil
}

// Err returns the first write error, if any.
func (s *SSE) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

type markupEvent struct {
	HTML string `json:"html"`
}

type textEvent struct {
	Text string `json:"text"`
}

type titleEvent struct {
	Title string `json:"title"`
}

type styleEvent struct {
	Tag   string `json:"tag"`
	Rules string `json:"rules,omitempty"`
}

func (s *SSE) Clear()                  { s.Event("clear", struct{}{}) }
func (s *SSE) SetMarkup(markup string) { s.Event("markup", markupEvent{HTML: markup}) }
func (s *SSE) AppendText(t string)     { s.Event("text", textEvent{Text: t}) }
func (s *SSE) AppendBreak()            { s.Event("break", struct{}{}) }
func (s *SSE) SetHints(h Hints)        { s.Event("hints", h) }
func (s *SSE) SetTitle(title string)   { s.Event("title", titleEvent{Title: title}) }

func (s *SSE) Install(rules, tag string) {
	s.Event("style", styleEvent{Tag: tag, Rules: rules})
}

func (s *SSE) RemoveByTag(tag string) {
	s.Event("unstyle", styleEvent{Tag: tag})
}
