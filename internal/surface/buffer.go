package surface

import (
	"strings"
	"sync"
)

// Op is one recorded surface call.
type Op struct {
	Name string // clear, markup, text, break, hints
	Arg  string
}

// Buffer is an in-memory surface. Content mirrors what a page would hold:
// markup verbatim, text appended, breaks as BreakMarkup.
type Buffer struct {
	mu      sync.Mutex
	content strings.Builder
	hints   Hints
	ops     []Op
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content.Reset()
	b.ops = append(b.ops, Op{Name: "clear"})
}

func (b *Buffer) SetMarkup(markup string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content.Reset()
	b.content.WriteString(markup)
	b.ops = append(b.ops, Op{Name: "markup", Arg: markup})
}

func (b *Buffer) AppendText(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content.WriteString(s)
	b.ops = append(b.ops, Op{Name: "text", Arg: s})
}

func (b *Buffer) AppendBreak() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.content.WriteString(BreakMarkup)
	b.ops = append(b.ops, Op{Name: "break"})
}

func (b *Buffer) SetHints(h Hints) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hints = b.hints.Merge(h)
	b.ops = append(b.ops, Op{Name: "hints"})
}

// Content returns the current content.
func (b *Buffer) Content() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.content.String()
}

// Hints returns the merged hints.
func (b *Buffer) Hints() Hints {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hints
}

// Ops returns a copy of the call log.
func (b *Buffer) Ops() []Op {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Op, len(b.ops))
	copy(out, b.ops)
	return out
}

// Label is an in-memory TitleLabel.
type Label struct {
	mu    sync.Mutex
	title string
	sets  int
}

func (l *Label) SetTitle(title string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.title = title
	l.sets++
}

func (l *Label) Title() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.title
}

// Sets counts SetTitle calls.
func (l *Label) Sets() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sets
}

// StyleSheet is an in-memory StyleRegistry. Fragments keep install order.
type StyleSheet struct {
	mu        sync.Mutex
	fragments []Fragment
	removals  []string
}

// Fragment is one installed style block.
type Fragment struct {
	Tag   string
	Rules string
}

func (s *StyleSheet) Install(rules, tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fragments = append(s.fragments, Fragment{Tag: tag, Rules: rules})
}

func (s *StyleSheet) RemoveByTag(tag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.fragments[:0]
	for _, f := range s.fragments {
		if f.Tag != tag {
			kept = append(kept, f)
		}
	}
	s.fragments = kept
	s.removals = append(s.removals, tag)
}

// Count returns how many fragments carry tag.
func (s *StyleSheet) Count(tag string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, f := range s.fragments {
		if f.Tag == tag {
			n++
		}
	}
	return n
}

// Fragments returns a copy of the installed fragments.
func (s *StyleSheet) Fragments() []Fragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Fragment, len(s.fragments))
	copy(out, s.fragments)
	return out
}

// Removals returns the tags passed to RemoveByTag, in call order.
func (s *StyleSheet) Removals() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.removals))
	copy(out, s.removals)
	return out
}
