package typing

import (
	"strings"
	"time"

	"github.com/dgallion1/stockreport/internal/reportdoc"
)

// ChunkKind distinguishes text payloads from block separators.
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkBoundary
)

// Chunk is one unit of the typing queue.
type Chunk struct {
	Kind ChunkKind
	Text []rune // Set for ChunkText only.
}

// Text returns a text chunk.
func Text(s string) Chunk {
	return Chunk{Kind: ChunkText, Text: []rune(s)}
}

// Boundary returns a block separator.
func Boundary() Chunk {
	return Chunk{Kind: ChunkBoundary}
}

// IsBoundary reports whether c separates two blocks.
func (c Chunk) IsBoundary() bool {
	return c.Kind == ChunkBoundary
}

// Queue is the ordered sequence a render types out.
type Queue []Chunk

// BuildQueue flattens the document into title, subtitle, content blocks
// and footer. Blocks with no visible text are skipped. A boundary sits
// between consecutive blocks, never after the last one.
func BuildQueue(doc *reportdoc.Document) Queue {
	var q Queue
	for _, b := range doc.Blocks() {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		if len(q) > 0 {
			q = append(q, Boundary())
		}
		q = append(q, Text(text))
	}
	return q
}

// TextChunks counts the text chunks in q.
func (q Queue) TextChunks() int {
	n := 0
	for _, c := range q {
		if !c.IsBoundary() {
			n++
		}
	}
	return n
}

// Boundaries counts the separators in q.
func (q Queue) Boundaries() int {
	return len(q) - q.TextChunks()
}

// Delays are the pauses between progression steps.
type Delays struct {
	Char       time.Duration // After each character.
	InterChunk time.Duration // After a text chunk is exhausted.
	Block      time.Duration // After a block boundary.
}

// DefaultDelays returns the pacing the report page has always used.
func DefaultDelays() Delays {
	return Delays{
		Char:       5 * time.Millisecond,
		InterChunk: 25 * time.Millisecond,
		Block:      600 * time.Millisecond,
	}
}
