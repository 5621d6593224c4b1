package typing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/stockreport/internal/reportdoc"
)

func block(kind reportdoc.BlockKind, text string) *reportdoc.Block {
	return &reportdoc.Block{Kind: kind, Text: text}
}

func content(texts ...string) []reportdoc.Block {
	out := make([]reportdoc.Block, 0, len(texts))
	for _, t := range texts {
		out = append(out, reportdoc.Block{Kind: reportdoc.BlockContent, Tag: "p", Text: t})
	}
	return out
}

func TestBuildQueue_CountsForNonEmptyBlocks(t *testing.T) {
	tests := []struct {
		name string
		doc  *reportdoc.Document
		want int
	}{
		{"full", &reportdoc.Document{
			Title:    block(reportdoc.BlockTitle, "T"),
			Subtitle: block(reportdoc.BlockSubtitle, "S"),
			Content:  content("a", "b"),
			Footer:   block(reportdoc.BlockFooter, "F"),
		}, 5},
		{"skips empty blocks", &reportdoc.Document{
			Title:   block(reportdoc.BlockTitle, "  "),
			Content: content("a", "", "\n\t", "b"),
			Footer:  block(reportdoc.BlockFooter, "F"),
		}, 3},
		{"footer only", &reportdoc.Document{Footer: block(reportdoc.BlockFooter, "F")}, 1},
		{"no footer", &reportdoc.Document{Content: content("a", "b", "c")}, 3},
		{"nothing", &reportdoc.Document{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := BuildQueue(tt.doc)
			assert.Equal(t, tt.want, q.TextChunks())
			wantBoundaries := 0
			if tt.want > 0 {
				wantBoundaries = tt.want - 1
			}
			assert.Equal(t, wantBoundaries, q.Boundaries())
			if len(q) > 0 {
				assert.False(t, q[len(q)-1].IsBoundary(), "queue must not end with a boundary")
				assert.False(t, q[0].IsBoundary(), "queue must not start with a boundary")
			}
		})
	}
}

func TestBuildQueue_OrderAndTrim(t *testing.T) {
	doc := &reportdoc.Document{
		Title:    block(reportdoc.BlockTitle, " 제목 "),
		Subtitle: block(reportdoc.BlockSubtitle, "부제"),
		Content:  content("본문1", "본문2"),
		Footer:   block(reportdoc.BlockFooter, "끝"),
	}
	q := BuildQueue(doc)

	var texts []string
	for i, c := range q {
		if i%2 == 1 {
			require.True(t, c.IsBoundary(), "chunk %d should be a boundary", i)
			continue
		}
		texts = append(texts, string(c.Text))
	}
	assert.Equal(t, []string{"제목", "부제", "본문1", "본문2", "끝"}, texts)
}

// drain runs s to completion and renders the output with "|" for breaks.
func drain(s *State) (string, []Action) {
	var out strings.Builder
	var actions []Action
	for {
		a, ok := s.Step()
		if !ok {
			break
		}
		actions = append(actions, a)
		switch a.Kind {
		case ActionChar:
			out.WriteRune(a.Char)
		case ActionBreak:
			out.WriteString("|")
		}
	}
	return out.String(), actions
}

func TestState_RevealsInOrder(t *testing.T) {
	doc := &reportdoc.Document{
		Content: content("AB", "가나"),
		Footer:  block(reportdoc.BlockFooter, "C"),
	}
	s := NewState(BuildQueue(doc), DefaultDelays())

	out, _ := drain(s)
	assert.Equal(t, "AB|가나|C", out)
	assert.True(t, s.Done())
}

func TestState_DelaysPerAction(t *testing.T) {
	d := Delays{Char: 1, InterChunk: 10, Block: 100}
	s := NewState(Queue{Text("ab"), Boundary(), Text("c")}, d)

	_, actions := drain(s)
	kinds := make([]ActionKind, 0, len(actions))
	for _, a := range actions {
		kinds = append(kinds, a.Kind)
		switch a.Kind {
		case ActionChar:
			assert.Equal(t, d.Char, a.Delay)
		case ActionAdvance:
			assert.Equal(t, d.InterChunk, a.Delay)
		case ActionBreak:
			assert.Equal(t, d.Block, a.Delay)
		}
	}
	assert.Equal(t, []ActionKind{
		ActionChar, ActionChar, ActionAdvance,
		ActionBreak,
		ActionChar, ActionAdvance,
	}, kinds)
}

func TestState_StepAfterDoneIsInert(t *testing.T) {
	s := NewState(Queue{Text("x")}, DefaultDelays())
	drain(s)
	ci, ch := s.ChunkIndex, s.CharIndex

	_, ok := s.Step()
	assert.False(t, ok)
	assert.Equal(t, ci, s.ChunkIndex)
	assert.Equal(t, ch, s.CharIndex)
}

func TestState_EmptyQueue(t *testing.T) {
	s := NewState(nil, DefaultDelays())
	assert.True(t, s.Done())
	_, ok := s.Step()
	assert.False(t, ok)
}

func TestState_CharIndexResetsPerChunk(t *testing.T) {
	s := NewState(Queue{Text("ab"), Boundary(), Text("c")}, DefaultDelays())
	s.Step()
	s.Step()
	assert.Equal(t, 0, s.ChunkIndex)
	assert.Equal(t, 2, s.CharIndex)

	s.Step() // advance
	assert.Equal(t, 1, s.ChunkIndex)
	assert.Equal(t, 0, s.CharIndex)

	s.Step() // boundary
	assert.Equal(t, 2, s.ChunkIndex)
	assert.Equal(t, 0, s.CharIndex)
}
