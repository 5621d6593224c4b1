package generate

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Sentiment positions a report may carry.
const (
	PositionPositive = "긍정"
	PositionNeutral  = "중립"
	PositionNegative = "부정"
)

var validPositions = map[string]bool{
	PositionPositive: true,
	PositionNeutral:  true,
	PositionNegative: true,
}

const (
	minReportRunes = 40
	maxReportRunes = 20000
)

var (
	ErrEmptyReport  = errors.New("generated report is empty")
	ErrNoSections   = errors.New("generated report has no sections")
	ErrReportLength = errors.New("generated report length out of range")
)

var leakPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|as\s+an\s+ai\s+language\s+model|` +
		`respond\s+with\s+only)`,
)

// Validate checks a draft and normalizes its position. Unknown positions
// become PositionNeutral.
func Validate(d *Draft) error {
	if d == nil {
		return ErrEmptyReport
	}
	d.Report = strings.TrimSpace(d.Report)
	if d.Report == "" {
		return ErrEmptyReport
	}
	if n := utf8.RuneCountInString(d.Report); n < minReportRunes || n > maxReportRunes {
		return fmt.Errorf("%w: %d runes", ErrReportLength, n)
	}
	if len(Outline(d.Report)) == 0 {
		return ErrNoSections
	}
	if leakPattern.MatchString(d.Report) {
		return errors.New("generated report echoes its instructions")
	}

	d.Position = strings.TrimSpace(d.Position)
	if !validPositions[d.Position] {
		d.Position = PositionNeutral
	}
	return nil
}

// Section is one heading of a markdown report.
type Section struct {
	Level int
	Title string
}

// Outline lists the headings of a markdown document in order.
func Outline(markdown string) []Section {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var out []Section
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		title := strings.TrimSpace(inlineText(h, src))
		if title == "" {
			continue
		}
		out = append(out, Section{Level: h.Level, Title: title})
	}
	return out
}

func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.WriteString(inlineText(c, src))
	}
	return sb.String()
}
