package surface

import (
	"fmt"
	"io"
	"strings"
	"sync"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Terminal writes a render to a text stream. Markup is converted to
// markdown, a break is a blank line, and hints and styles are ignored.
type Terminal struct {
	mu      sync.Mutex
	w       io.Writer
	midLine bool
	err     error
}

func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Err returns the first write error, if any.
func (t *Terminal) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *Terminal) write(s string) {
	if t.err != nil || s == "" {
		return
	}
	if _, err := io.WriteString(t.w, s); err != nil {
		t.err = err
		return
	}
	t.midLine = !strings.HasSuffix(s, "\n")
}

func (t *Terminal) endLine() {
	if t.midLine {
		t.write("\n")
	}
}

// Clear ends the current line. Earlier output stays on screen.
func (t *Terminal) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endLine()
}

func (t *Terminal) SetMarkup(markup string) {
	md, err := htmltomarkdown.ConvertString(markup)
	if err != nil {
		md = markup
	}
	md = strings.TrimSpace(md)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.endLine()
	if md != "" {
		t.write(noticeStyle.Render(md) + "\n")
	}
}

func (t *Terminal) AppendText(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.write(s)
}

func (t *Terminal) AppendBreak() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endLine()
	t.write("\n")
}

func (t *Terminal) SetHints(Hints) {}

func (t *Terminal) SetTitle(title string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endLine()
	t.write(fmt.Sprintf("%s\n\n", titleStyle.Render(title)))
}
