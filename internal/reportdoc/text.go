package reportdoc

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true,
	"figure": true, "footer": true, "h1": true, "h2": true, "h3": true,
	"h4": true, "h5": true, "h6": true, "header": true, "hr": true,
	"li": true, "main": true, "nav": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tr": true, "ul": true,
}

var skipTags = map[string]bool{
	"script": true, "style": true, "template": true, "head": true, "noscript": true,
}

// textWriter accumulates text the way a browser lays it out: whitespace
// collapses, block elements start new lines, <br> breaks a line.
type textWriter struct {
	buf          strings.Builder
	last         rune
	pendingSpace bool
	preDepth     int
}

func (w *textWriter) writeRune(r rune) {
	w.buf.WriteRune(r)
	w.last = r
}

func (w *textWriter) newline() {
	w.pendingSpace = false
	if w.buf.Len() > 0 && w.last != '\n' {
		w.writeRune('\n')
	}
}

func (w *textWriter) text(s string) {
	if w.preDepth > 0 {
		for _, r := range s {
			w.writeRune(r)
		}
		return
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			w.pendingSpace = true
			continue
		}
		if w.pendingSpace && w.buf.Len() > 0 && w.last != '\n' && w.last != '\t' {
			w.writeRune(' ')
		}
		w.pendingSpace = false
		w.writeRune(r)
	}
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		if skipTags[n.Data] {
			return
		}
		switch n.Data {
		case "br":
			w.pendingSpace = false
			w.writeRune('\n')
			return
		case "td", "th":
			if w.buf.Len() > 0 && w.last != '\n' {
				w.pendingSpace = false
				w.writeRune('\t')
			}
		}
	}

	block := n.Type == html.ElementNode && blockTags[n.Data]
	if block {
		w.newline()
	}
	if n.Type == html.ElementNode && n.Data == "pre" {
		w.preDepth++
		defer func() { w.preDepth-- }()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.newline()
	}
}

// RenderedText returns the visible text of n, trimmed.
func RenderedText(n *html.Node) string {
	w := &textWriter{}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	return strings.TrimSpace(w.buf.String())
}
