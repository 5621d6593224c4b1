package reportdoc

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// Class names of the report template the service renders.
const (
	ContainerClass = "ai-report-container"
	MainTitleClass = "report-main-title"
	SubTitleClass  = "report-sub-title"
	BodyClass      = "report-content-body"
	FooterClass    = "report-footer"
)

// ErrNoContainer means the markup parsed but has no report container.
var ErrNoContainer = errors.New("report container not found")

// BlockKind identifies where a block sits in the report.
type BlockKind int

const (
	BlockTitle BlockKind = iota
	BlockSubtitle
	BlockContent
	BlockFooter
)

func (k BlockKind) String() string {
	switch k {
	case BlockTitle:
		return "title"
	case BlockSubtitle:
		return "subtitle"
	case BlockContent:
		return "content"
	case BlockFooter:
		return "footer"
	}
	return "unknown"
}

// Block is one structural unit of a report with its rendered text.
type Block struct {
	Kind BlockKind
	Tag  string // Element name, e.g. "p", "h3", "ul".
	Text string // Trimmed rendered text; may be empty.
}

// Document is a parsed report.
type Document struct {
	Style    string  // Rules of the embedded <style>, empty if none.
	Title    *Block  // nil when the report has no main title.
	Subtitle *Block  // nil when the report has no subtitle.
	Content  []Block // Children of the content body, in document order.
	Footer   *Block  // nil when the report has no footer.
}

// Blocks returns title, subtitle, content and footer in reading order.
// Missing parts are left out; empty-text blocks are kept.
func (d *Document) Blocks() []Block {
	var out []Block
	if d.Title != nil {
		out = append(out, *d.Title)
	}
	if d.Subtitle != nil {
		out = append(out, *d.Subtitle)
	}
	out = append(out, d.Content...)
	if d.Footer != nil {
		out = append(out, *d.Footer)
	}
	return out
}

// Parse reads a report fragment. It returns ErrNoContainer when the
// fragment has no element with the container class.
func Parse(markup string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse report html: %w", err)
	}

	container := findByClass(root, ContainerClass)
	if container == nil {
		return nil, ErrNoContainer
	}

	doc := &Document{}

	// The style is lifted out before any text is read so its rules never
	// leak into a block.
	if style := findByTag(container, "style"); style != nil {
		doc.Style = strings.TrimSpace(rawText(style))
		style.Parent.RemoveChild(style)
	}

	if n := findByClass(container, MainTitleClass); n != nil {
		doc.Title = &Block{Kind: BlockTitle, Tag: n.Data, Text: RenderedText(n)}
	}
	if n := findByClass(container, SubTitleClass); n != nil {
		doc.Subtitle = &Block{Kind: BlockSubtitle, Tag: n.Data, Text: RenderedText(n)}
	}
	if body := findByClass(container, BodyClass); body != nil {
		for c := body.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			doc.Content = append(doc.Content, Block{Kind: BlockContent, Tag: c.Data, Text: RenderedText(c)})
		}
	}
	if n := findByClass(container, FooterClass); n != nil {
		doc.Footer = &Block{Kind: BlockFooter, Tag: n.Data, Text: RenderedText(n)}
	}

	return doc, nil
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode && hasClass(n, class) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func findByTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func rawText(n *html.Node) string {
	var buf strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			buf.WriteString(c.Data)
		}
	}
	return buf.String()
}
