// Package surface defines where a report render writes, and provides the
// in-memory, SSE and terminal implementations.
package surface

// Surface is the mutable output region of a render.
type Surface interface {
	// Clear drops everything written so far.
	Clear()
	// SetMarkup replaces the content with markup, verbatim.
	SetMarkup(markup string)
	// AppendText appends literal text.
	AppendText(s string)
	// AppendBreak appends a paragraph break.
	AppendBreak()
	// SetHints applies presentation hints. Empty fields leave the current
	// value unchanged.
	SetHints(h Hints)
}

// TitleLabel is the section heading shown above the surface.
type TitleLabel interface {
	SetTitle(title string)
}

// StyleRegistry holds global style fragments keyed by tag.
type StyleRegistry interface {
	Install(rules, tag string)
	RemoveByTag(tag string)
}

// Hints are presentation parameters. Implementations may ignore any of them.
type Hints struct {
	OverflowY  string `json:"overflow_y,omitempty"`
	MaxHeight  string `json:"max_height,omitempty"`
	Height     string `json:"height,omitempty"`
	WhiteSpace string `json:"white_space,omitempty"`
	FontFamily string `json:"font_family,omitempty"`
	LineHeight string `json:"line_height,omitempty"`
	Color      string `json:"color,omitempty"`
	FontSize   string `json:"font_size,omitempty"`
	Padding    string `json:"padding,omitempty"`
}

// Merge overlays the non-empty fields of o onto h.
func (h Hints) Merge(o Hints) Hints {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&h.OverflowY, o.OverflowY)
	set(&h.MaxHeight, o.MaxHeight)
	set(&h.Height, o.Height)
	set(&h.WhiteSpace, o.WhiteSpace)
	set(&h.FontFamily, o.FontFamily)
	set(&h.LineHeight, o.LineHeight)
	set(&h.Color, o.Color)
	set(&h.FontSize, o.FontSize)
	set(&h.Padding, o.Padding)
	return h
}

// BreakMarkup is how a paragraph break is written into markup content.
const BreakMarkup = "<br><br>"

// NopTitle discards titles.
type NopTitle struct{}

func (NopTitle) SetTitle(string) {}

// NopStyles discards style fragments.
type NopStyles struct{}

func (NopStyles) Install(string, string) {}
func (NopStyles) RemoveByTag(string)     {}
