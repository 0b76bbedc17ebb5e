// Package tree implements a generic, collapsible tree widget for bubbletea
// programs. The widget owns a forest of nodes, a selection index into the
// visible (expanded) part of that forest, and renders itself as a flat stream
// of styled fragments that a Surface turns into terminal output.
//
// The widget knows nothing about what it displays: payloads implement
// Drawable and render their own fragments.
package tree

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// CursorStyle is the style of the empty fragment placed on the selected row.
// The Surface consumes it to keep that row inside the viewport.
const CursorStyle = "[SetCursorPosition]"

// ClickHandler receives the visible-sequence index of the row that was clicked.
type ClickHandler func(row int)

// Fragment is one run of text sharing a style. Style holds space separated
// abstract style tags ("issue_id.story dull"); mapping tags to colors is left
// to the Styler used at render time.
type Fragment struct {
	Style   string
	Text    string
	OnClick ClickHandler
}

// Fragments is an ordered run of styled text.
type Fragments []Fragment

// Drawable is implemented by every payload that can be shown in a tree row.
// Render must not have side effects.
type Drawable interface {
	Render() Fragments
}

// Text returns a single fragment with the given style.
func Text(style, text string) Fragments {
	return Fragments{{Style: style, Text: text}}
}

// Append adds a fragment and returns the extended slice.
func (f Fragments) Append(style, text string) Fragments {
	return append(f, Fragment{Style: style, Text: text})
}

// String returns the unstyled text.
func (f Fragments) String() string {
	var sb strings.Builder
	for _, frag := range f {
		sb.WriteString(frag.Text)
	}
	return sb.String()
}

// Width returns the display width of a single-line fragment run.
func (f Fragments) Width() int {
	w := 0
	for _, frag := range f {
		w += runewidth.StringWidth(frag.Text)
	}
	return w
}

// Lines splits the stream on newlines. Styles and click handlers carry over to
// both halves of a split fragment. An empty stream has no lines.
func (f Fragments) Lines() []Fragments {
	if len(f) == 0 {
		return nil
	}
	lines := []Fragments{{}}
	for _, frag := range f {
		parts := strings.Split(frag.Text, "\n")
		for i, part := range parts {
			if i > 0 {
				lines = append(lines, Fragments{})
			}
			if part == "" && len(parts) > 1 {
				continue
			}
			piece := frag
			piece.Text = part
			lines[len(lines)-1] = append(lines[len(lines)-1], piece)
		}
	}
	return lines
}

// Truncate cuts a single-line run to at most width display cells.
func (f Fragments) Truncate(width int) Fragments {
	if width <= 0 {
		return nil
	}
	out := make(Fragments, 0, len(f))
	remaining := width
	for _, frag := range f {
		w := runewidth.StringWidth(frag.Text)
		if w <= remaining {
			out = append(out, frag)
			remaining -= w
			continue
		}
		frag.Text = runewidth.Truncate(frag.Text, remaining, "")
		out = append(out, frag)
		break
	}
	return out
}

// Styler maps style tags to terminal output.
type Styler interface {
	Render(style, text string) string
}

// Render applies the styler to every fragment. A nil styler yields plain text.
func (f Fragments) Render(st Styler) string {
	if st == nil {
		return f.String()
	}
	var sb strings.Builder
	for _, frag := range f {
		if frag.Text == "" {
			continue
		}
		sb.WriteString(st.Render(frag.Style, frag.Text))
	}
	return sb.String()
}
