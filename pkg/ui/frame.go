package ui

import (
	"strings"

	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/jiraview/pkg/theme"
	"github.com/vanderheijden86/jiraview/pkg/tree"
)

// Frame is a single-line box whose title sits on the left of the top border:
//
//	┌| Title |──────┐
//	│body          │
//	└──────────────┘
type Frame struct {
	Title   tree.Fragments
	Width   int // outer width, borders included
	Height  int // outer height; 0 fits the body
	Focused bool
}

// Inner returns the size left for the body.
func (f Frame) Inner() (width, height int) {
	width = max(f.Width-2, 0)
	if f.Height > 0 {
		height = max(f.Height-2, 0)
	}
	return width, height
}

// Render draws body inside the frame. Body lines are cut or padded to the
// inner width and, when Height is set, to the inner height.
func (f Frame) Render(th *theme.Theme, body string) string {
	border := "frame.border"
	if f.Focused {
		border = "frame.focused"
	}
	width, height := f.Inner()

	lines := strings.Split(body, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}

	var sb strings.Builder
	sb.WriteString(f.top(th, border, width))
	side := th.Render(border, "│")
	for _, line := range lines {
		sb.WriteByte('\n')
		sb.WriteString(side)
		sb.WriteString(fit(line, width))
		sb.WriteString(side)
	}
	sb.WriteByte('\n')
	sb.WriteString(th.Render(border, "└"+strings.Repeat("─", width)+"┘"))
	return sb.String()
}

func (f Frame) top(th *theme.Theme, border string, width int) string {
	// "| " + title + " |" needs at least one cell of title.
	if len(f.Title) == 0 || width < 5 {
		return th.Render(border, "┌"+strings.Repeat("─", width)+"┐")
	}
	title := f.Title.Truncate(width - 4)

	var sb strings.Builder
	sb.WriteString(th.Render(border, "┌|"))
	sb.WriteString(th.Render("frame.label", " "))
	for _, frag := range title {
		sb.WriteString(th.Render("frame.label "+frag.Style, frag.Text))
	}
	sb.WriteString(th.Render("frame.label", " "))
	sb.WriteString(th.Render(border, "|"+strings.Repeat("─", width-4-title.Width())+"┐"))
	return sb.String()
}

// fit cuts or pads a styled line to exactly width cells.
func fit(line string, width int) string {
	w := ansi.StringWidth(line)
	if w > width {
		line = ansi.Truncate(line, width, "")
		w = ansi.StringWidth(line)
	}
	return line + strings.Repeat(" ", width-w)
}
