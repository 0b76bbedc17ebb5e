package tree

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Style tags used by the surface itself.
const (
	StyleCursorLine     = "tree.cursor"
	StyleScrollbar      = "tree.scrollbar"
	StyleScrollbarThumb = "tree.scrollbar.thumb"
)

// Surface lays a fragment stream out in a fixed-size viewport. It follows the
// cursor marker so the selected row stays visible, remembers which rows it
// drew for mouse hit testing, and optionally draws a scrollbar.
type Surface struct {
	width  int
	height int

	offset    int         // index of the first row drawn
	displayed int         // rows drawn by the last Render, 0 before the first one
	rows      []Fragments // rows drawn by the last Render

	ShowScrollbar bool
}

// SetSize sets the viewport dimensions. Zero means unbounded.
func (s *Surface) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// Height returns the configured viewport height.
func (s *Surface) Height() int {
	return s.height
}

// Offset returns the index of the first drawn row.
func (s *Surface) Offset() int {
	return s.offset
}

// Displayed returns how many rows the last Render drew.
func (s *Surface) Displayed() int {
	return s.displayed
}

// Reset scrolls back to the top.
func (s *Surface) Reset() {
	s.offset = 0
}

// Layout splits the stream into rows and returns the window that fits the
// viewport after scrolling the cursor row into view.
func (s *Surface) Layout(stream Fragments) []Fragments {
	rows := stream.Lines()

	cursor := -1
	for i, row := range rows {
		if rowHasCursor(row) {
			cursor = i
			break
		}
	}

	if s.height <= 0 {
		s.offset = 0
		return rows
	}

	if cursor >= 0 {
		if cursor < s.offset {
			s.offset = cursor
		}
		if cursor >= s.offset+s.height {
			s.offset = cursor - s.height + 1
		}
	}
	maxOffset := len(rows) - s.height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.offset > maxOffset {
		s.offset = maxOffset
	}
	if s.offset < 0 {
		s.offset = 0
	}

	end := s.offset + s.height
	if end > len(rows) {
		end = len(rows)
	}
	return rows[s.offset:end]
}

// Render draws the stream. The row holding the cursor marker gets the
// StyleCursorLine tag appended to each of its fragments.
func (s *Surface) Render(stream Fragments, st Styler) string {
	total := len(stream.Lines())
	window := s.Layout(stream)
	s.rows = window
	s.displayed = len(window)

	scrollbar := s.ShowScrollbar && s.height > 0 && total > s.height
	contentWidth := s.width
	if scrollbar && contentWidth > 0 {
		contentWidth--
	}

	lines := make([]string, len(window))
	for i, row := range window {
		if rowHasCursor(row) {
			row = withStyle(row, StyleCursorLine)
		}
		if contentWidth > 0 {
			row = row.Truncate(contentWidth)
		}
		line := row.Render(st)
		if scrollbar && contentWidth > 0 {
			if pad := contentWidth - row.Width(); pad > 0 {
				line += strings.Repeat(" ", pad)
			}
		}
		lines[i] = line
	}

	if scrollbar {
		bar := renderScrollbar(st, len(window), total, s.height, s.offset)
		for i := range lines {
			lines[i] += bar[i]
		}
	}
	return strings.Join(lines, "\n")
}

// HitTest returns the fragment drawn at widget-relative cell (x, y) and the
// index of its row in the full stream. Clicks past the end of a row resolve
// to the row's last fragment.
func (s *Surface) HitTest(x, y int) (Fragment, int, bool) {
	if y < 0 || y >= len(s.rows) {
		return Fragment{}, 0, false
	}
	row := s.rows[y]
	var hit Fragment
	found := false
	col := 0
	for _, frag := range row {
		if frag.Text == "" {
			continue
		}
		hit, found = frag, true
		col += runewidth.StringWidth(frag.Text)
		if x < col {
			break
		}
	}
	if !found {
		return Fragment{}, 0, false
	}
	return hit, s.offset + y, true
}

func rowHasCursor(row Fragments) bool {
	for _, frag := range row {
		if frag.Style == CursorStyle {
			return true
		}
	}
	return false
}

func withStyle(row Fragments, tag string) Fragments {
	out := make(Fragments, len(row))
	for i, frag := range row {
		if frag.Style == "" {
			frag.Style = tag
		} else {
			frag.Style += " " + tag
		}
		out[i] = frag
	}
	return out
}

// renderScrollbar produces one cell per drawn row. The thumb is proportional
// to the visible share of the content.
func renderScrollbar(st Styler, rows, total, height, offset int) []string {
	cell := func(style, text string) string {
		if st == nil {
			return text
		}
		return st.Render(style, text)
	}

	thumbSize := height * height / total
	if thumbSize < 1 {
		thumbSize = 1
	}
	scrollable := total - height
	track := height - thumbSize
	thumbOffset := 0
	if scrollable > 0 && track > 0 {
		thumbOffset = offset * track / scrollable
	}
	if thumbOffset+thumbSize > height {
		thumbOffset = height - thumbSize
	}

	bar := make([]string, rows)
	for i := range bar {
		if i >= thumbOffset && i < thumbOffset+thumbSize {
			bar[i] = cell(StyleScrollbarThumb, "┃")
		} else {
			bar[i] = cell(StyleScrollbar, "│")
		}
	}
	return bar
}
