package tree

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// RowStyle controls the decoration drawn in front of each payload.
type RowStyle struct {
	Open   string // drawn before the glyph
	Close  string // drawn after the glyph
	Indent string // repeated once per depth level

	Style       string // tag for indentation and spacing
	MarkerStyle string // tag for the bracket pair and glyph
}

// DefaultRowStyle renders rows as "   [+] payload".
func DefaultRowStyle() RowStyle {
	return RowStyle{
		Open:        "[",
		Close:       "]",
		Indent:      "   ",
		Style:       "tree",
		MarkerStyle: "tree.marker",
	}
}

// Model is the tree widget. The visible sequence is never cached: every
// navigation step and every render walks the forest again, so it can never
// disagree with the Expanded flags.
//
// Model must be used through a pointer; row click handlers capture it.
type Model[T Drawable] struct {
	roots    []*Node[T]
	selected int

	keys     KeyMap
	bindings []Binding[T]
	row      RowStyle
	styler   Styler
	surface  Surface
}

// New creates a widget over roots. bindings are host commands merged with the
// built-in keys.
func New[T Drawable](roots []*Node[T], bindings ...Binding[T]) *Model[T] {
	m := &Model[T]{
		keys:     DefaultKeyMap,
		bindings: bindings,
		row:      DefaultRowStyle(),
	}
	m.surface.ShowScrollbar = true
	m.SetValues(roots)
	return m
}

// SetValues replaces the forest wholesale and selects the first row.
func (m *Model[T]) SetValues(roots []*Node[T]) {
	m.roots = roots
	m.selected = 0
	m.surface.Reset()
}

// Roots returns the forest.
func (m *Model[T]) Roots() []*Node[T] {
	return m.roots
}

// SetKeyMap replaces the built-in bindings.
func (m *Model[T]) SetKeyMap(keys KeyMap) {
	m.keys = keys
}

// KeyMap returns the built-in bindings.
func (m *Model[T]) KeyMap() KeyMap {
	return m.keys
}

// WithBindings adds host bindings after the existing ones and returns m.
func (m *Model[T]) WithBindings(bindings ...Binding[T]) *Model[T] {
	m.bindings = append(m.bindings, bindings...)
	return m
}

// Bindings returns the host bindings.
func (m *Model[T]) Bindings() []Binding[T] {
	return m.bindings
}

// SetRowStyle replaces the row decoration.
func (m *Model[T]) SetRowStyle(row RowStyle) {
	m.row = row
}

// SetStyler sets the styler used by View.
func (m *Model[T]) SetStyler(st Styler) {
	m.styler = st
}

// SetSize sets the viewport dimensions.
func (m *Model[T]) SetSize(width, height int) {
	m.surface.SetSize(width, height)
}

// SetScrollbar toggles the scrollbar margin.
func (m *Model[T]) SetScrollbar(show bool) {
	m.surface.ShowScrollbar = show
}

// VisibleCount returns the number of visible nodes.
func (m *Model[T]) VisibleCount() int {
	return CountVisible(m.roots)
}

// SelectedIndex returns the selection index into the visible sequence.
func (m *Model[T]) SelectedIndex() int {
	return m.selected
}

// Selected returns the selected node. ok is false when nothing is visible.
func (m *Model[T]) Selected() (*Node[T], bool) {
	_, node, ok := VisibleAt(m.roots, m.selected)
	return node, ok
}

// Select moves the selection to index i, clamped to the visible range.
func (m *Model[T]) Select(i int) {
	m.selected = i
	m.clamp()
}

// MoveUp selects the previous row. No-op on the first row.
func (m *Model[T]) MoveUp() {
	m.Select(m.selected - 1)
}

// MoveDown selects the next row. No-op on the last row.
func (m *Model[T]) MoveDown() {
	m.Select(m.selected + 1)
}

// PageUp moves up by the number of rows currently on screen. Before the
// first render that number is unknown and nothing happens.
func (m *Model[T]) PageUp() {
	if n := m.surface.Displayed(); n > 0 {
		m.PageUpBy(n)
	}
}

// PageDown moves down by the number of rows currently on screen. Before the
// first render that number is unknown and nothing happens.
func (m *Model[T]) PageDown() {
	if n := m.surface.Displayed(); n > 0 {
		m.PageDownBy(n)
	}
}

// PageUpBy moves the selection up by n rows.
func (m *Model[T]) PageUpBy(n int) {
	m.Select(m.selected - n)
}

// PageDownBy moves the selection down by n rows.
func (m *Model[T]) PageDownBy(n int) {
	m.Select(m.selected + n)
}

// JumpToTop selects the first row.
func (m *Model[T]) JumpToTop() {
	m.Select(0)
}

// JumpToBottom selects the last row.
func (m *Model[T]) JumpToBottom() {
	m.Select(m.VisibleCount() - 1)
}

// ToggleSelected flips the expanded flag of the selected node. Leaves flip
// too, with no visible effect.
func (m *Model[T]) ToggleSelected() {
	if node, ok := m.Selected(); ok {
		node.Toggle()
	}
}

// ClickRow selects row (an index into the visible sequence) and activates it.
func (m *Model[T]) ClickRow(row int) {
	m.Select(row)
	m.ToggleSelected()
}

// CollapseOrJumpToParent collapses the selected node when it is expanded and
// has children; otherwise it selects the parent row.
func (m *Model[T]) CollapseOrJumpToParent() {
	node, ok := m.Selected()
	if !ok {
		return
	}
	if node.Expanded && !node.IsLeaf() {
		node.Expanded = false
		return
	}

	depths := make([]int, 0, m.selected+1)
	for depth := range Visible(m.roots) {
		depths = append(depths, depth)
		if len(depths) > m.selected {
			break
		}
	}
	depth := depths[m.selected]
	for i := m.selected - 1; i >= 0; i-- {
		if depths[i] < depth {
			m.selected = i
			return
		}
	}
}

// ExpandAll expands every node.
func (m *Model[T]) ExpandAll() {
	for _, root := range m.roots {
		setExpandedRecursive(root, true)
	}
	m.clamp()
}

// CollapseAll collapses every node.
func (m *Model[T]) CollapseAll() {
	for _, root := range m.roots {
		setExpandedRecursive(root, false)
	}
	m.clamp()
}

func (m *Model[T]) clamp() {
	n := m.VisibleCount()
	if m.selected >= n {
		m.selected = n - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
}

// Update handles key and mouse input. Messages the widget does not use are
// ignored.
func (m *Model[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		_, cmd := m.HandleKey(msg)
		return cmd
	case tea.MouseMsg:
		m.HandleMouse(msg)
	}
	return nil
}

// HandleKey runs the built-in binding matching msg, or else the first host
// binding that matches. handled is false when no binding matched.
func (m *Model[T]) HandleKey(msg tea.KeyMsg) (handled bool, cmd tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.MoveDown()
	case key.Matches(msg, m.keys.PageUp):
		m.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.PageDown()
	case key.Matches(msg, m.keys.Home):
		m.JumpToTop()
	case key.Matches(msg, m.keys.End):
		m.JumpToBottom()
	case key.Matches(msg, m.keys.Activate):
		m.ToggleSelected()
	case key.Matches(msg, m.keys.Collapse):
		m.CollapseOrJumpToParent()
	case key.Matches(msg, m.keys.ExpandAll):
		m.ExpandAll()
	case key.Matches(msg, m.keys.CollapseAll):
		m.CollapseAll()
	default:
		for _, b := range m.bindings {
			if !key.Matches(msg, b.Key) {
				continue
			}
			node, ok := m.Selected()
			if !ok || b.Action == nil {
				return true, nil
			}
			return true, b.Action(node)
		}
		return false, nil
	}
	return true, nil
}

// HandleMouse handles a mouse event whose coordinates are relative to the
// widget's top-left cell. A left-button release activates the row under the
// pointer; the wheel moves the selection.
func (m *Model[T]) HandleMouse(msg tea.MouseMsg) bool {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.MoveUp()
		return true
	case tea.MouseButtonWheelDown:
		m.MoveDown()
		return true
	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionRelease {
			return false
		}
		frag, row, ok := m.surface.HitTest(msg.X, msg.Y)
		if !ok || frag.OnClick == nil {
			return false
		}
		frag.OnClick(row)
		return true
	}
	return false
}

// Fragments renders the whole forest as one stream: one row per visible node,
// rows separated by newlines with none after the last. Newlines inside a
// payload's fragments are flattened to spaces. Every fragment is
// tagged with a handler that clicks its row.
func (m *Model[T]) Fragments() Fragments {
	var out Fragments
	index := 0
	for depth, node := range Visible(m.roots) {
		if index > 0 {
			out = out.Append("", "\n")
		}
		if depth > 0 {
			out = out.Append(m.row.Style, strings.Repeat(m.row.Indent, depth))
		}
		out = out.Append(m.row.MarkerStyle, m.row.Open)
		if index == m.selected {
			out = out.Append(CursorStyle, "")
		}
		out = out.Append(m.row.MarkerStyle, node.glyph())
		out = out.Append(m.row.MarkerStyle, m.row.Close)
		out = out.Append(m.row.Style, " ")
		for _, f := range node.Value.Render() {
			f.Text = strings.ReplaceAll(f.Text, "\n", " ")
			out = append(out, f)
		}
		index++
	}

	for i := range out {
		out[i].OnClick = m.ClickRow
	}
	return out
}

// Rows returns the rendered stream split into one fragment list per row.
func (m *Model[T]) Rows() []Fragments {
	return m.Fragments().Lines()
}

// Offset returns the index of the first row on screen.
func (m *Model[T]) Offset() int {
	return m.surface.Offset()
}

// View renders the widget through the surface.
func (m *Model[T]) View() string {
	return m.surface.Render(m.Fragments(), m.styler)
}
