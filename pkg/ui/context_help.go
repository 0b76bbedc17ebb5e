package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// helpModalWidth is the overlay width including its border.
const helpModalWidth = 46

const helpKeyWidth = 12

// helpSection is one titled group of the key reference.
type helpSection struct {
	title    string
	bindings []key.Binding
}

func (f focus) String() string {
	switch f {
	case focusJQL:
		return "JQL"
	case focusBoard:
		return "Board"
	case focusDetails:
		return "Issue details"
	}
	return "?"
}

// helpSections lists the keys of the focused pane, then the global ones.
func (m Model) helpSections() []helpSection {
	var sections []helpSection
	switch m.focused {
	case focusJQL:
		sections = append(sections, helpSection{"Query", []key.Binding{m.keys.Submit}})
	case focusBoard:
		tk := m.board.KeyMap()
		sections = append(sections,
			helpSection{"Navigation", []key.Binding{tk.Up, tk.Down, tk.PageUp, tk.PageDown, tk.Home, tk.End, tk.ExpandAll, tk.CollapseAll}},
			helpSection{"Issues", []key.Binding{tk.Activate, tk.Collapse, m.keys.OpenDetails, m.keys.CopyKey, m.keys.CopyLink}},
		)
	case focusDetails:
		vk := m.viewport.KeyMap
		sections = append(sections, helpSection{"Scrolling", []key.Binding{vk.Up, vk.Down, vk.PageUp, vk.PageDown, vk.HalfPageUp, vk.HalfPageDown}})
	}
	return append(sections, helpSection{"Dashboard", []key.Binding{m.keys.NextPane, m.keys.PrevPane, m.keys.Help, m.keys.Quit}})
}

// renderHelp draws the key reference for the focused pane, centered in a
// w x h area.
func (m Model) renderHelp(w, h int) string {
	var b strings.Builder
	b.WriteString(m.theme.Render("help.title", "Keys: "+m.focused.String()))
	for _, s := range m.helpSections() {
		b.WriteString("\n\n")
		b.WriteString(m.theme.Render("help.section", s.title))
		for _, binding := range s.bindings {
			hk := binding.Help()
			if !binding.Enabled() || hk.Key == "" {
				continue
			}
			b.WriteString("\n  ")
			b.WriteString(m.theme.Render("help.key", runewidth.FillRight(hk.Key, helpKeyWidth)))
			b.WriteString(hk.Desc)
		}
	}
	b.WriteString("\n\n")
	b.WriteString(m.theme.Render("dull", "? or esc to close"))

	modal := m.theme.Renderer.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Style("frame.focused").GetForeground()).
		Padding(0, 1).
		Width(max(min(helpModalWidth, w)-2, 0)).
		Render(b.String())
	return m.theme.Renderer.Place(w, h, lipgloss.Center, lipgloss.Center, modal)
}
