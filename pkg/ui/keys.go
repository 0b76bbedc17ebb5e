package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard bindings. Tree navigation keys live in the tree
// widget's own key map.
type KeyMap struct {
	Quit     key.Binding
	NextPane key.Binding
	PrevPane key.Binding

	// Help toggles the key reference of the focused pane; CloseHelp also
	// dismisses it.
	Help      key.Binding
	CloseHelp key.Binding

	// Submit reruns the query while the JQL input has focus.
	Submit key.Binding

	// Board bindings, scoped to the selected issue.
	OpenDetails key.Binding
	CopyKey     key.Binding
	CopyLink    key.Binding
}

// DefaultKeyMap is the built-in dashboard key set.
var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	NextPane: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next pane"),
	),
	PrevPane: key.NewBinding(
		key.WithKeys("shift+tab"),
		key.WithHelp("shift+tab", "previous pane"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "keys"),
	),
	CloseHelp: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "close"),
	),
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("⏎", "search"),
	),
	OpenDetails: key.NewBinding(
		key.WithKeys("o"),
		key.WithHelp("o", "details"),
	),
	CopyKey: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy key"),
	),
	CopyLink: key.NewBinding(
		key.WithKeys("Y"),
		key.WithHelp("Y", "copy link"),
	),
}
