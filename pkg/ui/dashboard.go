package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/vanderheijden86/jiraview/pkg/jira"
	"github.com/vanderheijden86/jiraview/pkg/theme"
	"github.com/vanderheijden86/jiraview/pkg/tree"
)

// Layout constants.
const (
	jqlFrameHeight = 3
	statusHeight   = 1
	minBoardWidth  = 30
	boardRatio     = 0.4
	wheelStep      = 3
)

type focus int

const (
	focusJQL focus = iota
	focusBoard
	focusDetails
	focusCount
)

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// StylesChangedMsg replaces the style overrides of a running dashboard.
type StylesChangedMsg struct {
	Styles map[string]string
}

type openDetailsMsg struct {
	Key string
}

type copiedMsg struct {
	Text string
	Err  error
}

type statusLine struct {
	text  string
	style string
	seq   int
}

// Options configures the dashboard.
type Options struct {
	Loader   *Loader
	Theme    *theme.Theme
	JQL      string
	Comments CommentRenderer // nil prints comment bodies as plain text
	Keys     *KeyMap         // nil uses DefaultKeyMap

	// BrowseURL maps an issue key to its web link. Without it the copy
	// link binding is disabled.
	BrowseURL func(key string) string
}

// Model is the dashboard: a JQL input over the board tree and the detail
// pane of the opened issue.
type Model struct {
	keys   KeyMap
	loader *Loader
	theme  *theme.Theme
	view   DetailView

	input    textinput.Model
	board    *tree.Model[SummaryDrawable]
	viewport viewport.Model
	spinner  spinner.Model

	focused  focus
	showHelp bool
	width    int
	height   int
	ready    bool

	searching      bool
	loadingDetails bool
	liveGeneration uint64 // search generation whose live result is shown
	jql            string
	count          int
	cached         bool
	fetchedAt      time.Time
	details        *Details
	err            error
	status         statusLine

	now func() time.Time
}

// NewModel creates the dashboard. The first search starts with Init.
func NewModel(opts Options) Model {
	keys := DefaultKeyMap
	if opts.Keys != nil {
		keys = *opts.Keys
	}

	if opts.BrowseURL == nil {
		keys.CopyLink.SetEnabled(false)
	}

	input := textinput.New()
	input.Prompt = ""
	input.Placeholder = "JQL"
	input.SetValue(opts.JQL)
	input.Focus()

	board := tree.New[SummaryDrawable](nil,
		tree.Binding[SummaryDrawable]{
			Key: keys.OpenDetails,
			Action: func(n *IssueNode) tea.Cmd {
				key := n.Value.Issue.Key
				return func() tea.Msg { return openDetailsMsg{Key: key} }
			},
		},
		tree.Binding[SummaryDrawable]{
			Key: keys.CopyKey,
			Action: func(n *IssueNode) tea.Cmd {
				return copyText(n.Value.Issue.Key)
			},
		},
		tree.Binding[SummaryDrawable]{
			Key: keys.CopyLink,
			Action: func(n *IssueNode) tea.Cmd {
				return copyText(opts.BrowseURL(n.Value.Issue.Key))
			},
		},
	)
	board.SetStyler(opts.Theme)

	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = opts.Theme.Style("status.loading")

	return Model{
		keys:      keys,
		loader:    opts.Loader,
		theme:     opts.Theme,
		view:      DetailView{Theme: opts.Theme, Comments: opts.Comments},
		input:     input,
		board:     board,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		focused:   focusJQL,
		searching: true,
		jql:       opts.JQL,
		now:       time.Now,
	}
}

// Init starts the first search and shows the cached result meanwhile.
func (m Model) Init() tea.Cmd {
	return m.search(m.jql)
}

// search starts a live search and then a cache read for the same generation.
func (m Model) search(jql string) tea.Cmd {
	live := m.loader.Search(jql)
	return tea.Batch(live, m.loader.Cached(jql), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		cmd := m.handleMouse(msg)
		return m, cmd

	case ForestLoadedMsg:
		if msg.Generation != m.loader.SearchGeneration() {
			return m, nil
		}
		if msg.Cached && m.liveGeneration == msg.Generation {
			return m, nil
		}
		m.board.SetValues(msg.Roots)
		m.jql = msg.JQL
		m.count = msg.Count
		m.cached = msg.Cached
		m.fetchedAt = msg.FetchedAt
		if !msg.Cached {
			m.liveGeneration = msg.Generation
			m.searching = false
			m.err = nil
		}
		return m, nil

	case LoadFailedMsg:
		if msg.Generation != m.loader.SearchGeneration() {
			return m, nil
		}
		m.searching = false
		m.err = msg.Err
		return m, nil

	case openDetailsMsg:
		m.loadingDetails = true
		return m, tea.Batch(m.loader.Details(msg.Key), m.spinner.Tick)

	case DetailsLoadedMsg:
		if msg.Generation != m.loader.DetailsGeneration() {
			return m, nil
		}
		m.loadingDetails = false
		m.details = &msg.Details
		m.renderDetails()
		m.viewport.GotoTop()
		return m, nil

	case DetailsFailedMsg:
		if msg.Generation != m.loader.DetailsGeneration() {
			return m, nil
		}
		m.loadingDetails = false
		m.err = msg.Err
		return m, nil

	case copiedMsg:
		if msg.Err != nil {
			return m, m.setStatus("Copy failed: "+msg.Err.Error(), "status.error")
		}
		return m, m.setStatus("Copied "+msg.Text, "status")

	case logRecordMsg:
		style := "status.warn"
		if msg.Level >= slog.LevelError {
			style = "status.error"
		}
		return m, m.setStatus(msg.Summary, style)

	case logRecordFadeMsg:
		if msg.seq == m.status.seq {
			m.status.text = ""
		}
		return m, nil

	case StylesChangedMsg:
		m.applyStyles(msg.Styles)
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.loader.Stop()
		return m, tea.Quit
	case m.showHelp:
		if key.Matches(msg, m.keys.Help, m.keys.CloseHelp) {
			m.showHelp = false
		}
		return m, nil
	case m.focused != focusJQL && key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.NextPane):
		return m, m.setFocus((m.focused + 1) % focusCount)
	case key.Matches(msg, m.keys.PrevPane):
		return m, m.setFocus((m.focused + focusCount - 1) % focusCount)
	}

	var cmd tea.Cmd
	switch m.focused {
	case focusJQL:
		if key.Matches(msg, m.keys.Submit) {
			jql := strings.TrimSpace(m.input.Value())
			m.searching = true
			return m, m.search(jql)
		}
		m.input, cmd = m.input.Update(msg)
	case focusBoard:
		cmd = m.board.Update(msg)
	case focusDetails:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// handleMouse routes mouse events by pane. Clicking a pane focuses it; board
// events are translated to the tree's own coordinates.
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	if !m.ready {
		return nil
	}
	press := msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress
	bodyTop := jqlFrameHeight
	bodyBottom := m.height - statusHeight
	boardWidth := m.boardWidth()

	switch {
	case msg.Y < bodyTop:
		if press {
			return m.setFocus(focusJQL)
		}
	case msg.Y < bodyBottom && msg.X < boardWidth:
		var cmd tea.Cmd
		if press {
			cmd = m.setFocus(focusBoard)
		}
		inner := msg
		inner.X = msg.X - 1
		inner.Y = msg.Y - bodyTop - 1
		w, h := m.boardFrame().Inner()
		if inner.X >= 0 && inner.X < w && inner.Y >= 0 && inner.Y < h {
			m.board.HandleMouse(inner)
		}
		return cmd
	case msg.Y < bodyBottom:
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			m.viewport.ScrollUp(wheelStep)
		case tea.MouseButtonWheelDown:
			m.viewport.ScrollDown(wheelStep)
		default:
			if press {
				return m.setFocus(focusDetails)
			}
		}
	}
	return nil
}

func (m *Model) setFocus(f focus) tea.Cmd {
	m.focused = f
	if f == focusJQL {
		return m.input.Focus()
	}
	m.input.Blur()
	return nil
}

func (m *Model) setStatus(text, style string) tea.Cmd {
	m.status.seq++
	m.status.text = text
	m.status.style = style
	seq := m.status.seq
	return tea.Tick(logRecordFadeDelay, func(time.Time) tea.Msg {
		return logRecordFadeMsg{seq: seq}
	})
}

func (m *Model) applyStyles(overrides map[string]string) {
	th, err := theme.New(m.theme.Renderer, theme.DefaultRules())
	if err == nil {
		err = th.Merge(overrides)
	}
	if err != nil {
		m.err = fmt.Errorf("styles: %w", err)
		return
	}
	m.theme = th
	m.view.Theme = th
	m.board.SetStyler(th)
	m.spinner.Style = th.Style("status.loading")
	m.renderDetails()
}

func (m Model) busy() bool {
	return m.searching || m.loadingDetails
}

func (m Model) boardWidth() int {
	w := int(float64(m.width) * boardRatio)
	return min(max(w, minBoardWidth), m.width)
}

func (m Model) bodyHeight() int {
	return max(m.height-jqlFrameHeight-statusHeight, 0)
}

func (m Model) jqlFrame() Frame {
	return Frame{Title: tree.Text("", "JQL"), Width: m.width, Height: jqlFrameHeight, Focused: m.focused == focusJQL}
}

func (m Model) boardFrame() Frame {
	return Frame{Title: tree.Text("", "Board"), Width: m.boardWidth(), Height: m.bodyHeight(), Focused: m.focused == focusBoard}
}

func (m Model) detailsFrame() Frame {
	return Frame{
		Title:   tree.Text("", "Issue details"),
		Width:   m.width - m.boardWidth(),
		Height:  m.bodyHeight(),
		Focused: m.focused == focusDetails,
	}
}

func (m *Model) layout() {
	w, _ := m.jqlFrame().Inner()
	m.input.Width = max(w-1, 1)

	bw, bh := m.boardFrame().Inner()
	m.board.SetSize(bw, bh)

	dw, dh := m.detailsFrame().Inner()
	m.viewport.Width = dw
	m.viewport.Height = dh
	m.renderDetails()
}

func (m *Model) renderDetails() {
	if m.details == nil {
		m.viewport.SetContent(m.theme.Render("dull", "Press o on an issue to show its details."))
		return
	}
	m.viewport.SetContent(m.view.Render(*m.details, m.viewport.Width))
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.showHelp {
		return lipgloss.JoinVertical(lipgloss.Left, m.renderHelp(m.width, m.height-statusHeight), m.statusBar())
	}
	top := m.jqlFrame().Render(m.theme, m.input.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.boardFrame().Render(m.theme, m.board.View()),
		m.detailsFrame().Render(m.theme, m.viewport.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, top, body, m.statusBar())
}

func (m Model) statusBar() string {
	var left string
	switch {
	case m.busy():
		label := "Searching..."
		if !m.searching {
			label = "Loading details..."
		}
		left = m.spinner.View() + " " + m.theme.Render("status.loading", label)
	case m.err != nil:
		left = m.theme.Render("status.error", m.errorText())
	default:
		left = m.theme.Render("status", m.summary())
	}

	right := m.theme.Render("status", m.help())
	if m.status.text != "" {
		right = m.theme.Render(m.status.style, m.status.text)
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return fit(left+" "+right, m.width)
	}
	return left + strings.Repeat(" ", gap) + right
}

// errorText describes m.err, pointing at jv configure when Jira rejected the
// credentials.
func (m Model) errorText() string {
	text := m.err.Error()
	if jira.IsUnauthorized(m.err) {
		text = "Jira rejected the credentials, run jv configure: " + text
	}
	var loadErr *LoadError
	if errors.As(m.err, &loadErr) && loadErr.Retries > 1 {
		text += fmt.Sprintf(" (%d failures in a row)", loadErr.Retries)
	}
	return text
}

func (m Model) summary() string {
	s := fmt.Sprintf("%d issues", m.count)
	if m.cached {
		s += " (cached " + humanize.RelTime(m.fetchedAt, m.now(), "ago", "from now") + ")"
	}
	return s
}

func (m Model) help() string {
	var bindings []key.Binding
	switch m.focused {
	case focusJQL:
		bindings = append(bindings, m.keys.Submit)
	case focusBoard:
		bindings = append(bindings, m.board.KeyMap().ShortHelp()...)
		bindings = append(bindings, m.keys.OpenDetails, m.keys.CopyKey)
	}
	if m.focused != focusJQL {
		bindings = append(bindings, m.keys.Help)
	}
	bindings = append(bindings, m.keys.NextPane, m.keys.Quit)

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}

// Board returns the board tree.
func (m Model) Board() *tree.Model[SummaryDrawable] {
	return m.board
}

// Details returns the details shown in the detail pane, if any.
func (m Model) Details() (Details, bool) {
	if m.details == nil {
		return Details{}, false
	}
	return *m.details, true
}

func copyText(text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{Text: text, Err: writeClipboard(text)}
	}
}
