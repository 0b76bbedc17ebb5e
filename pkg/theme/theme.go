// Package theme maps the abstract style tags carried by fragments to terminal
// styles.
//
// A rule is written the way style strings appear in the config file:
// space separated attributes such as "bold", "italic", "underline",
// "reverse", a "#rrggbb" foreground and a "bg:#rrggbb" background. Each
// attribute may be negated with a "no" prefix ("nobold").
//
// Tags cascade by dotted prefix: a fragment tagged "issue_id.story" first gets
// the "issue_id" rule and then the "issue_id.story" rule on top. A fragment
// carrying several tags applies them left to right. Concrete attributes
// ("bold", "#ff0000") may appear among the tags and apply in place.
package theme

import (
	"fmt"
	"maps"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/jiraview/pkg/color"
	"github.com/vanderheijden86/jiraview/pkg/tree"
)

// Palette used by the default rules.
const (
	White     = "#f0f0f0"
	DullGrey  = "#8a8a8a"
	Red       = "#f54242"
	Green     = "#67eb34"
	Blue      = "#349ceb"
	LightBlue = "#34ebeb"
	Orange    = "#eb8934"
	Yellow    = "#ebe534"
	Black     = "#000000"
)

var defaultRules = map[string]string{
	"issue":             "",
	"issue.status":      DullGrey,
	"issue_id":          "bold",
	"issue_id.story":    Green,
	"issue_id.sub-task": Blue,
	"issue_id.bug":      Red,
	"issue.subtasks":    DullGrey,
	"issue.assignee":    Blue,
	"issue.creator":     Blue,

	"comments":       "bold " + LightBlue,
	"comment":        "",
	"comment.author": Blue,
	"comment.date":   DullGrey,
	"comment.body":   White,
	"dull":           DullGrey,

	"dev.commit.message":               White,
	"dev.commit.author":                Blue,
	"dev.commit.url":                   DullGrey,
	"dev.commit.id":                    DullGrey,
	"dev.branch.name":                  White,
	"dev.branch.url":                   DullGrey,
	"dev.pull_request.review.approved": Green,
	"dev.pull_request.review.waiting":  DullGrey,
	"dev.pull_request.author":          Blue,
	"dev.pull_request.name":            White,
	"dev.pull_request.status.merged":   "bold bg:" + Green + " " + Black,
	"dev.pull_request.status.declined": "bold bg:" + Orange + " " + Black,
	"dev.pull_request.status.open":     "bold bg:" + White + " " + Black,
	"dev.pull_request.comment":         White,

	"tree":                 "",
	"tree.marker":          DullGrey,
	"tree.cursor":          "reverse",
	"tree.scrollbar":       DullGrey,
	"tree.scrollbar.thumb": White,

	"frame.border":  DullGrey,
	"frame.focused": LightBlue,
	"frame.label":   "bold",

	"help.title":   "bold " + LightBlue,
	"help.section": "bold",
	"help.key":     Blue,

	"status":         DullGrey,
	"status.warn":    Yellow,
	"status.error":   "bold " + Red,
	"status.loading": LightBlue,
}

// Rule is one parsed style string. Nil pointers leave the attribute to
// whatever an earlier rule in the cascade decided.
type Rule struct {
	Bold      *bool
	Italic    *bool
	Underline *bool
	Reverse   *bool
	Fg        string
	Bg        string
}

// ParseRule parses a style string.
func ParseRule(s string) (Rule, error) {
	var r Rule
	for _, word := range strings.Fields(s) {
		switch {
		case strings.HasPrefix(word, "bg:"):
			c := strings.TrimPrefix(word, "bg:")
			if !color.Valid(c) {
				return Rule{}, fmt.Errorf("invalid background %q", c)
			}
			r.Bg = c
		case strings.HasPrefix(word, "#"):
			if !color.Valid(word) {
				return Rule{}, fmt.Errorf("invalid color %q", word)
			}
			r.Fg = word
		default:
			on := true
			name := word
			if strings.HasPrefix(word, "no") {
				on = false
				name = strings.TrimPrefix(word, "no")
			}
			switch name {
			case "bold":
				r.Bold = &on
			case "italic":
				r.Italic = &on
			case "underline":
				r.Underline = &on
			case "reverse":
				r.Reverse = &on
			default:
				return Rule{}, fmt.Errorf("unknown style attribute %q", word)
			}
		}
	}
	return r, nil
}

func (r Rule) over(base Rule) Rule {
	if r.Bold != nil {
		base.Bold = r.Bold
	}
	if r.Italic != nil {
		base.Italic = r.Italic
	}
	if r.Underline != nil {
		base.Underline = r.Underline
	}
	if r.Reverse != nil {
		base.Reverse = r.Reverse
	}
	if r.Fg != "" {
		base.Fg = r.Fg
	}
	if r.Bg != "" {
		base.Bg = r.Bg
	}
	return base
}

// Theme renders fragments. It is safe for concurrent use.
type Theme struct {
	Renderer *lipgloss.Renderer

	mu    sync.Mutex
	rules map[string]Rule
	cache map[string]lipgloss.Style
}

// New builds a theme from tag rules.
func New(r *lipgloss.Renderer, rules map[string]string) (*Theme, error) {
	t := &Theme{Renderer: r, rules: make(map[string]Rule, len(rules))}
	if err := t.set(rules); err != nil {
		return nil, err
	}
	return t, nil
}

// Default returns the built-in theme.
func Default(r *lipgloss.Renderer) *Theme {
	t, err := New(r, defaultRules)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultRules returns a copy of the built-in rule strings.
func DefaultRules() map[string]string {
	return maps.Clone(defaultRules)
}

// Merge replaces or adds rules. On error the theme is left unchanged.
func (t *Theme) Merge(overrides map[string]string) error {
	parsed := make(map[string]Rule, len(overrides))
	for tag, s := range overrides {
		r, err := ParseRule(s)
		if err != nil {
			return fmt.Errorf("style %q: %w", tag, err)
		}
		parsed[tag] = r
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	maps.Copy(t.rules, parsed)
	t.cache = nil
	return nil
}

func (t *Theme) set(rules map[string]string) error {
	for tag, s := range rules {
		r, err := ParseRule(s)
		if err != nil {
			return fmt.Errorf("style %q: %w", tag, err)
		}
		t.rules[tag] = r
	}
	return nil
}

// Resolve computes the effective rule for a fragment style.
func (t *Theme) Resolve(style string) Rule {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.resolve(style)
}

func (t *Theme) resolve(style string) Rule {
	var out Rule
	for _, tag := range strings.Fields(style) {
		if inline, ok := inlineRule(tag); ok {
			out = inline.over(out)
			continue
		}
		tag = strings.TrimPrefix(tag, "class:")
		parts := strings.Split(tag, ".")
		for i := range parts {
			if r, ok := t.rules[strings.Join(parts[:i+1], ".")]; ok {
				out = r.over(out)
			}
		}
	}
	return out
}

// inlineRule recognises concrete attributes mixed in with tags, such as the
// colors carried over from issue markup.
func inlineRule(word string) (Rule, bool) {
	switch {
	case strings.HasPrefix(word, "#"), strings.HasPrefix(word, "bg:"):
	case strings.Contains(word, "."):
		return Rule{}, false
	default:
		switch strings.TrimPrefix(word, "no") {
		case "bold", "italic", "underline", "reverse":
		default:
			return Rule{}, false
		}
	}
	r, err := ParseRule(word)
	return r, err == nil
}

// Style returns the lipgloss style for a fragment style.
func (t *Theme) Style(style string) lipgloss.Style {
	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok := t.cache[style]; ok {
		return s
	}

	r := t.resolve(style)
	s := t.Renderer.NewStyle()
	if r.Bold != nil {
		s = s.Bold(*r.Bold)
	}
	if r.Italic != nil {
		s = s.Italic(*r.Italic)
	}
	if r.Underline != nil {
		s = s.Underline(*r.Underline)
	}
	if r.Reverse != nil {
		s = s.Reverse(*r.Reverse)
	}
	if r.Fg != "" {
		s = s.Foreground(lipgloss.Color(r.Fg))
	}
	if r.Bg != "" {
		s = s.Background(lipgloss.Color(r.Bg))
	}

	if t.cache == nil {
		t.cache = make(map[string]lipgloss.Style)
	}
	t.cache[style] = s
	return s
}

// Render styles a single run of text.
func (t *Theme) Render(style, text string) string {
	if text == "" {
		return ""
	}
	return t.Style(style).Render(text)
}

// Fragments renders a fragment stream, newlines included.
func (t *Theme) Fragments(f tree.Fragments) string {
	lines := f.Lines()
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = line.Render(t)
	}
	return strings.Join(out, "\n")
}
