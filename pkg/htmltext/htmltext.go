// Package htmltext turns the rendered HTML Jira returns for issue fields into
// styled fragments for the terminal.
package htmltext

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/vanderheijden86/jiraview/pkg/color"
	"github.com/vanderheijden86/jiraview/pkg/tree"
)

var (
	styleColor = regexp.MustCompile(`(?i)(?:^|;)\s*color\s*:\s*(#[0-9a-f]{6}|#[0-9a-f]{3})`)
	spaces     = regexp.MustCompile(`\s+`)
)

// Convert renders src as fragments. Every fragment carries base plus the
// inline attributes implied by the markup. Colors set by the markup are
// lightened until readable on a dark background.
func Convert(src, base string) tree.Fragments {
	src = strings.ReplaceAll(src, "\r\n", "\n")

	c := &converter{base: base}
	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or malformed input; keep whatever was converted.
			return c.finish()
		case html.TextToken:
			c.text(string(z.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			c.open(tok, tt == html.SelfClosingTagToken)
		case html.EndTagToken:
			c.close(z.Token())
		}
	}
}

type frame struct {
	tag   atom.Atom
	attrs []string
	href  string
	start int // index into out where the element's content begins
}

type converter struct {
	base  string
	stack []frame
	out   tree.Fragments
	pre   int
	skip  int
	list  []int // item counters of open lists, -1 for unordered
}

func (c *converter) style() string {
	parts := []string{c.base}
	for _, f := range c.stack {
		parts = append(parts, f.attrs...)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (c *converter) emit(text string) {
	if text == "" {
		return
	}
	c.out = c.out.Append(c.style(), text)
}

func (c *converter) text(s string) {
	if c.skip > 0 {
		return
	}
	if c.pre == 0 {
		s = spaces.ReplaceAllString(s, " ")
		if c.atLineStart() {
			s = strings.TrimLeft(s, " ")
		}
	}
	c.emit(s)
}

func (c *converter) atLineStart() bool {
	for i := len(c.out) - 1; i >= 0; i-- {
		text := c.out[i].Text
		if text == "" {
			continue
		}
		return strings.HasSuffix(text, "\n")
	}
	return true
}

func (c *converter) newline() {
	c.out = c.out.Append(c.base, "\n")
}

func (c *converter) block() {
	if !c.atLineStart() {
		c.newline()
	}
}

func (c *converter) open(tok html.Token, selfClosing bool) {
	switch tok.DataAtom {
	case atom.Br:
		c.newline()
		return
	case atom.Hr:
		c.block()
		c.emit(strings.Repeat("─", 20))
		c.newline()
		return
	case atom.Img:
		if alt := attr(tok, "alt"); alt != "" {
			c.emit("[" + alt + "]")
		}
		return
	case atom.Script, atom.Style:
		if !selfClosing {
			c.skip++
		}
		return
	case atom.P, atom.Div, atom.Blockquote, atom.Table, atom.Tr,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.block()
	case atom.Pre:
		c.block()
		c.pre++
	case atom.Ul:
		c.block()
		c.list = append(c.list, -1)
	case atom.Ol:
		c.block()
		c.list = append(c.list, 0)
	case atom.Li:
		c.block()
		c.emit(strings.Repeat("  ", max(len(c.list)-1, 0)))
		c.emit(c.bullet())
	case atom.Td, atom.Th:
		if !c.atLineStart() {
			c.emit(" | ")
		}
	}

	if selfClosing {
		return
	}
	var attrs []string
	switch tok.DataAtom {
	case atom.B, atom.Strong, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Th:
		attrs = append(attrs, "bold")
	case atom.I, atom.Em, atom.Cite:
		attrs = append(attrs, "italic")
	case atom.U, atom.Ins, atom.A:
		attrs = append(attrs, "underline")
	}
	if fg := markupColor(tok); fg != "" {
		attrs = append(attrs, fg)
	}
	f := frame{tag: tok.DataAtom, attrs: attrs, start: len(c.out)}
	if tok.DataAtom == atom.A {
		f.href = attr(tok, "href")
	}
	c.stack = append(c.stack, f)
}

func (c *converter) close(tok html.Token) {
	switch tok.DataAtom {
	case atom.Script, atom.Style:
		if c.skip > 0 {
			c.skip--
		}
		return
	case atom.Pre:
		if c.pre > 0 {
			c.pre--
		}
	case atom.Ul, atom.Ol:
		if len(c.list) > 0 {
			c.list = c.list[:len(c.list)-1]
		}
	}

	var closed *frame
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].tag == tok.DataAtom {
			f := c.stack[i]
			closed = &f
			c.stack = c.stack[:i]
			break
		}
	}

	switch tok.DataAtom {
	case atom.P, atom.Div, atom.Blockquote, atom.Pre, atom.Table, atom.Tr, atom.Li,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		c.block()
	case atom.A:
		// Links show their target unless the text already is the target.
		if closed == nil || !strings.HasPrefix(closed.href, "http") {
			return
		}
		if text := c.out[closed.start:].String(); strings.TrimSpace(text) != closed.href {
			c.emit(" <" + closed.href + ">")
		}
	}
}

func (c *converter) bullet() string {
	if len(c.list) == 0 {
		return "• "
	}
	top := len(c.list) - 1
	if c.list[top] < 0 {
		return "• "
	}
	c.list[top]++
	return strconv.Itoa(c.list[top]) + ". "
}

// finish trims trailing blanks on each line and squeezes runs of empty lines.
func (c *converter) finish() tree.Fragments {
	var out tree.Fragments
	blank := 0
	lines := c.out.Lines()
	for _, line := range lines {
		line = trimRight(line)
		if line.Width() == 0 {
			blank++
			continue
		}
		if len(out) > 0 {
			out = out.Append(c.base, "\n")
			if blank > 0 {
				out = out.Append(c.base, "\n")
			}
		}
		blank = 0
		out = append(out, line...)
	}
	return out
}

func trimRight(line tree.Fragments) tree.Fragments {
	for len(line) > 0 {
		last := &line[len(line)-1]
		last.Text = strings.TrimRight(last.Text, " \t")
		if last.Text != "" {
			break
		}
		line = line[:len(line)-1]
	}
	return line
}

func attr(tok html.Token, name string) string {
	for _, a := range tok.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// markupColor extracts the foreground set by a <font color> or an inline
// style attribute, lightened for a dark terminal.
func markupColor(tok html.Token) string {
	hex := ""
	if tok.DataAtom == atom.Font {
		hex = attr(tok, "color")
	}
	if m := styleColor.FindStringSubmatch(attr(tok, "style")); m != nil {
		hex = m[1]
	}
	if !strings.HasPrefix(hex, "#") {
		return ""
	}
	light, err := color.EnsureLightness(hex, color.MinReadableLightness)
	if err != nil {
		return ""
	}
	return light
}
