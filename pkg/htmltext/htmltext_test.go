package htmltext

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/jiraview/pkg/color"
)

func TestConvertPlainText(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", ""},
		{"text", "hello world", "hello world"},
		{"entities", "a &amp; b &lt;c&gt;", "a & b <c>"},
		{"crlf", "one<br/>\r\ntwo", "one\ntwo"},
		{"paragraphs", "<p>first</p>\n<p>second</p>", "first\nsecond"},
		{"collapse whitespace", "<p>a   lot\n of   space</p>", "a lot of space"},
		{"list", "<ul><li>one</li><li>two</li></ul>", "• one\n• two"},
		{"ordered list", "<ol><li>one</li><li>two</li></ol>", "1. one\n2. two"},
		{"pre", "<pre>x  =  1\n  y</pre>", "x  =  1\n  y"},
		{"script dropped", "<p>ok</p><script>alert(1)</script>", "ok"},
		{"table", "<table><tr><th>k</th><th>v</th></tr><tr><td>a</td><td>b</td></tr></table>", "k | v\na | b"},
		{"link", `see <a href="https://x.example/1">ticket</a>`, "see ticket <https://x.example/1>"},
		{"bare link", `<a href="https://x.example/1">https://x.example/1</a>`, "https://x.example/1"},
		{"blank lines squeezed", "a<br><br><br><br>b", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Convert(tt.src, "issue").String(); got != tt.want {
				t.Errorf("Convert(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestConvertInlineStyles(t *testing.T) {
	frags := Convert("<p>plain <b>bold</b> <em>soft</em></p>", "issue")
	styles := map[string]string{}
	for _, f := range frags {
		styles[f.Text] = f.Style
	}
	if styles["bold"] != "issue bold" {
		t.Errorf("bold style = %q", styles["bold"])
	}
	if styles["soft"] != "issue italic" {
		t.Errorf("em style = %q", styles["soft"])
	}
	if styles["plain "] != "issue" {
		t.Errorf("plain style = %q", styles["plain "])
	}
}

func TestConvertLightensDarkColors(t *testing.T) {
	frags := Convert(`<font color="#000080">navy</font> <span style="font-weight:bold; color: #fafafa">pale</span>`, "issue")

	var navy, pale string
	for _, f := range frags {
		switch f.Text {
		case "navy":
			navy = f.Style
		case "pale":
			pale = f.Style
		}
	}

	fields := strings.Fields(navy)
	if len(fields) != 2 || !strings.HasPrefix(fields[1], "#") {
		t.Fatalf("navy style = %q, want base plus color", navy)
	}
	hsl, err := color.ToHSL(fields[1])
	if err != nil {
		t.Fatal(err)
	}
	if hsl.L < color.MinReadableLightness-0.01 {
		t.Errorf("navy not lightened: %s (L=%.2f)", fields[1], hsl.L)
	}
	if pale != "issue #fafafa" {
		t.Errorf("pale style = %q, want unchanged color", pale)
	}
}
