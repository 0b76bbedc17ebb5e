package ui

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/jiraview/pkg/htmltext"
	"github.com/vanderheijden86/jiraview/pkg/jira"
	"github.com/vanderheijden86/jiraview/pkg/theme"
	"github.com/vanderheijden86/jiraview/pkg/tree"
)

// Column widths of the sub-task and pull request tables.
const (
	subtaskSummaryWidth = 50
	subtaskIDWidth      = 8
	subtaskStatusWidth  = 10
	pullRequestWidth    = 60
	prStatusWidth       = 10
)

// Details is everything shown for one issue.
type Details struct {
	Issue    jira.Issue
	Comments []jira.Comment
	Dev      jira.DevStatus
}

// CommentRenderer formats comment bodies. *glamour.TermRenderer satisfies it.
type CommentRenderer interface {
	Render(in string) (string, error)
}

// DetailView renders the sections of the detail pane and of "jv show".
type DetailView struct {
	Theme *theme.Theme
	// Comments renders comment bodies; nil prints them as plain text.
	Comments CommentRenderer
}

// Render draws every non-empty section, each in its own frame of the given
// outer width.
func (v DetailView) Render(d Details, width int) string {
	return strings.Join(v.Sections(d, width), "\n")
}

// Sections returns the framed sections in display order. Sub-tasks, comments
// and development only appear when there is something in them.
func (v DetailView) Sections(d Details, width int) []string {
	sections := []string{v.IssueSection(d.Issue, width)}
	if len(d.Issue.Subtasks) > 0 {
		sections = append(sections, v.SubtasksSection(d.Issue, width))
	}
	if len(d.Comments) > 0 {
		sections = append(sections, v.CommentsSection(d.Comments, width))
	}
	if !d.Dev.Empty() {
		sections = append(sections, v.DevSection(d.Dev, width))
	}
	return sections
}

// IssueSection shows status, summary, people and the description.
func (v DetailView) IssueSection(issue jira.Issue, width int) string {
	f := Frame{Title: IssueID(issue), Width: width}
	inner := contentWidth(f)

	lines := []string{v.Theme.Render("issue.status", issue.Status.Name)}

	people := tree.Text("issue", issue.Summary)
	if issue.Assignee != nil {
		people = people.Append("dull", "\nAssignee: ")
		people = people.Append("issue.assignee", userName(issue.Assignee))
	}
	if issue.Creator != nil {
		people = people.Append("dull", " Creator: ")
		people = people.Append("issue.creator", userName(issue.Creator))
	}
	lines = append(lines, v.wrap(people, inner)...)

	if desc := strings.ReplaceAll(issue.Description, "\r\n", ""); strings.TrimSpace(desc) != "" {
		lines = append(lines, v.wrap(htmltext.Convert(desc, "issue.description"), inner)...)
	}
	return f.Render(v.Theme, box(lines))
}

// SubtasksSection lists sub-tasks as a table separated by rules.
func (v DetailView) SubtasksSection(issue jira.Issue, width int) string {
	f := Frame{Title: tree.Text("comments", "Sub-Tasks"), Width: width}
	inner := contentWidth(f)
	rule := v.Theme.Render("dull", strings.Repeat("─", inner))

	var lines []string
	for i, sub := range issue.Subtasks {
		if i > 0 {
			lines = append(lines, rule)
		}
		row := tree.Text("issue", runewidth.FillRight(TruncateText(sub.Summary, subtaskSummaryWidth), subtaskSummaryWidth))
		row = row.Append("", " ")
		row = append(row, padFragments(IssueID(sub), subtaskIDWidth)...)
		row = row.Append("", " ")
		row = row.Append("dull", runewidth.FillRight(sub.Status.Name, subtaskStatusWidth))
		row = row.Append("", " ")
		assignee := "Unassigned"
		if sub.Assignee != nil {
			assignee = userName(sub.Assignee)
		}
		row = row.Append("issue.assignee", assignee)
		lines = append(lines, row.Render(v.Theme))
	}
	return f.Render(v.Theme, box(lines))
}

// CommentsSection shows each comment under an author and date line.
func (v DetailView) CommentsSection(comments []jira.Comment, width int) string {
	f := Frame{Title: tree.Text("comments", "Comments"), Width: width}
	inner := contentWidth(f)

	var lines []string
	for _, c := range comments {
		header := tree.Text("comment.author", userName(c.Author)).
			Append("comment", " ").
			Append("comment.date", c.Updated.String())
		lines = append(lines, header.Render(v.Theme))
		for _, line := range v.commentBody(c.Body, inner-2) {
			lines = append(lines, "  "+line)
		}
		lines = append(lines, "")
	}
	return f.Render(v.Theme, box(lines))
}

func (v DetailView) commentBody(body string, width int) []string {
	body = strings.ReplaceAll(body, "\r\n", "\n")
	if v.Comments != nil {
		out, err := v.Comments.Render(body)
		if err == nil {
			return strings.Split(strings.Trim(out, "\n"), "\n")
		}
	}
	return v.wrap(tree.Text("comment.body", body), width)
}

// DevSection lists commits, branches and pull requests.
func (v DetailView) DevSection(dev jira.DevStatus, width int) string {
	f := Frame{Title: tree.Text("comments", "Development"), Width: width}
	th := v.Theme

	lines := []string{"Commit:"}
	for i, c := range dev.Commits {
		if i > 0 {
			lines = append(lines, "")
		}
		line := tree.Text("dev.commit.id", c.ID+" ").
			Append("dev.commit.author", c.Author+" ").
			Append("dev.commit.message", firstLine(c.Message))
		lines = append(lines, line.Render(th), th.Render("dev.commit.url", c.URL))
	}
	lines = append(lines, "", "Branch:")
	for _, b := range dev.Branches {
		line := tree.Text("dev.branch.name", b.Name).
			Append("", " ").
			Append("dev.branch.url", b.URL)
		lines = append(lines, line.Render(th))
	}
	lines = append(lines, "", "Pull request:")
	for i, pr := range dev.PullRequests {
		if i > 0 {
			lines = append(lines, "")
		}
		status := runewidth.FillRight(" "+pr.Status+" ", prStatusWidth)
		head := tree.Text("dev.pull_request.name", runewidth.FillRight(TruncateText(pr.Name, pullRequestWidth), pullRequestWidth)).
			Append("", " ").
			Append("dev.pull_request.status."+strings.ToLower(pr.Status), status).
			Append("", " ").
			Append("dev.pull_request.comment", fmt.Sprintf("Comments: %d", pr.CommentCount))

		people := tree.Text("dull", "Author: ").
			Append("dev.pull_request.author", pr.Author).
			Append("", " ").
			Append("dull", "Reviewer: ")
		for _, r := range SortReviewers(pr.Reviewers) {
			state := "waiting"
			if r.Approved {
				state = "approved"
			}
			people = people.Append("dev.pull_request.review."+state, r.Name).Append("", " ")
		}

		lines = append(lines, head.Render(th), people.Render(th), th.Render("dull", pr.URL))
	}
	return f.Render(th, box(lines))
}

// SortReviewers returns the reviewers with approvals first, each group
// ordered by name.
func SortReviewers(reviewers []jira.Reviewer) []jira.Reviewer {
	sorted := slices.Clone(reviewers)
	slices.SortStableFunc(sorted, func(a, b jira.Reviewer) int {
		if a.Approved != b.Approved {
			if a.Approved {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return sorted
}

// TruncateText cuts text to at most limit display cells, marking the cut
// with "...".
func TruncateText(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if runewidth.StringWidth(text) <= limit {
		return text
	}
	return runewidth.Truncate(text, limit, "...")
}

func (v DetailView) wrap(f tree.Fragments, width int) []string {
	var out []string
	for _, line := range f.Lines() {
		out = append(out, strings.Split(ansi.Wrap(line.Render(v.Theme), width, ""), "\n")...)
	}
	return out
}

// box adds a one cell margin around lines.
func box(lines []string) string {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString("\n ")
		sb.WriteString(line)
	}
	sb.WriteString("\n")
	return sb.String()
}

// contentWidth is the room left inside a frame after the box margin.
func contentWidth(f Frame) int {
	w, _ := f.Inner()
	return max(w-2, 1)
}

func padFragments(f tree.Fragments, width int) tree.Fragments {
	f = f.Truncate(width)
	if w := f.Width(); w < width {
		f = f.Append("", strings.Repeat(" ", width-w))
	}
	return f
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func userName(u *jira.User) string {
	switch {
	case u == nil:
		return ""
	case u.DisplayName != "":
		return u.DisplayName
	default:
		return u.Name
	}
}
