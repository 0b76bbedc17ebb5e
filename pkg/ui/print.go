package ui

import (
	"fmt"
	"io"

	"github.com/vanderheijden86/jiraview/pkg/jira"
	"github.com/vanderheijden86/jiraview/pkg/theme"
)

// PrintIssues writes one board row per issue, as "jv ls" shows them.
func PrintIssues(w io.Writer, th *theme.Theme, issues []jira.Issue) error {
	for _, issue := range issues {
		row := SummaryDrawable{Issue: issue}.Render()
		if _, err := fmt.Fprintln(w, row.Render(th)); err != nil {
			return err
		}
	}
	return nil
}

// PrintDetails writes the framed detail sections of an issue.
func PrintDetails(w io.Writer, view DetailView, d Details, width int) error {
	for _, section := range view.Sections(d, width) {
		if _, err := fmt.Fprintln(w, section); err != nil {
			return err
		}
	}
	return nil
}
