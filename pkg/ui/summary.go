// Package ui holds the Jira-specific views: the issue rows shown in the board
// tree, the detail sections, the background loader and the dashboard program.
package ui

import (
	"fmt"

	"github.com/vanderheijden86/jiraview/pkg/jira"
	"github.com/vanderheijden86/jiraview/pkg/tree"
)

// IssueNode is a board tree node.
type IssueNode = tree.Node[SummaryDrawable]

// SummaryDrawable renders an issue as one board row:
// "[PARENT / ]KEY status [subtasks[n]] summary".
type SummaryDrawable struct {
	Issue jira.Issue
}

// Render implements tree.Drawable.
func (s SummaryDrawable) Render() tree.Fragments {
	out := IssueID(s.Issue)
	out = out.Append("issue.status", " "+s.Issue.Status.Name)
	if n := len(s.Issue.Subtasks); n > 0 {
		out = out.Append("issue", " ")
		out = out.Append("issue.subtasks", fmt.Sprintf("subtasks[%d]", n))
	}
	out = out.Append("issue", " ")
	return out.Append("issue", s.Issue.Summary)
}

// IssueID renders the key of an issue, prefixed by its parent's key.
func IssueID(issue jira.Issue) tree.Fragments {
	var out tree.Fragments
	if issue.Parent != nil {
		out = out.Append(idStyle(*issue.Parent), issue.Parent.Key)
		out = out.Append("issue", " / ")
	}
	return out.Append(idStyle(issue), issue.Key)
}

func idStyle(issue jira.Issue) string {
	if class := issue.TypeClass(); class != "" {
		return "issue_id." + class
	}
	return "issue_id"
}

// BuildForest turns search results into collapsed board nodes. Sub-tasks
// become children of their issue.
func BuildForest(issues []jira.Issue) []*IssueNode {
	nodes := make([]*IssueNode, 0, len(issues))
	for _, issue := range issues {
		node := tree.NewNode(SummaryDrawable{Issue: issue}, BuildForest(issue.Subtasks)...)
		nodes = append(nodes, node)
	}
	return nodes
}
