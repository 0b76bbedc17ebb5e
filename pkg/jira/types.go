package jira

import (
	"strings"
	"time"
)

// Issue is the domain view of a Jira issue. Summary builds fill the first
// block only; detailed builds add the rest.
type Issue struct {
	Key      string // "ABC-123"
	ID       string // internal numeric id, needed by the dev-status API
	Summary  string
	Type     string
	Status   Status
	Priority string
	Project  string
	Created  Time
	Updated  Time

	Description string // rendered HTML when available, raw markup otherwise
	Subtasks    []Issue
	Parent      *Issue
	Assignee    *User
	Creator     *User
}

// TypeClass is the lower-cased first word of the issue type, used to pick
// a style ("Sub-task" -> "sub-task", "New Feature" -> "new").
func (i Issue) TypeClass() string {
	fields := strings.Fields(i.Type)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// Status is a workflow state and its category key ("new", "indeterminate",
// "done").
type Status struct {
	Name     string
	Category string
}

// User identifies a Jira account.
type User struct {
	Name        string
	DisplayName string
}

// Comment is one issue comment.
type Comment struct {
	Body    string
	Author  *User
	Updated Time
}

// DevStatus is the development information linked to an issue.
type DevStatus struct {
	Branches     []Branch
	PullRequests []PullRequest
	Commits      []Commit
}

// Empty reports whether there is nothing to show.
func (d DevStatus) Empty() bool {
	return len(d.Branches) == 0 && len(d.PullRequests) == 0 && len(d.Commits) == 0
}

// Branch is a source branch.
type Branch struct {
	Name string
	URL  string
}

// Reviewer is a pull request reviewer.
type Reviewer struct {
	Name     string
	Approved bool
}

// PullRequest is a pull request linked to an issue.
type PullRequest struct {
	Name         string
	URL          string
	Author       string
	CommentCount int
	Source       Branch
	Destination  Branch
	Reviewers    []Reviewer
	Status       string // OPEN, MERGED, DECLINED
}

// Commit is a commit linked to an issue.
type Commit struct {
	ID      string // abbreviated hash
	Author  string
	Message string
	URL     string
}

// timeLayout is the timestamp format of the Jira REST API.
const timeLayout = "2006-01-02T15:04:05.000-0700"

// Time decodes Jira timestamps. The zero value means absent.
type Time struct {
	time.Time
}

// UnmarshalJSON accepts the Jira layout, RFC 3339 and null.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return err
		}
	}
	t.Time = parsed
	return nil
}

// MarshalJSON writes the Jira layout so cached values decode again.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(timeLayout) + `"`), nil
}

// String formats the time for display.
func (t Time) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
