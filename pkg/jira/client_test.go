package jira

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

const searchBody = `{
  "startAt": 0, "maxResults": 50, "total": 2,
  "issues": [
    {
      "id": "10001", "key": "ABC-1",
      "fields": {
        "summary": "Login page",
        "issuetype": {"name": "Story"},
        "priority": {"name": "Major"},
        "status": {"name": "In Progress", "statusCategory": {"key": "indeterminate"}},
        "project": {"key": "ABC", "name": "Alphabet"},
        "created": "2024-03-01T09:30:00.000+0100",
        "updated": "2024-03-02T10:00:00.000+0100",
        "description": "raw *markup*",
        "assignee": {"name": "alice", "displayName": "Alice A"},
        "creator": null,
        "subtasks": [
          {"id": "10002", "key": "ABC-2", "fields": {
            "summary": "Form", "issuetype": {"name": "Sub-task"},
            "priority": {"name": "Minor"},
            "status": {"name": "Open", "statusCategory": {"key": "new"}}}}
        ]
      },
      "renderedFields": {"description": "<p>raw <b>markup</b></p>"}
    },
    {
      "id": "10003", "key": "ABC-3",
      "fields": {
        "summary": "Crash",
        "issuetype": {"name": "Bug"},
        "priority": null,
        "status": {"name": "Done", "statusCategory": {"key": "done"}},
        "parent": {"id": "10001", "key": "ABC-1", "fields": {"summary": "Login page", "issuetype": {"name": "Story"}}}
      }
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := NewClient(Options{BaseURL: server.URL + "/", User: "alice", Token: "secret"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Error("expected error without base URL")
	}
}

func TestNewClientCertPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := NewClient(Options{BaseURL: "https://jira.example.com", CertPath: path}); err == nil {
		t.Error("expected error for a bundle without certificates")
	}
	if _, err := NewClient(Options{BaseURL: "https://jira.example.com", CertPath: filepath.Join(t.TempDir(), "missing.pem")}); err == nil {
		t.Error("expected error for a missing bundle")
	}
}

func TestSearchIssues(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/latest/search" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "alice" || pass != "secret" {
			t.Errorf("basic auth = %q %q %v", user, pass, ok)
		}
		q := r.URL.Query()
		if q.Get("jql") != "assignee = currentUser()" {
			t.Errorf("jql = %q", q.Get("jql"))
		}
		if q.Get("fields") != strings.Join(DefaultFields, ",") {
			t.Errorf("fields = %q", q.Get("fields"))
		}
		w.Write([]byte(searchBody))
	})

	issues, err := client.SearchIssues(context.Background(), "assignee = currentUser()")
	if err != nil {
		t.Fatalf("SearchIssues: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("got %d issues, want 2", len(issues))
	}

	story := issues[0]
	if story.Key != "ABC-1" || story.ID != "10001" || story.Type != "Story" {
		t.Errorf("story = %+v", story)
	}
	if story.Status != (Status{Name: "In Progress", Category: "indeterminate"}) {
		t.Errorf("status = %+v", story.Status)
	}
	if story.Description != "<p>raw <b>markup</b></p>" {
		t.Errorf("description should prefer rendered HTML, got %q", story.Description)
	}
	if story.Assignee == nil || story.Assignee.DisplayName != "Alice A" {
		t.Errorf("assignee = %+v", story.Assignee)
	}
	if story.Creator != nil {
		t.Errorf("null creator decoded as %+v", story.Creator)
	}
	if len(story.Subtasks) != 1 || story.Subtasks[0].Key != "ABC-2" || story.Subtasks[0].TypeClass() != "sub-task" {
		t.Errorf("subtasks = %+v", story.Subtasks)
	}
	if story.Created.IsZero() || story.Created.UTC().Hour() != 8 {
		t.Errorf("created = %v", story.Created)
	}
	if story.Project != "ABC" {
		t.Errorf("project = %q", story.Project)
	}

	bug := issues[1]
	if bug.Priority != "" {
		t.Errorf("null priority decoded as %q", bug.Priority)
	}
	if bug.Parent == nil || bug.Parent.Key != "ABC-1" {
		t.Errorf("parent = %+v", bug.Parent)
	}
}

func TestIssue(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("jql") != "issue = ABC-1" || q.Get("expand") != "renderedFields" {
			t.Errorf("query = %v", q)
		}
		w.Write([]byte(searchBody))
	})
	issue, err := client.Issue(context.Background(), "ABC-1")
	if err != nil {
		t.Fatal(err)
	}
	if issue.Key != "ABC-1" {
		t.Errorf("key = %q", issue.Key)
	}
}

func TestIssueNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"total": 0, "issues": []}`))
	})
	if _, err := client.Issue(context.Background(), "NOPE-1"); !errors.Is(err, ErrIssueNotFound) {
		t.Errorf("err = %v, want ErrIssueNotFound", err)
	}
}

func TestComments(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/latest/issue/ABC-1/comment" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("orderBy") != "created" {
			t.Errorf("orderBy = %q", r.URL.Query().Get("orderBy"))
		}
		w.Write([]byte(`{"comments": [
			{"body": "first", "author": {"name": "bob", "displayName": "Bob"}, "updated": "2024-03-01T09:30:00.000+0000"},
			{"body": "second", "author": null, "updated": null}
		]}`))
	})
	comments, err := client.Comments(context.Background(), "ABC-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 2 {
		t.Fatalf("got %d comments", len(comments))
	}
	if comments[0].Author.DisplayName != "Bob" || comments[0].Body != "first" {
		t.Errorf("comment = %+v", comments[0])
	}
	if comments[1].Author != nil || !comments[1].Updated.IsZero() {
		t.Errorf("null fields decoded as %+v", comments[1])
	}
}

func TestDevStatus(t *testing.T) {
	var seen []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		seen = append(seen, q.Get("dataType"))
		if q.Get("issueId") != "10001" || q.Get("applicationType") != "stash" {
			t.Errorf("query = %v", q)
		}
		switch q.Get("dataType") {
		case "pullrequest":
			w.Write([]byte(`{"detail": [{
				"branches": [{"name": "feature/ABC-1", "url": "https://git/b"}],
				"pullRequests": [{
					"name": "ABC-1 login", "url": "https://git/pr/1", "status": "OPEN", "commentCount": 3,
					"author": {"name": "alice"},
					"source": {"branch": "feature/ABC-1", "url": "https://git/b"},
					"destination": {"branch": "main", "url": "https://git/main"},
					"reviewers": [{"name": "carol", "approved": false}, {"name": "bob", "approved": true}]
				}]
			}]}`))
		case "repository":
			w.Write([]byte(`{"detail": [{"repositories": [{"commits": [
				{"displayId": "abc123", "message": "Add form", "url": "https://git/c/abc123", "author": {"name": "alice"}}
			]}]}]}`))
		}
	})

	status, err := client.DevStatus(context.Background(), "10001")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(seen, ",") != "pullrequest,repository" {
		t.Errorf("requests = %v", seen)
	}
	if len(status.Branches) != 1 || len(status.PullRequests) != 1 || len(status.Commits) != 1 {
		t.Fatalf("status = %+v", status)
	}
	pr := status.PullRequests[0]
	if pr.Destination.Name != "main" || pr.Source.Name != "feature/ABC-1" || pr.CommentCount != 3 {
		t.Errorf("pull request = %+v", pr)
	}
	if len(pr.Reviewers) != 2 || !pr.Reviewers[1].Approved {
		t.Errorf("reviewers = %+v", pr.Reviewers)
	}
	if status.Commits[0].ID != "abc123" {
		t.Errorf("commit = %+v", status.Commits[0])
	}
}

func TestDevStatusWithoutDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"detail": []}`))
	})
	status, err := client.DevStatus(context.Background(), "10001")
	if err != nil {
		t.Fatal(err)
	}
	if !status.Empty() {
		t.Errorf("status = %+v, want empty", status)
	}
}

func TestAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorMessages": ["The value 'XYZ' does not exist for the field 'project'."], "errors": {}}`))
	})
	_, err := client.Search(context.Background(), "project = XYZ", SearchOptions{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || len(apiErr.Messages) != 1 {
		t.Errorf("apiErr = %+v", apiErr)
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("error text lost the message: %v", err)
	}
}

func TestUnauthorizedNonJSON(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("<html>login required</html>"))
	})
	_, err := client.Myself(context.Background())
	if !IsUnauthorized(err) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
	if !strings.Contains(err.Error(), "login required") {
		t.Errorf("raw body missing from %v", err)
	}
}

func TestLongErrorBodyKeepsWholeRunes(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(strings.Repeat("日", 150)))
	})
	_, err := client.Myself(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if !utf8.ValidString(apiErr.Body) {
		t.Errorf("body cut inside a rune: %q", apiErr.Body)
	}
	if !strings.HasSuffix(apiErr.Body, "...") {
		t.Errorf("body not marked as truncated: %q", apiErr.Body)
	}
	if w := runewidth.StringWidth(apiErr.Body); w > maxErrorBody {
		t.Errorf("body width = %d, want <= %d", w, maxErrorBody)
	}
}

func TestMyself(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/api/latest/myself" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"name": "alice", "displayName": "Alice A"}`))
	})
	user, err := client.Myself(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if user.Name != "alice" || user.DisplayName != "Alice A" {
		t.Errorf("user = %+v", user)
	}
}

func TestBrowseURL(t *testing.T) {
	client, err := NewClient(Options{BaseURL: "https://jira.example.com/"})
	if err != nil {
		t.Fatal(err)
	}
	if got := client.BrowseURL("ABC-1"); got != "https://jira.example.com/browse/ABC-1" {
		t.Errorf("BrowseURL = %q", got)
	}
}

func TestTypeClass(t *testing.T) {
	tests := map[string]string{
		"Story":       "story",
		"Sub-task":    "sub-task",
		"New Feature": "new",
		"":            "",
	}
	for typ, want := range tests {
		if got := (Issue{Type: typ}).TypeClass(); got != want {
			t.Errorf("TypeClass(%q) = %q, want %q", typ, got, want)
		}
	}
}
