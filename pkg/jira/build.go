package jira

// Wire shapes of the REST responses. Only the fields the viewer reads are
// declared; nullable objects are pointers.

// SearchResult is the response of the search endpoint.
type SearchResult struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
	Issues     []RawIssue `json:"issues"`
}

// RawIssue is an issue as returned by the REST API.
type RawIssue struct {
	ID             string          `json:"id"`
	Key            string          `json:"key"`
	Fields         RawFields       `json:"fields"`
	RenderedFields *RenderedFields `json:"renderedFields,omitempty"`
}

// RawFields holds the issue fields requested through DefaultFields.
type RawFields struct {
	Summary     string      `json:"summary"`
	IssueType   *named      `json:"issuetype,omitempty"`
	Priority    *named      `json:"priority,omitempty"`
	Status      *rawStatus  `json:"status,omitempty"`
	Project     *rawProject `json:"project,omitempty"`
	Created     Time        `json:"created"`
	Updated     Time        `json:"updated"`
	Description *string     `json:"description,omitempty"`
	Parent      *RawIssue   `json:"parent,omitempty"`
	Subtasks    []RawIssue  `json:"subtasks,omitempty"`
	Assignee    *rawUser    `json:"assignee,omitempty"`
	Creator     *rawUser    `json:"creator,omitempty"`
}

// RenderedFields carries HTML renderings requested with expand=renderedFields.
type RenderedFields struct {
	Description *string `json:"description,omitempty"`
}

type named struct {
	Name string `json:"name"`
}

type rawStatus struct {
	Name           string `json:"name"`
	StatusCategory struct {
		Key string `json:"key"`
	} `json:"statusCategory"`
}

type rawProject struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

type rawUser struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

type rawComments struct {
	Comments []struct {
		Body    string   `json:"body"`
		Author  *rawUser `json:"author"`
		Updated Time     `json:"updated"`
	} `json:"comments"`
}

type rawDevDetail struct {
	Detail []struct {
		Branches []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"branches"`
		PullRequests []struct {
			Name         string `json:"name"`
			URL          string `json:"url"`
			Status       string `json:"status"`
			CommentCount int    `json:"commentCount"`
			Author       struct {
				Name string `json:"name"`
			} `json:"author"`
			Source      rawRef `json:"source"`
			Destination rawRef `json:"destination"`
			Reviewers   []struct {
				Name     string `json:"name"`
				Approved bool   `json:"approved"`
			} `json:"reviewers"`
		} `json:"pullRequests"`
		Repositories []struct {
			Commits []struct {
				DisplayID string `json:"displayId"`
				Message   string `json:"message"`
				URL       string `json:"url"`
				Author    struct {
					Name string `json:"name"`
				} `json:"author"`
			} `json:"commits"`
		} `json:"repositories"`
	} `json:"detail"`
}

type rawRef struct {
	Branch string `json:"branch"`
	URL    string `json:"url"`
}

// BuildSummary maps the fields shown in list views: key, id, summary, type,
// status and priority.
func BuildSummary(raw RawIssue) Issue {
	f := raw.Fields
	issue := Issue{
		Key:     raw.Key,
		ID:      raw.ID,
		Summary: f.Summary,
		Created: f.Created,
		Updated: f.Updated,
	}
	if f.IssueType != nil {
		issue.Type = f.IssueType.Name
	}
	if f.Priority != nil {
		issue.Priority = f.Priority.Name
	}
	if f.Status != nil {
		issue.Status = Status{Name: f.Status.Name, Category: f.Status.StatusCategory.Key}
	}
	if f.Project != nil {
		issue.Project = f.Project.Key
	}
	return issue
}

// BuildDetailed maps everything BuildSummary does plus the description
// (rendered HTML when present), parent, sub-tasks and people.
func BuildDetailed(raw RawIssue) Issue {
	issue := BuildSummary(raw)
	f := raw.Fields

	switch {
	case raw.RenderedFields != nil && raw.RenderedFields.Description != nil:
		issue.Description = *raw.RenderedFields.Description
	case f.Description != nil:
		issue.Description = *f.Description
	}
	if f.Parent != nil {
		parent := BuildSummary(*f.Parent)
		issue.Parent = &parent
	}
	for _, sub := range f.Subtasks {
		issue.Subtasks = append(issue.Subtasks, BuildSummary(sub))
	}
	issue.Assignee = buildUser(f.Assignee)
	issue.Creator = buildUser(f.Creator)
	return issue
}

func buildUser(u *rawUser) *User {
	if u == nil {
		return nil
	}
	return &User{Name: u.Name, DisplayName: u.DisplayName}
}

func buildComments(raw rawComments) []Comment {
	comments := make([]Comment, 0, len(raw.Comments))
	for _, c := range raw.Comments {
		comments = append(comments, Comment{
			Body:    c.Body,
			Author:  buildUser(c.Author),
			Updated: c.Updated,
		})
	}
	return comments
}

// mergeDevDetail folds one dev-status response into status. Responses
// without detail entries contribute nothing.
func mergeDevDetail(status *DevStatus, raw rawDevDetail) {
	if len(raw.Detail) == 0 {
		return
	}
	detail := raw.Detail[0]
	for _, b := range detail.Branches {
		status.Branches = append(status.Branches, Branch{Name: b.Name, URL: b.URL})
	}
	for _, pr := range detail.PullRequests {
		reviewers := make([]Reviewer, 0, len(pr.Reviewers))
		for _, r := range pr.Reviewers {
			reviewers = append(reviewers, Reviewer{Name: r.Name, Approved: r.Approved})
		}
		status.PullRequests = append(status.PullRequests, PullRequest{
			Name:         pr.Name,
			URL:          pr.URL,
			Author:       pr.Author.Name,
			CommentCount: pr.CommentCount,
			Source:       Branch{Name: pr.Source.Branch, URL: pr.Source.URL},
			Destination:  Branch{Name: pr.Destination.Branch, URL: pr.Destination.URL},
			Reviewers:    reviewers,
			Status:       pr.Status,
		})
	}
	for _, repo := range detail.Repositories {
		for _, c := range repo.Commits {
			status.Commits = append(status.Commits, Commit{
				ID:      c.DisplayID,
				Author:  c.Author.Name,
				Message: c.Message,
				URL:     c.URL,
			})
		}
	}
}
