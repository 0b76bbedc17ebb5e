// Package jira is a small client for the Jira Server REST API, covering what
// the viewer reads: searches, issue details, comments and the development
// panel.
package jira

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// DefaultFields are the issue fields requested by searches.
var DefaultFields = []string{
	"parent", "priority", "assignee", "status", "creator", "subtasks",
	"issuetype", "project", "created", "updated", "description", "summary",
}

// ErrIssueNotFound is returned by Issue when the search matches nothing.
var ErrIssueNotFound = errors.New("jira: issue not found")

// maxResponseSize bounds how much of a response body is read.
const maxResponseSize = 32 << 20

// Options configures a Client.
type Options struct {
	// BaseURL is the Jira root, e.g. "https://jira.example.com".
	BaseURL string
	// User and Token are sent as basic auth when User is set.
	User  string
	Token string
	// CertPath is an optional PEM bundle trusted in addition to the system
	// roots.
	CertPath string
	// HTTPClient overrides the transport; CertPath is ignored when set.
	HTTPClient *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client talks to one Jira instance. It is safe for concurrent use.
type Client struct {
	baseURL    string
	user       string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates opts and builds a client.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("jira: base URL is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("jira: invalid base URL %q: %w", opts.BaseURL, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if opts.CertPath != "" {
			pool, err := certPool(opts.CertPath)
			if err != nil {
				return nil, err
			}
			transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
		}
		httpClient = &http.Client{Transport: transport, Timeout: 30 * time.Second}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		user:       opts.User,
		token:      opts.Token,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func certPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jira: reading certificate bundle: %w", err)
	}
	pool, err := x509.SystemCertPool()
	if err != nil || pool == nil {
		pool = x509.NewCertPool()
	}
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("jira: no certificates found in %s", path)
	}
	return pool, nil
}

// BaseURL returns the Jira root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BrowseURL returns the web link of an issue.
func (c *Client) BrowseURL(key string) string {
	return c.baseURL + "/browse/" + url.PathEscape(key)
}

// SearchOptions tunes a search.
type SearchOptions struct {
	Fields     []string // defaults to DefaultFields
	Expand     string
	StartAt    int
	MaxResults int // 0 leaves the server default
}

// Search runs a JQL query.
func (c *Client) Search(ctx context.Context, jql string, opts SearchOptions) (*SearchResult, error) {
	fields := opts.Fields
	if len(fields) == 0 {
		fields = DefaultFields
	}
	query := url.Values{
		"jql":    {jql},
		"fields": {strings.Join(fields, ",")},
		"expand": {opts.Expand},
	}
	if opts.StartAt > 0 {
		query.Set("startAt", fmt.Sprint(opts.StartAt))
	}
	if opts.MaxResults > 0 {
		query.Set("maxResults", fmt.Sprint(opts.MaxResults))
	}

	var result SearchResult
	if err := c.get(ctx, "/rest/api/latest/search", query, &result); err != nil {
		return nil, fmt.Errorf("jira: search %q: %w", jql, err)
	}
	c.logger.Debug("jira search", "jql", jql, "total", result.Total, "returned", len(result.Issues))
	return &result, nil
}

// SearchIssues runs a query and builds detailed issues from the result.
func (c *Client) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	result, err := c.Search(ctx, jql, SearchOptions{})
	if err != nil {
		return nil, err
	}
	issues := make([]Issue, 0, len(result.Issues))
	for _, raw := range result.Issues {
		issues = append(issues, BuildDetailed(raw))
	}
	return issues, nil
}

// Issue fetches one issue with its description rendered as HTML.
func (c *Client) Issue(ctx context.Context, key string) (Issue, error) {
	result, err := c.Search(ctx, "issue = "+key, SearchOptions{Expand: "renderedFields"})
	if err != nil {
		return Issue{}, err
	}
	if len(result.Issues) == 0 {
		return Issue{}, fmt.Errorf("%w: %s", ErrIssueNotFound, key)
	}
	return BuildDetailed(result.Issues[0]), nil
}

// Comments lists the comments of an issue, oldest first.
func (c *Client) Comments(ctx context.Context, key string) ([]Comment, error) {
	var raw rawComments
	path := "/rest/api/latest/issue/" + url.PathEscape(key) + "/comment"
	if err := c.get(ctx, path, url.Values{"orderBy": {"created"}}, &raw); err != nil {
		return nil, fmt.Errorf("jira: comments of %s: %w", key, err)
	}
	return buildComments(raw), nil
}

// DevStatus fetches branches and pull requests, then commits, for the issue
// with the given internal id. An issue without a development panel yields an
// empty DevStatus.
func (c *Client) DevStatus(ctx context.Context, internalID string) (DevStatus, error) {
	var status DevStatus
	for _, dataType := range []string{"pullrequest", "repository"} {
		query := url.Values{
			"issueId":         {internalID},
			"applicationType": {"stash"},
			"dataType":        {dataType},
		}
		var raw rawDevDetail
		if err := c.get(ctx, "/rest/dev-status/1.0/issue/detail", query, &raw); err != nil {
			return DevStatus{}, fmt.Errorf("jira: dev status (%s) of %s: %w", dataType, internalID, err)
		}
		mergeDevDetail(&status, raw)
	}
	return status, nil
}

// Myself returns the authenticated user; it doubles as a connection check.
func (c *Client) Myself(ctx context.Context) (User, error) {
	var raw rawUser
	if err := c.get(ctx, "/rest/api/latest/myself", nil, &raw); err != nil {
		return User{}, fmt.Errorf("jira: myself: %w", err)
	}
	return User{Name: raw.Name, DisplayName: raw.DisplayName}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.do(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	request.Header.Set("Accept", "application/json")
	if c.user != "" {
		request.SetBasicAuth(c.user, c.token)
	}

	start := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response of %s %s: %w", method, path, err)
	}
	c.logger.Debug("jira request", "method", method, "path", path,
		"status", response.StatusCode, "duration", time.Since(start))

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return body, nil
	}
	return nil, newAPIError(method, path, response.StatusCode, body)
}
