package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/vanderheijden86/jiraview/pkg/config"
	"github.com/vanderheijden86/jiraview/pkg/jira"
)

const searchResponse = `{
  "total": 2,
  "issues": [
    {"id": "10001", "key": "ABC-1", "fields": {
      "summary": "Login page",
      "issuetype": {"name": "Story"},
      "status": {"name": "In Progress"},
      "assignee": {"name": "alice", "displayName": "Alice A"},
      "subtasks": [
        {"id": "10002", "key": "ABC-2", "fields": {"summary": "Form", "issuetype": {"name": "Sub-task"}, "status": {"name": "Open"}}}
      ]}},
    {"id": "10003", "key": "ABC-3", "fields": {
      "summary": "Crash",
      "issuetype": {"name": "Bug"},
      "status": {"name": "Done"}}}
  ]
}`

// writeConfig points the config lookup at a fresh file for baseURL.
func writeConfig(t *testing.T, baseURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Config{
		JiraBaseURL: baseURL,
		User:        "alice",
		Token:       "secret",
		CachePath:   filepath.Join(dir, "cache.db"),
	}
	path := filepath.Join(dir, config.FileName)
	if err := config.Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvPath, path)
	return cfg
}

func runJV(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

func TestListJQL(t *testing.T) {
	if got := listJQL(false); got != "assignee = currentUser() ORDER BY created" {
		t.Errorf("listJQL(false) = %q", got)
	}
	if got := listJQL(true); got != "assignee = currentUser() AND sprint in (openSprints()) ORDER BY created" {
		t.Errorf("listJQL(true) = %q", got)
	}
}

func TestRunVersionAndHelp(t *testing.T) {
	out, _, err := runJV(t, "--version")
	if err != nil || out != "jv dev\n" {
		t.Errorf("--version = %q, %v", out, err)
	}

	for _, args := range [][]string{nil, {"--help"}, {"help"}} {
		out, _, err := runJV(t, args...)
		if err != nil {
			t.Errorf("%v: %v", args, err)
		}
		if !strings.Contains(out, "Usage:") || !strings.Contains(out, "--log-file") {
			t.Errorf("%v: help output:\n%s", args, out)
		}
	}
}

func TestRunUsageErrors(t *testing.T) {
	tests := [][]string{
		{"frobnicate"},
		{"show"},
		{"show", "ABC-1", "ABC-2"},
		{"ls", "extra"},
		{"ls", "--bogus"},
		{"--bogus"},
	}
	for _, args := range tests {
		_, _, err := runJV(t, args...)
		var usage usageError
		if !errors.As(err, &usage) {
			t.Errorf("%v: err = %v, want a usage error", args, err)
		}
	}
}

func TestSubcommandHelp(t *testing.T) {
	_, stderr, err := runJV(t, "ls", "--help")
	if err != nil {
		t.Fatalf("ls --help: %v", err)
	}
	if !strings.Contains(stderr, "--open-sprint") {
		t.Errorf("ls usage:\n%s", stderr)
	}
}

func TestMissingConfig(t *testing.T) {
	t.Setenv(config.EnvPath, filepath.Join(t.TempDir(), "absent.yaml"))
	_, _, err := runJV(t, "ls")
	if !errors.Is(err, config.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), "jv configure") {
		t.Errorf("missing hint: %v", err)
	}
}

func TestListLiveThenCached(t *testing.T) {
	var (
		mu      sync.Mutex
		queries []string
	)
	seen := func() []string {
		mu.Lock()
		defer mu.Unlock()
		return slices.Clone(queries)
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		queries = append(queries, r.URL.Query().Get("jql"))
		mu.Unlock()
		fmt.Fprint(w, searchResponse)
	}))
	defer server.Close()
	writeConfig(t, server.URL)

	out, _, err := runJV(t, "ls", "-o")
	if err != nil {
		t.Fatalf("ls: %v", err)
	}
	want := "ABC-1 In Progress subtasks[1] Login page\nABC-3 Done Crash\n"
	if out != want {
		t.Errorf("ls output:\n%s\nwant:\n%s", out, want)
	}
	if q := seen(); len(q) != 1 || q[0] != listJQL(true) {
		t.Errorf("queries = %q", q)
	}

	cached, stderr, err := runJV(t, "ls", "--open-sprint", "--cached")
	if err != nil {
		t.Fatalf("ls --cached: %v", err)
	}
	if cached != want {
		t.Errorf("cached output:\n%s", cached)
	}
	if !strings.HasPrefix(stderr, "Fetched ") {
		t.Errorf("stderr = %q", stderr)
	}
	if q := seen(); len(q) != 1 {
		t.Errorf("--cached asked Jira: %q", q)
	}

	if _, _, err := runJV(t, "ls", "--cached"); err == nil || !strings.Contains(err.Error(), "no cached result") {
		t.Errorf("uncached query: %v", err)
	}
}

func TestListServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"errorMessages": ["bad jql"]}`)
	}))
	defer server.Close()
	writeConfig(t, server.URL)

	_, _, err := runJV(t, "ls")
	if err == nil || !strings.Contains(err.Error(), "bad jql") {
		t.Errorf("err = %v", err)
	}
}

func TestRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	writeConfig(t, server.URL)

	for _, args := range [][]string{{"ls"}, {"show", "ABC-1"}} {
		_, _, err := runJV(t, args...)
		if err == nil || !strings.Contains(err.Error(), "run jv configure") {
			t.Errorf("%v: err = %v", args, err)
		}
		if !jira.IsUnauthorized(err) {
			t.Errorf("%v: 401 not kept in the error chain: %v", args, err)
		}
	}
}

func TestShow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/api/latest/search":
			if got := r.URL.Query().Get("jql"); got != "issue = ABC-1" {
				t.Errorf("jql = %q", got)
			}
			fmt.Fprint(w, searchResponse)
		case "/rest/api/latest/issue/ABC-1/comment":
			fmt.Fprint(w, `{"comments": []}`)
		case "/rest/dev-status/1.0/issue/detail":
			if got := r.URL.Query().Get("issueId"); got != "10001" {
				t.Errorf("issueId = %q", got)
			}
			fmt.Fprint(w, `{"detail": []}`)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()
	writeConfig(t, server.URL)

	out, _, err := runJV(t, "show", "ABC-1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	for _, want := range []string{"┌| ABC-1 |", "Login page", "Assignee: Alice A", "┌| Sub-Tasks |", "ABC-2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	for _, absent := range []string{"Comments", "Development"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty %s section printed", absent)
		}
	}
}

func TestLogFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse)
	}))
	defer server.Close()
	writeConfig(t, server.URL)

	logPath := filepath.Join(t.TempDir(), "jv.log")
	if _, _, err := runJV(t, "--log-file", logPath, "ls"); err != nil {
		t.Fatalf("ls: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "jira search") {
		t.Errorf("debug records missing from the log file:\n%s", data)
	}
}

func TestOutputWidth(t *testing.T) {
	if got := outputWidth(&bytes.Buffer{}); got != defaultWidth {
		t.Errorf("buffer width = %d", got)
	}
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := outputWidth(f); got != defaultWidth {
		t.Errorf("file width = %d", got)
	}
}
