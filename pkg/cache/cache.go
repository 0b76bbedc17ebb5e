// Package cache keeps the last result of every JQL search in a local SQLite
// database so the dashboard and ls can show something before Jira answers.
package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/jiraview/pkg/jira"
)

// ErrMiss is returned when a query has no cached result.
var ErrMiss = errors.New("cache: no entry")

// Entry is one cached search result.
type Entry struct {
	JQL       string
	Issues    []jira.Issue
	FetchedAt time.Time
}

// Age returns how long ago the entry was fetched.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.FetchedAt)
}

// DB handles cache persistence.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the cache database at path.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	c := &DB{db: db, now: time.Now}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return c, nil
}

// Close closes the database.
func (c *DB) Close() error {
	return c.db.Close()
}

func (c *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS searches (
		jql TEXT PRIMARY KEY,
		issues TEXT NOT NULL,
		fetched_at INTEGER NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Put stores the result of a search, replacing any earlier one.
func (c *DB) Put(ctx context.Context, jql string, issues []jira.Issue) error {
	data, err := json.Marshal(issues)
	if err != nil {
		return fmt.Errorf("encode cached issues: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO searches (jql, issues, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(jql) DO UPDATE SET issues = excluded.issues, fetched_at = excluded.fetched_at
	`, jql, string(data), c.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store search: %w", err)
	}
	return nil
}

// Get returns the cached result of jql, or ErrMiss.
func (c *DB) Get(ctx context.Context, jql string) (Entry, error) {
	var (
		data      string
		fetchedAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT issues, fetched_at FROM searches WHERE jql = ?`, jql,
	).Scan(&data, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrMiss
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read search: %w", err)
	}

	entry := Entry{JQL: jql, FetchedAt: time.UnixMilli(fetchedAt)}
	if err := json.Unmarshal([]byte(data), &entry.Issues); err != nil {
		return Entry{}, fmt.Errorf("decode cached issues: %w", err)
	}
	return entry, nil
}

// Prune deletes entries older than maxAge and returns how many went.
func (c *DB) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := c.now().Add(-maxAge).UnixMilli()
	result, err := c.db.ExecContext(ctx, `DELETE FROM searches WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return result.RowsAffected()
}
