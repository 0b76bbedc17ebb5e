package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/jiraview/pkg/cache"
	"github.com/vanderheijden86/jiraview/pkg/jira"
)

// Source is the part of the Jira client the loader reads from.
type Source interface {
	SearchIssues(ctx context.Context, jql string) ([]jira.Issue, error)
	Issue(ctx context.Context, key string) (jira.Issue, error)
	Comments(ctx context.Context, key string) ([]jira.Comment, error)
	DevStatus(ctx context.Context, internalID string) (jira.DevStatus, error)
}

// SearchCache stores the last result of each query. *cache.DB satisfies it.
type SearchCache interface {
	Get(ctx context.Context, jql string) (cache.Entry, error)
	Put(ctx context.Context, jql string, issues []jira.Issue) error
}

// LoadError captures a failed load with context.
type LoadError struct {
	Phase   string // "search", "details", "cache"
	Cause   error
	Time    time.Time
	Retries int // consecutive failures, this one included
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ForestLoadedMsg carries a finished search.
type ForestLoadedMsg struct {
	Generation uint64
	JQL        string
	Roots      []*IssueNode
	Count      int
	Cached     bool
	FetchedAt  time.Time
}

// LoadFailedMsg reports a failed search.
type LoadFailedMsg struct {
	Generation uint64
	JQL        string
	Err        *LoadError
}

// DetailsLoadedMsg carries the details of one issue.
type DetailsLoadedMsg struct {
	Generation uint64
	Details    Details
}

// DetailsFailedMsg reports a failed details load.
type DetailsFailedMsg struct {
	Generation uint64
	Key        string
	Err        *LoadError
}

// request tracks the single in-flight request of one kind. Starting a new
// one cancels the previous; results carry the generation they were started
// with so the receiver can drop stale ones.
type request struct {
	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

func (r *request) start(parent context.Context) (context.Context, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.generation++
	return ctx, r.generation
}

func (r *request) current() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *request) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// Loader runs Jira requests off the UI goroutine. Searches and details loads
// are each cancel-and-replace: a new Search cancels the previous one, and only
// the result of the latest generation is meant to be applied.
type Loader struct {
	source Source
	cache  SearchCache // may be nil
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc

	search  request
	details request

	mu         sync.Mutex
	errorCount int
}

// NewLoader creates a loader. cache may be nil.
func NewLoader(source Source, cache SearchCache, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		source: source,
		cache:  cache,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Stop cancels every in-flight request.
func (l *Loader) Stop() {
	l.search.stop()
	l.details.stop()
	l.cancel()
}

// SearchGeneration returns the generation of the latest search.
func (l *Loader) SearchGeneration() uint64 {
	return l.search.current()
}

// DetailsGeneration returns the generation of the latest details load.
func (l *Loader) DetailsGeneration() uint64 {
	return l.details.current()
}

// Search starts a new search, cancelling the one in flight, and returns the
// command that performs it. The command yields a ForestLoadedMsg or a
// LoadFailedMsg; it yields nothing when the search was superseded before it
// finished.
func (l *Loader) Search(jql string) tea.Cmd {
	ctx, gen := l.search.start(l.ctx)
	return func() tea.Msg {
		start := time.Now()
		var issues []jira.Issue
		loadErr := l.safeCompute("search", func() error {
			var err error
			issues, err = l.source.SearchIssues(ctx, jql)
			return err
		})
		if ctx.Err() != nil {
			l.logger.Debug("search superseded", "jql", jql, "generation", gen)
			return nil
		}
		l.recordError(loadErr)
		if loadErr != nil {
			l.logger.Warn("search failed", "jql", jql, "error", loadErr.Cause)
			return LoadFailedMsg{Generation: gen, JQL: jql, Err: loadErr}
		}
		l.logger.Debug("search loaded", "jql", jql, "issues", len(issues), "duration", time.Since(start))

		if l.cache != nil {
			if err := l.cache.Put(ctx, jql, issues); err != nil {
				l.logger.Warn("caching search failed", "jql", jql, "error", err)
			}
		}
		return ForestLoadedMsg{
			Generation: gen,
			JQL:        jql,
			Roots:      BuildForest(issues),
			Count:      len(issues),
			FetchedAt:  start,
		}
	}
}

// Cached returns a command that reads the cached result of jql for the
// latest search generation. It yields nothing on a cache miss or when there
// is no cache.
func (l *Loader) Cached(jql string) tea.Cmd {
	if l.cache == nil {
		return nil
	}
	gen := l.search.current()
	return func() tea.Msg {
		entry, err := l.cache.Get(l.ctx, jql)
		if errors.Is(err, cache.ErrMiss) {
			return nil
		}
		if err != nil {
			l.logger.Warn("reading cache failed", "jql", jql, "error", err)
			return nil
		}
		return ForestLoadedMsg{
			Generation: gen,
			JQL:        jql,
			Roots:      BuildForest(entry.Issues),
			Count:      len(entry.Issues),
			Cached:     true,
			FetchedAt:  entry.FetchedAt,
		}
	}
}

// Details starts loading the details of key, cancelling the details load in
// flight.
func (l *Loader) Details(key string) tea.Cmd {
	ctx, gen := l.details.start(l.ctx)
	return func() tea.Msg {
		var details Details
		loadErr := l.safeCompute("details", func() error {
			var err error
			details, err = FetchDetails(ctx, l.source, key)
			return err
		})
		if ctx.Err() != nil {
			return nil
		}
		l.recordError(loadErr)
		if loadErr != nil {
			l.logger.Warn("loading details failed", "key", key, "error", loadErr.Cause)
			return DetailsFailedMsg{Generation: gen, Key: key, Err: loadErr}
		}
		return DetailsLoadedMsg{Generation: gen, Details: details}
	}
}

// FetchDetails loads an issue, then its comments and development status in
// parallel.
func FetchDetails(ctx context.Context, source Source, key string) (Details, error) {
	issue, err := source.Issue(ctx, key)
	if err != nil {
		return Details{}, err
	}

	d := Details{Issue: issue}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		comments, err := source.Comments(ctx, key)
		d.Comments = comments
		return err
	})
	g.Go(func() error {
		dev, err := source.DevStatus(ctx, issue.ID)
		d.Dev = dev
		return err
	})
	if err := g.Wait(); err != nil {
		return Details{}, err
	}
	return d, nil
}

// safeCompute executes fn and recovers from any panics.
func (l *Loader) safeCompute(phase string, fn func() error) *LoadError {
	var result *LoadError
	func() {
		defer func() {
			if r := recover(); r != nil {
				result = &LoadError{
					Phase: phase,
					Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
					Time:  time.Now(),
				}
			}
		}()
		if err := fn(); err != nil {
			result = &LoadError{Phase: phase, Cause: err, Time: time.Now()}
		}
	}()
	return result
}

// recordError tracks consecutive failures. nil resets the count.
func (l *Loader) recordError(err *LoadError) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.errorCount++
		err.Retries = l.errorCount
	} else {
		l.errorCount = 0
	}
}
