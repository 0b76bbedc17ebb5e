package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/vanderheijden86/jiraview/pkg/cache"
	"github.com/vanderheijden86/jiraview/pkg/config"
	"github.com/vanderheijden86/jiraview/pkg/jira"
	"github.com/vanderheijden86/jiraview/pkg/theme"
	"github.com/vanderheijden86/jiraview/pkg/ui"
)

const (
	defaultWidth = 100
	// cacheMaxAge bounds how long unused searches stay in the cache.
	cacheMaxAge = 30 * 24 * time.Hour
	// commentWrapRatio is the share of the terminal the detail pane gets.
	commentWrapRatio = 0.6
)

// listJQL is the query behind "jv ls".
func listJQL(openSprint bool) string {
	jql := "assignee = currentUser()"
	if openSprint {
		jql += " AND sprint in (openSprints())"
	}
	return jql + " ORDER BY created"
}

// loadConfig reads and validates the config file.
func loadConfig() (config.Config, string, error) {
	path := config.Path()
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, path, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, path, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, path, nil
}

func newClient(cfg config.Config, logger *slog.Logger) (*jira.Client, error) {
	return jira.NewClient(jira.Options{
		BaseURL:  cfg.JiraBaseURL,
		User:     cfg.User,
		Token:    cfg.Token,
		CertPath: cfg.ResolvedCertPath(),
		Logger:   logger,
	})
}

func openCache(cfg config.Config) (*cache.DB, error) {
	path, err := cfg.ResolvedCachePath()
	if err != nil {
		return nil, err
	}
	return cache.Open(path)
}

// newTheme builds the default theme with the style overrides of cfg.
func newTheme(r *lipgloss.Renderer, cfg config.Config) (*theme.Theme, error) {
	th := theme.Default(r)
	if err := th.Merge(cfg.Styles); err != nil {
		return nil, fmt.Errorf("styles: %w", err)
	}
	return th, nil
}

// outputWidth is the terminal width of w, or defaultWidth when w is not a
// terminal.
func outputWidth(w any) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return defaultWidth
	}
	return width
}

// parseFlags turns parse failures into usage errors. A help request comes
// back as pflag.ErrHelp after pflag printed the usage.
func parseFlags(flagSet *pflag.FlagSet, args []string) error {
	err := flagSet.Parse(args)
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return err
	}
	return usageError{msg: err.Error()}
}

// credentialsHint points at jv configure when Jira rejected the credentials.
func credentialsHint(err error) error {
	if jira.IsUnauthorized(err) {
		return fmt.Errorf("%w (Jira rejected the credentials, run jv configure)", err)
	}
	return err
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func (a *app) configure(args []string) error {
	flagSet := pflag.NewFlagSet("configure", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	if err := parseFlags(flagSet, args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return usagef("configure takes no arguments")
	}

	path := config.Path()
	cfg, err := config.Load(path)
	if err != nil && !errors.Is(err, config.ErrNotFound) {
		return err
	}
	if err := ui.ConfigureForm(&cfg).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(a.stderr, "Configuration cancelled.")
			return nil
		}
		return err
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "A config file has been created at %s\n", path)

	logger, closeLog, err := a.cliLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	if changed, err := config.EnsureIgnored(path); err != nil {
		logger.Warn("could not update .gitignore", "error", err)
	} else if changed {
		fmt.Fprintf(a.stdout, "Added %s to .gitignore.\n", filepath.Base(path))
	}
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	me, err := client.Myself(ctx)
	if jira.IsUnauthorized(err) {
		fmt.Fprintf(a.stderr, "Jira rejected the token for %s; run jv configure again.\n", cfg.User)
		return nil
	}
	if err != nil {
		fmt.Fprintf(a.stderr, "Could not reach Jira with these settings: %v\n", err)
		return nil
	}
	name := me.DisplayName
	if name == "" {
		name = me.Name
	}
	fmt.Fprintf(a.stdout, "Connected as %s.\n", name)
	return nil
}

func (a *app) list(args []string) error {
	var openSprint, cached bool
	flagSet := pflag.NewFlagSet("ls", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	flagSet.BoolVarP(&openSprint, "open-sprint", "o", false, "limit to the current sprint")
	flagSet.BoolVar(&cached, "cached", false, "print the last fetched result without asking Jira")
	if err := parseFlags(flagSet, args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return usagef("ls takes no arguments")
	}

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := a.cliLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	th, err := newTheme(lipgloss.NewRenderer(a.stdout), cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	jql := listJQL(openSprint)

	db, err := openCache(cfg)
	if err != nil {
		if cached {
			return err
		}
		logger.Warn("search cache unavailable", "error", err)
	} else {
		defer db.Close()
	}

	if cached {
		entry, err := db.Get(ctx, jql)
		if errors.Is(err, cache.ErrMiss) {
			return fmt.Errorf("no cached result for %q; run jv ls without --cached first", jql)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(a.stderr, "Fetched %s.\n", humanize.RelTime(entry.FetchedAt, time.Now(), "ago", "from now"))
		return ui.PrintIssues(a.stdout, th, entry.Issues)
	}

	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}
	issues, err := client.SearchIssues(ctx, jql)
	if err != nil {
		return credentialsHint(err)
	}
	if db != nil {
		if err := db.Put(ctx, jql, issues); err != nil {
			logger.Warn("caching search result", "error", err)
		}
	}
	return ui.PrintIssues(a.stdout, th, issues)
}

func (a *app) show(args []string) error {
	flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	if err := parseFlags(flagSet, args); err != nil {
		return err
	}
	if flagSet.NArg() != 1 {
		return usagef("show takes exactly one issue key")
	}
	key := flagSet.Arg(0)

	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := a.cliLogger()
	if err != nil {
		return err
	}
	defer closeLog()
	th, err := newTheme(lipgloss.NewRenderer(a.stdout), cfg)
	if err != nil {
		return err
	}
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()
	details, err := ui.FetchDetails(ctx, client, key)
	if err != nil {
		return credentialsHint(err)
	}

	width := outputWidth(a.stdout)
	view := ui.DetailView{Theme: th}
	if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width-6)); err == nil {
		view.Comments = renderer
	} else {
		logger.Warn("markdown rendering unavailable", "error", err)
	}
	return ui.PrintDetails(a.stdout, view, details, width)
}

func (a *app) dashboard(args []string) error {
	var jql string
	flagSet := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	flagSet.StringVar(&jql, "jql", "", "initial query (default: the board filter of the config)")
	if err := parseFlags(flagSet, args); err != nil {
		return err
	}
	if flagSet.NArg() > 0 {
		return usagef("dashboard takes no arguments")
	}

	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if jql == "" {
		jql = cfg.JQL()
	}

	// stderr is unusable under the alt screen, so warnings go to the
	// status bar.
	tuiHandler := ui.NewTUILogHandler(slog.LevelWarn)
	handlers, closeLog, err := a.fileHandlers()
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.New(append(ui.FanoutHandler{tuiHandler}, handlers...))
	slog.SetDefault(logger)

	th, err := newTheme(lipgloss.DefaultRenderer(), cfg)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	client, err := newClient(cfg, logger)
	if err != nil {
		return err
	}

	var searchCache ui.SearchCache
	if db, err := openCache(cfg); err != nil {
		logger.Warn("search cache unavailable", "error", err)
	} else {
		defer db.Close()
		if n, err := db.Prune(context.Background(), cacheMaxAge); err != nil {
			logger.Warn("pruning search cache", "error", err)
		} else if n > 0 {
			logger.Debug("pruned search cache", "entries", n)
		}
		searchCache = db
	}

	loader := ui.NewLoader(client, searchCache, logger)
	defer loader.Stop()

	opts := ui.Options{Loader: loader, Theme: th, JQL: jql, BrowseURL: client.BrowseURL}
	wrap := int(float64(outputWidth(os.Stdout))*commentWrapRatio) - 8
	if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap)); err == nil {
		opts.Comments = renderer
	} else {
		logger.Warn("markdown rendering unavailable", "error", err)
	}

	program := tea.NewProgram(ui.NewModel(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	tuiHandler.SetProgram(program)

	watcher, err := config.NewWatcher(path, func(c config.Config, err error) {
		if err != nil {
			logger.Warn("reloading config", "error", err)
			return
		}
		program.Send(ui.StylesChangedMsg{Styles: c.Styles})
	}, logger)
	if err == nil {
		err = watcher.Start()
	}
	if err != nil {
		logger.Warn("config changes will not be picked up", "error", err)
	} else {
		defer watcher.Stop()
	}

	_, err = program.Run()
	return err
}
