// jv browses Jira issues from the terminal. It lists the issues assigned to
// you, prints one issue with its sub-tasks, comments and development panel,
// and opens an interactive dashboard where a JQL query drives a collapsible
// board of issues.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/vanderheijden86/jiraview/pkg/ui"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var usage usageError
		if errors.As(err, &usage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// usageError reports a malformed command line.
type usageError struct {
	msg string
}

func (e usageError) Error() string { return e.msg }

func usagef(format string, args ...any) error {
	return usageError{msg: fmt.Sprintf(format, args...)}
}

// app carries what every subcommand needs.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	logFile string
}

func run(args []string, stdout, stderr io.Writer) error {
	a := &app{stdout: stdout, stderr: stderr}

	var showVersion bool
	flagSet := pflag.NewFlagSet("jv", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&a.logFile, "log-file", "", "append log records to this file")
	flagSet.BoolVar(&showVersion, "version", false, "print the version and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(stdout, flagSet)
			return nil
		}
		return usageError{msg: err.Error()}
	}
	if showVersion {
		fmt.Fprintf(stdout, "jv %s\n", version)
		return nil
	}
	rest := flagSet.Args()
	if help, _ := flagSet.GetBool("help"); help || len(rest) == 0 {
		printHelp(stdout, flagSet)
		return nil
	}

	var err error
	switch command, rest := rest[0], rest[1:]; command {
	case "configure":
		err = a.configure(rest)
	case "ls":
		err = a.list(rest)
	case "show":
		err = a.show(rest)
	case "dashboard":
		err = a.dashboard(rest)
	case "help":
		printHelp(stdout, flagSet)
	default:
		err = usagef("unknown command %q (see jv --help)", command)
	}
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	return err
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `jv browses Jira issues from the terminal.

Usage:
  jv [flags] <command> [arguments]

Commands:
  configure        Write the config file (asks for url, user and token)
  ls               List the issues assigned to you
  show ISSUE       Show an issue with sub-tasks, comments and development
  dashboard        Start the interactive dashboard

The config file is $JIRAVIEW_CONFIG, the nearest .jiraview.yaml above the
working directory, or ~/.jiraview.yaml.

Examples:
  jv ls --open-sprint
  jv show ABC-123
  jv --log-file /tmp/jv.log dashboard --jql "project = ABC"

Flags:
`)
	fmt.Fprint(w, flagSet.FlagUsages())
}

// fileHandlers opens --log-file. The returned close func is never nil.
func (a *app) fileHandlers() ([]slog.Handler, func(), error) {
	if a.logFile == "" {
		return nil, func() {}, nil
	}
	f, err := os.OpenFile(a.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return []slog.Handler{handler}, func() { f.Close() }, nil
}

// cliLogger logs warnings to stderr and everything to --log-file.
func (a *app) cliLogger() (*slog.Logger, func(), error) {
	handlers, closeLog, err := a.fileHandlers()
	if err != nil {
		return nil, nil, err
	}
	stderr := slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
	logger := slog.New(append(ui.FanoutHandler{stderr}, handlers...))
	return logger, closeLog, nil
}
