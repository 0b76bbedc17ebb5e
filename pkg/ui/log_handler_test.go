package ui

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestTUILogHandlerEnabled(t *testing.T) {
	h := NewTUILogHandler(slog.LevelWarn)
	ctx := context.Background()
	if h.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be dropped")
	}
	if !h.Enabled(ctx, slog.LevelWarn) || !h.Enabled(ctx, slog.LevelError) {
		t.Error("warn and error should pass")
	}
}

func TestTUILogHandlerWithoutProgram(t *testing.T) {
	h := NewTUILogHandler(slog.LevelWarn)
	record := slog.NewRecord(time.Now(), slog.LevelError, "dropped", 0)
	if err := h.Handle(context.Background(), record); err != nil {
		t.Errorf("Handle() = %v", err)
	}
}

func TestTUILogHandlerMessage(t *testing.T) {
	root := NewTUILogHandler(slog.LevelWarn)
	h := root.WithAttrs([]slog.Attr{slog.String("component", "loader")}).(*TUILogHandler)
	if h.program != root.program {
		t.Error("derived handler must share the program pointer")
	}

	when := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	record := slog.NewRecord(when, slog.LevelWarn, "search failed", 0)
	record.AddAttrs(slog.String("jql", "project = ABC"), slog.Int("status", 401))

	msg := h.message(record)
	if want := "search failed (component=loader, jql=project = ABC, status=401)"; msg.Summary != want {
		t.Errorf("Summary = %q, want %q", msg.Summary, want)
	}
	if msg.Level != slog.LevelWarn {
		t.Errorf("Level = %v", msg.Level)
	}
}

func TestTUILogHandlerGroups(t *testing.T) {
	h := NewTUILogHandler(slog.LevelWarn).WithGroup("jira").(*TUILogHandler)
	record := slog.NewRecord(time.Now(), slog.LevelWarn, "slow", 0)
	record.AddAttrs(slog.String("path", "/search"))

	if got := h.message(record).Summary; got != "slow (jira.path=/search)" {
		t.Errorf("Summary = %q", got)
	}
	if h.WithGroup("") != slog.Handler(h) {
		t.Error("empty group should return the handler itself")
	}
}

func TestFanoutHandler(t *testing.T) {
	var debug, warn bytes.Buffer
	logger := slog.New(FanoutHandler{
		slog.NewTextHandler(&debug, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}).With("component", "test")

	logger.Debug("details")
	logger.Warn("careful")

	if !strings.Contains(debug.String(), "msg=details") || !strings.Contains(debug.String(), "msg=careful") {
		t.Errorf("debug handler got:\n%s", debug.String())
	}
	if strings.Contains(warn.String(), "details") || !strings.Contains(warn.String(), "component=test") {
		t.Errorf("warn handler got:\n%s", warn.String())
	}

	quiet := FanoutHandler{slog.NewTextHandler(&warn, &slog.HandlerOptions{Level: slog.LevelError})}
	if quiet.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("no handler wants warn")
	}
}
