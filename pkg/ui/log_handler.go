package ui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logRecordMsg delivers a slog record to the dashboard status bar.
type logRecordMsg struct {
	// Summary is the one-line message for the status bar.
	Summary string
	Level   slog.Level
}

// logRecordFadeMsg clears the status bar message it was scheduled for.
type logRecordFadeMsg struct {
	seq int
}

// logRecordFadeDelay is how long log messages stay in the status bar.
const logRecordFadeDelay = 5 * time.Second

// TUILogHandler is a slog.Handler that routes records into a bubbletea
// program as messages. Records below the configured level are dropped, as
// are records arriving before SetProgram.
//
// Handlers derived via WithAttrs/WithGroup share the program pointer, so a
// single SetProgram call reaches all of them.
type TUILogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
	groups  []string
}

// NewTUILogHandler creates a handler for records at or above level.
func NewTUILogHandler(level slog.Level) *TUILogHandler {
	return &TUILogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// SetProgram sets the program that receives log messages. Safe to call from
// any goroutine.
func (h *TUILogHandler) SetProgram(p *tea.Program) {
	h.program.Store(p)
}

// Enabled implements slog.Handler.
func (h *TUILogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *TUILogHandler) Handle(_ context.Context, record slog.Record) error {
	p := h.program.Load()
	if p == nil {
		return nil
	}
	p.Send(h.message(record))
	return nil
}

// message formats the record as "message (key=value, ...)".
func (h *TUILogHandler) message(record slog.Record) logRecordMsg {
	prefix := strings.Join(h.groups, ".")
	if prefix != "" {
		prefix += "."
	}

	var parts []string
	add := func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
		return true
	}
	for _, attr := range h.attrs {
		add(attr)
	}
	record.Attrs(add)

	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	return logRecordMsg{Summary: summary, Level: record.Level}
}

// WithAttrs implements slog.Handler.
func (h *TUILogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TUILogHandler{
		level:   h.level,
		program: h.program,
		attrs:   append(slices.Clone(h.attrs), attrs...),
		groups:  slices.Clone(h.groups),
	}
}

// WithGroup implements slog.Handler.
func (h *TUILogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TUILogHandler{
		level:   h.level,
		program: h.program,
		attrs:   slices.Clone(h.attrs),
		groups:  append(slices.Clone(h.groups), name),
	}
}

// FanoutHandler sends every record to all of its handlers.
type FanoutHandler []slog.Handler

// Enabled reports whether any handler wants the level.
func (f FanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes the record to the handlers that want it and returns the
// first error.
func (f FanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// WithAttrs implements slog.Handler.
func (f FanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(FanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

// WithGroup implements slog.Handler.
func (f FanoutHandler) WithGroup(name string) slog.Handler {
	out := make(FanoutHandler, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
