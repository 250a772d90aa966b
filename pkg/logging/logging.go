// Package logging provides a compact slog handler for CLI output: level
// and message up front, attributes as key=value pairs.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Handler renders records as single lines on a writer.
type Handler struct {
	mu     sync.Mutex
	writer io.Writer
	level  slog.Level
	group  string
	attrs  []slog.Attr
}

// NewHandler creates a handler writing at or above level.
func NewHandler(w io.Writer, level slog.Level) *Handler {
	return &Handler{writer: w, level: level}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	parts := []string{r.Level.String(), r.Message}
	if h.group != "" {
		parts[1] = h.group + ": " + parts[1]
	}

	for _, a := range h.attrs {
		parts = append(parts, fmt.Sprintf("%s=%v", a.Key, a.Value))
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s=%v", a.Key, a.Value))
		return true
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.writer, strings.Join(parts, " "))
	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &Handler{
		writer: h.writer,
		level:  h.level,
		group:  h.group,
		attrs:  append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
	return next
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		writer: h.writer,
		level:  h.level,
		group:  name,
		attrs:  h.attrs,
	}
}

// New returns a CLI logger writing to stderr.
func New(level string) *slog.Logger {
	return slog.New(NewHandler(os.Stderr, ParseLevel(level)))
}

// SetDefault installs a CLI logger as the process default.
func SetDefault(level string) {
	slog.SetDefault(New(level))
}

// ParseLevel converts a string level to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
