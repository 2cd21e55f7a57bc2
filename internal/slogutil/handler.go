// Package slogutil provides the depusage slog handlers and level helpers.
package slogutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// LineHandler writes one line per record:
// TIMESTAMP [level] Message | key=value key=value
type LineHandler struct {
	w        io.Writer
	level    slog.Leveler
	omitTime bool
	attrs    []slog.Attr
	groups   []string
	mu       *sync.Mutex
}

// LineHandlerOptions configures a LineHandler.
type LineHandlerOptions struct {
	Level slog.Leveler
	// OmitTime drops the timestamp; used for interactive stderr output.
	OmitTime bool
}

// NewLineHandler creates a line handler writing to w.
func NewLineHandler(w io.Writer, opts *LineHandlerOptions) *LineHandler {
	h := &LineHandler{w: w, level: slog.LevelInfo, mu: &sync.Mutex{}}
	if opts != nil {
		if opts.Level != nil {
			h.level = opts.Level
		}
		h.omitTime = opts.OmitTime
	}
	return h
}

// Enabled reports whether the handler handles records at the given level.
func (h *LineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle formats and writes the log record.
func (h *LineHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	if !h.omitTime && !r.Time.IsZero() {
		buf.WriteString(r.Time.UTC().Format(time.RFC3339))
		buf.WriteByte(' ')
	}
	buf.WriteByte('[')
	buf.WriteString(levelString(r.Level))
	buf.WriteString("] ")
	buf.WriteString(r.Message)

	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, h.qualify(a))
		return true
	})

	sep := " | "
	for _, a := range attrs {
		if a.Key == "" {
			continue
		}
		buf.WriteString(sep)
		sep = " "
		buf.WriteString(a.Key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(a.Value))
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs returns a new handler with the given attributes added.
func (h *LineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := h.clone()
	next.attrs = make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(next.attrs, h.attrs)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a))
	}
	return next
}

// WithGroup returns a new handler with the given group name added.
func (h *LineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := h.clone()
	next.groups = append(append([]string{}, h.groups...), name)
	return next
}

func (h *LineHandler) clone() *LineHandler {
	c := *h
	return &c
}

// qualify prefixes the key with the open groups (group.sub.key).
func (h *LineHandler) qualify(a slog.Attr) slog.Attr {
	if len(h.groups) == 0 {
		return a
	}
	key := a.Key
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	return slog.Attr{Key: key, Value: a.Value}
}

func levelString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return "debug"
	case level < slog.LevelWarn:
		return "info"
	case level < slog.LevelError:
		return "warn"
	default:
		return "error"
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return fmt.Sprint(v.Any())
	}
}
