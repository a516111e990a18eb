// Package logging wires log/slog into the shape sharpdicom's command-line
// tools expect: a single Logger() constructor and a context-carried
// attribute group picked up by every log line written through that
// context, plus optional file rotation via lumberjack for long-running
// SCP processes.
package logging

import (
	"context"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

// ctxHandler wraps another Handler, merging any attrs stashed in the
// context (via AppendCtx) into every record it handles.
type ctxHandler struct {
	slog.Handler
}

func (h ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h ctxHandler) WithGroup(name string) slog.Handler {
	return ctxHandler{h.Handler.WithGroup(name)}
}

// Logger returns a structured JSON logger writing to w at the given
// level. Source file/line is attached only when addSource is true (tests
// and one-shot CLI invocations rarely need it; long-running SCP processes
// usually do).
func Logger(w io.Writer, addSource bool, level slog.Level) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{AddSource: addSource, Level: level})
	return slog.New(ctxHandler{h})
}

// RotatingLogger returns a Logger writing through a lumberjack rotator:
// maxSizeMB per file, maxBackups retained, maxAgeDays before deletion.
// Intended for an SCP process run as a long-lived daemon.
func RotatingLogger(path string, maxSizeMB, maxBackups, maxAgeDays int, level slog.Level) *slog.Logger {
	rot := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
	return Logger(rot, true, level)
}

// AppendCtx returns a context carrying additional attrs that every log
// record written through a ctxHandler-wrapped logger will include, even
// across function boundaries that only have the context, not the logger.
func AppendCtx(ctx context.Context, attrs ...slog.Attr) context.Context {
	if existing, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		merged := make([]slog.Attr, 0, len(existing)+len(attrs))
		merged = append(merged, existing...)
		merged = append(merged, attrs...)
		return context.WithValue(ctx, ctxKey{}, merged)
	}
	return context.WithValue(ctx, ctxKey{}, attrs)
}
