// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package serverlog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/z5labs/edge/pkg/slogfield"

	"go.opentelemetry.io/otel/trace"
)

// LevelCritical sits above [slog.LevelError] and is used for [Logger.Critical].
const LevelCritical = slog.LevelError + 4

// ReplaceLevel can be used as [slog.HandlerOptions.ReplaceAttr] so
// LevelCritical is rendered as "CRITICAL" instead of "ERROR+4".
func ReplaceLevel(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 || a.Key != slog.LevelKey {
		return a
	}
	lvl, ok := a.Value.Any().(slog.Level)
	if ok && lvl == LevelCritical {
		a.Value = slog.StringValue("CRITICAL")
	}
	return a
}

// Slog is a [Logger] backed by [slog.Logger].
type Slog struct {
	ctx context.Context
	log *slog.Logger
}

// NewSlog returns a [Slog] writing to h. Records logged while bound to a
// context carrying a valid span get the trace and span IDs attached.
func NewSlog(h slog.Handler) *Slog {
	return &Slog{
		ctx: context.Background(),
		log: slog.New(&traceHandler{base: h}),
	}
}

// With returns a copy of l which adds attrs to every record.
func (l *Slog) With(attrs ...slog.Attr) *Slog {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return &Slog{
		ctx: l.ctx,
		log: l.log.With(args...),
	}
}

// WithContext implements the [ContextLogger] interface.
func (l *Slog) WithContext(ctx context.Context) Logger {
	return &Slog{
		ctx: ctx,
		log: l.log,
	}
}

// Critical implements the [Logger] interface.
func (l *Slog) Critical(err error) {
	if err == nil {
		return
	}
	l.log.LogAttrs(l.ctx, LevelCritical, err.Error(), slogfield.Error(err))
}

// Info implements the [Logger] interface.
func (l *Slog) Info(format string, args ...any) {
	l.log.InfoContext(l.ctx, fmt.Sprintf(format, args...))
}

// Warning implements the [Logger] interface.
func (l *Slog) Warning(format string, args ...any) {
	l.log.WarnContext(l.ctx, fmt.Sprintf(format, args...))
}

type traceHandler struct {
	base slog.Handler
}

func (h *traceHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.base.Enabled(ctx, lvl)
}

func (h *traceHandler) Handle(ctx context.Context, record slog.Record) error {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return h.base.Handle(ctx, record)
	}

	r := record.Clone()
	r.AddAttrs(
		slog.Group(
			"otel",
			slogfield.String("trace_id", spanCtx.TraceID().String()),
			slogfield.String("span_id", spanCtx.SpanID().String()),
		),
	)
	return h.base.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{base: h.base.WithAttrs(attrs)}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{base: h.base.WithGroup(name)}
}
