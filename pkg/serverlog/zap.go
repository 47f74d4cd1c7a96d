// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package serverlog

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Zap is a [Logger] backed by [zap.Logger].
type Zap struct {
	log *zap.Logger
}

// NewZap returns a [Zap] writing to l.
func NewZap(l *zap.Logger) *Zap {
	return &Zap{log: l}
}

// WithContext implements the [ContextLogger] interface.
func (l *Zap) WithContext(ctx context.Context) Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return l
	}
	return &Zap{
		log: l.log.With(
			zap.Namespace("otel"),
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		),
	}
}

// Critical implements the [Logger] interface.
func (l *Zap) Critical(err error) {
	if err == nil {
		return
	}
	l.log.Error(err.Error(), zap.Error(err), zap.Bool("critical", true))
}

// Info implements the [Logger] interface.
func (l *Zap) Info(format string, args ...any) {
	l.log.Sugar().Infof(format, args...)
}

// Warning implements the [Logger] interface.
func (l *Zap) Warning(format string, args ...any) {
	l.log.Sugar().Warnf(format, args...)
}
