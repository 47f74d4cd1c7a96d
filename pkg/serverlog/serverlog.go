// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package serverlog defines the logging contract used by the server
// core and its request handlers, along with slog and zap backed
// implementations.
package serverlog

import "context"

// Logger is the fire-and-forget logging interface the server core
// reports through. Implementations must not block.
type Logger interface {
	// Critical reports an unexpected fault.
	Critical(err error)

	// Info reports normal operational events.
	Info(format string, args ...any)

	// Warning reports well-formed request failures.
	Warning(format string, args ...any)
}

// ContextLogger is a Logger which can bind itself to a [context.Context],
// e.g. for correlating log records with the active trace span.
type ContextLogger interface {
	Logger

	WithContext(context.Context) Logger
}

// For returns l bound to ctx if l supports it, otherwise l itself.
// A nil Logger yields Noop.
func For(ctx context.Context, l Logger) Logger {
	if l == nil {
		return Noop{}
	}
	cl, ok := l.(ContextLogger)
	if !ok {
		return l
	}
	return cl.WithContext(ctx)
}

// Noop discards everything. It's the logger used when none is configured.
type Noop struct{}

// Critical implements the [Logger] interface.
func (Noop) Critical(error) {}

// Info implements the [Logger] interface.
func (Noop) Info(string, ...any) {}

// Warning implements the [Logger] interface.
func (Noop) Warning(string, ...any) {}
