// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package app provides helpers for common edge.App implementation patterns.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/z5labs/edge"
	"github.com/z5labs/edge/internal/try"

	"golang.org/x/sync/errgroup"
)

// Recover will wrap the given [edge.App] with panic recovery.
// A recovered panic is returned as a [try.PanicError].
func Recover(app edge.App) edge.App {
	return edge.AppFunc(func(ctx context.Context) (err error) {
		defer try.Recover(&err)

		return app.Run(ctx)
	})
}

// WithSignalNotifications wraps a given [edge.App] in an implementation
// that cancels the [context.Context] that's passed to app.Run if an [os.Signal]
// is received by the running process.
func WithSignalNotifications(app edge.App, signals ...os.Signal) edge.App {
	return edge.AppFunc(func(ctx context.Context) error {
		sigCtx, cancel := signal.NotifyContext(ctx, signals...)
		defer cancel()

		return app.Run(sigCtx)
	})
}

// LifecycleHook represents functionality that needs to be performed
// at a specific "time" relative to the execution of [edge.App.Run].
type LifecycleHook interface {
	Run(context.Context) error
}

// LifecycleHookFunc is a convenient helper type for implementing a [LifecycleHook]
// from just a regular func.
type LifecycleHookFunc func(context.Context) error

// Run implements the [LifecycleHook] interface.
func (f LifecycleHookFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Lifecycle
type Lifecycle struct {
	// PreRun is executed before the underlying [edge.App]. If it fails
	// the app is never run.
	PreRun LifecycleHook

	// PostRun is always executed regardless if the underlying [edge.App]
	// returns an error or panics. Its context is never cancelled so
	// shutdown work, e.g. flushing spans, can complete.
	PostRun LifecycleHook
}

// WithLifecycleHooks wraps a given [edge.App] in an implementation
// that runs [LifecycleHook]s around the execution of app.Run.
func WithLifecycleHooks(app edge.App, lifecycle Lifecycle) edge.App {
	return edge.AppFunc(func(ctx context.Context) (err error) {
		// Always run PostRun hook regardless if app returns an error or panics.
		defer runPostRunHook(context.WithoutCancel(ctx), lifecycle.PostRun, &err)
		defer try.Recover(&err)

		if lifecycle.PreRun != nil {
			err = lifecycle.PreRun.Run(ctx)
			if err != nil {
				return err
			}
		}
		return app.Run(ctx)
	})
}

func runPostRunHook(ctx context.Context, hook LifecycleHook, err *error) {
	if hook == nil {
		return
	}

	hookErr := hook.Run(ctx)

	// errors.Join will not return an error if both
	// *err and hookErr are nil.
	*err = errors.Join(*err, hookErr)
}

// Group runs every app concurrently. The first failure cancels the
// context of the others and is returned once all of them have returned.
func Group(apps ...edge.App) edge.App {
	return edge.AppFunc(func(ctx context.Context) error {
		g, gctx := errgroup.WithContext(ctx)
		for _, a := range apps {
			a := a
			g.Go(func() error {
				return a.Run(gctx)
			})
		}
		return g.Wait()
	})
}
