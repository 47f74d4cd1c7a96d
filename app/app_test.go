// Copyright (c) 2024 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/z5labs/edge"
	"github.com/z5labs/edge/internal/try"

	"github.com/stretchr/testify/assert"
)

func TestRecover(t *testing.T) {
	t.Run("will return a PanicError", func(t *testing.T) {
		t.Run("if the app panics", func(t *testing.T) {
			app := Recover(edge.AppFunc(func(context.Context) error {
				panic("hello world")
			}))

			err := app.Run(context.Background())

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.Equal(t, "hello world", perr.Value) {
				return
			}
		})
	})
}

func TestWithSignalNotifications(t *testing.T) {
	t.Run("will propogate context cancellation", func(t *testing.T) {
		t.Run("if the parent context is cancelled", func(t *testing.T) {
			app := WithSignalNotifications(edge.AppFunc(func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}))

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			err := app.Run(ctx)
			if !assert.ErrorIs(t, err, context.Canceled) {
				return
			}
		})
	})
}

func TestWithLifecycleHooks(t *testing.T) {
	t.Run("will return error", func(t *testing.T) {
		t.Run("if Lifecycle.PreRun fails", func(t *testing.T) {
			ran := false
			base := edge.AppFunc(func(ctx context.Context) error {
				ran = true
				return nil
			})

			preRunErr := errors.New("failed to pre run")
			app := WithLifecycleHooks(base, Lifecycle{
				PreRun: LifecycleHookFunc(func(ctx context.Context) error {
					return preRunErr
				}),
			})

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, preRunErr) {
				return
			}
			if !assert.False(t, ran) {
				return
			}
		})

		t.Run("if the underlying app fails", func(t *testing.T) {
			baseErr := errors.New("failed to run app")
			base := edge.AppFunc(func(ctx context.Context) error {
				return baseErr
			})

			app := WithLifecycleHooks(base, Lifecycle{})

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, baseErr) {
				return
			}
		})

		t.Run("if the Lifecycle.PostRun fails", func(t *testing.T) {
			base := edge.AppFunc(func(ctx context.Context) error {
				return nil
			})

			postRunErr := errors.New("failed to post run")
			app := WithLifecycleHooks(base, Lifecycle{
				PostRun: LifecycleHookFunc(func(ctx context.Context) error {
					return postRunErr
				}),
			})

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, postRunErr) {
				return
			}
		})
	})

	t.Run("will run Lifecycle.PostRun", func(t *testing.T) {
		t.Run("if the underlying app panics", func(t *testing.T) {
			postRan := false
			base := edge.AppFunc(func(ctx context.Context) error {
				panic("boom")
			})

			app := WithLifecycleHooks(base, Lifecycle{
				PostRun: LifecycleHookFunc(func(ctx context.Context) error {
					postRan = true
					return ctx.Err()
				}),
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := app.Run(ctx)

			var perr try.PanicError
			if !assert.ErrorAs(t, err, &perr) {
				return
			}
			if !assert.True(t, postRan) {
				return
			}
		})
	})
}

func TestGroup(t *testing.T) {
	t.Run("will cancel the other apps", func(t *testing.T) {
		t.Run("if one of them fails", func(t *testing.T) {
			appErr := errors.New("failed")
			app := Group(
				edge.AppFunc(func(ctx context.Context) error {
					<-ctx.Done()
					return nil
				}),
				edge.AppFunc(func(ctx context.Context) error {
					return appErr
				}),
			)

			err := app.Run(context.Background())
			if !assert.ErrorIs(t, err, appErr) {
				return
			}
		})
	})
}
