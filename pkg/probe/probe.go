// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package probe checks the health endpoints of a running server.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// StatusError is returned for any response other than 200 OK.
type StatusError struct {
	URL        string
	StatusCode int
}

// Error implements the [error] interface.
func (e StatusError) Error() string {
	return fmt.Sprintf("probe: %s responded with %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

type options struct {
	logger      *zap.Logger
	timeout     time.Duration
	maxAttempts int
	waitMin     time.Duration
	waitMax     time.Duration
	tripAfter   uint32
	openTimeout time.Duration
}

// Option configures a [Prober].
type Option func(*options)

// Logger sets the logger attempts and circuit state changes are logged to.
func Logger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Timeout bounds a single attempt.
func Timeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// MaxAttempts is how many times a check is tried before it fails. Minimum is 1.
func MaxAttempts(n int) Option {
	return func(o *options) {
		o.maxAttempts = max(n, 1)
	}
}

// MinWaitDuration is the backoff before the first retry.
func MinWaitDuration(d time.Duration) Option {
	return func(o *options) {
		o.waitMin = d
	}
}

// MaxWaitDuration caps the backoff between retries.
func MaxWaitDuration(d time.Duration) Option {
	return func(o *options) {
		o.waitMax = d
	}
}

// TripAfter opens the circuit after n consecutive failed attempts.
func TripAfter(n uint32) Option {
	return func(o *options) {
		o.tripAfter = n
	}
}

// OpenTimeout is how long the circuit stays open before letting
// a single attempt through again.
func OpenTimeout(d time.Duration) Option {
	return func(o *options) {
		o.openTimeout = d
	}
}

// Prober issues GET requests against a single health URL.
type Prober struct {
	url    string
	log    *zap.Logger
	client *http.Client
}

// New returns a Prober for url.
func New(url string, opts ...Option) *Prober {
	o := &options{
		logger:      zap.NewNop(),
		timeout:     5 * time.Second,
		maxAttempts: 3,
		waitMin:     100 * time.Millisecond,
		waitMax:     2 * time.Second,
		tripAfter:   5,
		openTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(o)
	}

	log := o.logger
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DisableKeepAlives = true

	rt := &circuitRoundTripper{
		RoundTripper: transport,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        url,
			MaxRequests: 1,
			Timeout:     o.openTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= o.tripAfter
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				switch to {
				case gobreaker.StateOpen:
					log.Error("circuit has been opened", zap.String("url", name))
				case gobreaker.StateHalfOpen:
					log.Warn("circuit is now half open", zap.String("url", name))
				case gobreaker.StateClosed:
					log.Info("circuit has been closed", zap.String("url", name))
				}
			},
		}),
	}

	rc := retryablehttp.Client{
		HTTPClient: &http.Client{
			Timeout:   o.timeout,
			Transport: rt,
		},
		Logger:       nil,
		RetryWaitMin: o.waitMin,
		RetryWaitMax: o.waitMax,
		RetryMax:     o.maxAttempts - 1,
		RequestLogHook: func(l retryablehttp.Logger, req *http.Request, i int) {
			log.Info("sending probe", zap.String("url", req.URL.String()), zap.Int("request_attempt_count", i))
		},
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}

	return &Prober{
		url:    url,
		log:    log,
		client: rc.StandardClient(),
	}
}

// Check succeeds once the URL answers 200 OK. Failed attempts are
// retried with exponential backoff. The last failure is returned,
// which is a [StatusError] if the server answered at all.
func (p *Prober) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	_, err = io.Copy(io.Discard, resp.Body)
	return err
}

// Watch checks the URL every interval until ctx is done, which returns nil.
// It fails once the circuit opens, i.e. after enough consecutive failed
// attempts, and the returned error then matches [gobreaker.ErrOpenState].
func (p *Prober) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		err := p.Check(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			p.log.Warn("probe failed", zap.String("url", p.url), zap.Error(err))
		}
		if circuitOpen(err) {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func circuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type circuitRoundTripper struct {
	http.RoundTripper
	cb *gobreaker.CircuitBreaker
}

func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := rt.cb.Execute(func() (interface{}, error) {
		resp, err := rt.RoundTripper.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			return nil, StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}
