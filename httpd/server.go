// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package httpd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/z5labs/edge/internal/try"
	"github.com/z5labs/edge/pkg/health"
	"github.com/z5labs/edge/pkg/serverlog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const instrumentationName = "github.com/z5labs/edge/httpd"

type serverOptions struct {
	handlers  Chain
	log       serverlog.Logger
	admit     func(net.Conn) bool
	tp        trace.TracerProvider
	mp        metric.MeterProvider
	readiness *health.Binary
	listen    func(string, string) (net.Listener, error)
}

// Option configures a [Server].
type Option func(*serverOptions)

// Handle appends h to the handler chain.
func Handle(h Handler) Option {
	return func(so *serverOptions) {
		so.handlers = append(so.handlers, h)
	}
}

// HandleFunc appends f to the handler chain.
func HandleFunc(f func(context.Context, serverlog.Logger, *Request, *Response) (bool, error)) Option {
	return func(so *serverOptions) {
		so.handlers = append(so.handlers, HandlerFunc(f))
	}
}

// Logger sets the logger. By default nothing is logged.
func Logger(l serverlog.Logger) Option {
	return func(so *serverOptions) {
		if l == nil {
			return
		}
		so.log = l
	}
}

// Admit registers a predicate which is evaluated on every accepted
// connection before it may take a slot. Rejected connections are closed.
func Admit(f func(net.Conn) bool) Option {
	return func(so *serverOptions) {
		so.admit = f
	}
}

// TracerProvider overrides the global otel TracerProvider.
func TracerProvider(tp trace.TracerProvider) Option {
	return func(so *serverOptions) {
		so.tp = tp
	}
}

// MeterProvider overrides the global otel MeterProvider.
func MeterProvider(mp metric.MeterProvider) Option {
	return func(so *serverOptions) {
		so.mp = mp
	}
}

// Readiness is set healthy while the server accepts connections.
func Readiness(b *health.Binary) Option {
	return func(so *serverOptions) {
		so.readiness = b
	}
}

// Listen overrides how the listening socket is opened. Default is [net.Listen].
func Listen(f func(network, addr string) (net.Listener, error)) Option {
	return func(so *serverOptions) {
		so.listen = f
	}
}

// AcceptError is a failure to accept a connection. The server logs it and keeps accepting.
type AcceptError struct {
	Cause error
}

// Error implements the [error] interface.
func (e AcceptError) Error() string {
	return fmt.Sprintf("httpd: failed to accept connection: %s", e.Cause)
}

// Unwrap implements the implicit interface used by [errors.Is] and [errors.As].
func (e AcceptError) Unwrap() error {
	return e.Cause
}

var errListenerClosed = errors.New("listener closed")

// Server accepts TCP connections and answers exactly one request on each.
//
// A Server is either stopped or running. [Server.Run] starts it and
// [Server.Stop] stops it, after which it may be run again.
type Server struct {
	cfg       Config
	handlers  Chain
	log       serverlog.Logger
	admit     func(net.Conn) bool
	listen    func(string, string) (net.Listener, error)
	tracer    trace.Tracer
	metrics   serverMetrics
	readiness *health.Binary

	mu      sync.Mutex
	running bool
	serving bool
	ls      net.Listener
}

// New returns a stopped Server.
func New(cfg Config, opts ...Option) *Server {
	so := &serverOptions{
		log:       serverlog.Noop{},
		tp:        otel.GetTracerProvider(),
		mp:        otel.GetMeterProvider(),
		readiness: &health.Binary{},
		listen:    net.Listen,
	}
	for _, opt := range opts {
		opt(so)
	}

	return &Server{
		cfg:       cfg,
		handlers:  so.handlers,
		log:       so.log,
		admit:     so.admit,
		listen:    so.listen,
		tracer:    so.tp.Tracer(instrumentationName),
		metrics:   newServerMetrics(so.mp),
		readiness: so.readiness,
	}
}

// Addr returns the listening address or nil if the server isn't running.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ls == nil {
		return nil
	}
	return s.ls.Addr()
}

// Run starts the server and blocks until it's stopped, either by
// [Server.Stop] or by ctx being cancelled, and every in-flight
// connection has completed.
//
// Configuration faults are returned before any socket is opened.
func (s *Server) Run(ctx context.Context) error {
	ls, err := s.start()
	if err != nil {
		return err
	}
	defer s.finish()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var conns sync.WaitGroup
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return s.Stop()
	})
	g.Go(func() error {
		defer cancel()
		s.acceptLoop(gctx, ls, &conns)
		return nil
	})

	err = g.Wait()
	conns.Wait()
	s.log.Info("stopped serving on %s", ls.Addr())
	return err
}

func (s *Server) start() (net.Listener, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serving {
		return nil, ErrServerRunning
	}
	if len(s.handlers) == 0 {
		return nil, ErrNoHandlers
	}
	err := s.cfg.Validate()
	if err != nil {
		return nil, err
	}

	ls, err := s.listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return nil, err
	}
	s.ls = ls
	s.running = true
	s.serving = true
	s.readiness.Set(true)
	s.log.Info("listening for connections on %s", ls.Addr())
	return ls, nil
}

func (s *Server) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.serving = false
}

// Stop stops accepting connections and closes the listener. In-flight
// connections are not interrupted. Stop is safe to call at any time.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false
	s.readiness.Set(false)

	ls := s.ls
	s.ls = nil
	err := ls.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// Close stops the server and closes every handler which implements [io.Closer].
func (s *Server) Close() error {
	errs := []error{s.Stop()}
	for _, h := range s.handlers {
		c, ok := h.(io.Closer)
		if !ok {
			continue
		}
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (s *Server) isRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

const maxAcceptBackoff = time.Second

func (s *Server) acceptLoop(ctx context.Context, ls net.Listener, conns *sync.WaitGroup) {
	sem := semaphore.NewWeighted(int64(s.cfg.MaxClients))

	var backoff time.Duration
	for s.isRunning() {
		err := s.acceptOne(ctx, ls, sem, conns)
		if errors.Is(err, errListenerClosed) {
			return
		}
		if err == nil {
			backoff = 0
			continue
		}

		s.log.Critical(err)

		backoff = min(max(2*backoff, 5*time.Millisecond), maxAcceptBackoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}
}

func (s *Server) acceptOne(ctx context.Context, ls net.Listener, sem *semaphore.Weighted, conns *sync.WaitGroup) (err error) {
	defer try.Recover(&err)

	conn, err := ls.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) || !s.isRunning() {
			return errListenerClosed
		}
		return AcceptError{Cause: err}
	}
	s.metrics.accepted.Add(ctx, 1)

	admitted := false
	defer func() {
		if !admitted {
			conn.Close()
		}
	}()

	if s.admit != nil && !s.admit(conn) {
		s.reject(ctx, conn, "admission")
		return nil
	}

	actx, cancel := context.WithTimeout(ctx, s.cfg.AdmissionTimeout)
	defer cancel()
	err = sem.Acquire(actx, 1)
	if err != nil {
		s.reject(ctx, conn, "capacity")
		return nil
	}

	admitted = true
	conns.Add(1)
	go func() {
		defer conns.Done()
		defer sem.Release(1)

		s.serveConn(context.WithoutCancel(ctx), conn)
	}()
	return nil
}

func (s *Server) reject(ctx context.Context, conn net.Conn, reason string) {
	s.log.Info("rejected connection from %s: %s", conn.RemoteAddr(), reason)
	s.metrics.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

type serverMetrics struct {
	accepted metric.Int64Counter
	rejected metric.Int64Counter
	active   metric.Int64UpDownCounter
	requests metric.Int64Counter
}

func newServerMetrics(mp metric.MeterProvider) serverMetrics {
	meter := mp.Meter(instrumentationName)

	var sm serverMetrics
	var err error
	sm.accepted, err = meter.Int64Counter(
		"httpd.connections.accepted",
		metric.WithDescription("Connections accepted by the listener."),
	)
	if err != nil {
		otel.Handle(err)
		sm.accepted = noop.Int64Counter{}
	}
	sm.rejected, err = meter.Int64Counter(
		"httpd.connections.rejected",
		metric.WithDescription("Connections closed without being served."),
	)
	if err != nil {
		otel.Handle(err)
		sm.rejected = noop.Int64Counter{}
	}
	sm.active, err = meter.Int64UpDownCounter(
		"httpd.connections.active",
		metric.WithDescription("Connections currently being served."),
	)
	if err != nil {
		otel.Handle(err)
		sm.active = noop.Int64UpDownCounter{}
	}
	sm.requests, err = meter.Int64Counter(
		"httpd.requests",
		metric.WithDescription("Requests answered, by status code."),
	)
	if err != nil {
		otel.Handle(err)
		sm.requests = noop.Int64Counter{}
	}
	return sm
}
