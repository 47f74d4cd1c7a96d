// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otelconfig

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// OTLPConfig
type OTLPConfig struct {
	Common

	// gRPC target string which is passed to grpc.Dial()
	Target string
}

// OTLPOption
type OTLPOption interface {
	ApplyOTLP(*OTLPConfig)
}

type otlpOptionFunc func(*OTLPConfig)

func (f otlpOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(cfg)
}

// Target sets the gRPC target of the collector.
func Target(target string) OTLPOption {
	return otlpOptionFunc(func(oc *OTLPConfig) {
		oc.Target = target
	})
}

// OTLP returns an Initializer which exports spans to a collector over gRPC.
func OTLP(opts ...OTLPOption) Initializer {
	c := OTLPConfig{}
	for _, opt := range opts {
		opt.ApplyOTLP(&c)
	}
	return c
}

// ErrMissingTarget is returned by [OTLPConfig.Init] if no target is configured.
var ErrMissingTarget = errors.New("otelconfig: otlp target is required")

// Init implements Initializer interface. The collector is connected to
// lazily so an unavailable collector never blocks startup.
func (cfg OTLPConfig) Init(ctx context.Context) (TracerProvider, error) {
	if cfg.Target == "" {
		return nil, ErrMissingTarget
	}

	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	// Note the use of insecure transport here. TLS is recommended in production.
	conn, err := grpc.DialContext(
		ctx,
		cfg.Target,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, errors.Join(err, conn.Close())
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExporter),
	)
	return otlpProvider{TracerProvider: tp, conn: conn}, nil
}

type otlpProvider struct {
	*sdktrace.TracerProvider

	conn *grpc.ClientConn
}

// Shutdown flushes the provider before closing the collector connection.
func (p otlpProvider) Shutdown(ctx context.Context) error {
	return errors.Join(p.TracerProvider.Shutdown(ctx), p.conn.Close())
}
