// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package otelconfig builds the trace provider spans are exported through.
package otelconfig

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// Exporter names accepted by [Config].
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

// Config selects and configures a trace exporter.
type Config struct {
	// Exporter is one of "none", "stdout" or "otlp". Empty means "none".
	Exporter    string `config:"exporter"`
	ServiceName string `config:"serviceName"`

	// Target is the gRPC target of the OTLP collector.
	Target string `config:"target"`
}

// UnknownExporterError occurs when [Config.Exporter] names no known exporter.
type UnknownExporterError struct {
	Exporter string
}

// Error implements the [error] interface.
func (e UnknownExporterError) Error() string {
	return fmt.Sprintf("unknown trace exporter: %q", e.Exporter)
}

// Initializer returns the Initializer described by cfg.
func (cfg Config) Initializer() (Initializer, error) {
	switch cfg.Exporter {
	case "", ExporterNone:
		return Noop, nil
	case ExporterStdout:
		return Local(ServiceName(cfg.ServiceName)), nil
	case ExporterOTLP:
		return OTLP(ServiceName(cfg.ServiceName), Target(cfg.Target)), nil
	default:
		return nil, UnknownExporterError{Exporter: cfg.Exporter}
	}
}

// Common
type Common struct {
	ServiceName string
}

// CommonOption
type CommonOption interface {
	LocalOption
	OTLPOption
}

type commonOptionFunc func(*Common)

func (f commonOptionFunc) ApplyOTLP(cfg *OTLPConfig) {
	f(&cfg.Common)
}

func (f commonOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(&cfg.Common)
}

// ServiceName sets the service.name resource attribute.
func ServiceName(name string) CommonOption {
	return commonOptionFunc(func(c *Common) {
		c.ServiceName = name
	})
}

// TracerProvider is a trace.TracerProvider which must be shut down
// to flush any buffered spans.
type TracerProvider interface {
	trace.TracerProvider

	Shutdown(context.Context) error
}

// Initializer
type Initializer interface {
	Init(context.Context) (TracerProvider, error)
}

// Noop keeps using the global TracerProvider.
var Noop = noopConfiger{}

type noopConfiger struct{}

type noopProvider struct {
	trace.TracerProvider
}

func (noopProvider) Shutdown(context.Context) error {
	return nil
}

func (noopConfiger) Init(context.Context) (TracerProvider, error) {
	return noopProvider{TracerProvider: otel.GetTracerProvider()}, nil
}

// LocalConfig
type LocalConfig struct {
	Common

	Out io.Writer
}

// LocalOption
type LocalOption interface {
	ApplyLocal(*LocalConfig)
}

type localOptionFunc func(*LocalConfig)

func (f localOptionFunc) ApplyLocal(cfg *LocalConfig) {
	f(cfg)
}

// Writer sets where spans are written to. Default is [os.Stdout].
func Writer(w io.Writer) LocalOption {
	return localOptionFunc(func(lc *LocalConfig) {
		lc.Out = w
	})
}

// Local returns an Initializer which writes spans as JSON.
func Local(opts ...LocalOption) Initializer {
	cfg := LocalConfig{
		Out: os.Stdout,
	}
	for _, opt := range opts {
		opt.ApplyLocal(&cfg)
	}
	return cfg
}

// Init implements Initializer interface.
func (cfg LocalConfig) Init(ctx context.Context) (TracerProvider, error) {
	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(cfg.Out),
	)
	if err != nil {
		return nil, err
	}

	res, err := newResource(ctx, cfg.Common)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	return tp, nil
}

func newResource(ctx context.Context, c Common) (*resource.Resource, error) {
	return resource.New(
		ctx,
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(c.ServiceName),
		),
	)
}
