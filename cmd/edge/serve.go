// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/z5labs/edge"
	"github.com/z5labs/edge/app"
	"github.com/z5labs/edge/config"
	"github.com/z5labs/edge/handler/filehandler"
	"github.com/z5labs/edge/handler/healthhandler"
	"github.com/z5labs/edge/httpd"
	"github.com/z5labs/edge/pkg/health"
	"github.com/z5labs/edge/pkg/otelconfig"
	"github.com/z5labs/edge/pkg/serverlog"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type filesConfig struct {
	Root       string   `config:"root"`
	Mount      string   `config:"mount"`
	IndexFiles []string `config:"indexFiles"`
}

type loggingConfig struct {
	// Backend is either "slog" or "zap".
	Backend string `config:"backend"`
	Level   string `config:"level"`
}

type serveConfig struct {
	Server  httpd.Config      `config:"server"`
	Files   filesConfig       `config:"files"`
	Logging loggingConfig     `config:"logging"`
	Tracing otelconfig.Config `config:"tracing"`
}

func defaults() config.Map {
	d := httpd.DefaultConfig()
	return config.Map{
		"server": map[string]any{
			"port":             d.Port,
			"maxClients":       d.MaxClients,
			"maxPostSize":      d.MaxPostSize,
			"admissionTimeout": d.AdmissionTimeout.String(),
		},
		"files": map[string]any{
			"root":  ".",
			"mount": "/",
		},
		"logging": map[string]any{
			"backend": "slog",
			"level":   "info",
		},
		"tracing": map[string]any{
			"exporter":    otelconfig.ExporterNone,
			"serviceName": "edge",
		},
	}
}

type serveFlags struct {
	configFile string
	root       string
	address    string
	port       uint16
	debug      bool
	logBackend string
}

// sources layers config from lowest to highest precedence: defaults,
// the config file, EDGE_ prefixed env vars and finally the flags
// which were set explicitly.
func (f serveFlags) sources(changed func(string) bool) ([]config.Source, error) {
	srcs := []config.Source{defaults()}

	if f.configFile != "" {
		b, err := os.ReadFile(f.configFile)
		if err != nil {
			return nil, err
		}
		r := config.RenderTextTemplate(bytes.NewReader(b))

		switch strings.ToLower(filepath.Ext(f.configFile)) {
		case ".json":
			srcs = append(srcs, config.FromJson(r))
		default:
			srcs = append(srcs, config.FromYaml(r))
		}
	}
	srcs = append(srcs, config.FromEnv("EDGE"))

	server := map[string]any{}
	if changed("address") {
		server["address"] = f.address
	}
	if changed("port") {
		server["port"] = f.port
	}
	if changed("debug") {
		server["debug"] = f.debug
	}

	overrides := config.Map{}
	if len(server) > 0 {
		overrides["server"] = server
	}
	if changed("root") {
		overrides["files"] = map[string]any{"root": f.root}
	}
	if changed("log-backend") {
		overrides["logging"] = map[string]any{"backend": f.logBackend}
	}
	return append(srcs, overrides), nil
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve static files from a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srcs, err := flags.sources(cmd.Flags().Changed)
			if err != nil {
				return err
			}

			b := serveBuilder{logOut: cmd.ErrOrStderr()}
			return edge.Run[serveConfig](cmd.Context(), b, srcs...)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flags.configFile, "config", "c", "", "YAML or JSON config file, rendered as a Go text/template first")
	fs.StringVar(&flags.root, "root", ".", "directory to serve files from")
	fs.StringVar(&flags.address, "address", "", "IP address to listen on")
	fs.Uint16VarP(&flags.port, "port", "p", 8080, "port to listen on")
	fs.BoolVar(&flags.debug, "debug", false, "include fault diagnostics in 500 pages")
	fs.StringVar(&flags.logBackend, "log-backend", "slog", "logging backend, slog or zap")

	return cmd
}

// UnknownLogBackendError occurs when the logging backend is neither slog nor zap.
type UnknownLogBackendError struct {
	Backend string
}

// Error implements the [error] interface.
func (e UnknownLogBackendError) Error() string {
	return fmt.Sprintf("unknown logging backend: %q", e.Backend)
}

// newLogger returns the configured logger along with a func flushing it.
func newLogger(w io.Writer, cfg loggingConfig) (serverlog.Logger, func() error, error) {
	switch cfg.Backend {
	case "", "slog":
		var lvl slog.Level
		err := lvl.UnmarshalText([]byte(cfg.Level))
		if err != nil {
			return nil, nil, err
		}

		h := slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       lvl,
			ReplaceAttr: serverlog.ReplaceLevel,
		})
		return serverlog.NewSlog(h), func() error { return nil }, nil
	case "zap":
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}

		core := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			lvl,
		)
		l := zap.New(core)
		return serverlog.NewZap(l), l.Sync, nil
	default:
		return nil, nil, UnknownLogBackendError{Backend: cfg.Backend}
	}
}

type serveBuilder struct {
	logOut io.Writer

	// extra server options, appended last
	opts []httpd.Option
}

func (b serveBuilder) Build(ctx context.Context, cfg serveConfig) (edge.App, error) {
	log, syncLog, err := newLogger(b.logOut, cfg.Logging)
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(cfg.Files.Root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", root)
	}

	initializer, err := cfg.Tracing.Initializer()
	if err != nil {
		return nil, err
	}
	tp, err := initializer.Init(ctx)
	if err != nil {
		return nil, err
	}

	var fileOpts []filehandler.Option
	if cfg.Files.Mount != "" {
		fileOpts = append(fileOpts, filehandler.MountPath(cfg.Files.Mount))
	}
	if len(cfg.Files.IndexFiles) > 0 {
		fileOpts = append(fileOpts, filehandler.IndexFiles(cfg.Files.IndexFiles...))
	}

	liveness := health.NewBinary(true)
	readiness := health.NewBinary(false)

	opts := []httpd.Option{
		httpd.Logger(log),
		httpd.TracerProvider(tp),
		httpd.Readiness(readiness),
		httpd.Handle(healthhandler.New(liveness, readiness)),
		httpd.Handle(filehandler.New(root, fileOpts...)),
	}
	srv := httpd.New(cfg.Server, append(opts, b.opts...)...)

	a := app.WithLifecycleHooks(app.Recover(srv), app.Lifecycle{
		PreRun: app.LifecycleHookFunc(func(ctx context.Context) error {
			log.Info("serving files from %s", root)
			return nil
		}),
		PostRun: app.LifecycleHookFunc(func(ctx context.Context) error {
			liveness.Set(false)
			err := errors.Join(srv.Close(), tp.Shutdown(ctx))

			// Syncing a terminal fails on some platforms.
			_ = syncLog()
			return err
		}),
	})
	return app.WithSignalNotifications(a, os.Interrupt, syscall.SIGTERM), nil
}
