// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/z5labs/edge/handler/healthhandler"
	"github.com/z5labs/edge/pkg/probe"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type probeFlags struct {
	url       string
	attempts  int
	timeout   time.Duration
	watch     bool
	interval  time.Duration
	tripAfter uint32
	verbose   bool
}

func newProbeCmd() *cobra.Command {
	var flags probeFlags

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check the health of a running server",
		Long: "Check the health of a running server. The command fails unless the url answers 200 OK.\n" +
			"With --watch it keeps probing until the circuit opens after repeated failures.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(cmd.Context(), cmd.ErrOrStderr(), flags)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&flags.url, "url", "http://127.0.0.1:8080"+healthhandler.ReadinessPath, "health endpoint to probe")
	fs.IntVar(&flags.attempts, "attempts", 3, "attempts per check")
	fs.DurationVar(&flags.timeout, "timeout", 5*time.Second, "timeout of a single attempt")
	fs.BoolVar(&flags.watch, "watch", false, "keep probing until the circuit opens")
	fs.DurationVar(&flags.interval, "interval", 10*time.Second, "time between checks when watching")
	fs.Uint32Var(&flags.tripAfter, "trip-after", 5, "consecutive failed attempts which open the circuit")
	fs.BoolVarP(&flags.verbose, "verbose", "v", false, "log every attempt")

	return cmd
}

func runProbe(ctx context.Context, w io.Writer, flags probeFlags) error {
	lvl := zapcore.WarnLevel
	if flags.verbose {
		lvl = zapcore.InfoLevel
	}
	log := zap.New(zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(w),
		lvl,
	))

	p := probe.New(
		flags.url,
		probe.Logger(log),
		probe.MaxAttempts(flags.attempts),
		probe.Timeout(flags.timeout),
		probe.TripAfter(flags.tripAfter),
	)
	if flags.watch {
		return p.Watch(ctx, flags.interval)
	}

	err := p.Check(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s is healthy\n", flags.url)
	return nil
}
