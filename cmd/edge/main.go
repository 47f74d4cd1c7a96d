// Copyright (c) 2023 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command edge serves static files over a single request per connection
// HTTP server and probes the health of running instances.
package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	err := newRootCmd().ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "edge",
		Short:         "A small static file server",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.AddCommand(
		newServeCmd(),
		newProbeCmd(),
	)
	return cmd
}
