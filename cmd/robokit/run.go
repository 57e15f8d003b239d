// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/tochemey/robokit/lifecycle"
	"github.com/tochemey/robokit/log"
	"github.com/tochemey/robokit/robo"
	"github.com/tochemey/robokit/units"
)

const shutdownTimeout = 10 * time.Second

type runOptions struct {
	configPath string
	logLevel   string
	metrics    bool
}

func newRunCommand() *cobra.Command {
	opts := new(runOptions)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Build a context from a configuration document and run it until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to the configuration document")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.metrics, "metrics", false, "publish metrics on the global meter provider")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func run(ctx context.Context, opts *runOptions) error {
	logger := log.NewZap(log.ParseLevel(opts.logLevel), os.Stdout)
	defer func() { _ = logger.Flush() }()

	data, err := os.ReadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", opts.configPath, err)
	}

	builderOpts := []robo.Option{robo.WithLogger(logger)}
	if opts.metrics {
		builderOpts = append(builderOpts, robo.WithMetrics())
	}

	units.Register(robo.DefaultRegistry)
	system, err := robo.NewBuilder(builderOpts...).AddDocument(data).Build()
	if err != nil {
		return err
	}

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return system.Shutdown(shutdownCtx)
	}

	if err := system.Start(ctx); err != nil {
		if system.State() != lifecycle.Started {
			return multierr.Append(err, shutdown())
		}
		logger.Errorf("context %s started with failed units: %v", system.ID(), err)
	}

	<-ctx.Done()
	logger.Infof("shutting down context %s", system.ID())
	return shutdown()
}
