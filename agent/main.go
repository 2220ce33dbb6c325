//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yahoo/eureka-client/status"
)

func main() {
	cfg, err := getConfig(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := cfg.Logger()
	defer logger.Sync()

	logger.Info("agent", zap.String("event", "starting"), zap.String("version", cfg.Global().Version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := newAgent(cfg, status.NewMetrics(registry))
	s := status.New(cfg, registry, a.healthy)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.run(ctx) })
	g.Go(func() error { return s.Run(ctx) })

	if err := g.Wait(); err != nil {
		logger.Error("agent", zap.String("event", "exit"), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("agent", zap.String("event", "shutdown"))
}
