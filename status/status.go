//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package status

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yahoo/eureka-client/config"
)

// Status represents the status and metrics server.
type Status struct {
	cfg      config.Config
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	check    func() error
}

type healthcheck struct {
	check func() error
}

func (h *healthcheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.check != nil {
		if err := h.check(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintf(w, "eureka client unhealthy: %v", err)
			return
		}
	}

	fmt.Fprint(w, "eureka client alive and reachable")
}

// New constructs status server. the check function reports
// the client health and nil check is always healthy.
func New(cfg config.Config, gatherer prometheus.Gatherer, check func() error) *Status {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	return &Status{
		cfg:      cfg,
		logger:   cfg.Logger(),
		gatherer: gatherer,
		check:    check,
	}
}

// Handler returns the status http handler.
func (s *Status) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthcheck", &healthcheck{check: s.check})

	return mux
}

// Run serves the status until the context is canceled.
func (s *Status) Run(ctx context.Context) error {
	if s.cfg.Global().Status.Disabled {
		s.logger.Info("status", zap.String("event", "disabled"))
		<-ctx.Done()
		return nil
	}

	addr := s.cfg.Global().Status.Addr

	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	s.logger.Info("status", zap.String("event", "start"), zap.String("addr", addr))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	s.logger.Info("status", zap.String("event", "shutdown"))

	return nil
}
