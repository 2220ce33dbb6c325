//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/discovery/eureka"
	"github.com/yahoo/eureka-client/metadata"
	"github.com/yahoo/eureka-client/metadata/aws"
	"github.com/yahoo/eureka-client/metadata/k8s"
	"github.com/yahoo/eureka-client/status"
)

const stopTimeout = 10 * time.Second

type lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Healthy() error
}

// agent runs the eureka client and restarts
// it once the configuration changes.
type agent struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *status.Metrics

	newClient func(cfg config.Config) (lifecycle, error)

	mu     sync.RWMutex
	client lifecycle
}

func newAgent(cfg config.Config, metrics *status.Metrics) *agent {
	a := &agent{
		cfg:     cfg,
		logger:  cfg.Logger(),
		metrics: metrics,
	}

	a.newClient = a.eurekaClient

	return a
}

func (a *agent) eurekaClient(cfg config.Config) (lifecycle, error) {
	opts := []eureka.Option{eureka.WithMetrics(a.metrics)}

	if cfg.Instance().IsAmazon() && cfg.Registry().ShouldFetchMetadata() {
		provider, err := getMetadataProvider(cfg)
		if err != nil {
			return nil, err
		}

		opts = append(opts, eureka.WithMetadataProvider(provider))
	}

	return eureka.New(cfg, opts...)
}

func getMetadataProvider(cfg config.Config) (metadata.Provider, error) {
	switch cfg.Registry().MetadataService {
	case "aws":
		return aws.New(cfg)
	case "k8s":
		return k8s.New(cfg)
	}

	return nil, fmt.Errorf("metadata service %s not supported", cfg.Registry().MetadataService)
}

func (a *agent) run(ctx context.Context) error {
	for {
		client, err := a.newClient(a.cfg)
		if err != nil {
			return err
		}

		if err := client.Start(ctx); err != nil {
			a.stop(client)
			return err
		}

		a.setClient(client)

		select {
		case <-ctx.Done():
			a.stop(client)
			return nil
		case <-a.cfg.Informer():
		}

		a.logger.Info("agent", zap.String("event", "config.changed"))

		a.stop(client)
		a.setClient(nil)

		if err := a.cfg.Update(); err != nil {
			return fmt.Errorf("configuration update: %w", err)
		}
	}
}

func (a *agent) stop(client lifecycle) {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := client.Stop(ctx); err != nil {
		a.logger.Error("agent", zap.String("event", "stop"), zap.Error(err))
	}
}

func (a *agent) setClient(client lifecycle) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.client = client
}

func (a *agent) healthy() error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.client == nil {
		return errors.New("eureka client not started")
	}

	return a.client.Healthy()
}
