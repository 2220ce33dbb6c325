//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

// Package eureka implements the eureka registry client. it registers
// the local instance, keeps the registration alive and caches
// the registry for the peer lookups.
package eureka

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/discovery"
	"github.com/yahoo/eureka-client/metadata"
	"github.com/yahoo/eureka-client/status"
)

const (
	hostPlaceholder = "__HOST__"

	amazonInfoClass  = "com.netflix.appinfo.AmazonInfo"
	defaultInfoClass = "com.netflix.appinfo.InstanceInfo$DefaultDataCenterInfo"
)

// Client represents eureka client.
type Client struct {
	logger      *zap.Logger
	instanceCfg config.Instance
	registry    config.Registry

	clk        clock.Clock
	httpClient *http.Client
	metrics    *status.Metrics
	metadata   metadata.Provider
	dnsServer  string

	username string
	password string

	mu       sync.RWMutex
	instance *discovery.Instance
	state    atomic.Int32

	index atomic.Pointer[registryIndex]

	watchersLock sync.Mutex
	watchers     []chan<- struct{}

	tasks *tasks
}

// Option represents client option.
type Option func(*Client)

// WithMetadataProvider sets the cloud metadata provider.
func WithMetadataProvider(p metadata.Provider) Option {
	return func(c *Client) {
		c.metadata = p
	}
}

// WithClock sets the clock of the recurring tasks.
func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clk = clk
	}
}

// WithHTTPClient sets the registry http client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithMetrics sets the client metrics.
func WithMetrics(m *status.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithDNSServer sets the nameserver (host:port) for dns discovery.
func WithDNSServer(addr string) Option {
	return func(c *Client) {
		c.dnsServer = addr
	}
}

// New constructs eureka client. the configuration is
// validated and any missing field is a fatal error.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := config.Validate(cfg.Instance(), cfg.Registry()); err != nil {
		return nil, err
	}

	c := &Client{
		logger:      cfg.Logger(),
		instanceCfg: *cfg.Instance(),
		registry:    *cfg.Registry(),
		clk:         clock.New(),
		dnsServer:   cfg.Registry().DNSServer,
	}

	config.SetDefaultRegistry(&c.registry)

	for _, opt := range opts {
		opt(c)
	}

	var err error

	if c.httpClient == nil {
		c.httpClient, err = newHTTPClient(&c.registry)
		if err != nil {
			return nil, err
		}
	}

	c.username, c.password, err = credentials(&c.registry)
	if err != nil {
		return nil, fmt.Errorf("eureka credentials: %w", err)
	}

	c.instance = NewInstance(&c.instanceCfg)
	c.index.Store(newRegistryIndex())
	c.tasks = newTasks(c.clk)

	return c, nil
}

// NewInstance builds the registration document from the configuration.
func NewInstance(i *config.Instance) *discovery.Instance {
	instance := &discovery.Instance{
		App:              i.App,
		VipAddress:       i.VipAddress,
		SecureVipAddress: i.SecureVipAddress,
		HostName:         i.HostName,
		IPAddr:           i.IPAddr,
		Status:           discovery.StatusStarting,
		Port:             &discovery.Port{Value: i.Port, Enabled: true},
		HomePageURL:      i.HomePageURL,
		StatusPageURL:    i.StatusPageURL,
		HealthCheckURL:   i.HealthCheckURL,
		DataCenterInfo: discovery.DataCenterInfo{
			Class:    i.DataCenterInfo.Class,
			Name:     i.DataCenterInfo.Name,
			Metadata: discovery.MergeMetadata(i.DataCenterInfo.Metadata, nil),
		},
		Metadata: discovery.MergeMetadata(i.Metadata, nil),
	}

	if i.SecurePort > 0 {
		instance.SecurePort = &discovery.Port{Value: i.SecurePort, Enabled: true}
	}

	if instance.DataCenterInfo.Class == "" {
		instance.DataCenterInfo.Class = defaultInfoClass
		if i.IsAmazon() {
			instance.DataCenterInfo.Class = amazonInfoClass
		}
	}

	if i.PreferIPAddress && instance.IPAddr != "" {
		instance.HostName = instance.IPAddr
	}

	instance.InstanceID = instanceID(i, instance)

	return instance
}

// instanceID returns the configured instance id, the amazon
// instance id or the hostname.
func instanceID(i *config.Instance, instance *discovery.Instance) string {
	if i.InstanceID != "" {
		return i.InstanceID
	}

	if id := instance.DataCenterInfo.Metadata["instance-id"]; i.IsAmazon() && id != "" {
		return id
	}

	return instance.HostName
}

type stage struct {
	name string
	run  func(ctx context.Context) error
}

// Start runs the startup stages in order and stops at the first failure:
// the cloud metadata, the registration and the recurring tasks.
// if the immediate registry fetch fails, the error is returned and
// the recurring tasks keep running until Stop.
func (c *Client) Start(ctx context.Context) error {
	stages := []stage{
		{"metadata", c.fetchMetadata},
		{"register", c.register},
		{"tasks", c.startTasks},
	}

	for _, s := range stages {
		if err := s.run(ctx); err != nil {
			c.logger.Error("eureka", zap.String("event", "start"), zap.String("stage", s.name), zap.Error(err))
			return fmt.Errorf("eureka start %s: %w", s.name, err)
		}
	}

	c.logger.Info("eureka", zap.String("event", "started"), zap.String("app", c.instanceCfg.App))

	return nil
}

// Stop deregisters the instance and cancels the recurring tasks
// even if the deregistration failed.
func (c *Client) Stop(ctx context.Context) error {
	var err error

	if c.registry.ShouldRegister() {
		err = c.Deregister(ctx)
		if err != nil {
			c.logger.Error("eureka", zap.String("event", "stop"), zap.Error(err))
		}
	}

	c.tasks.cancel()

	c.logger.Info("eureka", zap.String("event", "stopped"), zap.String("app", c.instanceCfg.App))

	return err
}

// Instance returns a copy of the local instance.
func (c *Client) Instance() *discovery.Instance {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.instance.Clone()
}

// Healthy returns error if the instance should be registered but it's not.
func (c *Client) Healthy() error {
	if !c.registry.ShouldRegister() {
		return nil
	}

	if s := c.State(); s != StateRegistered {
		return fmt.Errorf("instance state is %s", s)
	}

	return nil
}

func (c *Client) fetchMetadata(ctx context.Context) error {
	if !c.instanceCfg.IsAmazon() || !c.registry.ShouldFetchMetadata() {
		return nil
	}

	if c.metadata == nil {
		return errors.New("metadata provider not available")
	}

	md, err := c.metadata.Fetch(ctx)
	if err != nil {
		return err
	}

	c.enrich(md)

	return nil
}

// enrich merges the cloud metadata to the local instance.
func (c *Client) enrich(md *metadata.Metadata) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.instance
	i.DataCenterInfo.Metadata = discovery.MergeMetadata(i.DataCenterInfo.Metadata, md.Raw)

	hostname, ip := md.Hostname(c.registry.UseLocalMetadata)
	if hostname != "" {
		i.HostName = hostname
	}

	if ip != "" {
		i.IPAddr = ip
	}

	if c.instanceCfg.PreferIPAddress && i.IPAddr != "" {
		i.HostName = i.IPAddr
	}

	i.StatusPageURL = strings.ReplaceAll(i.StatusPageURL, hostPlaceholder, i.HostName)
	i.HealthCheckURL = strings.ReplaceAll(i.HealthCheckURL, hostPlaceholder, i.HostName)
	i.HomePageURL = strings.ReplaceAll(i.HomePageURL, hostPlaceholder, i.HostName)

	i.InstanceID = instanceID(&c.instanceCfg, i)

	c.logger.Info("eureka", zap.String("event", "metadata"), zap.String("hostname", i.HostName), zap.String("ip", i.IPAddr))
}

func (c *Client) register(ctx context.Context) error {
	if !c.registry.ShouldRegister() {
		c.logger.Info("eureka", zap.String("event", "register.skipped"))
		return nil
	}

	return c.Register(ctx)
}

func (c *Client) startTasks(ctx context.Context) error {
	if c.registry.ShouldRegister() {
		c.tasks.startHeartbeat(interval(c.registry.HeartbeatInterval), func() {
			c.Renew(context.Background())
		})
	}

	if !c.registry.ShouldFetchRegistry() {
		return nil
	}

	c.tasks.startFetch(interval(c.registry.RegistryFetchInterval), func() {
		if err := c.FetchRegistry(context.Background()); err != nil {
			c.logger.Error("eureka", zap.String("event", "fetch"), zap.Error(err))
		}
	})

	return c.FetchRegistry(ctx)
}

func interval(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
