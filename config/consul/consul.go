//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package consul

import (
	"errors"
	"strings"
	"sync"

	"github.com/hashicorp/consul/api"
	"github.com/hashicorp/consul/api/watch"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/config/yaml"
)

type consul struct {
	sync.RWMutex

	client    *api.Client
	apiConfig *api.Config

	prefix   string
	instance *config.Instance
	registry *config.Registry
	global   *config.Global

	informer chan struct{}

	logger *zap.Logger
}

type consulConfig struct {
	Address   string
	Prefix    string
	TLSConfig config.TLSConfig `yaml:"tlsConfig" split_words:"true"`
}

// New constructs consul configuration management.
// the bootstrap file holds the consul address and it
// can be skipped by "-" to read only from environment.
func New(filename string) (config.Config, error) {
	var (
		err  error
		conf = &consulConfig{}
		c    = &consul{informer: make(chan struct{}, 1)}
	)

	if filename != "-" {
		if err := yaml.Read(filename, conf); err != nil {
			return nil, err
		}
	}

	if err = envconfig.Process("eureka_config_consul", conf); err != nil {
		return nil, err
	}

	config.SetDefault(&conf.Prefix, "eureka/config/")
	c.prefix = strings.TrimSuffix(conf.Prefix, "/") + "/"

	c.apiConfig = api.DefaultConfig()
	if conf.Address != "" {
		c.apiConfig.Address = conf.Address
	}

	c.apiConfig.TLSConfig = getTLSConfig(conf)

	c.client, err = api.NewClient(c.apiConfig)
	if err != nil {
		return nil, err
	}

	if err = c.getRemoteConfig(); err != nil {
		return nil, err
	}

	go func() {
		if err := c.watch(); err != nil {
			c.logger.Error("consul", zap.String("event", "watcher"), zap.Error(err))
		}
	}()

	return c, nil
}

func (c *consul) getRemoteConfig() error {
	pairs, _, err := c.client.KV().List(c.prefix, nil)
	if err != nil {
		return err
	}

	remote := &config.RemoteConfig{}

	for _, p := range pairs {
		// skip folder
		if len(p.Value) < 1 {
			continue
		}

		key := strings.TrimPrefix(p.Key, c.prefix)
		if _, err := remote.Decode(key, p.Value); err != nil {
			return err
		}
	}

	remote.SetDefaults()

	c.Lock()
	defer c.Unlock()

	c.instance = &remote.Instance
	c.registry = &remote.Registry
	c.global = &remote.Global
	c.logger = config.GetLogger(remote.Global.Logger)

	return nil
}

// Instance returns instance configuration
func (c *consul) Instance() *config.Instance {
	c.RLock()
	defer c.RUnlock()
	return c.instance
}

// Registry returns registry configuration
func (c *consul) Registry() *config.Registry {
	c.RLock()
	defer c.RUnlock()
	return c.registry
}

// Global returns global configuration
func (c *consul) Global() *config.Global {
	c.RLock()
	defer c.RUnlock()
	return c.global
}

// Informer returns informer channel
func (c *consul) Informer() chan struct{} {
	return c.informer
}

// Logger returns logging handler
func (c *consul) Logger() *zap.Logger {
	c.RLock()
	defer c.RUnlock()
	return c.logger
}

// Update reads the configuration from consul
func (c *consul) Update() error {
	return c.getRemoteConfig()
}

func (c *consul) watch() error {
	params := map[string]interface{}{
		"type":   "keyprefix",
		"prefix": c.prefix,
	}

	wp, err := watch.Parse(params)
	if err != nil {
		return err
	}

	lastIdx := uint64(0)
	wp.Handler = func(idx uint64, data interface{}) {
		// the first call returns the current state
		if lastIdx != 0 && idx != lastIdx {
			select {
			case c.informer <- struct{}{}:
				c.Logger().Info("consul", zap.String("event", "watcher.triggered"), zap.String("prefix", c.prefix))
			default:
				c.Logger().Info("consul", zap.String("event", "watcher.response.dropped"))
			}
		}
		lastIdx = idx
	}

	if c.apiConfig.Address == "" {
		return errors.New("consul address not available")
	}

	return wp.RunWithConfig(c.apiConfig.Address, c.apiConfig)
}

func getTLSConfig(cfg *consulConfig) api.TLSConfig {
	if !cfg.TLSConfig.Enabled {
		return api.TLSConfig{}
	}

	return api.TLSConfig{
		CAFile:             cfg.TLSConfig.CAFile,
		CertFile:           cfg.TLSConfig.CertFile,
		KeyFile:            cfg.TLSConfig.KeyFile,
		InsecureSkipVerify: cfg.TLSConfig.InsecureSkipVerify,
	}
}
