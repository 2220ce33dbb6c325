//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package etcd

import (
	"context"
	"crypto/tls"
	"strings"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"

	"github.com/yahoo/eureka-client/config"
	"github.com/yahoo/eureka-client/config/yaml"
	"github.com/yahoo/eureka-client/secret"
)

type etcd struct {
	sync.RWMutex

	client *clientv3.Client

	prefix   string
	instance *config.Instance
	registry *config.Registry
	global   *config.Global

	informer chan struct{}

	logger *zap.Logger
}

type etcdConfig struct {
	Endpoints []string
	Prefix    string

	TLSConfig config.TLSConfig `yaml:"tlsConfig" split_words:"true"`
}

// New constructs etcd configuration management.
// the bootstrap file is optional and the environment
// variables override it.
func New(filename string) (config.Config, error) {
	var (
		err       error
		tlsConfig *tls.Config
		conf      = &etcdConfig{}
		e         = &etcd{informer: make(chan struct{}, 1)}
	)

	if filename != "" && filename != "-" {
		if err := yaml.Read(filename, conf); err != nil {
			return nil, err
		}
	}

	if err = envconfig.Process("eureka_config_etcd", conf); err != nil {
		return nil, err
	}

	if len(conf.Endpoints) < 1 {
		conf.Endpoints = []string{"127.0.0.1:2379"}
	}

	config.SetDefault(&conf.Prefix, "eureka/config/")
	e.prefix = strings.TrimSuffix(conf.Prefix, "/") + "/"

	if conf.TLSConfig.Enabled {
		tlsConfig, err = secret.GetTLSConfig(&conf.TLSConfig)
		if err != nil {
			return nil, err
		}
	}

	e.client, err = clientv3.New(clientv3.Config{
		Endpoints:   conf.Endpoints,
		DialTimeout: 5 * time.Second,
		TLS:         tlsConfig,
	})
	if err != nil {
		return nil, err
	}

	if err = e.getRemoteConfig(); err != nil {
		e.client.Close()
		return nil, err
	}

	go e.watch(e.informer)

	return e, nil
}

func (e *etcd) getRemoteConfig() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	resp, err := e.client.Get(ctx, e.prefix, clientv3.WithPrefix())
	cancel()
	if err != nil {
		return err
	}

	remote := &config.RemoteConfig{}

	for _, ev := range resp.Kvs {
		if len(ev.Value) < 1 {
			continue
		}

		key := strings.TrimPrefix(string(ev.Key), e.prefix)
		if _, err := remote.Decode(key, ev.Value); err != nil {
			return err
		}
	}

	remote.SetDefaults()

	e.Lock()
	defer e.Unlock()

	e.instance = &remote.Instance
	e.registry = &remote.Registry
	e.global = &remote.Global
	e.logger = config.GetLogger(remote.Global.Logger)

	return nil
}

// Instance returns instance configuration
func (e *etcd) Instance() *config.Instance {
	e.RLock()
	defer e.RUnlock()
	return e.instance
}

// Registry returns registry configuration
func (e *etcd) Registry() *config.Registry {
	e.RLock()
	defer e.RUnlock()
	return e.registry
}

// Global returns global configuration
func (e *etcd) Global() *config.Global {
	e.RLock()
	defer e.RUnlock()
	return e.global
}

// Informer returns informer channel
func (e *etcd) Informer() chan struct{} {
	return e.informer
}

// Logger returns logging handler
func (e *etcd) Logger() *zap.Logger {
	e.RLock()
	defer e.RUnlock()
	return e.logger
}

// Update reads the configuration from etcd
func (e *etcd) Update() error {
	return e.getRemoteConfig()
}

func (e *etcd) watch(ch chan<- struct{}) {
	rch := e.client.Watch(context.Background(), e.prefix, clientv3.WithPrefix())
	for wresp := range rch {
		for _, ev := range wresp.Events {
			e.Logger().Info("etcd", zap.String("event", "watcher.triggered"), zap.ByteString("key", ev.Kv.Key))
			select {
			case ch <- struct{}{}:
			default:
				e.Logger().Info("etcd", zap.String("event", "watcher.response.dropped"))
			}
		}
	}
}
