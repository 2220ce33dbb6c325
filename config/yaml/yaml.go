//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package yaml

import (
	"errors"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	yml "gopkg.in/yaml.v3"

	"github.com/yahoo/eureka-client/config"
)

// yaml represents yaml configuration management
type yaml struct {
	sync.RWMutex

	filenames []string
	instance  *config.Instance
	registry  *config.Registry
	global    *config.Global

	informer chan struct{}

	logger *zap.Logger
}

type yamlConfig struct {
	Instance config.Instance
	Registry config.Registry

	WatcherDisabled bool `yaml:"watcherDisabled"`

	config.Global `yaml:",inline"`
}

// New constructs yaml configuration management.
// files are read in order and the later files override
// the earlier ones, e.g. defaults.yaml then production.yaml.
func New(filenames ...string) (config.Config, error) {
	if len(filenames) < 1 {
		return nil, errors.New("yaml: configuration file not specified")
	}

	yamlCfg, err := load(filenames)
	if err != nil {
		return nil, err
	}

	y := &yaml{
		filenames: filenames,
		logger:    config.GetLogger(yamlCfg.Global.Logger),
		informer:  make(chan struct{}, 1),
	}

	y.set(yamlCfg)

	if !yamlCfg.WatcherDisabled {
		go func() {
			if err := y.watcher(); err != nil {
				y.logger.Error("yaml", zap.String("event", "watcher"), zap.Error(err))
			}
		}()
	}

	return y, nil
}

// Update reads yaml files
func (y *yaml) Update() error {
	yamlCfg, err := load(y.filenames)
	if err != nil {
		return err
	}

	y.set(yamlCfg)

	return nil
}

// Instance returns instance configuration
func (y *yaml) Instance() *config.Instance {
	y.RLock()
	defer y.RUnlock()
	return y.instance
}

// Registry returns registry configuration
func (y *yaml) Registry() *config.Registry {
	y.RLock()
	defer y.RUnlock()
	return y.registry
}

// Global returns global configuration
func (y *yaml) Global() *config.Global {
	y.RLock()
	defer y.RUnlock()
	return y.global
}

// Logger returns logging handler
func (y *yaml) Logger() *zap.Logger {
	return y.logger
}

// Informer returns informer channel
func (y *yaml) Informer() chan struct{} {
	return y.informer
}

func (y *yaml) set(yamlCfg *yamlConfig) {
	y.Lock()
	defer y.Unlock()

	y.instance = &yamlCfg.Instance
	y.registry = &yamlCfg.Registry
	y.global = &yamlCfg.Global
}

func load(filenames []string) (*yamlConfig, error) {
	yamlCfg := &yamlConfig{}

	for _, filename := range filenames {
		if err := Read(filename, yamlCfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process("eureka_instance", &yamlCfg.Instance); err != nil {
		return nil, err
	}

	if err := envconfig.Process("eureka_registry", &yamlCfg.Registry); err != nil {
		return nil, err
	}

	if err := envconfig.Process("eureka_status", &yamlCfg.Global.Status); err != nil {
		return nil, err
	}

	config.SetDefaultInstance(&yamlCfg.Instance)
	config.SetDefaultRegistry(&yamlCfg.Registry)
	config.SetDefaultGlobal(&yamlCfg.Global)

	return yamlCfg, nil
}

// Read reads a file and deserialization data
func Read(filename string, c interface{}) error {
	b, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	return yml.Unmarshal(b, c)
}

func (y *yaml) watcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, filename := range y.filenames {
		if err := watcher.Add(filename); err != nil {
			return err
		}
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Write == fsnotify.Write {
				select {
				case y.informer <- struct{}{}:
				default:
				}

				y.logger.Info("yaml", zap.String("event", "watcher.write"), zap.String("name", event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			y.logger.Error("yaml", zap.String("event", "watcher.loop"), zap.Error(err))
		}
	}
}
