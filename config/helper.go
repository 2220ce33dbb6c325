//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// DataCenterAmazon is the Amazon datacenter name
	DataCenterAmazon = "Amazon"
	// DataCenterMyOwn is the default datacenter name
	DataCenterMyOwn = "MyOwn"

	defaultServicePath           = "/eureka/v2/apps/"
	defaultHeartbeatInterval     = 30000
	defaultRegistryFetchInterval = 30000
	defaultMetadataService       = "aws"
	defaultStatusAddr            = "127.0.0.1:8081"
)

var version = "0.1.0"

// GetVersion returns eureka client version.
func GetVersion() string {
	return version
}

// GetLogger tries to create a zap logger based on the user configuration
func GetLogger(lcfg map[string]interface{}) *zap.Logger {
	var cfg zap.Config
	if len(lcfg) < 1 {
		return GetDefaultLogger()
	}

	b, err := json.Marshal(lcfg)
	if err != nil {
		return GetDefaultLogger()
	}

	if err := json.Unmarshal(b, &cfg); err != nil {
		return GetDefaultLogger()
	}

	cfg.EncoderConfig = zap.NewProductionEncoderConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = nil
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		return GetDefaultLogger()
	}

	return logger
}

// GetDefaultLogger creates default zap logger
func GetDefaultLogger() *zap.Logger {
	var cfg = zap.Config{
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		Encoding:         "console",
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeCaller = nil
	cfg.DisableStacktrace = true

	logger, err := cfg.Build()
	if err != nil {
		panic(err)
	}

	return logger
}

// SetDefault sets value if the variable has zero value
func SetDefault(v interface{}, d interface{}) {
	switch v := v.(type) {
	case *int:
		if *v == 0 {
			*v = d.(int)
		}
	case *string:
		if *v == "" {
			*v = d.(string)
		}
	}
}

// SetDefaultInstance sets instance default values
func SetDefaultInstance(i *Instance) {
	SetDefault(&i.DataCenterInfo.Name, DataCenterMyOwn)

	if i.Metadata == nil {
		i.Metadata = make(map[string]string)
	}

	if i.DataCenterInfo.Metadata == nil {
		i.DataCenterInfo.Metadata = make(map[string]string)
	}
}

// SetDefaultRegistry sets registry default values
func SetDefaultRegistry(r *Registry) {
	SetDefault(&r.ServicePath, defaultServicePath)
	SetDefault(&r.HeartbeatInterval, defaultHeartbeatInterval)
	SetDefault(&r.RegistryFetchInterval, defaultRegistryFetchInterval)
	SetDefault(&r.MetadataService, defaultMetadataService)
}

// SetDefaultGlobal sets global default value
func SetDefaultGlobal(g *Global) {
	g.Version = GetVersion()

	SetDefault(&g.Status.Addr, defaultStatusAddr)
}

// Validate validates instance and registry configuration.
// it reports all missing fields at once.
func Validate(i *Instance, r *Registry) error {
	if i == nil || r == nil {
		return errors.New("instance and registry configuration are required")
	}

	return multierr.Append(InstanceValidation(i, r), RegistryValidation(r))
}

// InstanceValidation validates configured instance
func InstanceValidation(i *Instance, r *Registry) error {
	var err error

	if i.App == "" {
		err = multierr.Append(err, missing("instance.app"))
	}

	if i.VipAddress == "" {
		err = multierr.Append(err, missing("instance.vipAddress"))
	}

	if i.Port < 1 {
		err = multierr.Append(err, missing("instance.port"))
	}

	if i.DataCenterInfo.Name == "" {
		err = multierr.Append(err, missing("instance.dataCenterInfo.name"))
	}

	// amazon instances get the instance id and hostname from metadata
	if i.InstanceID == "" && i.HostName == "" &&
		!(i.IsAmazon() && r.ShouldFetchMetadata()) {
		err = multierr.Append(err, missing("instance.instanceId or instance.hostName"))
	}

	return err
}

// RegistryValidation validates configured registry
func RegistryValidation(r *Registry) error {
	var err error

	if r.Host == "" {
		err = multierr.Append(err, missing("registry.host"))
	}

	if r.Port < 1 {
		err = multierr.Append(err, missing("registry.port"))
	}

	if r.UseDNS && r.Region == "" {
		err = multierr.Append(err, missing("registry.region"))
	}

	if r.HeartbeatInterval < 0 || r.RegistryFetchInterval < 0 {
		err = multierr.Append(err, errors.New("registry intervals can not be negative"))
	}

	return err
}

func missing(field string) error {
	return fmt.Errorf("missing required configuration: %s", field)
}
