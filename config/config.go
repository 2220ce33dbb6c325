//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package config

import "go.uber.org/zap"

// Config represents eureka client configuration.
// the configuration is fully assembled by the provider
// (yaml, consul or etcd) before the client is constructed.
type Config interface {
	Instance() *Instance
	Registry() *Registry
	Global() *Global
	Informer() chan struct{}
	Logger() *zap.Logger
	Update() error
}

// Instance represents the local instance registration configuration.
type Instance struct {
	App              string `yaml:"app" json:"app"`
	VipAddress       string `yaml:"vipAddress" json:"vipAddress"`
	SecureVipAddress string `yaml:"secureVipAddress" json:"secureVipAddress"`
	InstanceID       string `yaml:"instanceId" json:"instanceId"`
	HostName         string `yaml:"hostName" json:"hostName"`
	IPAddr           string `yaml:"ipAddr" json:"ipAddr"`
	Port             int    `yaml:"port" json:"port"`
	SecurePort       int    `yaml:"securePort" json:"securePort"`
	PreferIPAddress  bool   `yaml:"preferIpAddress" json:"preferIpAddress"`

	DataCenterInfo DataCenterInfo `yaml:"dataCenterInfo" json:"dataCenterInfo"`

	StatusPageURL  string `yaml:"statusPageUrl" json:"statusPageUrl"`
	HealthCheckURL string `yaml:"healthCheckUrl" json:"healthCheckUrl"`
	HomePageURL    string `yaml:"homePageUrl" json:"homePageUrl"`

	Metadata map[string]string `yaml:"metadata" json:"metadata"`
}

// DataCenterInfo represents the datacenter descriptor.
type DataCenterInfo struct {
	Class    string            `yaml:"class" json:"class"`
	Name     string            `yaml:"name" json:"name"`
	Metadata map[string]string `yaml:"metadata" json:"metadata"`
}

// Registry represents the registry server and client behaviour configuration.
type Registry struct {
	Host        string `yaml:"host" json:"host"`
	Port        int    `yaml:"port" json:"port"`
	ServicePath string `yaml:"servicePath" json:"servicePath" split_words:"true"`
	SSL         bool   `yaml:"ssl" json:"ssl"`

	UseDNS    bool   `yaml:"useDns" json:"useDns" split_words:"true"`
	Region    string `yaml:"region" json:"region"`
	DNSServer string `yaml:"dnsServer" json:"dnsServer" split_words:"true"`

	HeartbeatInterval     int `yaml:"heartbeatInterval" json:"heartbeatInterval" split_words:"true"`
	RegistryFetchInterval int `yaml:"registryFetchInterval" json:"registryFetchInterval" split_words:"true"`

	FetchRegistry      *bool  `yaml:"fetchRegistry" json:"fetchRegistry" split_words:"true"`
	RegisterWithEureka *bool  `yaml:"registerWithEureka" json:"registerWithEureka" split_words:"true"`
	FetchMetadata      *bool  `yaml:"fetchMetadata" json:"fetchMetadata" split_words:"true"`
	UseLocalMetadata   bool   `yaml:"useLocalMetadata" json:"useLocalMetadata" split_words:"true"`
	FilterUpInstances  bool   `yaml:"filterUpInstances" json:"filterUpInstances" split_words:"true"`
	MetadataService    string `yaml:"metadataService" json:"metadataService" split_words:"true"`

	Username  string    `yaml:"username" json:"username"`
	Password  string    `yaml:"password" json:"password"`
	TLSConfig TLSConfig `yaml:"tlsConfig" json:"tlsConfig" split_words:"true"`
}

// Global represents global configuration.
type Global struct {
	Version string                 `yaml:"-" json:"-"`
	Logger  map[string]interface{} `yaml:"logger" json:"logger" ignored:"true"`
	Status  Status                 `yaml:"status" json:"status"`
}

// TLSConfig represents TLS configuration.
type TLSConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	InsecureSkipVerify bool   `yaml:"insecureSkipVerify" json:"insecureSkipVerify" split_words:"true"`
	CertFile           string `yaml:"certFile" json:"certFile" split_words:"true"`
	KeyFile            string `yaml:"keyFile" json:"keyFile" split_words:"true"`
	CAFile             string `yaml:"caFile" json:"caFile" split_words:"true"`
}

// Status represents status and metrics server configuration.
type Status struct {
	Addr     string `yaml:"addr" json:"addr"`
	Disabled bool   `yaml:"disabled" json:"disabled"`
}

// IsAmazon returns true if the instance runs on Amazon datacenter.
func (i *Instance) IsAmazon() bool {
	return i.DataCenterInfo.Name == DataCenterAmazon
}

// ShouldFetchRegistry returns fetch registry flag, true if it's not set.
func (r *Registry) ShouldFetchRegistry() bool {
	return boolDefault(r.FetchRegistry, true)
}

// ShouldRegister returns register with eureka flag, true if it's not set.
func (r *Registry) ShouldRegister() bool {
	return boolDefault(r.RegisterWithEureka, true)
}

// ShouldFetchMetadata returns fetch metadata flag, true if it's not set.
func (r *Registry) ShouldFetchMetadata() bool {
	return boolDefault(r.FetchMetadata, true)
}

func boolDefault(b *bool, d bool) bool {
	if b == nil {
		return d
	}

	return *b
}
