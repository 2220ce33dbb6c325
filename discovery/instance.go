//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package discovery

// Instance represents an instance registration document.
// it's used for the local instance and the peers as well.
type Instance struct {
	InstanceID       string `json:"instanceId,omitempty"`
	HostName         string `json:"hostName"`
	App              string `json:"app"`
	IPAddr           string `json:"ipAddr"`
	VipAddress       string `json:"vipAddress"`
	SecureVipAddress string `json:"secureVipAddress,omitempty"`
	Status           Status `json:"status"`

	Port       *Port `json:"port,omitempty"`
	SecurePort *Port `json:"securePort,omitempty"`

	HomePageURL    string `json:"homePageUrl,omitempty"`
	StatusPageURL  string `json:"statusPageUrl,omitempty"`
	HealthCheckURL string `json:"healthCheckUrl,omitempty"`

	DataCenterInfo DataCenterInfo `json:"dataCenterInfo"`
	Metadata       Metadata       `json:"metadata,omitempty"`
}

// DataCenterInfo represents datacenter descriptor.
type DataCenterInfo struct {
	Class    string   `json:"@class"`
	Name     string   `json:"name"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the instance.
func (i *Instance) Clone() *Instance {
	c := *i

	if i.Port != nil {
		p := *i.Port
		c.Port = &p
	}

	if i.SecurePort != nil {
		p := *i.SecurePort
		c.SecurePort = &p
	}

	if i.Metadata != nil {
		c.Metadata = MergeMetadata(i.Metadata, nil)
	}

	if i.DataCenterInfo.Metadata != nil {
		c.DataCenterInfo.Metadata = MergeMetadata(i.DataCenterInfo.Metadata, nil)
	}

	return &c
}
