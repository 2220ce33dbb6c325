//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package metadata

import "context"

// Provider represents a cloud metadata provider.
type Provider interface {
	Fetch(ctx context.Context) (*Metadata, error)
}

// Metadata represents the instance metadata.
// Raw is merged to the datacenter metadata as it is.
type Metadata struct {
	PublicHostname string
	PublicIPv4     string
	LocalHostname  string
	LocalIPv4      string

	Raw map[string]string
}

// Hostname returns public or local hostname and ip address.
// the public values fall back to the local values when the
// instance doesn't have them, e.g. private subnets.
func (m *Metadata) Hostname(useLocal bool) (string, string) {
	if useLocal {
		return m.LocalHostname, m.LocalIPv4
	}

	hostname, ip := m.PublicHostname, m.PublicIPv4
	if hostname == "" {
		hostname = m.LocalHostname
	}

	if ip == "" {
		ip = m.LocalIPv4
	}

	return hostname, ip
}

// ProviderFunc is an adapter to use ordinary functions as Provider.
type ProviderFunc func(ctx context.Context) (*Metadata, error)

// Fetch calls f(ctx).
func (f ProviderFunc) Fetch(ctx context.Context) (*Metadata, error) {
	return f(ctx)
}
