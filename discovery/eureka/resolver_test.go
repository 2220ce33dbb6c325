//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package eureka

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/eureka-client/config"
)

// startDNS runs a stub dns server which answers TXT queries
// from the records, unknown names get NXDOMAIN.
func startDNS(t *testing.T, records map[string][]string) string {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	server := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)

			q := r.Question[0]
			values, ok := records[q.Name]
			if !ok {
				m.SetRcode(r, dns.RcodeNameError)
				w.WriteMsg(m)
				return
			}

			for _, v := range values {
				m.Answer = append(m.Answer, &dns.TXT{
					Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeTXT, Class: dns.ClassINET, Ttl: 60},
					Txt: []string{v},
				})
			}

			w.WriteMsg(m)
		}),
	}

	go server.ActivateAndServe()
	<-started

	t.Cleanup(func() { server.Shutdown() })

	return pc.LocalAddr().String()
}

func dnsConfig() *config.MockConfig {
	cfg := config.NewMockConfig()
	cfg.MInstance = &config.Instance{
		App:            "orders",
		VipAddress:     "orders.vip",
		HostName:       "orders-1.local",
		Port:           8080,
		DataCenterInfo: config.DataCenterInfo{Name: config.DataCenterAmazon},
	}
	cfg.MRegistry = &config.Registry{
		Host:        "eureka.example.com",
		Port:        7001,
		ServicePath: "/eureka/v2/apps/",
		UseDNS:      true,
		Region:      "us-east-1",
	}

	return cfg
}

func TestResolveHostDNS(t *testing.T) {
	addr := startDNS(t, map[string][]string{
		"txt.us-east-1.eureka.example.com.":  {"us-east-1a.eureka.example.com us-east-1c.eureka.example.com"},
		"txt.us-east-1a.eureka.example.com.": {"ec2-50-1-1-1.compute-1.amazonaws.com"},
		"txt.us-east-1c.eureka.example.com.": {"ec2-50-1-1-1.compute-1.amazonaws.com ec2-50-2-2-2.compute-1.amazonaws.com"},
	})

	c, _ := newTestClient(t, dnsConfig(), WithDNSServer(addr))

	for i := 0; i < 5; i++ {
		host, err := c.ResolveHost(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ec2-50-1-1-1.compute-1.amazonaws.com", host)
	}

	base, err := c.BuildBaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://ec2-50-1-1-1.compute-1.amazonaws.com:7001/eureka/v2/apps", base)
}

func TestResolveHostDNSMultipleAnswers(t *testing.T) {
	addr := startDNS(t, map[string][]string{
		"txt.eu-west-1.eureka.example.com.":  {"eu-west-1a.eureka.example.com", "eu-west-1b.eureka.example.com"},
		"txt.eu-west-1a.eureka.example.com.": {"eureka-a.example.com"},
		"txt.eu-west-1b.eureka.example.com.": {"eureka-b.example.com"},
	})

	cfg := dnsConfig()
	cfg.MRegistry.Region = "eu-west-1"

	c, _ := newTestClient(t, cfg, WithDNSServer(addr))

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		host, err := c.ResolveHost(context.Background())
		require.NoError(t, err)
		seen[host] = true
	}

	assert.Subset(t, []string{"eureka-a.example.com", "eureka-b.example.com"}, keys(seen))
}

func TestResolveHostDNSFailure(t *testing.T) {
	addr := startDNS(t, map[string][]string{
		"txt.us-east-1.eureka.example.com.": {"us-east-1a.eureka.example.com"},
		"txt.us-west-2.eureka.example.com.": {"   "},
	})

	// the zone record doesn't exist
	c, _ := newTestClient(t, dnsConfig(), WithDNSServer(addr))
	_, err := c.ResolveHost(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "txt.us-east-1a.eureka.example.com")

	// no fallback to the configured host
	_, err = c.BuildBaseURL(context.Background())
	assert.Error(t, err)

	cfg := dnsConfig()
	cfg.MRegistry.Region = "eu-central-1"
	c, _ = newTestClient(t, cfg, WithDNSServer(addr))
	_, err = c.ResolveHost(context.Background())
	assert.Contains(t, err.Error(), "NXDOMAIN")

	cfg.MRegistry.Region = "us-west-2"
	c, _ = newTestClient(t, cfg, WithDNSServer(addr))
	_, err = c.ResolveHost(context.Background())
	assert.True(t, errors.Is(err, ErrNoDNSRecords))
}

func TestResolveHostStatic(t *testing.T) {
	cfg := dnsConfig()
	cfg.MRegistry.UseDNS = false

	c, _ := newTestClient(t, cfg)

	host, err := c.ResolveHost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eureka.example.com", host)

	// dns mode is only for amazon
	cfg = dnsConfig()
	cfg.MInstance.DataCenterInfo.Name = config.DataCenterMyOwn
	c, _ = newTestClient(t, cfg)

	host, err = c.ResolveHost(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eureka.example.com", host)
}

func TestBuildBaseURL(t *testing.T) {
	cfg := dnsConfig()
	cfg.MRegistry.UseDNS = false
	cfg.MRegistry.SSL = true
	cfg.MRegistry.ServicePath = "/eureka/apps"

	c, _ := newTestClient(t, cfg)

	base, err := c.BuildBaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://eureka.example.com:7001/eureka/apps", base)
}

func keys(m map[string]bool) []string {
	var k []string
	for key := range m {
		k = append(k, key)
	}

	return k
}
