//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package eureka

import (
	"context"
	"fmt"
	"math/rand"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"
	"go.uber.org/zap"
)

const (
	dnsTimeout   = 5 * time.Second
	resolverFile = "/etc/resolv.conf"
)

// ResolveHost returns the registry server host. Amazon instances
// with dns discovery query txt.<region>.<host> for the zone records,
// pick one of them randomly and query txt.<record> for the server.
// there is no fallback to the configured host in dns mode.
func (c *Client) ResolveHost(ctx context.Context) (string, error) {
	if !c.instanceCfg.IsAmazon() || !c.registry.UseDNS {
		return c.registry.Host, nil
	}

	zone := fmt.Sprintf("txt.%s.%s", c.registry.Region, c.registry.Host)
	answers, err := c.lookupTXT(ctx, zone)
	if err != nil {
		return "", err
	}

	var records []string
	for _, a := range answers {
		records = append(records, strings.Fields(a)...)
	}

	if len(records) < 1 {
		return "", fmt.Errorf("%w: %s", ErrNoDNSRecords, zone)
	}

	record := records[rand.Intn(len(records))]

	answers, err = c.lookupTXT(ctx, "txt."+record)
	if err != nil {
		return "", err
	}

	host := strings.Fields(answers[0])
	if len(host) < 1 {
		return "", fmt.Errorf("%w: txt.%s", ErrNoDNSRecords, record)
	}

	c.logger.Debug("eureka", zap.String("event", "resolve.dns"), zap.String("record", record), zap.String("host", host[0]))

	return host[0], nil
}

// BuildBaseURL returns the registry base url without trailing slash.
func (c *Client) BuildBaseURL(ctx context.Context) (string, error) {
	host, err := c.ResolveHost(ctx)
	if err != nil {
		return "", err
	}

	scheme := "http"
	if c.registry.SSL {
		scheme = "https"
	}

	addr := net.JoinHostPort(host, strconv.Itoa(c.registry.Port))

	return strings.TrimSuffix(scheme+"://"+addr+c.registry.ServicePath, "/"), nil
}

// lookupTXT returns the TXT answers, the strings of each answer are joined.
func (c *Client) lookupTXT(ctx context.Context, name string) ([]string, error) {
	server, err := c.nameserver()
	if err != nil {
		return nil, err
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)

	client := &dns.Client{Timeout: dnsTimeout}
	resp, _, err := client.ExchangeContext(ctx, m, server)
	if err != nil {
		return nil, fmt.Errorf("dns query %s: %w", name, err)
	}

	if resp.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("dns query %s: %s", name, dns.RcodeToString[resp.Rcode])
	}

	var answers []string
	for _, rr := range resp.Answer {
		if txt, ok := rr.(*dns.TXT); ok {
			answers = append(answers, strings.Join(txt.Txt, ""))
		}
	}

	if len(answers) < 1 {
		return nil, fmt.Errorf("%w: %s", ErrNoDNSRecords, name)
	}

	return answers, nil
}

func (c *Client) nameserver() (string, error) {
	if c.dnsServer != "" {
		return c.dnsServer, nil
	}

	conf, err := dns.ClientConfigFromFile(resolverFile)
	if err != nil {
		return "", err
	}

	if len(conf.Servers) < 1 {
		return "", fmt.Errorf("no nameserver found at %s", resolverFile)
	}

	return net.JoinHostPort(conf.Servers[0], conf.Port), nil
}
