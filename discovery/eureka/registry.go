//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package eureka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/yahoo/eureka-client/discovery"
)

// registryIndex represents the local registry cache, both
// maps are built from the same fetch and swapped together.
type registryIndex struct {
	app map[string][]discovery.Instance
	vip map[string][]discovery.Instance
}

func newRegistryIndex() *registryIndex {
	return &registryIndex{
		app: make(map[string][]discovery.Instance),
		vip: make(map[string][]discovery.Instance),
	}
}

// FetchRegistry fetches all applications and replaces the local
// registry cache. the previous cache is kept on any failure.
func (c *Client) FetchRegistry(ctx context.Context) (err error) {
	defer func() { c.metrics.Fetch(err) }()

	code, body, err := c.request(ctx, http.MethodGet, "", nil)
	if err != nil {
		return fmt.Errorf("eureka fetch registry failed: %w", err)
	}

	if code != http.StatusOK {
		return &StatusError{Op: "fetch registry", Code: code, Body: string(body)}
	}

	index, err := c.transformRegistry(body)
	if err != nil {
		return err
	}

	c.index.Store(index)

	var instances int
	for _, v := range index.app {
		instances += len(v)
	}

	c.metrics.Registry(len(index.app), instances)
	c.logger.Debug("eureka", zap.String("event", "fetch"), zap.Int("applications", len(index.app)), zap.Int("instances", instances))

	c.notify()

	return nil
}

func (c *Client) transformRegistry(body []byte) (*registryIndex, error) {
	if len(bytes.TrimSpace(body)) < 1 {
		return nil, fmt.Errorf("%w: empty body", ErrRegistryMalformed)
	}

	registry := discovery.Registry{}
	if err := json.Unmarshal(body, &registry); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRegistryMalformed, err)
	}

	if registry.Applications == nil {
		return nil, fmt.Errorf("%w: applications not found", ErrRegistryMalformed)
	}

	index := newRegistryIndex()
	for _, app := range registry.Applications.Application {
		c.transformApp(app, index)
	}

	return index, nil
}

// transformApp adds the application instances to the index.
// the vip key comes from the first instance even if the other
// instances have different vip addresses.
func (c *Client) transformApp(app discovery.Application, index *registryIndex) {
	instances := make([]discovery.Instance, 0, len(app.Instance))
	for _, instance := range app.Instance {
		if c.registry.FilterUpInstances && instance.Status != discovery.StatusUp {
			continue
		}

		instances = append(instances, instance)
	}

	if len(instances) < 1 {
		return
	}

	// repeated application names and shared VIPs accumulate
	// instances instead of the later application replacing them.
	name := strings.ToUpper(app.Name)
	index.app[name] = append(index.app[name], instances...)

	if vip := instances[0].VipAddress; vip != "" {
		index.vip[vip] = append(index.vip[vip], instances...)
	}
}

// GetInstancesByAppID returns the application instances, the
// application id is case-insensitive.
func (c *Client) GetInstancesByAppID(appID string) ([]discovery.Instance, error) {
	if appID == "" {
		return nil, fmt.Errorf("%w: application id is required", ErrInvalidArgument)
	}

	instances, ok := c.index.Load().app[strings.ToUpper(appID)]
	if !ok {
		c.logger.Warn("eureka", zap.String("event", "lookup.app"), zap.String("app", appID), zap.String("error", "not found"))
		return nil, nil
	}

	return slices.Clone(instances), nil
}

// GetInstancesByVipAddress returns the instances of the vip address.
func (c *Client) GetInstancesByVipAddress(vipAddress string) ([]discovery.Instance, error) {
	if vipAddress == "" {
		return nil, fmt.Errorf("%w: vip address is required", ErrInvalidArgument)
	}

	instances, ok := c.index.Load().vip[vipAddress]
	if !ok {
		c.logger.Warn("eureka", zap.String("event", "lookup.vip"), zap.String("vip", vipAddress), zap.String("error", "not found"))
		return nil, nil
	}

	return slices.Clone(instances), nil
}

// Watch notifies the channel after each registry cache update.
// slow receivers miss notifications.
func (c *Client) Watch(ch chan<- struct{}) {
	c.watchersLock.Lock()
	defer c.watchersLock.Unlock()

	c.watchers = append(c.watchers, ch)
}

func (c *Client) notify() {
	c.watchersLock.Lock()
	defer c.watchersLock.Unlock()

	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
			c.logger.Debug("eureka", zap.String("event", "watcher.response.dropped"))
		}
	}
}
