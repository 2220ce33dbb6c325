//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package eureka

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/yahoo/eureka-client/discovery"
	"github.com/yahoo/eureka-client/status"
)

const registerTimeout = 5 * time.Second

// State represents the registration state.
type State int32

const (
	StateUnregistered State = iota
	StateRegistering
	StateRegistered
	StateDeregistered
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "UNREGISTERED"
	case StateRegistering:
		return "REGISTERING"
	case StateRegistered:
		return "REGISTERED"
	case StateDeregistered:
		return "DEREGISTERED"
	}

	return "UNKNOWN"
}

// Register sets the instance status to UP and registers it.
// the registry responds 204 on success.
func (c *Client) Register(ctx context.Context) (err error) {
	c.setState(StateRegistering)
	instance := c.setStatus(discovery.StatusUp)

	defer func() {
		c.metrics.Registration(err)
		if err != nil {
			c.setState(StateUnregistered)
		}
	}()

	body, err := json.Marshal(discovery.Registration{Instance: instance})
	if err != nil {
		return err
	}

	// advisory only, it doesn't cancel the request
	timer := c.clk.AfterFunc(registerTimeout, func() {
		c.logger.Warn("eureka", zap.String("event", "register.timeout"),
			zap.String("app", instance.App), zap.Duration("timeout", registerTimeout))
	})
	defer timer.Stop()

	code, respBody, err := c.request(ctx, http.MethodPost, appPath(instance), body)
	if err != nil {
		return fmt.Errorf("eureka registration failed: %w", err)
	}

	if code != http.StatusNoContent {
		return &StatusError{Op: "registration", Code: code, Body: string(respBody)}
	}

	c.setState(StateRegistered)
	c.logger.Info("eureka", zap.String("event", "register"), zap.String("app", instance.App), zap.String("id", instance.InstanceID))

	return nil
}

// Renew sends a heartbeat. the registry responds 404 when it
// doesn't have the registration and then the instance is
// registered again. other failures wait for the next tick.
func (c *Client) Renew(ctx context.Context) {
	instance := c.Instance()

	code, body, err := c.request(ctx, http.MethodPut, instancePath(instance), nil)
	if err != nil {
		c.metrics.Heartbeat(status.ResultFailure)
		c.logger.Error("eureka", zap.String("event", "heartbeat"), zap.Error(err))
		return
	}

	switch code {
	case http.StatusOK:
		c.metrics.Heartbeat(status.ResultSuccess)
		c.logger.Debug("eureka", zap.String("event", "heartbeat"), zap.String("id", instance.InstanceID))
	case http.StatusNotFound:
		c.metrics.Heartbeat(status.ResultNotFound)
		c.logger.Warn("eureka", zap.String("event", "heartbeat.not_found"), zap.String("id", instance.InstanceID))

		if err := c.Register(ctx); err != nil {
			c.logger.Error("eureka", zap.String("event", "reregister"), zap.Error(err))
		}
	default:
		c.metrics.Heartbeat(status.ResultFailure)
		c.logger.Warn("eureka", zap.String("event", "heartbeat"), zap.Int("status", code), zap.ByteString("body", body))
	}
}

// Deregister removes the instance from the registry.
// the registry responds 200 on success.
func (c *Client) Deregister(ctx context.Context) (err error) {
	instance := c.Instance()

	defer func() { c.metrics.Deregistration(err) }()

	code, body, err := c.request(ctx, http.MethodDelete, instancePath(instance), nil)
	if err != nil {
		return fmt.Errorf("eureka deregistration failed: %w", err)
	}

	if code != http.StatusOK {
		return &StatusError{Op: "deregistration", Code: code, Body: string(body)}
	}

	c.setState(StateDeregistered)
	c.logger.Info("eureka", zap.String("event", "deregister"), zap.String("app", instance.App), zap.String("id", instance.InstanceID))

	return nil
}

// State returns the registration state.
func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Client) setStatus(s discovery.Status) *discovery.Instance {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.instance.Status = s

	return c.instance.Clone()
}

func appPath(i *discovery.Instance) string {
	return "/" + url.PathEscape(i.App)
}

func instancePath(i *discovery.Instance) string {
	return appPath(i) + "/" + url.PathEscape(i.InstanceID)
}
