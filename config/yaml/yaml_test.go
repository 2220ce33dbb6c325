//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package yaml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yahoo/eureka-client/config"
)

var defaultsContent = `
watcherDisabled: true
instance:
  app: orders
  vipAddress: orders.vip
  hostName: host1.local
  port: 8080
  metadata:
    team: payments
registry:
  host: eureka.local
  port: 8761
  fetchRegistry: false
status:
  addr: 127.0.0.1:9081
`

var overrideContent = `
instance:
  port: 9090
  metadata:
    zone: us-east-1a
registry:
  heartbeatInterval: 5000
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	filename := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))

	return filename
}

func TestNew(t *testing.T) {
	filename := writeFile(t, "eureka.yaml", defaultsContent)

	cfg, err := New(filename)
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.Instance().App)
	assert.Equal(t, "orders.vip", cfg.Instance().VipAddress)
	assert.Equal(t, 8080, cfg.Instance().Port)
	assert.Equal(t, config.DataCenterMyOwn, cfg.Instance().DataCenterInfo.Name)
	assert.Equal(t, "eureka.local", cfg.Registry().Host)
	assert.Equal(t, "/eureka/v2/apps/", cfg.Registry().ServicePath)
	assert.Equal(t, 30000, cfg.Registry().HeartbeatInterval)
	assert.False(t, cfg.Registry().ShouldFetchRegistry())
	assert.True(t, cfg.Registry().ShouldRegister())
	assert.Equal(t, "127.0.0.1:9081", cfg.Global().Status.Addr)
	assert.Equal(t, config.GetVersion(), cfg.Global().Version)
	assert.NotNil(t, cfg.Logger())
	assert.NotNil(t, cfg.Informer())
}

func TestNewMergeFiles(t *testing.T) {
	defaults := writeFile(t, "eureka.yaml", defaultsContent)
	override := writeFile(t, "eureka-production.yaml", overrideContent)

	cfg, err := New(defaults, override)
	require.NoError(t, err)

	assert.Equal(t, "orders", cfg.Instance().App)
	assert.Equal(t, 9090, cfg.Instance().Port)
	assert.Equal(t, "payments", cfg.Instance().Metadata["team"])
	assert.Equal(t, "us-east-1a", cfg.Instance().Metadata["zone"])
	assert.Equal(t, 5000, cfg.Registry().HeartbeatInterval)
	assert.Equal(t, "eureka.local", cfg.Registry().Host)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("EUREKA_REGISTRY_HOST", "eureka.env")
	t.Setenv("EUREKA_REGISTRY_USE_DNS", "true")
	t.Setenv("EUREKA_INSTANCE_PORT", "7070")

	filename := writeFile(t, "eureka.yaml", defaultsContent)

	cfg, err := New(filename)
	require.NoError(t, err)

	assert.Equal(t, "eureka.env", cfg.Registry().Host)
	assert.True(t, cfg.Registry().UseDNS)
	assert.Equal(t, 7070, cfg.Instance().Port)
}

func TestNewErrors(t *testing.T) {
	_, err := New()
	assert.Error(t, err)

	_, err = New("/not/exist.yaml")
	assert.Error(t, err)

	filename := writeFile(t, "bad.yaml", "instance: [")
	_, err = New(filename)
	assert.Error(t, err)
}

func TestUpdate(t *testing.T) {
	filename := writeFile(t, "eureka.yaml", defaultsContent)

	cfg, err := New(filename)
	require.NoError(t, err)

	content := `
watcherDisabled: true
instance:
  app: billing
  vipAddress: billing.vip
  hostName: host1.local
  port: 8080
registry:
  host: eureka.local
  port: 8761
`
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	require.NoError(t, cfg.Update())

	assert.Equal(t, "billing", cfg.Instance().App)
}

func TestWatcher(t *testing.T) {
	content := `
instance:
  app: orders
registry:
  host: eureka.local
`
	filename := writeFile(t, "eureka.yaml", content)

	cfg, err := New(filename)
	require.NoError(t, err)

	// make sure watcher is ready
	time.Sleep(300 * time.Millisecond)

	require.NoError(t, os.WriteFile(filename, []byte(content+"\n"), 0644))

	select {
	case <-cfg.Informer():
	case <-time.After(5 * time.Second):
		assert.Fail(t, "watcher didn't notify")
	}
}
