package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.DevicePort)
	assert.Equal(t, 8082, cfg.Server.MediaPort)
	assert.Equal(t, "239.255.255.250:3702", cfg.Discovery.MulticastAddress)
	assert.True(t, cfg.Discovery.Enabled)
	assert.Equal(t, time.Duration(0), cfg.Events.SubscriptionTTL.Std())
	assert.Equal(t, 10*time.Second, cfg.Events.DeliveryTimeout.Std())
	assert.Empty(t, cfg.Devices)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: debug
server:
  device_port: 9081
events:
  subscription_ttl: 1h
  delivery_timeout: 2s
devices:
  - id: cam-1
    uuid: a0f3b9e2-4c61-4d6e-9d5a-000000000001
    name: Front Door
    main_stream_url: rtsp://cam/main
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 9081, cfg.Server.DevicePort)
	// Untouched fields keep their defaults.
	assert.Equal(t, 8082, cfg.Server.MediaPort)
	assert.Equal(t, time.Hour, cfg.Events.SubscriptionTTL.Std())
	assert.Equal(t, 2*time.Second, cfg.Events.DeliveryTimeout.Std())

	require.Len(t, cfg.Devices, 1)
	assert.Equal(t, "cam-1", cfg.Devices[0].ID)
	assert.Equal(t, "rtsp://cam/main", cfg.Devices[0].MainStreamURL)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("events:\n  delivery_timeout: soon\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
