// Package config loads the engine configuration from YAML, applying
// defaults so the engine also runs with no file at all.
package config

import (
	"os"
	"time"

	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/virtcam/virtcam/internal/camera"
)

// Duration is a time.Duration that unmarshals from YAML strings like "10s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return errors.Trace(err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return errors.Annotatef(err, "invalid duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full engine configuration.
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Events    EventsConfig    `yaml:"events"`

	// Devices seeds the registry at start-up. At runtime the external
	// configuration layer owns record lifecycle through the registry API.
	Devices []camera.Device `yaml:"devices"`
}

// LogConfig controls zerolog output.
type LogConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig holds the listening ports. Device and event services share
// one port; media runs on its own, matching the addresses advertised in
// GetCapabilities.
type ServerConfig struct {
	DevicePort int `yaml:"device_port"`
	MediaPort  int `yaml:"media_port"`
	APIPort    int `yaml:"api_port"`
}

// DiscoveryConfig controls the WS-Discovery responder.
type DiscoveryConfig struct {
	Enabled          bool   `yaml:"enabled"`
	MulticastAddress string `yaml:"multicast_address"`
}

// EventsConfig controls the notification dispatcher.
type EventsConfig struct {
	// SubscriptionTTL bounds subscriber lifetime. Zero keeps subscriptions
	// until an explicit Unsubscribe.
	SubscriptionTTL Duration `yaml:"subscription_ttl"`

	// DeliveryTimeout applies independently to each notification POST.
	DeliveryTimeout Duration `yaml:"delivery_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info"},
		Server: ServerConfig{
			DevicePort: 8081,
			MediaPort:  8082,
			APIPort:    8080,
		},
		Discovery: DiscoveryConfig{
			Enabled:          true,
			MulticastAddress: "239.255.255.250:3702",
		},
		Events: EventsConfig{
			SubscriptionTTL: 0,
			DeliveryTimeout: Duration(10 * time.Second),
		},
	}
}

// Load reads the configuration file at path over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Annotate(err, "reading config file")
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Annotate(err, "parsing config file")
	}
	return cfg, nil
}
