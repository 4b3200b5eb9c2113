// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultBrokerURL      = "ws://127.0.0.1:10000/broker"
	DefaultDialTimeout    = 10 * time.Second
	DefaultBus            = "session"
	DefaultBusPrefix      = "org.migui"
	DefaultBusPathPrefix  = "/org/migui"
	DefaultLogFormat      = "text"
	DefaultReconnectRate  = 0.2
	DefaultReconnectBurst = 1
	DefaultRefresh        = 30 * time.Second
)

// Config represents the migui configuration.
type Config struct {
	Broker    BrokerConfig    `toml:"broker"`
	Log       LogConfig       `toml:"log"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Reconnect ReconnectConfig `toml:"reconnect"`
	UI        UIConfig        `toml:"ui"`
}

// BrokerConfig holds the broker endpoints.
type BrokerConfig struct {
	URL         string            `toml:"url"`          // websocket endpoint
	DialTimeout Duration          `toml:"dial_timeout"` // handshake timeout
	Headers     map[string]string `toml:"headers"`      // extra handshake headers
	DBus        DBusConfig        `toml:"dbus"`
}

// DBusConfig holds the D-Bus transport naming.
type DBusConfig struct {
	Bus        string `toml:"bus"` // session, system or a bus address
	Prefix     string `toml:"prefix"`
	PathPrefix string `toml:"path_prefix"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Format string `toml:"format"` // text, json
}

// MetricsConfig holds the metrics listener. An empty address disables it.
type MetricsConfig struct {
	Addr string `toml:"addr"`
}

// ReconnectConfig throttles re-bootstrapping in watch mode.
type ReconnectConfig struct {
	Rate  float64 `toml:"rate"` // attempts per second
	Burst int     `toml:"burst"`
}

// UIConfig holds TUI settings.
type UIConfig struct {
	Refresh Duration `toml:"refresh"` // device table refresh, 0 = manual only
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			URL:         DefaultBrokerURL,
			DialTimeout: Duration(DefaultDialTimeout),
			Headers:     make(map[string]string),
			DBus: DBusConfig{
				Bus:        DefaultBus,
				Prefix:     DefaultBusPrefix,
				PathPrefix: DefaultBusPathPrefix,
			},
		},
		Log: LogConfig{
			Format: DefaultLogFormat,
		},
		Reconnect: ReconnectConfig{
			Rate:  DefaultReconnectRate,
			Burst: DefaultReconnectBurst,
		},
		UI: UIConfig{
			Refresh: Duration(DefaultRefresh),
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "migui", "config.toml")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path atomically.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Broker.URL)
	if err != nil {
		return fmt.Errorf("invalid broker url %q: %w", c.Broker.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("broker url must use ws or wss, got %q", u.Scheme)
	}
	if c.Broker.DialTimeout < 0 {
		return fmt.Errorf("dial_timeout must not be negative")
	}

	if c.Broker.DBus.Prefix == "" {
		return fmt.Errorf("dbus prefix must not be empty")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q, must be text or json", c.Log.Format)
	}

	if c.Reconnect.Rate <= 0 {
		return fmt.Errorf("reconnect rate must be positive, got %v", c.Reconnect.Rate)
	}
	if c.Reconnect.Burst < 1 {
		return fmt.Errorf("reconnect burst must be at least 1, got %d", c.Reconnect.Burst)
	}

	if c.UI.Refresh < 0 {
		return fmt.Errorf("refresh must not be negative")
	}

	return nil
}
