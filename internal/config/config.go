// Package config loads and validates the YAML configuration for the
// realtime client.
package config

import "time"

// ClientConfig is the root configuration for a realtime client instance.
type ClientConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Server     ServerConfig     `yaml:"server"`
	Connection ConnectionConfig `yaml:"connection"`
	Events     EventsConfig     `yaml:"events"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// InstanceConfig identifies this client.
type InstanceConfig struct {
	ID  string `yaml:"id"`
	Env string `yaml:"env"`
}

// ServerConfig holds realtime endpoint settings. At most one token source
// should be set; token wins over token_path, which wins over token_env.
type ServerConfig struct {
	URL       string `yaml:"url"`        // WebSocket URL (e.g., wss://realtime.hivemind.dev/ws)
	Token     string `yaml:"token"`      // Inline bearer token
	TokenPath string `yaml:"token_path"` // Path to a file holding the token
	TokenEnv  string `yaml:"token_env"`  // Environment variable holding the token
}

// ConnectionConfig holds Connection Manager settings.
type ConnectionConfig struct {
	AutoReconnect        *bool         `yaml:"auto_reconnect"` // nil = default (true)
	ReconnectDelay       time.Duration `yaml:"reconnect_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	PingTimeout          time.Duration `yaml:"ping_timeout"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	BufferSize           int           `yaml:"buffer_size"`
}

// EventsConfig lists the server events the client subscribes to at startup.
type EventsConfig struct {
	Subscribe []string `yaml:"subscribe"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// AutoReconnectEnabled resolves the auto_reconnect setting with its default.
func (c *ConnectionConfig) AutoReconnectEnabled() bool {
	if c.AutoReconnect == nil {
		return true
	}
	return *c.AutoReconnect
}
