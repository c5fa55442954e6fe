package config

import (
	"fmt"
	"net/url"
)

// Validate checks that required fields are present and consistent.
func (c *ClientConfig) Validate() error {
	if c.Instance.ID == "" {
		return fmt.Errorf("instance.id is required")
	}

	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil {
		return fmt.Errorf("server.url is not a valid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url must use ws or wss scheme, got %q", u.Scheme)
	}

	sources := 0
	if c.Server.Token != "" {
		sources++
	}
	if c.Server.TokenPath != "" {
		sources++
	}
	if c.Server.TokenEnv != "" {
		sources++
	}
	if sources > 1 {
		return fmt.Errorf("server: at most one of token, token_path, token_env may be set")
	}

	if c.Connection.ReconnectDelay <= 0 {
		return fmt.Errorf("connection.reconnect_delay must be positive")
	}
	if c.Connection.MaxReconnectAttempts < 0 {
		return fmt.Errorf("connection.max_reconnect_attempts cannot be negative")
	}
	if c.Connection.BufferSize <= 0 {
		return fmt.Errorf("connection.buffer_size must be positive")
	}

	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}
