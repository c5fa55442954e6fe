package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: test-client
  env: staging
server:
  url: wss://realtime.staging.hivemind.dev/ws
  token_env: NEXUS_TOKEN
events:
  subscribe:
    - chat_message
    - presence_update
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "test-client" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "test-client")
	}
	if cfg.Server.URL != "wss://realtime.staging.hivemind.dev/ws" {
		t.Errorf("Server.URL = %q, want %q", cfg.Server.URL, "wss://realtime.staging.hivemind.dev/ws")
	}
	if cfg.Server.TokenEnv != "NEXUS_TOKEN" {
		t.Errorf("Server.TokenEnv = %q, want %q", cfg.Server.TokenEnv, "NEXUS_TOKEN")
	}
	if len(cfg.Events.Subscribe) != 2 || cfg.Events.Subscribe[0] != "chat_message" {
		t.Errorf("Events.Subscribe = %v, want [chat_message presence_update]", cfg.Events.Subscribe)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_NEXUS_TOKEN", "secret123")

	yaml := `
instance:
  id: test-client
server:
  url: wss://realtime.hivemind.dev/ws
  token: ${TEST_NEXUS_TOKEN}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Token != "secret123" {
		t.Errorf("Server.Token = %q, want %q", cfg.Server.Token, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: test-client
server:
  url: wss://realtime.hivemind.dev/ws
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	// Check defaults were applied
	if cfg.Connection.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("Connection.ReconnectDelay = %v, want default %v", cfg.Connection.ReconnectDelay, DefaultReconnectDelay)
	}
	if cfg.Connection.MaxReconnectAttempts != DefaultMaxReconnectAttempts {
		t.Errorf("Connection.MaxReconnectAttempts = %d, want default %d", cfg.Connection.MaxReconnectAttempts, DefaultMaxReconnectAttempts)
	}
	if cfg.Connection.BufferSize != DefaultBufferSize {
		t.Errorf("Connection.BufferSize = %d, want default %d", cfg.Connection.BufferSize, DefaultBufferSize)
	}
	if !cfg.Connection.AutoReconnectEnabled() {
		t.Error("AutoReconnectEnabled should default to true")
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, DefaultMetricsPath)
	}
}

func TestAutoReconnectExplicitFalse(t *testing.T) {
	yaml := `
instance:
  id: test-client
server:
  url: wss://realtime.hivemind.dev/ws
connection:
  auto_reconnect: false
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Connection.AutoReconnectEnabled() {
		t.Error("AutoReconnectEnabled should honor an explicit false")
	}
}

func TestValidate(t *testing.T) {
	valid := func() ClientConfig {
		return ClientConfig{
			Instance: InstanceConfig{ID: "test"},
			Server:   ServerConfig{URL: "wss://realtime.hivemind.dev/ws"},
			Connection: ConnectionConfig{
				ReconnectDelay:       time.Second,
				MaxReconnectAttempts: 10,
				BufferSize:           1000,
			},
			Metrics: MetricsConfig{Port: 9090, Path: "/metrics"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ClientConfig)
		wantErr string
	}{
		{
			name:    "valid config",
			mutate:  func(c *ClientConfig) {},
			wantErr: "",
		},
		{
			name:    "missing instance id",
			mutate:  func(c *ClientConfig) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing server url",
			mutate:  func(c *ClientConfig) { c.Server.URL = "" },
			wantErr: "server.url is required",
		},
		{
			name:    "wrong url scheme",
			mutate:  func(c *ClientConfig) { c.Server.URL = "https://realtime.hivemind.dev/ws" },
			wantErr: `server.url must use ws or wss scheme, got "https"`,
		},
		{
			name: "multiple token sources",
			mutate: func(c *ClientConfig) {
				c.Server.Token = "abc"
				c.Server.TokenPath = "/tmp/token"
			},
			wantErr: "server: at most one of token, token_path, token_env may be set",
		},
		{
			name:    "zero reconnect delay",
			mutate:  func(c *ClientConfig) { c.Connection.ReconnectDelay = 0 },
			wantErr: "connection.reconnect_delay must be positive",
		},
		{
			name:    "negative attempt cap",
			mutate:  func(c *ClientConfig) { c.Connection.MaxReconnectAttempts = -1 },
			wantErr: "connection.max_reconnect_attempts cannot be negative",
		},
		{
			name:    "zero buffer size",
			mutate:  func(c *ClientConfig) { c.Connection.BufferSize = 0 },
			wantErr: "connection.buffer_size must be positive",
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *ClientConfig) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
