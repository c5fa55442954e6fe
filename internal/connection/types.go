package connection

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Status is the lifecycle state of the managed connection.
// Exactly one status holds at any time.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusError        Status = "error"
)

// Reserved event names the manager interprets itself instead of forwarding
// to generic subscribers. EventAuthExpired is the one reserved name whose
// payload is still delivered to subscribers registered for it.
const (
	EventAuthExpired = "auth_expired"

	eventPing       = "ping"
	eventPong       = "pong"
	eventConnect    = "connect"
	eventDisconnect = "disconnect"
	eventError      = "error"
)

// maxReconnectDelay caps the exponential backoff between reconnect attempts.
const maxReconnectDelay = 30 * time.Second

// Envelope is the named-event wire frame exchanged with the server.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is an inbound server event with a local receive timestamp.
type Event struct {
	Name       string          // Event name from the envelope
	Data       json.RawMessage // Raw payload, forwarded to subscribers unchanged
	ReceivedAt time.Time       // Local timestamp when ReadMessage() returned
}

// PongPayload is the body of the pong the manager sends in reply to a
// server heartbeat ping.
type PongPayload struct {
	Timestamp int64 `json:"timestamp"` // Unix milliseconds
}

// Handler receives the payload of a named server event.
type Handler func(data json.RawMessage)

// StatusHandler receives connection status transitions.
type StatusHandler func(status Status)

// ClientConfig configures a single WebSocket session.
type ClientConfig struct {
	URL          string        // WebSocket URL (e.g., wss://realtime.hivemind.dev/ws)
	Token        string        // Bearer token attached at dial time (empty = no auth)
	PingTimeout  time.Duration // Max time without ping before considering connection stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Inbound event channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		PingTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   1000,
	}
}

// Config configures the Connection Manager.
type Config struct {
	URL                  string        // WebSocket URL of the realtime endpoint
	AutoReconnect        bool          // Reconnect automatically after drops/errors
	ReconnectDelay       time.Duration // Base delay for exponential backoff
	MaxReconnectAttempts int           // Attempt cap before settling into StatusError
	PingTimeout          time.Duration // Passed through to each session
	WriteTimeout         time.Duration // Passed through to each session
	BufferSize           int           // Passed through to each session
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AutoReconnect:        true,
		ReconnectDelay:       1 * time.Second,
		MaxReconnectAttempts: 10,
		PingTimeout:          60 * time.Second,
		WriteTimeout:         5 * time.Second,
		BufferSize:           1000,
	}
}

// isReserved reports whether the manager interprets name itself rather than
// forwarding it to generic subscribers.
func isReserved(name string) bool {
	switch name {
	case eventPing, eventPong, eventConnect, eventDisconnect, eventError, EventAuthExpired:
		return true
	}
	return false
}
