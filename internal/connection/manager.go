package connection

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hivemind/nexus-realtime/internal/metrics"
	"github.com/hivemind/nexus-realtime/internal/token"
)

// Manager owns at most one live realtime connection, fans inbound named
// events out to subscribers, and recovers from drops with capped exponential
// backoff. Transport failures are never returned to callers; they surface as
// status transitions and log messages.
type Manager interface {
	// Connect initiates a connection attempt if none is active and returns
	// immediately; the outcome arrives via status transitions. Calling it
	// while connected or while an attempt is in flight is a logged no-op.
	// Calling it while a reconnect is scheduled cancels that reconnect.
	Connect()

	// Disconnect cancels any pending reconnect, closes the active session,
	// clears both listener registries, and sets status to disconnected.
	Disconnect()

	// Subscribe registers fn for a named server event. The returned
	// unsubscribe function is idempotent and removes only this registration.
	Subscribe(event string, fn Handler) func()

	// OnStatusChange registers a status-transition listener. The returned
	// unsubscribe function is idempotent.
	OnStatusChange(fn StatusHandler) func()

	// Emit sends a named event to the server. While not connected it is a
	// logged no-op; it never queues.
	Emit(event string, data any)

	// Status returns the current status without blocking.
	Status() Status

	// IsConnected reports whether the status is StatusConnected.
	IsConnected() bool
}

// manager implements the Manager interface.
type manager struct {
	cfg    Config
	tokens token.Store
	logger *slog.Logger

	// Listener registries
	events          *eventRegistry
	statusListeners *statusRegistry

	// State. gen identifies the current session epoch; async callbacks
	// carry the epoch they were started under and become no-ops when it
	// has moved on.
	mu             sync.Mutex
	status         Status
	sess           Client
	gen            uint64
	attempts       int
	reconnectTimer *time.Timer // nil when no reconnect is scheduled
}

// NewManager creates a new Connection Manager. tokens may be nil, in which
// case sessions are opened without auth metadata. Zero-valued optional fields
// in cfg are filled from DefaultConfig.
func NewManager(cfg Config, tokens token.Store, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}

	def := DefaultConfig()
	if cfg.ReconnectDelay == 0 {
		cfg.ReconnectDelay = def.ReconnectDelay
	}
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if cfg.PingTimeout == 0 {
		cfg.PingTimeout = def.PingTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = def.BufferSize
	}

	return &manager{
		cfg:             cfg,
		tokens:          tokens,
		logger:          logger,
		events:          newEventRegistry(),
		statusListeners: newStatusRegistry(),
		status:          StatusDisconnected,
	}
}

// Connect initiates a connection attempt.
func (m *manager) Connect() {
	m.connect(true)
}

// connect runs the shared connect path for both manual calls and reconnect
// timer fires.
func (m *manager) connect(manual bool) {
	m.mu.Lock()
	switch m.status {
	case StatusConnected:
		m.mu.Unlock()
		m.logger.Info("connect skipped, already connected")
		return
	case StatusConnecting:
		m.mu.Unlock()
		m.logger.Info("connect skipped, attempt already in progress")
		return
	}
	if manual {
		// A manual connect supersedes any scheduled automatic attempt.
		m.cancelReconnectLocked()
	}
	m.gen++
	g := m.gen
	notify := m.transitionLocked(StatusConnecting)
	m.mu.Unlock()

	notify()
	go m.dial(g)
}

// dial opens a session and applies the outcome, unless the epoch has been
// superseded by a Disconnect or another connect in the meantime.
func (m *manager) dial(g uint64) {
	var tok string
	if m.tokens != nil {
		tok, _ = m.tokens.Token()
	}

	sess := NewClient(ClientConfig{
		URL:          m.cfg.URL,
		Token:        tok,
		PingTimeout:  m.cfg.PingTimeout,
		WriteTimeout: m.cfg.WriteTimeout,
		BufferSize:   m.cfg.BufferSize,
	}, m.logger.With("session_id", uuid.NewString()))

	err := sess.Connect(context.Background())

	m.mu.Lock()
	if g != m.gen {
		m.mu.Unlock()
		if err == nil {
			sess.Close()
		}
		return
	}

	if err != nil {
		m.logger.Warn("connection attempt failed", "url", m.cfg.URL, "error", err)
		notify := m.failLocked()
		m.mu.Unlock()
		if notify != nil {
			notify()
		}
		return
	}

	m.sess = sess
	m.attempts = 0
	notify := m.transitionLocked(StatusConnected)
	m.mu.Unlock()

	m.logger.Info("connected", "url", m.cfg.URL)
	notify()
	go m.pump(sess, g)
}

// pump forwards inbound events and errors from one session until it dies or
// its epoch is superseded.
func (m *manager) pump(sess Client, g uint64) {
	for {
		select {
		case <-sess.Done():
			// Session closed locally (Disconnect or supersession).
			return
		case err := <-sess.Errors():
			m.sessionDown(g, err)
			return
		case ev := <-sess.Events():
			if !m.handleEvent(sess, g, ev) {
				return
			}
		}
	}
}

// handleEvent processes one inbound event. It returns false when the pump
// should stop.
func (m *manager) handleEvent(sess Client, g uint64, ev Event) bool {
	switch ev.Name {
	case eventPing:
		payload, _ := json.Marshal(PongPayload{Timestamp: time.Now().UnixMilli()})
		if err := sess.Send(eventPong, payload); err != nil {
			m.logger.Warn("failed to answer heartbeat", "error", err)
		}
		return true

	case EventAuthExpired:
		m.handleAuthExpired(g, ev.Data)
		return false
	}

	if isReserved(ev.Name) {
		m.logger.Debug("ignoring reserved event", "event", ev.Name)
		return true
	}

	metrics.EventsReceivedTotal.WithLabelValues(ev.Name).Inc()
	m.events.dispatch(m.logger, ev.Name, ev.Data)
	return true
}

// handleAuthExpired delivers the expiry payload to its subscribers, then
// tears the manager down into StatusError. Unlike an ordinary drop this is
// not retried; the application must re-authenticate and call Connect.
func (m *manager) handleAuthExpired(g uint64, data json.RawMessage) {
	// Deliver the payload before tearing anything down so the application
	// can react (e.g., prompt re-login).
	m.events.dispatch(m.logger, EventAuthExpired, data)
	metrics.AuthExpiriesTotal.Inc()

	m.mu.Lock()
	if g != m.gen {
		m.mu.Unlock()
		return
	}
	m.gen++
	m.cancelReconnectLocked()
	if m.sess != nil {
		m.sess.Close()
		m.sess = nil
	}
	m.attempts = 0
	notify := m.transitionLocked(StatusError)
	m.mu.Unlock()

	m.logger.Error("authentication expired, disconnecting")
	notify()
	m.events.clear()
	m.statusListeners.clear()
}

// sessionDown handles a server-initiated disconnect or transport error.
func (m *manager) sessionDown(g uint64, err error) {
	m.mu.Lock()
	if g != m.gen {
		m.mu.Unlock()
		return
	}
	m.gen++
	if m.sess != nil {
		m.sess.Close()
		m.sess = nil
	}
	m.logger.Warn("connection lost", "error", err)
	notify := m.failLocked()
	m.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// failLocked reacts to a failed attempt or lost session: it either schedules
// the next reconnect or settles into StatusError. Callers must hold m.mu.
// The returned func (possibly nil) notifies status listeners and must be
// invoked after releasing the lock.
func (m *manager) failLocked() func() {
	if !m.cfg.AutoReconnect {
		return m.transitionLocked(StatusError)
	}

	if m.reconnectTimer != nil {
		// An attempt is already pending; never schedule a second one.
		return nil
	}

	if m.attempts >= m.cfg.MaxReconnectAttempts {
		m.logger.Error("max reconnect attempts reached, giving up",
			"attempts", m.attempts,
		)
		return m.transitionLocked(StatusError)
	}

	m.attempts++
	delay := backoffDelay(m.cfg.ReconnectDelay, m.attempts)
	m.logger.Info("scheduling reconnect",
		"attempt", m.attempts,
		"max_attempts", m.cfg.MaxReconnectAttempts,
		"delay", delay,
	)
	metrics.ReconnectAttemptsTotal.Inc()

	notify := m.transitionLocked(StatusReconnecting)
	m.reconnectTimer = time.AfterFunc(delay, m.onReconnectTimer)
	return notify
}

// onReconnectTimer fires when the scheduled backoff elapses. A timer that was
// cancelled by Disconnect or a manual Connect finds the handle nil and does
// nothing.
func (m *manager) onReconnectTimer() {
	m.mu.Lock()
	if m.reconnectTimer == nil {
		m.mu.Unlock()
		return
	}
	m.reconnectTimer = nil
	m.mu.Unlock()

	m.connect(false)
}

// cancelReconnectLocked stops and clears any pending reconnect timer.
// Callers must hold m.mu.
func (m *manager) cancelReconnectLocked() {
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}
}

// transitionLocked changes the status and returns a func that delivers the
// transition to listeners; callers invoke it after releasing m.mu so
// listeners can call back into the manager.
func (m *manager) transitionLocked(to Status) func() {
	from := m.status
	m.status = to
	metrics.SetConnectionStatus(string(from), string(to))
	return func() {
		m.statusListeners.notify(m.logger, to)
	}
}

// Disconnect tears the manager down to StatusDisconnected.
func (m *manager) Disconnect() {
	m.mu.Lock()
	m.gen++
	m.cancelReconnectLocked()
	if m.sess != nil {
		m.sess.Close()
		m.sess = nil
	}
	m.attempts = 0
	var notify func()
	if m.status != StatusDisconnected {
		notify = m.transitionLocked(StatusDisconnected)
	}
	m.mu.Unlock()

	m.logger.Info("disconnected")
	if notify != nil {
		notify()
	}
	m.events.clear()
	m.statusListeners.clear()
}

// Subscribe registers fn for a named server event.
func (m *manager) Subscribe(event string, fn Handler) func() {
	return m.events.add(event, fn)
}

// OnStatusChange registers a status-transition listener.
func (m *manager) OnStatusChange(fn StatusHandler) func() {
	return m.statusListeners.add(fn)
}

// Emit sends a named event to the server.
func (m *manager) Emit(event string, data any) {
	m.mu.Lock()
	sess := m.sess
	connected := m.status == StatusConnected
	m.mu.Unlock()

	if !connected || sess == nil {
		m.logger.Warn("emit dropped, not connected", "event", event)
		metrics.DroppedEmitsTotal.Inc()
		return
	}

	var payload json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			m.logger.Warn("emit dropped, payload not serializable",
				"event", event,
				"error", err,
			)
			return
		}
		payload = b
	}

	if err := sess.Send(event, payload); err != nil {
		m.logger.Warn("emit failed", "event", event, "error", err)
		return
	}
	metrics.EventsSentTotal.WithLabelValues(event).Inc()
}

// Status returns the current status.
func (m *manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsConnected reports whether the manager is connected.
func (m *manager) IsConnected() bool {
	return m.Status() == StatusConnected
}

// backoffDelay returns min(base * 2^(attempt-1), maxReconnectDelay).
// Attempt 1 uses base itself.
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxReconnectDelay {
			return maxReconnectDelay
		}
	}
	if d > maxReconnectDelay {
		d = maxReconnectDelay
	}
	return d
}
