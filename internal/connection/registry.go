package connection

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// eventRegistry maps event names to ordered subscriber lists. Subscribers for
// one event are invoked in registration order; removing one never disturbs
// the others. The entry for an event is dropped when its last subscriber
// unsubscribes.
type eventRegistry struct {
	mu       sync.Mutex
	nextID   uint64
	handlers map[string][]eventEntry
}

type eventEntry struct {
	id uint64
	fn Handler
}

func newEventRegistry() *eventRegistry {
	return &eventRegistry{
		handlers: make(map[string][]eventEntry),
	}
}

// add registers fn under event and returns an idempotent unsubscribe
// function that removes only this registration.
func (r *eventRegistry) add(event string, fn Handler) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.handlers[event] = append(r.handlers[event], eventEntry{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		entries := r.handlers[event]
		for i, e := range entries {
			if e.id == id {
				r.handlers[event] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
		if len(r.handlers[event]) == 0 {
			delete(r.handlers, event)
		}
	}
}

// snapshot returns the current subscriber list for event in registration order.
func (r *eventRegistry) snapshot(event string) []Handler {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.handlers[event]
	if len(entries) == 0 {
		return nil
	}
	fns := make([]Handler, len(entries))
	for i, e := range entries {
		fns[i] = e.fn
	}
	return fns
}

// dispatch delivers data to every subscriber of event. Each invocation is
// isolated: a panicking callback is logged and does not prevent delivery to
// the remaining callbacks.
func (r *eventRegistry) dispatch(logger *slog.Logger, event string, data json.RawMessage) {
	for _, fn := range r.snapshot(event) {
		invoke(logger, event, fn, data)
	}
}

// clear removes all subscriptions.
func (r *eventRegistry) clear() {
	r.mu.Lock()
	r.handlers = make(map[string][]eventEntry)
	r.mu.Unlock()
}

func (r *eventRegistry) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handlers) == 0
}

func invoke(logger *slog.Logger, event string, fn Handler, data json.RawMessage) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("event listener panic", "event", event, "panic", rec)
		}
	}()
	fn(data)
}

// statusRegistry holds status-transition listeners in registration order.
type statusRegistry struct {
	mu        sync.Mutex
	nextID    uint64
	listeners []statusEntry
}

type statusEntry struct {
	id uint64
	fn StatusHandler
}

func newStatusRegistry() *statusRegistry {
	return &statusRegistry{}
}

// add registers fn and returns an idempotent unsubscribe function.
func (r *statusRegistry) add(fn StatusHandler) func() {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.listeners = append(r.listeners, statusEntry{id: id, fn: fn})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		for i, e := range r.listeners {
			if e.id == id {
				r.listeners = append(r.listeners[:i:i], r.listeners[i+1:]...)
				break
			}
		}
	}
}

// notify delivers status to every listener in registration order. Panics are
// contained per listener.
func (r *statusRegistry) notify(logger *slog.Logger, status Status) {
	r.mu.Lock()
	fns := make([]StatusHandler, len(r.listeners))
	for i, e := range r.listeners {
		fns[i] = e.fn
	}
	r.mu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("status listener panic", "status", status, "panic", rec)
				}
			}()
			fn(status)
		}()
	}
}

// clear removes all listeners.
func (r *statusRegistry) clear() {
	r.mu.Lock()
	r.listeners = nil
	r.mu.Unlock()
}

func (r *statusRegistry) empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.listeners) == 0
}
