package connection

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func TestEventRegistry_DispatchOrder(t *testing.T) {
	r := newEventRegistry()

	var order []int
	r.add("update", func(data json.RawMessage) { order = append(order, 1) })
	r.add("update", func(data json.RawMessage) { order = append(order, 2) })
	r.add("update", func(data json.RawMessage) { order = append(order, 3) })

	r.dispatch(slog.Default(), "update", nil)

	if len(order) != 3 {
		t.Fatalf("got %d invocations, want 3", len(order))
	}
	for i, v := range order {
		if v != i+1 {
			t.Errorf("invocation %d was callback %d, want %d", i, v, i+1)
		}
	}
}

func TestEventRegistry_DoubleUnsubscribe(t *testing.T) {
	r := newEventRegistry()

	var first, second int
	unsub := r.add("update", func(data json.RawMessage) { first++ })
	r.add("update", func(data json.RawMessage) { second++ })

	unsub()
	unsub() // must be safe and must not remove the other callback

	r.dispatch(slog.Default(), "update", nil)

	if first != 0 {
		t.Errorf("unsubscribed callback invoked %d times", first)
	}
	if second != 1 {
		t.Errorf("remaining callback invoked %d times, want 1", second)
	}
}

func TestEventRegistry_UnsubscribeRemovesOnlyTarget(t *testing.T) {
	r := newEventRegistry()

	var got []string
	r.add("update", func(data json.RawMessage) { got = append(got, "a") })
	unsubB := r.add("update", func(data json.RawMessage) { got = append(got, "b") })
	r.add("update", func(data json.RawMessage) { got = append(got, "c") })

	unsubB()
	r.dispatch(slog.Default(), "update", nil)

	if len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Errorf("got invocations %v, want [a c]", got)
	}
}

func TestEventRegistry_ZeroSubscribers(t *testing.T) {
	r := newEventRegistry()

	// Must not panic
	r.dispatch(slog.Default(), "nobody_listens", json.RawMessage(`{"x":1}`))
}

func TestEventRegistry_PanicIsolation(t *testing.T) {
	r := newEventRegistry()

	var delivered bool
	r.add("update", func(data json.RawMessage) { panic("listener bug") })
	r.add("update", func(data json.RawMessage) { delivered = true })

	r.dispatch(slog.Default(), "update", nil)

	if !delivered {
		t.Error("panic in one callback prevented delivery to the next")
	}
}

func TestEventRegistry_EmptyAfterLastUnsubscribe(t *testing.T) {
	r := newEventRegistry()

	unsub1 := r.add("update", func(data json.RawMessage) {})
	unsub2 := r.add("update", func(data json.RawMessage) {})

	unsub1()
	unsub2()

	if !r.empty() {
		t.Error("registry should be empty after last unsubscribe")
	}
}

func TestStatusRegistry_NotifyOrder(t *testing.T) {
	r := newStatusRegistry()

	var order []int
	r.add(func(status Status) { order = append(order, 1) })
	r.add(func(status Status) { order = append(order, 2) })

	r.notify(slog.Default(), StatusConnected)

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("got order %v, want [1 2]", order)
	}
}

func TestStatusRegistry_DoubleUnsubscribe(t *testing.T) {
	r := newStatusRegistry()

	var calls int
	unsub := r.add(func(status Status) { calls++ })
	r.add(func(status Status) {})

	unsub()
	unsub()

	r.notify(slog.Default(), StatusConnected)

	if calls != 0 {
		t.Errorf("unsubscribed listener invoked %d times", calls)
	}
	if r.empty() {
		t.Error("other listener should still be registered")
	}
}
