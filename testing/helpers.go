// Package testing provides test utilities and helpers for tether properties.
package testing

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/tether"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForState waits until the property reaches the expected state or timeout occurs.
func WaitForState(t *testing.T, p *tether.Property, expected tether.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return p.State() == expected
	})
}

// RequireState fails the test immediately if the property is not in the expected state.
func RequireState(t *testing.T, p *tether.Property, expected tether.State) {
	t.Helper()
	if got := p.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// Collect reads n values from ch, failing the test if they do not arrive
// within timeout.
func Collect[T any](t *testing.T, ch <-chan T, n int, timeout time.Duration) []T {
	t.Helper()
	out := make([]T, 0, n)
	deadline := time.After(timeout)
	for len(out) < n {
		select {
		case v, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d values", len(out), n)
			}
			out = append(out, v)
		case <-deadline:
			t.Fatalf("timeout after %d of %d values", len(out), n)
		}
	}
	return out
}

// NewTestProperty creates a property over an in-memory object seeded with
// initial, driven by a sync channel notifier. The returned channel feeds
// changes to the property directly, so tests control exactly what the
// notifier delivers; writes through the property reach the object but are
// never echoed.
func NewTestProperty(t *testing.T, ctx context.Context, path string, initial map[string]any, opts ...tether.Option) (*tether.Property, *tether.MapObject, chan<- tether.Change) {
	t.Helper()
	ch := make(chan tether.Change, 10)
	obj := tether.NewMapObject(initial)
	p, err := tether.New(ctx, tether.Join(tether.NewSyncChannelNotifier(ch), obj), path, opts...)
	if err != nil {
		t.Fatalf("failed to create property: %v", err)
	}
	return p, obj, ch
}
