package tether

import (
	"testing"
	"time"
)

const testTimeout = time.Second

// recv reads one value from ch, failing the test on timeout or close.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return v
	case <-time.After(testTimeout):
		t.Fatal("timeout waiting for value")
	}
	var zero T
	return zero
}

// expectClosed drains ch and fails unless it closes in time. It returns the
// values drained before the close.
func expectClosed[T any](t *testing.T, ch <-chan T) []T {
	t.Helper()
	var drained []T
	deadline := time.After(testTimeout)
	for {
		select {
		case v, ok := <-ch:
			if !ok {
				return drained
			}
			drained = append(drained, v)
		case <-deadline:
			t.Fatal("timeout waiting for channel close")
			return drained
		}
	}
}

// expectSilent fails if ch yields a value within d.
func expectSilent[T any](t *testing.T, ch <-chan T, d time.Duration) {
	t.Helper()
	select {
	case v, ok := <-ch:
		if ok {
			t.Fatalf("expected no value, got %v", v)
		}
	case <-time.After(d):
	}
}

// waitDone fails unless p reaches its terminal state in time.
func waitDone(t *testing.T, p *Property) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(testTimeout):
		t.Fatalf("timeout waiting for property to end, state %s", p.State())
	}
}
