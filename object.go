package tether

import (
	"context"
	"errors"
	"time"
)

// ErrReleased is reported by an Accessor whose object has been deallocated.
var ErrReleased = errors.New("object released")

// ErrNotFound is reported when an attribute path does not resolve.
var ErrNotFound = errors.New("attribute not found")

// Change is a single notification for an observed attribute.
// A Change with a non-nil Err is a failure event from the notifier.
type Change struct {
	Path  string
	Value any
	At    time.Time
	Err   error
}

// ObserveOptions tunes an observation.
type ObserveOptions struct {
	// Initial requests an immediate replay of the attribute's current value
	// before any subsequent changes.
	Initial bool
}

// Notifier produces change notifications for an attribute path on an object.
type Notifier interface {
	// Observe begins observing path and returns a channel of changes.
	// Changes are delivered in the order they occurred and are never dropped.
	// The channel is closed when the object is released or ctx is canceled.
	Observe(ctx context.Context, path string, opts ObserveOptions) (<-chan Change, error)
}

// Accessor reads and writes attributes directly on an object.
type Accessor interface {
	// Get returns the current value at path. Implementations return
	// ErrReleased once the object has been deallocated.
	Get(ctx context.Context, path string) (any, error)

	// Set writes v at path.
	Set(ctx context.Context, path string, v any) error
}

// Object is an externally owned value whose attributes can be read, written
// and observed.
type Object interface {
	Notifier
	Accessor
}
