package tether

import (
	"context"
	"fmt"
	"sync"

	"github.com/zoobzio/clockz"
)

// MapObject is an in-memory object backed by a nested document. Writes are
// echoed synchronously to every observer whose path overlaps the written
// path, in write order.
type MapObject struct {
	clock clockz.Clock

	mu        sync.Mutex
	doc       map[string]any
	observers map[*mapObserver]struct{}
	released  bool
}

type mapObserver struct {
	path Path
	sub  *subscriber[Change]
}

// MapOption configures a MapObject.
type MapOption func(*MapObject)

// WithMapClock sets the clock used to stamp changes.
func WithMapClock(clock clockz.Clock) MapOption {
	return func(o *MapObject) {
		o.clock = clock
	}
}

// NewMapObject creates a MapObject holding a copy of initial.
func NewMapObject(initial map[string]any, opts ...MapOption) *MapObject {
	doc, _ := cloneValue(initial).(map[string]any)
	if doc == nil {
		doc = make(map[string]any)
	}
	o := &MapObject{
		clock:     clockz.RealClock,
		doc:       doc,
		observers: make(map[*mapObserver]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Get returns a copy of the value at path, or nil if the attribute is unset.
func (o *MapObject) Get(_ context.Context, path string) (any, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.released {
		return nil, ErrReleased
	}
	v, _ := p.Lookup(o.doc)
	return cloneValue(v), nil
}

// Set writes a copy of v at path and notifies overlapping observers.
func (o *MapObject) Set(_ context.Context, path string, v any) error {
	p, err := ParsePath(path)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.released {
		return ErrReleased
	}
	if err := p.Assign(o.doc, cloneValue(v)); err != nil {
		return fmt.Errorf("failed to set %s: %w", path, err)
	}

	now := o.clock.Now()
	for obs := range o.observers {
		if !obs.path.Overlaps(p) {
			continue
		}
		current, _ := obs.path.Lookup(o.doc)
		obs.sub.push(Change{
			Path:  obs.path.String(),
			Value: cloneValue(current),
			At:    now,
		})
	}
	return nil
}

// Observe returns a channel of changes to path. The channel is closed when
// the object is released or ctx is canceled.
func (o *MapObject) Observe(ctx context.Context, path string, opts ObserveOptions) (<-chan Change, error) {
	p, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	obs := &mapObserver{path: p, sub: newSubscriber[Change]()}

	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return nil, ErrReleased
	}
	if opts.Initial {
		current, _ := p.Lookup(o.doc)
		obs.sub.queue = append(obs.sub.queue, Change{
			Path:  p.String(),
			Value: cloneValue(current),
			At:    o.clock.Now(),
		})
	}
	o.observers[obs] = struct{}{}
	o.mu.Unlock()

	go obs.sub.run(ctx, func() { o.detach(obs) })
	return obs.sub.out, nil
}

// Release deallocates the object. Every observation stream is closed after
// delivering its pending changes, and subsequent reads and writes report
// ErrReleased.
func (o *MapObject) Release() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.released {
		return
	}
	o.released = true
	for obs := range o.observers {
		obs.sub.finish()
	}
	o.observers = nil
	o.doc = nil
}

// Released reports whether Release has been called.
func (o *MapObject) Released() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.released
}

func (o *MapObject) detach(obs *mapObserver) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.observers, obs)
}

// cloneValue deep-copies the map and slice shapes found in decoded documents
// so callers never share storage with the object.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Ensure MapObject implements Object.
var _ Object = (*MapObject)(nil)
