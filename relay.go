package tether

import (
	"context"
	"sync"
)

// Relay holds the latest value of a stream and republishes it to any number
// of subscribers. Once ended it stays ended.
type Relay[T any] struct {
	mu      sync.Mutex
	current T
	has     bool
	ended   bool
	subs    map[*subscriber[T]]struct{}
}

// NewRelay creates an empty Relay.
func NewRelay[T any]() *Relay[T] {
	return &Relay[T]{subs: make(map[*subscriber[T]]struct{})}
}

// Send stores v as the latest value and delivers it to every subscriber.
// Send after End is a no-op.
func (r *Relay[T]) Send(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.current = v
	r.has = true
	for s := range r.subs {
		s.push(v)
	}
}

// End completes every subscriber once its queued values have been delivered.
func (r *Relay[T]) End() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.ended = true
	for s := range r.subs {
		s.finish()
	}
	r.subs = nil
}

// Ended reports whether End has been called.
func (r *Relay[T]) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// Current returns the latest value and true, or the zero value and false if
// nothing has been sent yet.
func (r *Relay[T]) Current() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current, r.has
}

// Signal returns a channel of values sent after the call. The channel is
// closed when the relay ends or ctx is canceled.
func (r *Relay[T]) Signal(ctx context.Context) <-chan T {
	return r.subscribe(ctx, false)
}

// Producer returns a channel that first yields the current value, if any,
// followed by every value sent after the call.
func (r *Relay[T]) Producer(ctx context.Context) <-chan T {
	return r.subscribe(ctx, true)
}

func (r *Relay[T]) subscribe(ctx context.Context, replay bool) <-chan T {
	s := newSubscriber[T]()

	r.mu.Lock()
	if r.ended {
		r.mu.Unlock()
		close(s.out)
		return s.out
	}
	if replay && r.has {
		s.queue = append(s.queue, r.current)
	}
	r.subs[s] = struct{}{}
	r.mu.Unlock()

	go s.run(ctx, func() { r.remove(s) })
	return s.out
}

func (r *Relay[T]) remove(s *subscriber[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, s)
}

// subscriber is an unbounded FIFO between a producer that must never block
// and a consumer reading from out.
type subscriber[T any] struct {
	out  chan T
	wake chan struct{}

	mu       sync.Mutex
	queue    []T
	finished bool
}

func newSubscriber[T any]() *subscriber[T] {
	return &subscriber[T]{
		out:  make(chan T),
		wake: make(chan struct{}, 1),
	}
}

func (s *subscriber[T]) push(v T) {
	s.mu.Lock()
	s.queue = append(s.queue, v)
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber[T]) finish() {
	s.mu.Lock()
	s.finished = true
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber[T]) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run pumps queued values into out until finished and drained, or until ctx
// is canceled.
func (s *subscriber[T]) run(ctx context.Context, detach func()) {
	defer close(s.out)
	defer detach()

	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			finished := s.finished
			s.mu.Unlock()
			if finished {
				return
			}
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				return
			}
		}
		var zero T
		v := s.queue[0]
		s.queue[0] = zero
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- v:
		case <-ctx.Done():
			return
		}
	}
}
