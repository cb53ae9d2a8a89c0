package tether

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Property presents a single attribute of an externally owned object as a
// reactive value.
type Property struct {
	path        Path
	target      ref
	clock       clockz.Clock
	metrics     MetricsProvider
	onViolation func(error)

	relay      atomic.Pointer[Relay[any]]
	state      atomic.Int32
	lastError  atomic.Pointer[error]
	lastChange atomic.Pointer[time.Time]

	done chan struct{}
}

// config holds configuration options for a Property.
type config struct {
	clock       clockz.Clock
	metrics     MetricsProvider
	onViolation func(error)
}

// Option configures a Property.
type Option func(*config)

// WithClock sets the clock used to stamp changes that arrive without a
// timestamp. Use this with clockz.FakeClock for deterministic tests.
func WithClock(clock clockz.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithMetrics sets a metrics provider for observability integration.
func WithMetrics(provider MetricsProvider) Option {
	return func(c *config) {
		c.metrics = provider
	}
}

// WithViolationHandler replaces PanicOnViolation. The handler receives a
// *ContractViolation; if it returns, the Property is torn down as if the
// stream had ended.
func WithViolationHandler(fn func(error)) Option {
	return func(c *config) {
		c.onViolation = fn
	}
}

// New creates a Property observing path on target.
//
// A nil target, including a typed nil pointer, yields an inert Property:
// Value reads nil, SetValue does nothing, and Producer and Signal return
// closed channels. A target that is already released yields a Property that
// is ended from the start and behaves the same way. Otherwise the target is
// asked to replay the attribute's current value followed by every change, and
// the Property relays them until the stream ends.
//
// ctx bounds the observation. Canceling it ends the stream exactly as if the
// target had been released.
func New(ctx context.Context, target Object, path string, opts ...Option) (*Property, error) {
	parsed, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	cfg := &config{
		clock:       clockz.RealClock,
		onViolation: PanicOnViolation,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	p := &Property{
		path:        parsed,
		clock:       cfg.clock,
		metrics:     cfg.metrics,
		onViolation: cfg.onViolation,
		done:        make(chan struct{}),
	}

	if isNil(target) {
		p.state.Store(int32(StateInert))
		close(p.done)
		capitan.Emit(ctx, PropertyStarted,
			KeyPath.Field(p.Path()),
			KeyTarget.Field("none"),
		)
		return p, nil
	}

	changes, err := target.Observe(ctx, p.Path(), ObserveOptions{Initial: true})
	if errors.Is(err, ErrReleased) {
		p.state.Store(int32(StateEnded))
		close(p.done)
		capitan.Emit(ctx, PropertyEnded,
			KeyPath.Field(p.Path()),
			KeyState.Field(StateEnded.String()),
		)
		return p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to observe %s: %w", p.Path(), err)
	}

	p.target.store(target)
	p.relay.Store(NewRelay[any]())
	p.state.Store(int32(StatePending))

	capitan.Emit(ctx, PropertyStarted,
		KeyPath.Field(p.Path()),
		KeyTarget.Field(fmt.Sprintf("%T", target)),
	)

	go p.run(ctx, changes)

	return p, nil
}

// Path returns the observed attribute path.
func (p *Property) Path() string {
	return p.path.String()
}

// State returns the current state of the Property.
func (p *Property) State() State {
	return State(p.state.Load())
}

// Done returns a channel that is closed once the Property reaches a terminal
// state. It is already closed for an inert Property.
func (p *Property) Done() <-chan struct{} {
	return p.done
}

// LastError returns the contract violation that ended observation, or nil.
func (p *Property) LastError() error {
	ptr := p.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// LastChange returns the time of the most recent relayed change, or the zero
// time if none has arrived.
func (p *Property) LastChange() time.Time {
	ptr := p.lastChange.Load()
	if ptr == nil {
		return time.Time{}
	}
	return *ptr
}

// Current returns the most recently relayed value and true, or nil and false
// if nothing has arrived yet or observation has ended.
func (p *Property) Current() (any, bool) {
	r := p.relay.Load()
	if r == nil {
		return nil, false
	}
	return r.Current()
}

// Value reads the attribute directly from the target. It returns nil once the
// target is absent or released.
func (p *Property) Value(ctx context.Context) (any, error) {
	obj, ok := p.target.load()
	if !ok {
		return nil, nil
	}
	v, err := obj.Get(ctx, p.Path())
	if errors.Is(err, ErrReleased) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", p.Path(), err)
	}
	return v, nil
}

// SetValue writes v directly to the target. It is a no-op once the target is
// absent or released. Subscribers observe the write only when the notifier
// echoes it back.
func (p *Property) SetValue(ctx context.Context, v any) error {
	obj, ok := p.target.load()
	if !ok {
		return nil
	}
	err := obj.Set(ctx, p.Path(), v)
	if errors.Is(err, ErrReleased) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", p.Path(), err)
	}

	capitan.Emit(ctx, PropertyValueWritten, KeyPath.Field(p.Path()))
	if p.metrics != nil {
		p.metrics.OnValueWritten(p.Path())
	}
	return nil
}

// Producer returns a channel yielding the current relayed value, if any,
// followed by every later change. It is closed when observation ends or ctx
// is canceled, and already closed if observation has ended.
func (p *Property) Producer(ctx context.Context) <-chan any {
	r := p.relay.Load()
	if r == nil {
		return closed[any]()
	}
	return r.Producer(ctx)
}

// Signal returns a channel yielding changes relayed after the call.
func (p *Property) Signal(ctx context.Context) <-chan any {
	r := p.relay.Load()
	if r == nil {
		return closed[any]()
	}
	return r.Signal(ctx)
}

// run relays changes until the stream ends. It is the only owner of the relay
// state while observation is live.
func (p *Property) run(ctx context.Context, changes <-chan Change) {
	defer p.teardown(ctx)

	for {
		select {
		case <-ctx.Done():
			return

		case change, ok := <-changes:
			if !ok {
				return
			}
			if change.Err != nil {
				p.violate(ctx, change)
				return
			}
			p.receive(ctx, change)
		}
	}
}

// receive forwards a single change into the relay.
func (p *Property) receive(ctx context.Context, change Change) {
	r := p.relay.Load()
	if r == nil {
		return
	}

	at := change.At
	if at.IsZero() {
		at = p.clock.Now()
	}
	p.lastChange.Store(&at)

	capitan.Emit(ctx, PropertyChangeReceived, KeyPath.Field(p.Path()))
	if p.metrics != nil {
		p.metrics.OnChangeReceived(p.Path())
	}
	p.transitionState(ctx, p.State(), StateLive)

	r.Send(change.Value)
}

// violate records and escalates a failure event.
func (p *Property) violate(ctx context.Context, change Change) {
	err := error(&ContractViolation{Path: p.Path(), Err: change.Err})
	p.lastError.Store(&err)

	capitan.Emit(ctx, PropertyContractViolated,
		KeyPath.Field(p.Path()),
		KeyError.Field(err.Error()),
	)
	if p.metrics != nil {
		p.metrics.OnViolation(p.Path())
	}

	p.onViolation(err)
}

// teardown releases the target and ends the relay. It runs exactly once, when
// the subscription goroutine exits.
func (p *Property) teardown(ctx context.Context) {
	p.target.clear()
	r := p.relay.Swap(nil)
	p.transitionState(ctx, p.State(), StateEnded)
	if r != nil {
		r.End()
	}

	capitan.Emit(ctx, PropertyEnded,
		KeyPath.Field(p.Path()),
		KeyState.Field(p.State().String()),
	)
	close(p.done)
}

// transitionState updates the state and emits a state change event if changed.
func (p *Property) transitionState(ctx context.Context, oldState, newState State) {
	if oldState == newState {
		return
	}
	p.state.Store(int32(newState))
	capitan.Emit(ctx, PropertyStateChanged,
		KeyPath.Field(p.Path()),
		KeyOldState.Field(oldState.String()),
		KeyNewState.Field(newState.String()),
	)
	if p.metrics != nil {
		p.metrics.OnStateChange(p.Path(), oldState, newState)
	}
}

// ref is a non-owning handle on the observed object. Once cleared it stays
// cleared and every access reports the object as gone.
type ref struct {
	obj atomic.Pointer[Object]
}

func (r *ref) store(o Object) {
	r.obj.Store(&o)
}

func (r *ref) load() (Object, bool) {
	ptr := r.obj.Load()
	if ptr == nil {
		return nil, false
	}
	return *ptr, true
}

func (r *ref) clear() {
	r.obj.Store(nil)
}

// isNil reports whether target is absent, either as a nil interface or as an
// interface holding a nil pointer.
func isNil(target Object) bool {
	if target == nil {
		return true
	}
	v := reflect.ValueOf(target)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// closed returns an already closed channel.
func closed[T any]() <-chan T {
	ch := make(chan T)
	close(ch)
	return ch
}
