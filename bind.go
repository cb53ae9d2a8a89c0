package tether

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/zoobzio/capitan"
)

// Bridge converts a source value into the object's native representation.
// A Bridge must be total: every value of T has a native form.
type Bridge[T any] func(T) any

// Holder is any reactive value that can produce its current and future values.
// *Property, *Relay and *Typed all satisfy it.
type Holder[T any] interface {
	Producer(ctx context.Context) <-chan T
}

// Identity passes values through unchanged.
func Identity[T any]() Bridge[T] {
	return func(v T) any { return v }
}

// StructBridge converts structs into nested maps using their mapstructure
// tags, which is the shape MapObject and the document backends store.
// Values that cannot be converted are passed through unchanged.
func StructBridge[T any]() Bridge[T] {
	return func(v T) any {
		out := make(map[string]any)
		if err := mapstructure.Decode(v, &out); err != nil {
			return v
		}
		return out
	}
}

// Bind writes every value received from src to p, in order, after converting
// it with bridge. A nil bridge is treated as Identity.
//
// Bind blocks until src is closed (returning nil), ctx is canceled (returning
// ctx.Err()), or a write fails. Writes against a released target are no-ops,
// so a binding outlives its target harmlessly until src ends.
func Bind[T any](ctx context.Context, p *Property, src <-chan T, bridge Bridge[T]) error {
	if bridge == nil {
		bridge = Identity[T]()
	}

	capitan.Emit(ctx, BindStarted, KeyPath.Field(p.Path()))

	delivered := 0
	defer func() {
		capitan.Emit(ctx, BindStopped,
			KeyPath.Field(p.Path()),
			KeyDelivered.Field(delivered),
		)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case v, ok := <-src:
			if !ok {
				return nil
			}
			if err := p.SetValue(ctx, bridge(v)); err != nil {
				capitan.Emit(ctx, BindFailed,
					KeyPath.Field(p.Path()),
					KeyError.Field(err.Error()),
				)
				return fmt.Errorf("bind %s: %w", p.Path(), err)
			}
			delivered++
		}
	}
}

// BindProducer starts produce and binds its values to p. The producer's
// context is canceled when the binding returns.
func BindProducer[T any](ctx context.Context, p *Property, produce func(context.Context) <-chan T, bridge Bridge[T]) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	return Bind(ctx, p, produce(ctx), bridge)
}

// BindProperty binds another reactive value holder to p by taking its
// producer: its current value is written first, then every change.
func BindProperty[T any](ctx context.Context, p *Property, src Holder[T], bridge Bridge[T]) error {
	return BindProducer(ctx, p, src.Producer, bridge)
}
