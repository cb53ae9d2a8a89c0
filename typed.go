package tether

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/zoobzio/capitan"
)

// Typed is a read view over a Property that decodes native values into T.
type Typed[T any] struct {
	prop *Property
}

// NewTyped wraps p in a typed view.
func NewTyped[T any](p *Property) *Typed[T] {
	return &Typed[T]{prop: p}
}

// Property returns the underlying Property.
func (t *Typed[T]) Property() *Property {
	return t.prop
}

// Value reads the attribute directly and decodes it. An absent value decodes
// to the zero value of T.
func (t *Typed[T]) Value(ctx context.Context) (T, error) {
	raw, err := t.prop.Value(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](raw)
}

// Producer decodes the Property's producer. Values that cannot be decoded are
// skipped and reported through PropertyDecodeFailed.
func (t *Typed[T]) Producer(ctx context.Context) <-chan T {
	return t.decodeAll(ctx, t.prop.Producer(ctx))
}

// Signal decodes the Property's signal.
func (t *Typed[T]) Signal(ctx context.Context) <-chan T {
	return t.decodeAll(ctx, t.prop.Signal(ctx))
}

func (t *Typed[T]) decodeAll(ctx context.Context, in <-chan any) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for raw := range in {
			v, err := Decode[T](raw)
			if err != nil {
				capitan.Emit(ctx, PropertyDecodeFailed,
					KeyPath.Field(t.prop.Path()),
					KeyError.Field(err.Error()),
				)
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Decode converts a native value into T. Maps decode into structs through
// their mapstructure tags and scalar types are converted weakly, so "8080",
// 8080.0 and 8080 all decode into an int.
func Decode[T any](raw any) (T, error) {
	var out T
	if raw == nil {
		return out, nil
	}
	if v, ok := raw.(T); ok {
		return v, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return out, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return out, fmt.Errorf("failed to decode %T into %T: %w", raw, out, err)
	}
	return out, nil
}
