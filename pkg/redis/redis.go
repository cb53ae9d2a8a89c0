// Package redis provides a tether.Object backed by a Redis hash.
//
// Each attribute is a hash field holding a codec-encoded value. Hash fields
// are flat, so only single-segment attribute paths are accepted. Every write
// made through the Object is announced on a pub/sub channel together with the
// encoded value, so observers in any process see each write exactly once and
// in write order. Deleting the hash through Release deallocates the object.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/tether"
)

// announcement is the pub/sub payload published for every write and release.
type announcement struct {
	Field    string `json:"field,omitempty"`
	Value    []byte `json:"value,omitempty"`
	Released bool   `json:"released,omitempty"`
}

// Object exposes a Redis hash as a tether.Object.
type Object struct {
	client  *redis.Client
	key     string
	channel string
	codec   tether.Codec
	clock   clockz.Clock
	create  bool
}

// Option configures an Object.
type Option func(*Object)

// WithCodec sets the codec used for field values. Default: tether.JSONCodec.
func WithCodec(codec tether.Codec) Option {
	return func(o *Object) {
		o.codec = codec
	}
}

// WithChannel overrides the pub/sub channel used for change announcements.
// Default: "tether:<key>".
func WithChannel(channel string) Option {
	return func(o *Object) {
		o.channel = channel
	}
}

// WithClock sets the clock used to stamp changes.
func WithClock(clock clockz.Clock) Option {
	return func(o *Object) {
		o.clock = clock
	}
}

// WithCreate treats a missing hash as an empty object that Set may create.
// Without it a missing hash is a released object.
func WithCreate() Option {
	return func(o *Object) {
		o.create = true
	}
}

// New creates an Object for the hash stored at key.
func New(client *redis.Client, key string, opts ...Option) *Object {
	o := &Object{
		client:  client,
		key:     key,
		channel: "tether:" + key,
		codec:   tether.JSONCodec{},
		clock:   clockz.RealClock,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Get returns the decoded value of the field at attr, or nil if the field is
// unset. A missing hash reports tether.ErrReleased unless WithCreate is set.
func (o *Object) Get(ctx context.Context, attr string) (any, error) {
	if err := field(attr); err != nil {
		return nil, err
	}
	return o.current(ctx, attr)
}

// Set stores v at attr and announces the write with its encoded value.
func (o *Object) Set(ctx context.Context, attr string, v any) error {
	if err := field(attr); err != nil {
		return err
	}
	if !o.create {
		if err := o.exists(ctx); err != nil {
			return err
		}
	}

	data, err := o.codec.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", attr, err)
	}
	msg, err := json.Marshal(announcement{Field: attr, Value: data})
	if err != nil {
		return fmt.Errorf("failed to encode announcement: %w", err)
	}

	pipe := o.client.TxPipeline()
	pipe.HSet(ctx, o.key, attr, data)
	pipe.Publish(ctx, o.channel, msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set %s: %w", attr, err)
	}
	return nil
}

// Release deletes the hash and tells every observer the object is gone.
func (o *Object) Release(ctx context.Context) error {
	msg, err := json.Marshal(announcement{Released: true})
	if err != nil {
		return fmt.Errorf("failed to encode announcement: %w", err)
	}

	pipe := o.client.TxPipeline()
	pipe.Del(ctx, o.key)
	pipe.Publish(ctx, o.channel, msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to release %s: %w", o.key, err)
	}
	return nil
}

// Observe subscribes to change announcements for the hash and emits the value
// carried by each write to attr. The current value is emitted first when
// requested. The stream closes on release or when ctx is canceled.
func (o *Object) Observe(ctx context.Context, attr string, opts tether.ObserveOptions) (<-chan tether.Change, error) {
	if err := field(attr); err != nil {
		return nil, err
	}

	pubsub := o.client.Subscribe(ctx, o.channel)

	// Verify subscription worked
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", o.channel, err)
	}

	out := make(chan tether.Change)

	go func() {
		defer close(out)
		defer pubsub.Close()

		emit := func(c tether.Change) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if opts.Initial {
			v, err := o.current(ctx, attr)
			if errors.Is(err, tether.ErrReleased) {
				return
			}
			if err != nil {
				emit(tether.Change{Path: attr, At: o.clock.Now(), Err: err})
				return
			}
			if !emit(tether.Change{Path: attr, Value: v, At: o.clock.Now()}) {
				return
			}
		}

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var a announcement
				if err := json.Unmarshal([]byte(msg.Payload), &a); err != nil {
					// Not one of ours.
					continue
				}
				if a.Released {
					return
				}
				if a.Field != attr {
					continue
				}

				v, err := o.decode(attr, a.Value)
				if err != nil {
					emit(tether.Change{Path: attr, At: o.clock.Now(), Err: err})
					return
				}
				if !emit(tether.Change{Path: attr, Value: v, At: o.clock.Now()}) {
					return
				}
			}
		}
	}()

	return out, nil
}

// field rejects nested paths, which have no representation in a flat hash.
func field(attr string) error {
	p, err := tether.ParsePath(attr)
	if err != nil {
		return err
	}
	if len(p) != 1 {
		return fmt.Errorf("%w: %q: redis hash fields cannot be nested", tether.ErrInvalidPath, attr)
	}
	return nil
}

// current reads attr, applying the missing-hash rule.
func (o *Object) current(ctx context.Context, attr string) (any, error) {
	if !o.create {
		if err := o.exists(ctx); err != nil {
			return nil, err
		}
	}
	data, err := o.client.HGet(ctx, o.key, attr).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", attr, err)
	}
	return o.decode(attr, data)
}

func (o *Object) exists(ctx context.Context) error {
	n, err := o.client.Exists(ctx, o.key).Result()
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", o.key, err)
	}
	if n == 0 {
		return tether.ErrReleased
	}
	return nil
}

func (o *Object) decode(attr string, data []byte) (any, error) {
	var v any
	if err := o.codec.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", attr, err)
	}
	return v, nil
}

// Ensure Object implements tether.Object.
var _ tether.Object = (*Object)(nil)
