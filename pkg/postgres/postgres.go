// Package postgres provides a tether.Object backed by a PostgreSQL row.
//
// Each object is one row of a two-column table (key TEXT, doc JSONB) and
// attribute paths resolve against the JSON document, nested paths included.
// Set rewrites the document under a row lock and, in the same transaction,
// sends a NOTIFY carrying the written path and the resulting document.
// Observers LISTEN on the channel and emit straight from the payload, so every
// committed write is seen once and in commit order. Release deletes the row.
//
// NOTIFY payloads are limited to 8000 bytes by PostgreSQL, so documents must
// stay under that size once encoded.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/tether"
)

// notice is the NOTIFY payload sent for every write and release.
type notice struct {
	Key      string          `json:"key"`
	Path     string          `json:"path,omitempty"`
	Doc      json.RawMessage `json:"doc,omitempty"`
	Released bool            `json:"released,omitempty"`
}

// Object exposes a PostgreSQL row as a tether.Object.
type Object struct {
	pool    *pgxpool.Pool
	key     string
	table   string
	channel string
	clock   clockz.Clock
	create  bool
}

// Option configures an Object.
type Option func(*Object)

// WithTable sets the table holding documents. Default: "tether_objects".
func WithTable(table string) Option {
	return func(o *Object) {
		o.table = table
	}
}

// WithChannel sets the LISTEN/NOTIFY channel. Default: "tether_changes".
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

// WithCreate treats a missing row as an empty document that Set may create.
// Without it a missing row is a released object.
func WithCreate() Option {
	return func(o *Object) {
		o.create = true
	}
}

// New creates an Object for the row identified by key.
func New(pool *pgxpool.Pool, key string, opts ...Option) *Object {
	o := &Object{
		pool:    pool,
		key:     key,
		table:   "tether_objects",
		channel: "tether_changes",
		clock:   clockz.RealClock,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// EnsureTable creates the document table if it does not exist.
func EnsureTable(ctx context.Context, pool *pgxpool.Pool, table string) error {
	_, err := pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, doc JSONB NOT NULL DEFAULT '{}'::jsonb)`,
		pgx.Identifier{table}.Sanitize(),
	))
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}
	return nil
}

// Get returns the value at attr, or nil if the attribute is unset.
func (o *Object) Get(ctx context.Context, attr string) (any, error) {
	p, err := tether.ParsePath(attr)
	if err != nil {
		return nil, err
	}
	doc, err := o.load(ctx)
	if err != nil {
		return nil, err
	}
	v, _ := p.Lookup(doc)
	return v, nil
}

// Set stores v at attr and notifies observers with the resulting document.
func (o *Object) Set(ctx context.Context, attr string, v any) error {
	p, err := tether.ParsePath(attr)
	if err != nil {
		return err
	}

	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if o.create {
		_, err := tx.Exec(ctx, fmt.Sprintf(
			`INSERT INTO %s (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`, o.ident(),
		), o.key)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", o.key, err)
		}
	}

	var raw []byte
	err = tx.QueryRow(ctx, fmt.Sprintf(
		`SELECT doc FROM %s WHERE key = $1 FOR UPDATE`, o.ident(),
	), o.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return tether.ErrReleased
	}
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", o.key, err)
	}

	doc, err := tether.DecodeDocument(tether.JSONCodec{}, raw)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", o.key, err)
	}
	if err := p.Assign(doc, v); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", o.key, err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET doc = $2 WHERE key = $1`, o.ident(),
	), o.key, data); err != nil {
		return fmt.Errorf("failed to set %s: %w", attr, err)
	}
	if err := o.notify(ctx, tx, notice{Key: o.key, Path: p.String(), Doc: data}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %s: %w", attr, err)
	}
	return nil
}

// Release deletes the row and tells every observer the object is gone.
func (o *Object) Release(ctx context.Context) error {
	tx, err := o.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, o.ident()), o.key); err != nil {
		return fmt.Errorf("failed to release %s: %w", o.key, err)
	}
	if err := o.notify(ctx, tx, notice{Key: o.key, Released: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit release of %s: %w", o.key, err)
	}
	return nil
}

// Observe listens for notifications about this row and emits the value at
// attr from every write to an overlapping path. The current value is emitted
// first when requested. The stream closes on release or when ctx is canceled;
// losing the connection is delivered as a failure event.
func (o *Object) Observe(ctx context.Context, attr string, opts tether.ObserveOptions) (<-chan tether.Change, error) {
	p, err := tether.ParsePath(attr)
	if err != nil {
		return nil, err
	}

	conn, err := o.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	// Start listening before the initial read so no write falls in between.
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{o.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on channel %s: %w", o.channel, err)
	}

	out := make(chan tether.Change)

	go func() {
		defer close(out)
		defer func() {
			// The connection goes back to the pool and must not keep listening.
			_, _ = conn.Exec(context.Background(), "UNLISTEN *")
			conn.Release()
		}()

		emit := func(c tether.Change) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if opts.Initial {
			v, err := o.Get(ctx, attr)
			if errors.Is(err, tether.ErrReleased) {
				return
			}
			if err != nil {
				if ctx.Err() == nil {
					emit(tether.Change{Path: attr, At: o.clock.Now(), Err: err})
				}
				return
			}
			if !emit(tether.Change{Path: attr, Value: v, At: o.clock.Now()}) {
				return
			}
		}

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				emit(tether.Change{Path: attr, At: o.clock.Now(), Err: err})
				return
			}

			v, kind, err := o.resolve(p, n.Payload)
			switch {
			case err != nil:
				emit(tether.Change{Path: attr, At: o.clock.Now(), Err: err})
				return
			case kind == released:
				return
			case kind == skip:
				continue
			}
			if !emit(tether.Change{Path: attr, Value: v, At: o.clock.Now()}) {
				return
			}
		}
	}()

	return out, nil
}

// outcome classifies a notification for one observer.
type outcome int

const (
	skip outcome = iota
	deliver
	released
)

// resolve interprets a NOTIFY payload for an observer of p.
func (o *Object) resolve(p tether.Path, payload string) (any, outcome, error) {
	var n notice
	if err := json.Unmarshal([]byte(payload), &n); err != nil || n.Key != o.key {
		// Another object, or not one of ours.
		return nil, skip, nil
	}
	if n.Released {
		return nil, released, nil
	}

	written, err := tether.ParsePath(n.Path)
	if err != nil || !written.Overlaps(p) {
		return nil, skip, nil
	}

	doc, err := tether.DecodeDocument(tether.JSONCodec{}, n.Doc)
	if err != nil {
		return nil, skip, fmt.Errorf("failed to decode notification for %s: %w", o.key, err)
	}
	v, _ := p.Lookup(doc)
	return v, deliver, nil
}

func (o *Object) load(ctx context.Context) (map[string]any, error) {
	var raw []byte
	err := o.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT doc FROM %s WHERE key = $1`, o.ident(),
	), o.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		if o.create {
			return map[string]any{}, nil
		}
		return nil, tether.ErrReleased
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", o.key, err)
	}
	doc, err := tether.DecodeDocument(tether.JSONCodec{}, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", o.key, err)
	}
	return doc, nil
}

func (o *Object) notify(ctx context.Context, tx pgx.Tx, n notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, o.channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", o.channel, err)
	}
	return nil
}

func (o *Object) ident() string {
	return pgx.Identifier{o.table}.Sanitize()
}

// Ensure Object implements tether.Object.
var _ tether.Object = (*Object)(nil)
