// Package file provides a tether.Object backed by a YAML or JSON document on
// disk, observed with fsnotify.
//
// Attribute paths address nested keys of the document. Removing or renaming
// the file deallocates the object: observation streams close and reads report
// tether.ErrReleased.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/tether"
)

// Object is a document file exposed as a tether.Object.
type Object struct {
	path  string
	codec tether.Codec
	clock clockz.Clock

	// mu serializes read-modify-write cycles from this process.
	mu sync.Mutex
}

// Option configures an Object.
type Option func(*Object)

// WithCodec sets the document codec. By default files ending in .json use
// tether.JSONCodec and everything else uses tether.YAMLCodec.
func WithCodec(codec tether.Codec) Option {
	return func(o *Object) {
		o.codec = codec
	}
}

// WithClock sets the clock used to stamp changes.
func WithClock(clock clockz.Clock) Option {
	return func(o *Object) {
		o.clock = clock
	}
}

// New creates an Object for the document at path.
func New(path string, opts ...Option) *Object {
	o := &Object{
		path:  path,
		codec: codecFor(path),
		clock: clockz.RealClock,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func codecFor(path string) tether.Codec {
	if filepath.Ext(path) == ".json" {
		return tether.JSONCodec{}
	}
	return tether.YAMLCodec{}
}

// Get returns the value at attr, or nil if the attribute is unset.
func (o *Object) Get(_ context.Context, attr string) (any, error) {
	p, err := tether.ParsePath(attr)
	if err != nil {
		return nil, err
	}
	doc, err := o.load()
	if err != nil {
		return nil, err
	}
	v, _ := p.Lookup(doc)
	return v, nil
}

// Set rewrites the document with v stored at attr. The file is written in
// place so observers keep watching the same file.
func (o *Object) Set(_ context.Context, attr string, v any) error {
	p, err := tether.ParsePath(attr)
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	info, err := os.Stat(o.path)
	if errors.Is(err, fs.ErrNotExist) {
		return tether.ErrReleased
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", o.path, err)
	}

	doc, err := o.load()
	if err != nil {
		return err
	}
	if err := p.Assign(doc, v); err != nil {
		return err
	}
	data, err := o.codec.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", o.path, err)
	}
	// Not a temp file plus rename: that replaces the watched inode and every
	// observer would read it as a release. A reader may see the file
	// truncated mid-write; Observe skips reads that do not decode.
	if err := os.WriteFile(o.path, data, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", o.path, err)
	}
	return nil
}

// Release deallocates the object by removing its file.
func (o *Object) Release() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := os.Remove(o.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", o.path, err)
	}
	return nil
}

// Observe watches the file and emits the value at attr whenever the file is
// written. Consecutive identical values are coalesced, since a single write
// commonly produces several filesystem events. The stream closes when the
// file is removed or renamed, or ctx is canceled. Watcher errors are
// delivered as failure changes.
func (o *Object) Observe(ctx context.Context, attr string, opts tether.ObserveOptions) (<-chan tether.Change, error) {
	p, err := tether.ParsePath(attr)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(o.path); err != nil {
		watcher.Close()
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to watch %s: %w", o.path, tether.ErrReleased)
		}
		return nil, fmt.Errorf("failed to watch %s: %w", o.path, err)
	}

	out := make(chan tether.Change)

	go func() {
		defer close(out)
		defer watcher.Close()

		var (
			last    any
			hasLast bool
		)
		// A single write raises several events, so equal consecutive values
		// collapse into one change.
		emit := func(v any) bool {
			if hasLast && reflect.DeepEqual(last, v) {
				return true
			}
			last, hasLast = v, true
			select {
			case out <- tether.Change{Path: p.String(), Value: v, At: o.clock.Now()}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if opts.Initial {
			v, err := o.read(p)
			if errors.Is(err, tether.ErrReleased) {
				return
			}
			if err == nil && !emit(v) {
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}

				v, err := o.read(p)
				if errors.Is(err, tether.ErrReleased) {
					return
				}
				if err != nil {
					// Partial writes decode badly; wait for the next event.
					continue
				}
				if !emit(v) {
					return
				}

			case werr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				select {
				case out <- tether.Change{Path: p.String(), At: o.clock.Now(), Err: werr}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()

	return out, nil
}

// read loads the document and resolves p. An empty file is reported as an
// error because it is almost always a write in progress.
func (o *Object) read(p tether.Path) (any, error) {
	data, err := os.ReadFile(o.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, tether.ErrReleased
	}
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty document")
	}
	doc, err := tether.DecodeDocument(o.codec, data)
	if err != nil {
		return nil, err
	}
	v, _ := p.Lookup(doc)
	return v, nil
}

func (o *Object) load() (map[string]any, error) {
	data, err := os.ReadFile(o.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, tether.ErrReleased
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", o.path, err)
	}
	doc, err := tether.DecodeDocument(o.codec, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", o.path, err)
	}
	return doc, nil
}

// Ensure Object implements tether.Object.
var _ tether.Object = (*Object)(nil)
