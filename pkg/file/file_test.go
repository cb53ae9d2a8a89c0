package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zoobzio/tether"
)

func writeDoc(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	return path
}

func TestNew(t *testing.T) {
	obj := New("/path/to/config.json")
	if obj == nil {
		t.Fatal("expected non-nil object")
	}
	if obj.path != "/path/to/config.json" {
		t.Errorf("expected path '/path/to/config.json', got %q", obj.path)
	}
	if _, ok := obj.codec.(tether.JSONCodec); !ok {
		t.Errorf("expected JSON codec for .json file, got %T", obj.codec)
	}
	if _, ok := New("config.yaml").codec.(tether.YAMLCodec); !ok {
		t.Error("expected YAML codec for .yaml file")
	}
}

func TestObject_Get(t *testing.T) {
	path := writeDoc(t, "config.yaml", "server:\n  port: 8080\n")
	obj := New(path)

	v, err := obj.Get(context.Background(), "server.port")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != 8080 {
		t.Errorf("expected 8080, got %v (%T)", v, v)
	}

	missing, err := obj.Get(context.Background(), "server.host")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unset attribute, got %v", missing)
	}
}

func TestObject_SetThenGet(t *testing.T) {
	path := writeDoc(t, "config.json", `{"server": {"port": 8080}}`)
	obj := New(path)
	ctx := context.Background()

	if err := obj.Set(ctx, "server.host", "example.com"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	v, err := obj.Get(ctx, "server.host")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if v != "example.com" {
		t.Errorf("expected example.com, got %v", v)
	}

	port, err := obj.Get(ctx, "server.port")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if port != float64(8080) {
		t.Errorf("expected existing attribute to survive, got %v", port)
	}
}

func TestObject_ReleasedAfterRemove(t *testing.T) {
	path := writeDoc(t, "config.yaml", "port: 1\n")
	obj := New(path)

	if err := obj.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	if _, err := obj.Get(context.Background(), "port"); !errors.Is(err, tether.ErrReleased) {
		t.Errorf("expected ErrReleased, got %v", err)
	}
	if err := obj.Set(context.Background(), "port", 2); !errors.Is(err, tether.ErrReleased) {
		t.Errorf("expected ErrReleased, got %v", err)
	}
}

func TestObject_Observe_NonexistentFile(t *testing.T) {
	obj := New("/nonexistent/path/config.json")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := obj.Observe(ctx, "port", tether.ObserveOptions{Initial: true})
	if !errors.Is(err, tether.ErrReleased) {
		t.Errorf("expected ErrReleased for nonexistent file, got %v", err)
	}
}

func TestObject_Observe_EmitsInitialValue(t *testing.T) {
	path := writeDoc(t, "config.yaml", "port: 8080\n")
	obj := New(path)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	ch, err := obj.Observe(ctx, "port", tether.ObserveOptions{Initial: true})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	select {
	case c := <-ch:
		if c.Value != 8080 {
			t.Errorf("expected 8080, got %v", c.Value)
		}
		if c.Path != "port" {
			t.Errorf("expected path 'port', got %q", c.Path)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for initial value")
	}
}

func TestObject_Observe_EmitsOnSet(t *testing.T) {
	path := writeDoc(t, "config.yaml", "port: 1\n")
	obj := New(path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := obj.Observe(ctx, "port", tether.ObserveOptions{Initial: true})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	// Drain initial value
	<-ch

	if err := obj.Set(ctx, "port", 2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	select {
	case c := <-ch:
		if c.Value != 2 {
			t.Errorf("expected 2, got %v", c.Value)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for change")
	}
}

func TestObject_Observe_CollapsesRepeatedValue(t *testing.T) {
	path := writeDoc(t, "config.yaml", "port: 1\n")
	obj := New(path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := obj.Observe(ctx, "port", tether.ObserveOptions{Initial: true})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	<-ch

	next := func() any {
		t.Helper()
		select {
		case c := <-ch:
			return c.Value
		case <-ctx.Done():
			t.Fatal("timeout waiting for change")
			return nil
		}
	}

	if err := obj.Set(ctx, "port", 2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v := next(); v != 2 {
		t.Fatalf("expected 2, got %v", v)
	}

	// Rewriting the same value emits nothing; the next change is 3.
	if err := obj.Set(ctx, "port", 2); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := obj.Set(ctx, "port", 3); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v := next(); v != 3 {
		t.Errorf("expected 3, got %v", v)
	}
}

func TestObject_Observe_ClosesOnRemove(t *testing.T) {
	path := writeDoc(t, "config.yaml", "port: 1\n")
	obj := New(path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := obj.Observe(ctx, "port", tether.ObserveOptions{Initial: true})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	<-ch

	if err := obj.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-ctx.Done():
			t.Fatal("timeout waiting for stream to close after remove")
		}
	}
}

func TestObject_Observe_ClosesOnContextCancel(t *testing.T) {
	path := writeDoc(t, "config.yaml", "port: 1\n")
	obj := New(path)

	ctx, cancel := context.WithCancel(context.Background())

	ch, err := obj.Observe(ctx, "port", tether.ObserveOptions{Initial: true})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	<-ch

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close after context cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel to close")
	}
}

func TestProperty_FollowsFileLifetime(t *testing.T) {
	path := writeDoc(t, "config.yaml", "volume: 3\n")
	obj := New(path)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	prop, err := tether.New(ctx, obj, "volume")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	values := prop.Producer(ctx)
	select {
	case v := <-values:
		if v != 3 {
			t.Errorf("expected replayed 3, got %v", v)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for replay")
	}

	if err := obj.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	select {
	case <-prop.Done():
	case <-ctx.Done():
		t.Fatal("timeout waiting for property to end")
	}

	v, err := prop.Value(ctx)
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if v != nil {
		t.Errorf("expected nil after release, got %v", v)
	}
	if prop.State() != tether.StateEnded {
		t.Errorf("expected ended, got %s", prop.State())
	}
}
