package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zoobzio/tether"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v failed: %v", args, err)
	}
	return strings.TrimSpace(out.String())
}

func TestGetCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if got := run(t, "get", path, "server.port"); got != "8080" {
		t.Errorf("expected 8080, got %q", got)
	}
}

func TestSetCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	run(t, "set", path, "server.host", "example.com")

	if got := run(t, "get", path, "server.host"); got != `"example.com"` {
		t.Errorf("expected \"example.com\", got %q", got)
	}
}

func TestGetCommand_MissingFile(t *testing.T) {
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"get", filepath.Join(t.TempDir(), "missing.yaml"), "port"})
	err := rootCmd.Execute()
	if !errors.Is(err, tether.ErrReleased) {
		t.Errorf("expected ErrReleased for missing file, got %v", err)
	}
}
