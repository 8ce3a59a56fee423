package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherDeliversReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("agent:\n  url: \"http://one:18080\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Stop()
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	if err := os.WriteFile(path, []byte("agent:\n  url: \"http://two:18080\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case cfg := <-w.Changes():
			if cfg.Agent.URL == "http://two:18080" {
				return
			}
			// A write can fire more than one event; keep draining.
		case <-deadline:
			t.Fatal("Timeout waiting for config reload")
		}
	}
}

func TestWatcherSkipsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: info\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	w, err := NewWatcher(path, nil)
	if err != nil {
		t.Fatalf("Failed to create watcher: %v", err)
	}
	defer w.Stop()
	if err := w.Start(); err != nil {
		t.Fatalf("Failed to start watcher: %v", err)
	}

	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644); err != nil {
		t.Fatalf("Failed to rewrite config: %v", err)
	}

	select {
	case cfg := <-w.Changes():
		t.Fatalf("Expected the invalid reload to be skipped, got level %q", cfg.Logging.Level)
	case <-time.After(500 * time.Millisecond):
	}

	// Double start is refused while running.
	if err := w.Start(); err == nil {
		t.Error("Expected starting a running watcher to fail")
	}
}
