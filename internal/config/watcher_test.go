package config

// Test Plan for Watcher:
// - Rewriting the config file reloads it and hands the new config to every target
// - A file that fails validation is not applied; the next good write is
// - Changes to other files in the directory are ignored
// - Run returns when the context is cancelled

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) (<-chan *Config, context.CancelFunc, <-chan error) {
	t.Helper()
	reloaded := make(chan *Config, 10)
	target := ReloadFunc(func(ctx context.Context, cfg *Config) error {
		reloaded <- cfg
		return nil
	})

	w, err := NewWatcher(NewLoader(filepath.Dir(path), path), path, []Reloadable{target}, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(cancel)
	return reloaded, cancel, done
}

func TestWatcher_Reload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	reloaded, _, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7071\n"), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 7071, cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatcher_KeepsStateOnInvalidFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	reloaded, _, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o644))
	select {
	case cfg := <-reloaded:
		t.Fatalf("invalid config applied: port %d", cfg.Server.Port)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7072\n"), 0o644))
	select {
	case cfg := <-reloaded:
		assert.Equal(t, 7072, cfg.Server.Port)
	case <-time.After(5 * time.Second):
		t.Fatal("config was not reloaded")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0o644))
	reloaded, _, _ := startWatcher(t, path)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hello"), 0o644))
	select {
	case <-reloaded:
		t.Fatal("unrelated file triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopsOnCancel(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("cursor:\n  page_size: 10\n"), 0o644))
	_, cancel, done := startWatcher(t, path)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
