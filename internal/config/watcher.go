package config

// Implementation Plan:
// 1. Use fsnotify to watch the directory holding the config file (editors replace files)
// 2. Ignore events for other files in that directory
// 3. Debounce events (500ms), then reload through the Loader
// 4. Keep the old state when the new file does not load or validate
// 5. Hand a good config to every Reloadable

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloadable is a component that can apply a reloaded configuration.
type Reloadable interface {
	Reload(ctx context.Context, cfg *Config) error
}

// ReloadFunc adapts a function to Reloadable.
type ReloadFunc func(ctx context.Context, cfg *Config) error

func (f ReloadFunc) Reload(ctx context.Context, cfg *Config) error { return f(ctx, cfg) }

// Watcher reloads the configuration when its file changes.
type Watcher struct {
	loader       Loader
	path         string
	targets      []Reloadable
	watcher      *fsnotify.Watcher
	debounceTime time.Duration
	logger       *slog.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets how long the watcher waits for events to settle.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) { w.debounceTime = d }
}

// WithWatchLogger sets the logger.
func WithWatchLogger(l *slog.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// NewWatcher creates a watcher for the config file at path.
func NewWatcher(loader Loader, path string, targets []Reloadable, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &Watcher{
		loader:       loader,
		path:         abs,
		targets:      targets,
		watcher:      watcher,
		debounceTime: 500 * time.Millisecond,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is cancelled, then releases the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	reloadCh := make(chan struct{}, 1)
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounceTime, func() {
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			})

		case <-reloadCh:
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	start := time.Now()
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Error("config reload failed, keeping previous settings", "path", w.path, "error", err)
		return
	}
	for _, target := range w.targets {
		if err := target.Reload(ctx, cfg); err != nil {
			w.logger.Error("failed to apply reloaded config", "error", err)
		}
	}
	w.logger.Info("config reloaded", "path", w.path, "duration", time.Since(start))
}
