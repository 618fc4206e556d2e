package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ppiankov/glyphgate/internal/config"
)

// ReloadDebounce is how long the reloader waits after the last write.
const ReloadDebounce = 500 * time.Millisecond

// Reloader watches the config file and applies changes to a pipeline.
type Reloader struct {
	watcher  *fsnotify.Watcher
	pipeline *Pipeline
	path     string
	logger   *zap.Logger
	debounce time.Duration
}

// NewReloader creates a file watcher for path. The file must exist.
func NewReloader(p *Pipeline, path string, logger *zap.Logger) (*Reloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("pipeline: watch %q: %w", path, err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("pipeline: create file watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("pipeline: watch %q: %w", path, err)
	}
	return &Reloader{
		watcher:  watcher,
		pipeline: p,
		path:     path,
		logger:   logger,
		debounce: ReloadDebounce,
	}, nil
}

// Reload reads the config file and applies it. A bad file leaves the
// running configuration untouched.
func (r *Reloader) Reload() error {
	cfg, hash, err := config.LoadConfigWithHash(r.path)
	if err != nil {
		return err
	}
	return r.pipeline.Apply(cfg, hash)
}

// Run watches for file changes and reloads. Blocks until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				timer.Reset(r.debounce)
			}
			// editors that replace the file drop the watch; re-add it
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := r.watcher.Add(r.path); err == nil {
					timer.Reset(r.debounce)
				}
			}

		case <-timer.C:
			if err := r.Reload(); err != nil {
				r.logger.Warn("hot-reload failed", zap.String("path", r.path), zap.Error(err))
			} else {
				r.logger.Info("hot-reload: config reloaded", zap.String("path", r.path))
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}
