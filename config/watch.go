package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the configuration file when it changes on disk. It
// watches the file's directory rather than the file itself so editors
// that replace the file on save keep being seen.
type Watcher struct {
	path    string
	logger  *zap.Logger
	fsw     *fsnotify.Watcher
	changes chan *Config
	stop    chan struct{}

	mu      sync.Mutex
	running bool
}

// NewWatcher creates a watcher for the config file at path. Call Start to
// begin receiving reloads on Changes.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &Watcher{
		path:    abs,
		logger:  logger.Named("config"),
		fsw:     fsw,
		changes: make(chan *Config, 1),
		stop:    make(chan struct{}),
	}, nil
}

// Changes delivers each successfully reloaded configuration. Reloads that
// fail validation are logged and skipped.
func (w *Watcher) Changes() <-chan *Config {
	return w.changes
}

// Start begins watching. It returns an error when already running.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("config watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	go func() {
		for {
			select {
			case event, ok := <-w.fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.path {
					continue
				}
				if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
					continue
				}

				cfg, err := LoadFile(w.path)
				if err != nil {
					w.logger.Warn("ignoring config reload", zap.Error(err))
					continue
				}
				w.logger.Info("config reloaded", zap.String("path", w.path))

				// Keep only the newest reload when nobody is draining.
				select {
				case w.changes <- cfg:
				default:
					select {
					case <-w.changes:
					default:
					}
					w.changes <- cfg
				}

			case err, ok := <-w.fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("config watcher error", zap.Error(err))

			case <-w.stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts watching and releases the underlying watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}
	w.running = false

	close(w.stop)
	if err := w.fsw.Close(); err != nil {
		w.logger.Warn("error closing fsnotify watcher", zap.Error(err))
	}
}
