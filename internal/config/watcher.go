// Hot reloading of the optional JSON override file, used in development.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// override is the subset of Config that the JSON file may change at runtime.
type override struct {
	ListenAddr    *string `json:"listenAddr"`
	EnableMetrics *bool   `json:"enableMetrics"`
	EnableTracing *bool   `json:"enableTracing"`
}

// Watcher applies override-file changes to a base Config and notifies
// subscribers. Outside development, or without an override file, it is inert.
type Watcher struct {
	mu        sync.RWMutex
	config    Config
	callbacks []func(Config)
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher creates a watcher over the config's override file.
func NewWatcher(initial Config, logger *zap.Logger) (*Watcher, error) {
	w := &Watcher{
		config: initial,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	if initial.Environment != Development || initial.OverrideFile == "" {
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(initial.OverrideFile); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch override file: %w", err)
	}
	w.watcher = fsWatcher

	w.applyOverrides()
	go w.watchLoop()

	logger.Info("configuration hot reloading enabled",
		zap.String("file", initial.OverrideFile),
	)
	return w, nil
}

// Current returns the effective configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnChange registers a callback invoked after each reload.
func (w *Watcher) OnChange(fn func(Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Stop ends the watch loop.
func (w *Watcher) Stop() {
	if w.watcher != nil {
		close(w.stopCh)
	}
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	// Editors fire several events per save; debounce them.
	var debounce *time.Timer
	const debounceDelay = 500 * time.Millisecond

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.applyOverrides)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) applyOverrides() {
	data, err := os.ReadFile(w.config.OverrideFile)
	if err != nil {
		w.logger.Warn("failed to read override file", zap.Error(err))
		return
	}
	var o override
	if err := json.Unmarshal(data, &o); err != nil {
		w.logger.Warn("invalid override file", zap.Error(err))
		return
	}

	w.mu.Lock()
	if o.ListenAddr != nil {
		w.config.ListenAddr = *o.ListenAddr
	}
	if o.EnableMetrics != nil {
		w.config.EnableMetrics = *o.EnableMetrics
	}
	if o.EnableTracing != nil {
		w.config.EnableTracing = *o.EnableTracing
	}
	cfg := w.config
	callbacks := append(([]func(Config))(nil), w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded")
	for _, fn := range callbacks {
		fn(cfg)
	}
}
