package config

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/whoamaiii/sensetrack/internal/logger"
)

// Holder provides thread-safe access to configuration with hot reload.
// Analytics thresholds can change at runtime; registered listeners are
// notified so caches keyed on config can invalidate.
type Holder struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	log      logger.Logger
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	stopCh   chan struct{}
}

// NewHolder loads the initial configuration from path.
func NewHolder(path string, log logger.Logger) (*Holder, error) {
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	return &Holder{
		config: cfg,
		path:   absPath,
		log:    log,
		stopCh: make(chan struct{}),
	}, nil
}

// Get returns the current configuration (thread-safe).
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.config
}

// Reload re-reads the configuration from disk. On failure the old
// configuration is kept.
func (h *Holder) Reload() error {
	h.log.Info("reloading configuration", logger.String("path", h.path))

	newCfg, err := LoadFile(h.path)
	if err != nil {
		h.log.Error("config reload failed, keeping old config", logger.Err(err))
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	old := h.config
	h.config = newCfg
	listeners := make([]func(*Config), len(h.onChange))
	copy(listeners, h.onChange)
	h.mu.Unlock()

	h.logChanges(old, newCfg)
	for _, fn := range listeners {
		fn(newCfg)
	}

	h.log.Info("configuration reloaded")
	return nil
}

// OnChange registers a callback invoked after each successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// WatchFile starts watching the config file; writes trigger a reload.
func (h *Holder) WatchFile() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	h.watcher = watcher

	// Watch the directory, not the file: editors that save atomically
	// replace the inode and a file watch would go stale.
	dir := filepath.Dir(h.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	go h.watchLoop()

	h.log.Info("watching config file for changes", logger.String("path", h.path))
	return nil
}

// Stop stops the file watcher.
func (h *Holder) Stop() {
	close(h.stopCh)
	if h.watcher != nil {
		h.watcher.Close()
	}
}

func (h *Holder) watchLoop() {
	filename := filepath.Base(h.path)

	for {
		select {
		case event, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filename {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				h.log.Debug("config file changed",
					logger.String("event", event.Op.String()),
					logger.String("file", event.Name),
				)
				if err := h.Reload(); err != nil {
					h.log.Error("file watch reload failed", logger.Err(err))
				}
			}

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.log.Error("file watcher error", logger.Err(err))

		case <-h.stopCh:
			return
		}
	}
}

func (h *Holder) logChanges(old, new *Config) {
	if old.Logging.Level != new.Logging.Level {
		h.log.Info("log level changed",
			logger.String("old", old.Logging.Level),
			logger.String("new", new.Logging.Level),
		)
	}
	if old.Analytics.EnhancedAnalysis.AnomalyThreshold != new.Analytics.EnhancedAnalysis.AnomalyThreshold {
		h.log.Info("anomaly threshold changed",
			logger.Float64("old", old.Analytics.EnhancedAnalysis.AnomalyThreshold),
			logger.Float64("new", new.Analytics.EnhancedAnalysis.AnomalyThreshold),
		)
	}
	if old.Analytics.Cache.TTLMillis != new.Analytics.Cache.TTLMillis {
		h.log.Info("cache ttl changed",
			logger.Int("old", old.Analytics.Cache.TTLMillis),
			logger.Int("new", new.Analytics.Cache.TTLMillis),
		)
	}
}
