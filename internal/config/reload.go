package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	mixlog "github.com/mohitagr18/game-sound-generator/internal/log"
	"github.com/mohitagr18/game-sound-generator/internal/policy"
)

const defaultDebounce = 500 * time.Millisecond

// #region holder
// PolicyHolder keeps the current policy table and reloads it from its YAML
// file, either on demand or when the file changes on disk.
type PolicyHolder struct {
	mu       sync.RWMutex
	current  policy.Config
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   zerolog.Logger

	listenersMu sync.RWMutex
	listeners   []func(policy.Config)
}

// NewPolicyHolder creates a holder with an initial table. An empty path
// disables reloading.
func NewPolicyHolder(initial policy.Config, path string) *PolicyHolder {
	return &PolicyHolder{
		current:  initial,
		path:     path,
		debounce: defaultDebounce,
		logger:   mixlog.WithComponent("config"),
	}
}

// Get returns the current table.
func (h *PolicyHolder) Get() policy.Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// OnReload registers fn to receive every successfully reloaded table.
func (h *PolicyHolder) OnReload(fn func(policy.Config)) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// #endregion holder

// #region reload
// Reload reads and validates the file. On failure the old table is kept.
func (h *PolicyHolder) Reload(_ context.Context) error {
	if h.path == "" {
		return nil
	}
	h.logger.Info().Str("event", "config.reload_start").Str("path", h.path).Msg("reloading policy table")

	cfg, err := LoadPolicy(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str("event", "config.reload_failed").Msg("keeping previous policy table")
		return err
	}

	h.mu.Lock()
	h.current = cfg
	h.mu.Unlock()

	h.listenersMu.RLock()
	listeners := append([]func(policy.Config){}, h.listeners...)
	h.listenersMu.RUnlock()
	for _, fn := range listeners {
		fn(cfg)
	}

	h.logger.Info().
		Str("event", "config.reload_success").
		Dur("min_dwell", cfg.MinDwell).
		Int("states", len(cfg.Stems)).
		Msg("policy table reloaded")
	return nil
}

// #endregion reload

// #region watcher
// StartWatcher watches the policy file's directory so editors that replace
// the file by rename are picked up. It returns once the watch is installed;
// the loop stops when ctx is done.
func (h *PolicyHolder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Info().Str("event", "config.watcher_disabled").Msg("no policy file, watcher disabled")
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch policy dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().Str("event", "config.watcher_started").Str("path", h.path).Msg("watching policy file")
	go h.watchLoop(ctx, watcher)
	return nil
}

func (h *PolicyHolder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	target := filepath.Clean(h.path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
		_ = watcher.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("policy watcher stopped")
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().Str("event", "config.file_changed").Str("op", ev.Op.String()).Msg("policy file changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(h.debounce, func() {
				if ctx.Err() != nil {
					return
				}
				_ = h.Reload(ctx)
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Str("event", "config.watcher_error").Msg("policy watcher error")
		}
	}
}

// #endregion watcher
