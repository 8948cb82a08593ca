// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher hot-reloads the non-secret, operationally safe fields of a Config
// (currently: log level) whenever the backing file changes on disk. TLS
// material, listen addresses, and upstream endpoints are deliberately left
// alone — those require a process restart to take effect safely.
type Watcher struct {
	path string
	log  zerolog.Logger

	mu  sync.RWMutex
	cfg *Config
}

// NewWatcher wraps cfg (already loaded via Load) for hot reload of the file at path.
func NewWatcher(path string, cfg *Config, log zerolog.Logger) *Watcher {
	return &Watcher{path: path, log: log, cfg: cfg}
}

// LogLevel returns the currently active log level, safe for concurrent use
// alongside Run's reloads.
func (w *Watcher) LogLevel() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg.Logging.Level
}

// Run watches the config file until ctx is canceled, reloading LogLevel on
// every write event. It never returns an error for a missing file — there's
// simply nothing to watch.
func (w *Watcher) Run(ctx context.Context) error {
	if w.path == "" {
		<-ctx.Done()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.path); err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config file watch unavailable")
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("config file watch error")
		}
	}
}

func (w *Watcher) reload() {
	fresh, err := Defaults()
	if err != nil {
		w.log.Error().Err(err).Msg("config reload: rebuilding defaults failed")
		return
	}
	if err := MergeFile(fresh, w.path); err != nil {
		w.log.Warn().Err(err).Str("path", w.path).Msg("config reload failed, keeping previous value")
		return
	}
	ApplyEnv(fresh)

	w.mu.Lock()
	if fresh.Logging.Level != w.cfg.Logging.Level {
		w.log.Info().
			Str("old_level", w.cfg.Logging.Level).
			Str("new_level", fresh.Logging.Level).
			Msg("log level hot-reloaded from config file")
	}
	w.cfg.Logging.Level = fresh.Logging.Level
	w.mu.Unlock()
}
