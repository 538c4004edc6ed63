package persona

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads path into h whenever the file changes, until ctx is done.
// The directory is watched so editors that replace the file are seen too.
// An edit that fails to parse leaves h untouched.
func Watch(ctx context.Context, path string, h *Holder, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("persona")

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("persona watch: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("persona watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("persona watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		reloadTimer *time.Timer
		reloadCh    <-chan time.Time
	)
	resetReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
		} else {
			if !reloadTimer.Stop() {
				select {
				case <-reloadTimer.C:
				default:
				}
			}
			reloadTimer.Reset(reloadDebounce)
		}
		reloadCh = reloadTimer.C
	}
	defer func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				resetReload()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("persona watcher error", zap.Error(err))
		case <-reloadCh:
			reloadCh = nil
			p, err := Load(abs)
			if err != nil {
				logger.Warn("persona reload failed, keeping previous", zap.Error(err))
				continue
			}
			h.Set(p)
			logger.Info("persona reloaded", zap.String("name", p.Name))
		}
	}
}
