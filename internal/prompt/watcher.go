// SPDX-License-Identifier: MIT

package prompt

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/reeldoc/reeldoc/internal/audit"
	"github.com/reeldoc/reeldoc/internal/log"
)

// Watcher reloads the registry when prompt files change on disk.
type Watcher struct {
	registry *Registry
	auditLog *audit.Logger
	watcher  *fsnotify.Watcher
}

// NewWatcher creates a watcher for the registry's directory.
func NewWatcher(registry *Registry, auditLog *audit.Logger) *Watcher {
	return &Watcher{
		registry: registry,
		auditLog: auditLog,
	}
}

// Start begins watching the prompt directory. The watch loop exits when ctx
// is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.watcher = fsw

	if err := fsw.Add(w.registry.Dir()); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch prompts dir: %w", err)
	}

	w.registry.logger.Info().
		Str(log.FieldPath, w.registry.Dir()).
		Msg("watching prompt directory for changes")

	go w.watchLoop(ctx)
	return nil
}

// Stop stops the watcher (if running).
func (w *Watcher) Stop() {
	if w.watcher != nil {
		_ = w.watcher.Close()
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	// Debounce so editors that write in bursts trigger a single reload.
	var debounceTimer *time.Timer
	debounceDuration := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			w.registry.logger.Info().Msg("prompt watcher stopped")
			if w.watcher != nil {
				_ = w.watcher.Close()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
				w.registry.logger.Debug().
					Str("op", event.Op.String()).
					Str(log.FieldPath, event.Name).
					Msg("prompt file changed")

				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(debounceDuration, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.registry.logger.Error().Err(err).Msg("prompt watcher error")
		}
	}
}

func (w *Watcher) reload() {
	if err := w.registry.Reload(); err != nil {
		w.registry.logger.Error().Err(err).Msg("prompt reload failed, keeping previous records")
		if w.auditLog != nil {
			w.auditLog.PromptsReloadError("watcher", w.registry.Dir(), err.Error())
		}
		return
	}
	if w.auditLog != nil {
		w.auditLog.PromptsReloaded("watcher", w.registry.Len(), w.registry.Dir())
	}
}
