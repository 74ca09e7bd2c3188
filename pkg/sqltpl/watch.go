package sqltpl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the template set whenever a ".sql" file in the template
// directory is created, written, renamed, or removed. Reloads are debounced
// so editors that write in bursts trigger a single Refresh. Watch blocks
// until the context is cancelled and is typically run in its own goroutine.
func (r *Renderer) Watch(ctx context.Context) error {
	if r.templateDir == "" {
		return errors.New("no template directory configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	if err := watcher.Add(r.templateDir); err != nil {
		return fmt.Errorf("watch directory %s: %w", r.templateDir, err)
	}

	const debounce = 250 * time.Millisecond
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher channel closed")
			}
			if !strings.HasSuffix(filepath.Base(event.Name), ".sql") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				pending = timer.C
			} else {
				timer.Reset(debounce)
			}
		case <-pending:
			timer = nil
			pending = nil
			if err := r.Refresh(); err != nil {
				r.logger.Error("failed to refresh templates after change", "error", err)
			} else {
				r.logger.Info("Templates reloaded after change")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			r.logger.Warn("fsnotify watcher error", "error", err)
		}
	}
}
