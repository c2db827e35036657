// SPDX-License-Identifier: MIT

package markets

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/eqlens/eqlens/internal/log"
)

// debounce absorbs editor write bursts (rename+write, truncate+write).
const debounce = 250 * time.Millisecond

// Watch reloads the catalog whenever the file at path changes. It blocks
// until ctx is cancelled. The parent directory is watched so atomic
// save-via-rename is caught as well.
func Watch(ctx context.Context, c *Catalog, path string) error {
	logger := log.WithComponent("markets")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := watcher.Close(); cerr != nil {
			logger.Warn().Err(cerr).Str("event", "catalog.watch_close_error").Msg("failed to close watcher")
		}
	}()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	logger.Info().
		Str("event", "catalog.watch").
		Str("path", path).
		Msg("watching catalog file")

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if err := c.Reload(path); err != nil {
				logger.Warn().
					Err(err).
					Str("event", "catalog.reload_failed").
					Str("path", path).
					Msg("keeping previous catalog")
				continue
			}
			logger.Info().
				Str("event", "catalog.reloaded").
				Str("path", path).
				Int("segments", len(c.Segments())).
				Msg("catalog reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Str("event", "catalog.watch_error").Msg("watcher error")
		}
	}
}
