package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchConfig reloads the fixture catalog whenever the config file changes.
// The parent directory is watched so editors that replace the file by rename
// are still picked up.
func (engine *HurlfixEngine) watchConfig(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("unable to create config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(engine.configPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("unable to watch %s: %w", dir, err)
	}

	log := engine.logger.WithComponent("watcher")
	log.Info().Str("path", engine.configPath).Msg("watching config for fixture changes")

	name := filepath.Clean(engine.configPath)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			debounce = time.After(engine.reloadDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("config watcher error")

		case <-debounce:
			debounce = nil
			if err := engine.Reload(); err != nil {
				log.Error().Err(err).Msg("fixture reload failed, keeping the current catalog")
			}
		}
	}
}
