package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay batches the bursts of events editors emit for a single save.
const reloadDelay = 200 * time.Millisecond

// WatchScenarios reloads the scenario file at path whenever it changes and
// passes the result to onChange. Files that fail to load are logged and
// skipped, so onChange only sees valid scenario sets. It blocks until ctx
// is done.
//
// The parent directory is watched rather than the file itself because
// editors commonly save by renaming a temporary file over the original.
func WatchScenarios(ctx context.Context, path string, logger *zap.Logger, onChange func([]Scenario)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}
	logger.Debug("watching scenarios", zap.String("path", target))

	timer := time.NewTimer(reloadDelay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(reloadDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("scenario watcher error", zap.Error(err))

		case <-timer.C:
			scenarios, err := LoadScenarios(target)
			if err != nil {
				logger.Warn("scenario reload skipped", zap.String("path", target), zap.Error(err))
				continue
			}
			logger.Info("scenarios reloaded", zap.String("path", target), zap.Int("count", len(scenarios)))
			onChange(scenarios)
		}
	}
}
