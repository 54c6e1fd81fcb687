package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounce = 500 * time.Millisecond

// watchDataset retrains after the dataset file is written or replaced. The
// parent directory is watched so editors that save via rename are seen too.
// Bursts of events within the debounce window trigger one retrain.
func watchDataset(ctx context.Context, opts options, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target, err := filepath.Abs(opts.dataPath)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	logger.Info("watching dataset", zap.String("path", target))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isDatasetChange(event, target) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			if err := run(ctx, opts, logger); err != nil {
				logger.Error("retrain failed", zap.Error(err))
			}
		}
	}
}

func isDatasetChange(event fsnotify.Event, target string) bool {
	path, err := filepath.Abs(event.Name)
	if err != nil || path != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
