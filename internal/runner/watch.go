package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/makeflow/internal/log"
)

// ignoredDirs are never watched.
var ignoredDirs = map[string]bool{".git": true, "target": true}

// Watch calls run every time files under dir change, until ctx is done.
// Bursts of events within debounce trigger a single run. Errors returned by
// run are logged and watching continues.
func Watch(ctx context.Context, dir string, debounce time.Duration, logger *log.Logger, run func(context.Context) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watchRecursive(watcher, dir, logger); err != nil {
		return err
	}
	logger.Info("watching for changes", "dir", dir)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignored(dir, event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watchRecursive(watcher, event.Name, logger)
				}
			}
			logger.Debug("file changed", "path", event.Name, "op", event.Op.String())

			if timer == nil {
				timer = time.AfterFunc(debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("watch error")

		case <-fire:
			if err := run(ctx); err != nil && ctx.Err() == nil {
				logger.WithError(err).Error("flow failed, waiting for changes")
			}
		}
	}
}

func watchRecursive(watcher *fsnotify.Watcher, root string, logger *log.Logger) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && ignoredDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			logger.WithError(err).Debug("cannot watch directory", "dir", p)
		}
		return nil
	})
}

// ignored reports whether path lies in an ignored directory below root.
func ignored(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if ignoredDirs[part] {
			return true
		}
	}
	return false
}
