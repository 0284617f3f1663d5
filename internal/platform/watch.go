package platform

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the capability file whenever it changes, until ctx is done.
// The parent directory is watched so that editors replacing the file by
// rename are picked up. A reload that fails is logged and the previous
// capabilities stay active.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		return errors.New("platform: registry has no capability file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(r.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}
	r.log.Info("watching capabilities", "path", target)

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
			if err := r.Reload(); err != nil {
				r.log.Warn("capability reload failed, keeping previous", "path", target, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.log.Error("capability watcher error", "error", err)
		}
	}
}
