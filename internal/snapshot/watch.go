package snapshot

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce collapses the burst of events a single save produces.
const DefaultDebounce = 50 * time.Millisecond

// Watch calls fn each time the report with the given ID is written, until
// ctx is done. The reports directory is watched rather than the file,
// because saves replace the file by rename. Watch needs the store to be
// backed by the OS filesystem.
func (s *FileStore) Watch(ctx context.Context, id string, debounce time.Duration, fn func()) error {
	if err := validID(id); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	target := filepath.Clean(s.Path(id))
	timer := time.NewTimer(0)
	<-timer.C // drain initial timer
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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case <-timer.C:
			fn()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", s.dir, err)
		}
	}
}
