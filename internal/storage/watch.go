package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last change before a
// watched file is read again
const DefaultDebounce = 150 * time.Millisecond

// ChangeHandler receives the decoded text of a watched file after it
// settled, or the error reading it
type ChangeHandler func(text string, err error)

// Watch calls fn with the content of path every time it changes, until ctx
// is done. The parent directory is watched so editors that save by rename
// are followed. A burst of events within debounce produces one call.
func Watch(ctx context.Context, path string, debounce time.Duration, fn ChangeHandler) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fn("", fmt.Errorf("watch %s: %w", path, err))

		case <-timer.C:
			data, err := os.ReadFile(abs)
			if err != nil {
				fn("", fmt.Errorf("failed to read file: %w", err))
				continue
			}
			fn(Decode(data))
		}
	}
}
