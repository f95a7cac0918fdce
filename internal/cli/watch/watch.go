// Package watch re-runs a callback when query definition files change.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file, or the YAML files of a directory, for changes.
type Watcher struct {
	target   string
	isDir    bool
	debounce time.Duration
	callback func() error
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher creates a watcher on path. callback runs once per burst of
// changes.
func NewWatcher(path string, callback func() error) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Editors replace files on save, so the directory is watched.
	dir := abs
	if !info.IsDir() {
		dir = filepath.Dir(abs)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		target:   abs,
		isDir:    info.IsDir(),
		debounce: DefaultDebounce,
		callback: callback,
		watcher:  fw,
		done:     make(chan struct{}),
	}, nil
}

// Relevant reports whether a change to name concerns the watched target.
func (w *Watcher) Relevant(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	if !w.isDir {
		return abs == w.target
	}
	ext := strings.ToLower(filepath.Ext(abs))
	return filepath.Dir(abs) == w.target && (ext == ".yaml" || ext == ".yml")
}

// Start runs the callback once, then again after every change.
func (w *Watcher) Start() error {
	if err := w.callback(); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	go func() {
		timer := time.NewTimer(w.debounce)
		timer.Stop()
		var fire <-chan time.Time

		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
					if w.Relevant(event.Name) {
						timer.Reset(w.debounce)
						fire = timer.C
					}
				}

			case <-fire:
				if err := w.callback(); err != nil {
					fmt.Fprintf(os.Stderr, "Watch callback error: %v\n", err)
				}
				fire = nil

			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

			case <-w.done:
				timer.Stop()
				return
			}
		}
	}()
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
