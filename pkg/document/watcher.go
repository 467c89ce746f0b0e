package document

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/gamewarden/gamewarden/pkg/logger"
)

// Watcher reports external changes to the configuration document. It watches
// the parent directory rather than the file itself, so the watch survives
// the rename performed by atomic saves and editors that replace the file.
type Watcher struct {
	watcher   *fsnotify.Watcher
	path      string
	callbacks []func()
	mu        sync.RWMutex
	watchCtx  context.Context
	startOnce sync.Once
	closeOnce sync.Once
}

// NewWatcher creates a watcher for the document at path.
func NewWatcher(path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path: %w", err)
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		watcher:   fsWatcher,
		path:      abs,
		callbacks: make([]func(), 0),
	}, nil
}

// Watch starts delivering change notifications. Events arriving after ctx
// is canceled are dropped.
func (w *Watcher) Watch(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch document dir: %w", err)
	}
	w.mu.Lock()
	w.watchCtx = ctx
	w.mu.Unlock()
	w.startOnce.Do(func() {
		go w.handleEvents(ctx)
	})
	return nil
}

// OnChange registers a callback invoked when the document changes on disk.
func (w *Watcher) OnChange(callback func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// handleEvents processes file system events until the watcher is closed.
// Sibling files in the same directory, including the store's own temp,
// backup and lock files, are filtered out by path.
func (w *Watcher) handleEvents(ctx context.Context) {
	log := logger.FromContext(ctx)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			w.mu.RLock()
			watchCtx := w.watchCtx
			w.mu.RUnlock()
			if watchCtx != nil && watchCtx.Err() != nil {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.notifyCallbacks()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				log.Error("Document watcher error", "path", w.path, "error", err)
			}
		}
	}
}

// notifyCallbacks invokes all registered callbacks.
func (w *Watcher) notifyCallbacks() {
	w.mu.RLock()
	callbacks := make([]func(), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.RUnlock()
	for _, callback := range callbacks {
		if callback != nil {
			callback()
		}
	}
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var closeErr error
	w.closeOnce.Do(func() {
		if err := w.watcher.Close(); err != nil {
			closeErr = fmt.Errorf("failed to close watcher: %w", err)
		}
	})
	return closeErr
}
