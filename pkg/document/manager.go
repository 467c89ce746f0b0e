package document

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/romdo/go-debounce"

	"github.com/gamewarden/gamewarden/pkg/logger"
)

// Document is the in-memory configuration surface the manager keeps in sync
// with the store. The engine config implements it.
type Document interface {
	// Serialize returns the flat persisted form of every field.
	Serialize() map[string]any

	// Deserialize applies a persisted document onto the current values.
	Deserialize(ctx context.Context, data map[string]any) error
}

// Manager connects a constructed configuration to its document on disk:
// initial load, whole-document saves and optional hot reload when the file
// changes externally. Reloads mutate the target in place, so consumers keep
// their reference and are told about changes through OnChange.
type Manager struct {
	store  *Store
	target Document

	watcher         *Watcher
	watchCancel     context.CancelFunc
	debouncedReload func()
	cancelDebounce  func()

	callbacks  []func()
	callbackMu sync.RWMutex
	reloadMu   sync.Mutex
	lastData   map[string]any
	closeOnce  sync.Once
}

// NewManager creates a manager for the given store and target.
func NewManager(store *Store, target Document) *Manager {
	return &Manager{
		store:     store,
		target:    target,
		callbacks: make([]func(), 0),
	}
}

// Store returns the underlying document store.
func (m *Manager) Store() *Store {
	return m.store
}

// Load applies the persisted document to the target. A missing document is
// not an error: the target keeps the values it was constructed with.
func (m *Manager) Load(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	doc, err := m.store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		logger.FromContext(ctx).Debug("No configuration document on disk, defaults apply",
			"path", m.store.Path())
		m.lastData = nil
		return nil
	}
	if err != nil {
		return err
	}
	if err := m.target.Deserialize(ctx, doc); err != nil {
		return fmt.Errorf("failed to apply document: %w", err)
	}
	m.lastData = doc
	return nil
}

// Save persists the target's current values as the whole document.
func (m *Manager) Save(ctx context.Context) error {
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	doc := m.target.Serialize()
	if err := m.store.Save(ctx, doc); err != nil {
		return err
	}
	m.lastData = doc
	return nil
}

// OnChange registers a callback invoked after an external document change
// has been applied to the target.
func (m *Manager) OnChange(callback func()) {
	m.callbackMu.Lock()
	defer m.callbackMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// Watch reloads the target whenever the document changes on disk. Events
// are coalesced: a reload runs after wait of quiet time and at the latest
// after maxWait of continuous churn. The watch outlives ctx cancellation of
// the caller and stops on Close.
func (m *Manager) Watch(ctx context.Context, wait, maxWait time.Duration) error {
	if m.watcher != nil {
		return fmt.Errorf("document watch already started")
	}
	watcher, err := NewWatcher(m.store.Path())
	if err != nil {
		return err
	}
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	debounced, cancelDebounce := debounce.NewWithMaxWait(wait, maxWait, func() {
		m.reloadFromDisk(watchCtx)
	})
	m.watcher = watcher
	m.watchCancel = cancel
	m.debouncedReload = debounced
	m.cancelDebounce = cancelDebounce
	watcher.OnChange(debounced)
	if err := watcher.Watch(watchCtx); err != nil {
		cancel()
		return err
	}
	logger.FromContext(ctx).Info("Watching configuration document", "path", m.store.Path())
	return nil
}

// reloadFromDisk applies the document after an external change. Unchanged
// content is skipped, which also swallows the events our own saves raise.
func (m *Manager) reloadFromDisk(ctx context.Context) {
	log := logger.FromContext(ctx)
	m.reloadMu.Lock()
	defer m.reloadMu.Unlock()
	doc, err := m.store.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return
	}
	if err != nil {
		log.Error("Failed to reload configuration document", "error", err)
		return
	}
	if m.lastData != nil && reflect.DeepEqual(m.lastData, doc) {
		return
	}
	if err := m.target.Deserialize(ctx, doc); err != nil {
		log.Error("Failed to apply configuration document", "path", m.store.Path(), "error", err)
	}
	m.lastData = doc
	m.notifyCallbacks()
	log.Info("Configuration document reloaded", "path", m.store.Path())
}

func (m *Manager) notifyCallbacks() {
	m.callbackMu.RLock()
	callbacks := make([]func(), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.callbackMu.RUnlock()
	for _, callback := range callbacks {
		if callback != nil {
			callback()
		}
	}
}

// Close stops watching and releases resources.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() {
		if m.cancelDebounce != nil {
			m.cancelDebounce()
		}
		if m.watchCancel != nil {
			m.watchCancel()
		}
		if m.watcher != nil {
			if err := m.watcher.Close(); err != nil {
				logger.FromContext(ctx).Error("Failed to close document watcher", "error", err)
			}
		}
	})
	return nil
}
