package document

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/otiai10/copy"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/gamewarden/gamewarden/pkg/logger"
)

// ErrNotFound indicates that no document exists at the store path yet.
var ErrNotFound = errors.New("document not found")

// Options tune how the store persists the document.
type Options struct {
	// Backup writes the previous document to <path>.bak before each save.
	Backup bool

	// LockTimeout bounds how long a save waits for the document lock held
	// by another process.
	LockTimeout time.Duration

	// SaveRetries is the number of retry attempts for transient write
	// failures.
	SaveRetries int
}

// DefaultOptions returns the store behavior used when no options are given.
func DefaultOptions() *Options {
	return &Options{
		Backup:      true,
		LockTimeout: 5 * time.Second,
		SaveRetries: 3,
	}
}

// Store reads and writes the JSON configuration document. The document is a
// flat object keyed by full field names, written atomically so readers never
// observe a partial file.
type Store struct {
	path        string
	backup      bool
	lockTimeout time.Duration
	retries     uint64
}

// NewStore creates a store for the document at path.
func NewStore(path string, opts *Options) *Store {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &Store{
		path:        path,
		backup:      opts.Backup,
		lockTimeout: opts.LockTimeout,
		retries:     uint64(max(opts.SaveRetries, 0)),
	}
}

// Path returns the document location on disk.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a document is present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and parses the document. A missing file is reported through
// ErrNotFound so callers can fall back to defaults; an empty file counts as
// an empty document.
func (s *Store) Load(ctx context.Context) (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("failed to read document %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("document %s is not valid JSON: %w", s.path, err)
	}
	logger.FromContext(ctx).Debug("Loaded configuration document", "path", s.path, "keys", len(doc))
	return doc, nil
}

// Peek reads one persisted value without parsing the whole document. Keys
// are literal document keys, so their dots are escaped before the lookup.
// The second return reports whether the key is present.
func (s *Store) Peek(key string) (any, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, false
	}
	result := gjson.GetBytes(data, strings.ReplaceAll(key, ".", `\.`))
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

// Save persists the document atomically: the content is written to a temp
// file, synced and renamed over the previous document. A sidecar lock file
// serializes saves across processes; it lives beside the document so the
// rename never replaces the locked file.
func (s *Store) Save(ctx context.Context, doc map[string]any) error {
	if doc == nil {
		return fmt.Errorf("document cannot be nil")
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	formatted := pretty.PrettyOptions(raw, &pretty.Options{Indent: "  ", SortKeys: true})

	lockCtx, cancel := context.WithTimeout(ctx, s.lockTimeout)
	defer cancel()
	fl := flock.New(s.path + ".lock")
	locked, err := fl.TryLockContext(lockCtx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to lock document %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock document %s", s.path)
	}
	defer fl.Unlock()

	if s.backup {
		s.writeBackup(ctx)
	}

	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(50*time.Millisecond))
	if err := retry.Do(ctx, backoff, func(_ context.Context) error {
		if err := s.writeAtomic(formatted); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("failed to persist document %s: %w", s.path, err)
	}
	logger.FromContext(ctx).Debug("Saved configuration document", "path", s.path, "keys", len(doc))
	return nil
}

// writeBackup copies the current document aside. Backup failures are logged
// rather than surfaced: losing the backup must not block the save.
func (s *Store) writeBackup(ctx context.Context) {
	if _, err := os.Stat(s.path); err != nil {
		return
	}
	if err := copy.Copy(s.path, s.path+".bak"); err != nil {
		logger.FromContext(ctx).Warn("Failed to write document backup", "path", s.path+".bak", "error", err)
	}
}

func (s *Store) writeAtomic(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create document dir: %w", err)
	}
	tmp := fmt.Sprintf("%s.tmp.%s", s.path, uuid.NewString()[:8])
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create temp document: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write temp document: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to sync temp document: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close temp document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
