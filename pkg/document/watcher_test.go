package document

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher(t *testing.T) {
	t.Run("Should notify when the document is written", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "gamewarden.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

		w, err := NewWatcher(path)
		require.NoError(t, err)
		t.Cleanup(func() { w.Close() })
		var hits atomic.Int32
		w.OnChange(func() { hits.Add(1) })
		require.NoError(t, w.Watch(ctx))

		require.NoError(t, os.WriteFile(path, []byte(`{"a": 1}`), 0o644))

		assert.Eventually(t, func() bool { return hits.Load() > 0 },
			3*time.Second, 20*time.Millisecond)
	})

	t.Run("Should survive atomic replacement of the document", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "gamewarden.json")
		store := NewStore(path, nil)
		require.NoError(t, store.Save(ctx, map[string]any{"a": 1}))

		w, err := NewWatcher(path)
		require.NoError(t, err)
		t.Cleanup(func() { w.Close() })
		var hits atomic.Int32
		w.OnChange(func() { hits.Add(1) })
		require.NoError(t, w.Watch(ctx))

		// Save writes a temp file and renames it over the document.
		require.NoError(t, store.Save(ctx, map[string]any{"a": 2}))

		assert.Eventually(t, func() bool { return hits.Load() > 0 },
			3*time.Second, 20*time.Millisecond)
	})

	t.Run("Should ignore sibling files in the same directory", func(t *testing.T) {
		ctx := context.Background()
		dir := t.TempDir()
		path := filepath.Join(dir, "gamewarden.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

		w, err := NewWatcher(path)
		require.NoError(t, err)
		t.Cleanup(func() { w.Close() })
		var hits atomic.Int32
		w.OnChange(func() { hits.Add(1) })
		require.NoError(t, w.Watch(ctx))

		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))

		assert.Never(t, func() bool { return hits.Load() > 0 },
			500*time.Millisecond, 50*time.Millisecond)
	})

	t.Run("Should close idempotently", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "gamewarden.json")
		w, err := NewWatcher(path)
		require.NoError(t, err)

		require.NoError(t, w.Close())
		require.NoError(t, w.Close())
	})
}
