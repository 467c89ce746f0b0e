package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamewarden/gamewarden/engine/config"
)

const economyManifest = `name: economy
version: 1.4.0
instance_entrypoint: "./economy-agent --mode instance"
master_fields:
  - name: currency
    type: string
    default: gold
    title: Currency name
  - name: startBalance
    type: number
    default: 250
instance_fields:
  - name: enabled
    type: boolean
    default: true
  - name: shopLayout
    type: object
    optional: true
`

func TestParseManifest(t *testing.T) {
	t.Run("Should parse a well-formed manifest", func(t *testing.T) {
		m, err := ParseManifest([]byte(economyManifest))

		require.NoError(t, err)
		assert.Equal(t, "economy", m.Name)
		assert.Equal(t, "1.4.0", m.Version)
		assert.Equal(t, "./economy-agent --mode instance", m.InstanceEntrypoint)
		require.Len(t, m.MasterFields, 2)
		assert.Equal(t, "currency", m.MasterFields[0].Name)
		require.Len(t, m.InstanceFields, 2)
	})

	t.Run("Should reject a manifest missing required keys", func(t *testing.T) {
		_, err := ParseManifest([]byte("name: economy\n"))

		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrPluginContract)
		assert.Contains(t, err.Error(), "PLUGIN_MANIFEST_INVALID")
	})

	t.Run("Should reject unknown top-level keys", func(t *testing.T) {
		_, err := ParseManifest([]byte("name: economy\nversion: 1.0.0\nentry: nope\n"))

		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrPluginContract)
	})

	t.Run("Should reject field types outside the closed set", func(t *testing.T) {
		_, err := ParseManifest([]byte(`name: economy
version: 1.0.0
master_fields:
  - name: count
    type: integer
`))

		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrPluginContract)
	})

	t.Run("Should reject unparseable documents", func(t *testing.T) {
		_, err := ParseManifest([]byte("name: [unclosed"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "PLUGIN_MANIFEST_UNPARSEABLE")
	})
}

func TestManifest_Descriptor(t *testing.T) {
	t.Run("Should materialize plugin groups with literal defaults", func(t *testing.T) {
		m, err := ParseManifest([]byte(economyManifest))
		require.NoError(t, err)

		d, err := m.Descriptor()
		require.NoError(t, err)
		require.NotNil(t, d.MasterGroup)
		require.NotNil(t, d.InstanceGroup)
		assert.True(t, d.RunsInInstance())
		assert.True(t, d.MasterGroup.PluginExtensible())
		assert.Equal(t, "economy", d.MasterGroup.Name())
		assert.Equal(t, 2, d.MasterGroup.Len())

		r := NewRegistry()
		require.NoError(t, r.Register(d))
		master := config.NewSchema(config.KindMaster)
		instance := config.NewSchema(config.KindInstance)
		require.NoError(t, r.Apply(t.Context(), master, instance))
		master.Finalize()

		cfg, err := config.New(t.Context(), master)
		require.NoError(t, err)
		balance, err := cfg.Get("economy.startBalance")
		require.NoError(t, err)
		assert.Equal(t, float64(250), balance)
	})

	t.Run("Should surface bad defaults as manifest field errors", func(t *testing.T) {
		m, err := ParseManifest([]byte(`name: economy
version: 1.0.0
master_fields:
  - name: startBalance
    type: number
    default: plenty
`))
		require.NoError(t, err)

		_, err = m.Descriptor()

		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrInvalidValue)
		assert.Contains(t, err.Error(), "PLUGIN_MANIFEST_FIELD_INVALID")
	})
}

func TestLoadDir(t *testing.T) {
	writeFile := func(t *testing.T, path, content string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	t.Run("Should register manifests from both naming conventions", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "economy.plugin.yaml"), economyManifest)
		writeFile(t, filepath.Join(dir, "stats", "plugin.yaml"), "name: stats\nversion: 0.3.1\n")
		writeFile(t, filepath.Join(dir, "README.md"), "not a manifest")

		r := NewRegistry()
		require.NoError(t, LoadDir(t.Context(), r, dir))

		assert.Equal(t, 2, r.Len())
		_, ok := r.Get("economy")
		assert.True(t, ok)
		_, ok = r.Get("stats")
		assert.True(t, ok)
	})

	t.Run("Should skip a missing plugins dir", func(t *testing.T) {
		r := NewRegistry()
		require.NoError(t, LoadDir(t.Context(), r, filepath.Join(t.TempDir(), "absent")))
		assert.Equal(t, 0, r.Len())
	})

	t.Run("Should fail on the first invalid manifest", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "broken.plugin.yaml"), "version: 1.0.0\n")

		r := NewRegistry()
		err := LoadDir(t.Context(), r, dir)

		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrPluginContract)
		assert.Equal(t, 0, r.Len())
	})

	t.Run("Should register discovered plugins in a stable order", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "zeta.plugin.yaml"), "name: zeta\nversion: 1.0.0\n")
		writeFile(t, filepath.Join(dir, "alpha.plugin.yaml"), "name: alpha\nversion: 1.0.0\n")

		r := NewRegistry()
		require.NoError(t, LoadDir(t.Context(), r, dir))

		plugins := r.Plugins()
		require.Len(t, plugins, 2)
		assert.Equal(t, "alpha", plugins[0].Name)
		assert.Equal(t, "zeta", plugins[1].Name)
	})
}
