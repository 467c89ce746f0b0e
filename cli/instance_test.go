package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamewarden/gamewarden/engine/instance"
)

const metricsManifest = `name: metrics
version: 1.2.0
instance_entrypoint: "./metrics-agent --port {{metrics.port}}"
master_fields:
  - name: retention
    type: number
    title: Retention days
    default: 7
instance_fields:
  - name: port
    type: number
    title: Metrics port
    default: 9100
`

// writePluginDir creates a plugins directory holding one manifest.
func writePluginDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "metrics.plugin.yaml")
	require.NoError(t, os.WriteFile(manifestPath, []byte(metricsManifest), 0o600))
	return dir
}

func TestPluginList(t *testing.T) {
	t.Run("Should list discovered manifests", func(t *testing.T) {
		pluginsDir := writePluginDir(t)
		out, err := executeCLI(t, "--plugins", pluginsDir, "plugin", "list", "--format", "json")
		require.NoError(t, err)

		var rows []pluginRow
		require.NoError(t, json.Unmarshal([]byte(out), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "metrics", rows[0].Name)
		assert.Equal(t, "1.2.0", rows[0].Version)
		assert.Equal(t, 1, rows[0].MasterFields)
		assert.Equal(t, 1, rows[0].InstanceFields)
		assert.Equal(t, "./metrics-agent --port {{metrics.port}}", rows[0].Entrypoint)
	})

	t.Run("Should render an empty list when the plugins dir is missing", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing")
		out, err := executeCLI(t, "--plugins", missing, "plugin", "list", "--format", "json")
		require.NoError(t, err)
		assert.Equal(t, "[]\n", out)
	})
}

func TestPluginConfigFields(t *testing.T) {
	t.Run("Should expose plugin master fields in the master schema", func(t *testing.T) {
		pluginsDir := writePluginDir(t)
		docPath := filepath.Join(t.TempDir(), "gamewarden.json")
		out, err := executeCLI(t, "--plugins", pluginsDir, "--doc", docPath,
			"config", "list", "metrics.*", "--format", "json")
		require.NoError(t, err)

		values := make(map[string]any)
		require.NoError(t, json.Unmarshal([]byte(out), &values))
		assert.Equal(t, float64(7), values["metrics.retention"])
	})

	t.Run("Should not extend slave schemas", func(t *testing.T) {
		pluginsDir := writePluginDir(t)
		docPath := filepath.Join(t.TempDir(), "gamewarden.json")
		out, err := executeCLI(t, "--kind", "slave", "--plugins", pluginsDir, "--doc", docPath,
			"config", "list", "metrics.*", "--format", "json")
		require.NoError(t, err)

		values := make(map[string]any)
		require.NoError(t, json.Unmarshal([]byte(out), &values))
		assert.Empty(t, values)
	})
}

func TestInstanceLaunchCommand(t *testing.T) {
	t.Run("Should expand placeholders from the configuration", func(t *testing.T) {
		docPath := filepath.Join(t.TempDir(), "gamewarden.json")
		_, err := executeCLI(t, "--kind", "instance", "--doc", docPath,
			"config", "set", "game.command", "./srv --port {{instance.port}} --name {{instance.name}}")
		require.NoError(t, err)

		out, err := executeCLI(t, "--kind", "instance", "--doc", docPath,
			"instance", "launch-command", "--format", "json")
		require.NoError(t, err)

		var launch instance.Command
		require.NoError(t, json.Unmarshal([]byte(out), &launch))
		assert.Equal(t, "./srv", launch.Path)
		assert.Equal(t, []string{"--port", "27015", "--name", "instance"}, launch.Args)
		assert.Contains(t, launch.Env, "GAMEWARDEN_INSTANCE_PORT=27015")
		assert.Contains(t, launch.Env, "GAMEWARDEN_INSTANCE_NAME=instance")
	})

	t.Run("Should fail on non-instance nodes", func(t *testing.T) {
		docPath := filepath.Join(t.TempDir(), "gamewarden.json")
		_, err := executeCLI(t, "--doc", docPath, "instance", "launch-command")
		require.Error(t, err)
		assert.ErrorContains(t, err, "require an instance config")
	})

	t.Run("Should fail when no launch command is configured", func(t *testing.T) {
		docPath := filepath.Join(t.TempDir(), "gamewarden.json")
		_, err := executeCLI(t, "--kind", "instance", "--doc", docPath, "instance", "launch-command")
		require.Error(t, err)
		assert.ErrorContains(t, err, "command cannot be empty")
	})
}

func TestInstancePluginCommand(t *testing.T) {
	t.Run("Should resolve the plugin entrypoint with its namespace values", func(t *testing.T) {
		pluginsDir := writePluginDir(t)
		docPath := filepath.Join(t.TempDir(), "gamewarden.json")
		out, err := executeCLI(t, "--kind", "instance", "--doc", docPath, "--plugins", pluginsDir,
			"instance", "plugin-command", "metrics", "--format", "json")
		require.NoError(t, err)

		var launch instance.Command
		require.NoError(t, json.Unmarshal([]byte(out), &launch))
		assert.Equal(t, "./metrics-agent", launch.Path)
		assert.Equal(t, []string{"--port", "9100"}, launch.Args)
	})

	t.Run("Should fail for unknown plugins", func(t *testing.T) {
		docPath := filepath.Join(t.TempDir(), "gamewarden.json")
		_, err := executeCLI(t, "--kind", "instance", "--doc", docPath,
			"instance", "plugin-command", "nope")
		require.Error(t, err)
		assert.ErrorContains(t, err, `no plugin named "nope" discovered`)
	})
}
