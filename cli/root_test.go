package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamewarden/gamewarden/pkg/settings"
)

// executeCLI runs the root command with the given arguments and returns the
// combined output. The base arguments keep tests hermetic: no settings file,
// no env file and no log output. Later arguments override earlier ones, so
// callers can still pass their own --settings or --log-level.
func executeCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	base := []string{"--settings", "", "--env-file", "", "--log-level", "disabled"}
	cmd.SetArgs(append(base, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestSetupContext(t *testing.T) {
	t.Run("Should inject settings resolved from YAML and flags into the context", func(t *testing.T) {
		dir := t.TempDir()
		settingsPath := filepath.Join(dir, "gamewarden.yaml")
		content := "node:\n  kind: slave\ndocument:\n  path: from-yaml.json\n"
		require.NoError(t, os.WriteFile(settingsPath, []byte(content), 0o600))

		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags(nil))
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))
		require.NoError(t, cmd.PersistentFlags().Set("settings", settingsPath))
		require.NoError(t, cmd.PersistentFlags().Set("doc", "from-flag.json"))

		require.NoError(t, setupContext(cmd))

		s := settings.FromContext(cmd.Context())
		assert.Equal(t, "slave", s.Node.Kind)
		assert.Equal(t, "from-flag.json", s.Document.Path)
	})

	t.Run("Should reject an unknown node kind", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.ParseFlags(nil))
		require.NoError(t, cmd.PersistentFlags().Set("env-file", ""))
		require.NoError(t, cmd.PersistentFlags().Set("settings", ""))
		require.NoError(t, cmd.PersistentFlags().Set("kind", "gateway"))

		err := setupContext(cmd)
		require.Error(t, err)
		assert.ErrorContains(t, err, "Kind")
	})
}

func TestSettingsShow(t *testing.T) {
	t.Run("Should report per-key sources", func(t *testing.T) {
		dir := t.TempDir()
		settingsPath := filepath.Join(dir, "gamewarden.yaml")
		require.NoError(t, os.WriteFile(settingsPath, []byte("node:\n  kind: slave\n"), 0o600))

		out, err := executeCLI(t,
			"--settings", settingsPath,
			"--doc", filepath.Join(dir, "doc.json"),
			"settings", "show", "--format", "json", "--sources")
		require.NoError(t, err)

		var payload struct {
			Settings map[string]string `json:"settings"`
			Sources  map[string]string `json:"sources"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &payload))
		assert.Equal(t, "slave", payload.Settings["node.kind"])
		assert.Equal(t, "yaml", payload.Sources["node.kind"])
		assert.Equal(t, "flag", payload.Sources["document.path"])
		assert.Equal(t, "default", payload.Sources["plugins.dir"])
	})

	t.Run("Should render the resolved settings as a table", func(t *testing.T) {
		out, err := executeCLI(t, "settings", "show", "--format", "table")
		require.NoError(t, err)
		assert.Contains(t, out, "KEY")
		assert.Contains(t, out, "node.kind")
		assert.Contains(t, out, "master")
		assert.Contains(t, out, "document.lock_timeout")
	})
}

func TestSettingsEnv(t *testing.T) {
	t.Run("Should list every supported variable with its settings path", func(t *testing.T) {
		out, err := executeCLI(t, "settings", "env")
		require.NoError(t, err)
		assert.Contains(t, out, "VARIABLE")
		assert.Contains(t, out, "GAMEWARDEN_NODE_KIND")
		assert.Contains(t, out, "node.kind")
		assert.Contains(t, out, "GAMEWARDEN_DOCUMENT_LOCK_TIMEOUT")
	})
}
