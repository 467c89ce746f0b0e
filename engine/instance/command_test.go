package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamewarden/gamewarden/engine/config"
	"github.com/gamewarden/gamewarden/engine/config/definition"
)

func instanceConfig(t *testing.T) *config.Config {
	t.Helper()
	schema, err := definition.BaseSchema(config.KindInstance)
	require.NoError(t, err)
	schema.Finalize()
	cfg, err := config.New(t.Context(), schema)
	require.NoError(t, err)
	return cfg
}

func TestBuildLaunchCommand(t *testing.T) {
	t.Run("Should honor shell quoting when splitting arguments", func(t *testing.T) {
		cfg := instanceConfig(t)
		require.NoError(t, cfg.Set("game.command", `./srcds -game csgo +hostname "My Server"`))

		cmd, err := BuildLaunchCommand(cfg)

		require.NoError(t, err)
		assert.Equal(t, "./srcds", cmd.Path)
		assert.Equal(t, []string{"-game", "csgo", "+hostname", "My Server"}, cmd.Args)
	})

	t.Run("Should expand config placeholders per argument", func(t *testing.T) {
		cfg := instanceConfig(t)
		require.NoError(t, cfg.Set("game.command", "./srcds -port {{instance.port}} +name {{instance.name}}"))
		require.NoError(t, cfg.Set("instance.port", 27025))
		require.NoError(t, cfg.Set("instance.name", "eu west 1"))

		cmd, err := BuildLaunchCommand(cfg)

		require.NoError(t, err)
		assert.Equal(t, []string{"-port", "27025", "+name", "eu west 1"}, cmd.Args)
	})

	t.Run("Should fail on unknown placeholders with unknown-field", func(t *testing.T) {
		cfg := instanceConfig(t)
		require.NoError(t, cfg.Set("game.command", "./srcds -port {{network.port}}"))

		_, err := BuildLaunchCommand(cfg)

		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrUnknownField)
	})

	t.Run("Should reject empty commands", func(t *testing.T) {
		cfg := instanceConfig(t)

		_, err := BuildLaunchCommand(cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "command cannot be empty")
	})

	t.Run("Should reject commands starting with a flag", func(t *testing.T) {
		cfg := instanceConfig(t)
		require.NoError(t, cfg.Set("game.command", "-insecure ./srcds"))

		_, err := BuildLaunchCommand(cfg)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot start with a flag")
	})

	t.Run("Should resolve the working directory when set", func(t *testing.T) {
		cfg := instanceConfig(t)
		require.NoError(t, cfg.Set("game.command", "./run.sh"))

		cmd, err := BuildLaunchCommand(cfg)
		require.NoError(t, err)
		assert.Equal(t, "", cmd.Dir)

		require.NoError(t, cfg.Set("game.workingDir", "/srv/games/cs"))
		cmd, err = BuildLaunchCommand(cfg)
		require.NoError(t, err)
		assert.Equal(t, "/srv/games/cs", cmd.Dir)
	})

	t.Run("Should export instance identity into the environment", func(t *testing.T) {
		cfg := instanceConfig(t)
		require.NoError(t, cfg.Set("game.command", "./run.sh"))
		require.NoError(t, cfg.Set("instance.name", "lobby"))

		cmd, err := BuildLaunchCommand(cfg)

		require.NoError(t, err)
		assert.Contains(t, cmd.Env, "GAMEWARDEN_INSTANCE_NAME=lobby")
		assert.Contains(t, cmd.Env, "GAMEWARDEN_INSTANCE_PORT=27015")
	})

	t.Run("Should refuse non-instance configs", func(t *testing.T) {
		schema, err := definition.BaseSchema(config.KindMaster)
		require.NoError(t, err)
		schema.Finalize()
		cfg, err := config.New(t.Context(), schema)
		require.NoError(t, err)

		_, err = BuildLaunchCommand(cfg)

		require.Error(t, err)
	})
}

func TestBuildPluginCommand(t *testing.T) {
	t.Run("Should expand entrypoint placeholders from the instance config", func(t *testing.T) {
		cfg := instanceConfig(t)

		cmd, err := BuildPluginCommand(cfg, "./economy-agent --instance {{instance.uuid}}")

		require.NoError(t, err)
		assert.Equal(t, "./economy-agent", cmd.Path)
		require.Len(t, cmd.Args, 2)
		assert.Equal(t, "--instance", cmd.Args[0])
		assert.NotEmpty(t, cmd.Args[1])
	})

	t.Run("Should reject an empty entrypoint", func(t *testing.T) {
		cfg := instanceConfig(t)

		_, err := BuildPluginCommand(cfg, "   ")

		require.Error(t, err)
	})
}
