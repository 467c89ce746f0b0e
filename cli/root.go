package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamewarden/gamewarden/pkg/logger"
	"github.com/gamewarden/gamewarden/pkg/settings"
)

const (
	defaultSettingsFile = "gamewarden.yaml"
	defaultEnvFile      = ".env"
)

// RootCmd returns the gamewarden command tree. Process settings are resolved
// once in PersistentPreRunE (defaults < settings file < environment < flags)
// and handed to subcommands through the context, together with the logger.
func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gamewarden",
		Short:        "Cluster management for dedicated game servers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupContext(cmd)
		},
	}

	addRootFlags(root)

	root.AddCommand(
		ConfigCmd(),
		SettingsCmd(),
		PluginCmd(),
		InstanceCmd(),
		VersionCmd(),
	)

	return root
}

// addRootFlags registers the persistent flags. Defaults come from the
// settings defaults so help output and resolution agree.
func addRootFlags(cmd *cobra.Command) {
	defaults := settings.Default()
	cmd.PersistentFlags().String("settings", defaultSettingsFile, "Path to the settings file")
	cmd.PersistentFlags().String("env-file", defaultEnvFile, "Path to the environment variables file")
	cmd.PersistentFlags().String("kind", defaults.Node.Kind, "Node role (master, slave, instance)")
	cmd.PersistentFlags().String("doc", defaults.Document.Path, "Path to the configuration document")
	cmd.PersistentFlags().Bool("backup", defaults.Document.Backup, "Keep a .bak copy of the previous document on save")
	cmd.PersistentFlags().Bool("watch", defaults.Document.Watch, "Reload the document on external edits")
	cmd.PersistentFlags().String("plugins", defaults.Plugins.Dir, "Plugin manifest directory")
	cmd.PersistentFlags().String("log-level", defaults.Log.Level, "Log level (debug, info, warn, error, disabled)")
	cmd.PersistentFlags().Bool("log-json", defaults.Log.JSON, "Output logs in JSON format")
	cmd.PersistentFlags().Bool("log-source", defaults.Log.Source, "Include source file and line in logs")
}

// setupContext loads the env file, resolves settings and wires logger and
// settings into the command context.
func setupContext(cmd *cobra.Command) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	_, s, err := resolveSettings(ctx, cmd)
	if err != nil {
		return err
	}
	log := logger.SetupLogger(s.Log.Level, s.Log.JSON, s.Log.Source)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = settings.ContextWithSettings(ctx, s)
	cmd.SetContext(ctx)
	return nil
}

// resolveSettings builds the source chain for this invocation and loads it.
// The returned service keeps the per-key source metadata for diagnostics.
func resolveSettings(ctx context.Context, cmd *cobra.Command) (settings.Service, *settings.Settings, error) {
	settingsFile, err := cmd.Flags().GetString("settings")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get settings flag: %w", err)
	}
	sources := make([]settings.Source, 0, 2)
	if settingsFile != "" {
		sources = append(sources, settings.NewFileSource(settingsFile))
	}
	flags := make(map[string]any)
	extractSettingsFlags(cmd, flags)
	if len(flags) > 0 {
		sources = append(sources, settings.NewFlagSource(flags))
	}
	service := settings.NewService()
	s, err := service.Load(ctx, sources...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return service, s, nil
}
