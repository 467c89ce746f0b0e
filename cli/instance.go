package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gamewarden/gamewarden/engine/instance"
)

// InstanceCmd returns the instance command
func InstanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instance",
		Short: "Instance runtime helpers",
	}

	cmd.AddCommand(
		instanceLaunchCommandCmd(),
		instancePluginCommandCmd(),
	)

	return cmd
}

// instanceLaunchCommandCmd resolves the game-server invocation
func instanceLaunchCommandCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "launch-command",
		Short: "Resolve the game-server launch invocation",
		Long: `Assemble the launch invocation for this instance from "game.command":
arguments are split with shell quoting rules and {{group.field}} placeholders
are expanded from the current configuration. No process is started.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstanceLaunchCommand(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (json, yaml, table)")
	return cmd
}

func runInstanceLaunchCommand(cmd *cobra.Command, format string) error {
	n, err := loadNode(cmd.Context())
	if err != nil {
		return err
	}
	launch, err := instance.BuildLaunchCommand(n.config)
	if err != nil {
		return err
	}
	return writeCommand(cmd, launch, format)
}

// instancePluginCommandCmd resolves a plugin's entrypoint invocation
func instancePluginCommandCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "plugin-command <plugin>",
		Short: "Resolve a plugin's instance entrypoint invocation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstancePluginCommand(cmd, args[0], format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (json, yaml, table)")
	return cmd
}

func runInstancePluginCommand(cmd *cobra.Command, name, format string) error {
	n, err := loadNode(cmd.Context())
	if err != nil {
		return err
	}
	d, ok := n.registry.Get(name)
	if !ok {
		return fmt.Errorf("no plugin named %q discovered", name)
	}
	if d.EntrypointCommand == "" {
		return fmt.Errorf("plugin %q has no entrypoint command", name)
	}
	launch, err := instance.BuildPluginCommand(n.config, d.EntrypointCommand)
	if err != nil {
		return err
	}
	return writeCommand(cmd, launch, format)
}

func writeCommand(cmd *cobra.Command, launch *instance.Command, format string) error {
	out := cmd.OutOrStdout()
	switch resolveFormat(format) {
	case OutputFormatJSON:
		return writeJSON(out, launch)
	case OutputFormatYAML:
		return writeYAML(out, launch)
	case OutputFormatTable:
		fmt.Fprintf(out, "command: %s\n", strings.Join(append([]string{launch.Path}, launch.Args...), " "))
		if launch.Dir != "" {
			fmt.Fprintf(out, "dir: %s\n", launch.Dir)
		}
		for _, kv := range launch.Env {
			fmt.Fprintf(out, "env: %s\n", kv)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}
