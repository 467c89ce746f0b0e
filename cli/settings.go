package cli

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gamewarden/gamewarden/pkg/settings"
)

// SettingsCmd returns the settings command
func SettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Process settings management and diagnostics",
	}

	cmd.AddCommand(
		settingsShowCmd(),
		settingsEnvCmd(),
	)

	return cmd
}

// settingsShowCmd shows the resolved process settings with their sources
func settingsShowCmd() *cobra.Command {
	var (
		format      string
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show resolved settings and where each value came from",
		Long: `Display the process settings after resolution. With --sources each value
is annotated with the source that provided it (default, yaml, env or flag).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSettingsShow(cmd, format, showSources)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (json, yaml, table)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Show settings sources")
	return cmd
}

func runSettingsShow(cmd *cobra.Command, format string, showSources bool) error {
	// Resolve again through a fresh service so per-key source metadata is
	// available; the context only carries the settings value.
	service, s, err := resolveSettings(cmd.Context(), cmd)
	if err != nil {
		return err
	}
	flat := flattenSettings(s)
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := cmd.OutOrStdout()
	format = resolveFormat(format)
	switch format {
	case OutputFormatJSON, OutputFormatYAML:
		payload := map[string]any{"settings": flat}
		if showSources {
			sources := make(map[string]string, len(keys))
			for _, key := range keys {
				sources[key] = string(service.GetSource(key))
			}
			payload["sources"] = sources
		}
		if format == OutputFormatYAML {
			return writeYAML(out, payload)
		}
		return writeJSON(out, payload)
	case OutputFormatTable:
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()
		if showSources {
			fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
			for _, key := range keys {
				fmt.Fprintf(w, "%s\t%s\t%s\n", key, flat[key], service.GetSource(key))
			}
			return nil
		}
		fmt.Fprintln(w, "KEY\tVALUE")
		for _, key := range keys {
			fmt.Fprintf(w, "%s\t%s\n", key, flat[key])
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// settingsEnvCmd lists the environment variables the settings layer reads
func settingsEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "List supported environment variables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSettingsEnv(cmd)
		},
	}
	return cmd
}

func runSettingsEnv(cmd *cobra.Command) error {
	mappings := settings.GenerateEnvMappings()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "VARIABLE\tSETTING")
	for _, mapping := range mappings {
		fmt.Fprintf(w, "%s%s\t%s\n", settings.EnvPrefix, mapping.EnvVar, mapping.SettingsPath)
	}
	return nil
}

// flattenSettings converts the settings struct to a flat key-value map for
// display, keyed the same way the loader tracks sources.
func flattenSettings(s *settings.Settings) map[string]string {
	return map[string]string{
		"node.kind":                  s.Node.Kind,
		"document.path":              s.Document.Path,
		"document.backup":            fmt.Sprintf("%v", s.Document.Backup),
		"document.watch":             fmt.Sprintf("%v", s.Document.Watch),
		"document.lock_timeout":      s.Document.LockTimeout.String(),
		"document.save_retries":      fmt.Sprintf("%d", s.Document.SaveRetries),
		"document.debounce_wait":     s.Document.DebounceWait.String(),
		"document.debounce_max_wait": s.Document.DebounceMaxWait.String(),
		"plugins.dir":                s.Plugins.Dir,
		"plugins.patterns":           strings.Join(s.Plugins.Patterns, ","),
		"log.level":                  s.Log.Level,
		"log.json":                   fmt.Sprintf("%v", s.Log.JSON),
		"log.source":                 fmt.Sprintf("%v", s.Log.Source),
	}
}
