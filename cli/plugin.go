package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/gamewarden/gamewarden/engine/plugin"
)

// PluginCmd returns the plugin command
func PluginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plugin",
		Short: "Inspect discovered plugins",
	}

	cmd.AddCommand(
		pluginListCmd(),
	)

	return cmd
}

// pluginListCmd lists the plugins discovered under the plugins dir
func pluginListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered plugin manifests",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPluginList(cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (json, yaml, table)")
	return cmd
}

type pluginRow struct {
	Name           string `json:"name"`
	Version        string `json:"version,omitempty"`
	Requires       string `json:"requires,omitempty"`
	MasterFields   int    `json:"master_fields"`
	InstanceFields int    `json:"instance_fields"`
	Entrypoint     string `json:"entrypoint,omitempty"`
}

func runPluginList(cmd *cobra.Command, format string) error {
	registry, err := loadRegistry(cmd.Context())
	if err != nil {
		return err
	}
	rows := make([]pluginRow, 0, registry.Len())
	for _, d := range registry.Plugins() {
		rows = append(rows, descriptorRow(d))
	}

	out := cmd.OutOrStdout()
	switch resolveFormat(format) {
	case OutputFormatJSON:
		return writeJSON(out, rows)
	case OutputFormatYAML:
		return writeYAML(out, rows)
	case OutputFormatTable:
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "NAME\tVERSION\tMASTER FIELDS\tINSTANCE FIELDS\tENTRYPOINT")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				row.Name, row.Version, row.MasterFields, row.InstanceFields, row.Entrypoint)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func descriptorRow(d *plugin.Descriptor) pluginRow {
	row := pluginRow{
		Name:       d.Name,
		Version:    d.Version,
		Requires:   d.Requires,
		Entrypoint: d.EntrypointCommand,
	}
	if d.MasterGroup != nil {
		row.MasterFields = d.MasterGroup.Len()
	}
	if d.InstanceGroup != nil {
		row.InstanceFields = d.InstanceGroup.Len()
	}
	return row
}
