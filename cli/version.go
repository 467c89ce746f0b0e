package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gamewarden/gamewarden/pkg/version"
)

// VersionCmd returns the version command
func VersionCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if resolveFormat(format) == OutputFormatJSON {
				return writeJSON(cmd.OutOrStdout(), info)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "gamewarden %s (commit %s, built %s)\n",
				info.Version, info.CommitHash, info.BuildDate)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (json, table)")
	return cmd
}
