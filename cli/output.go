package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/mattn/go-isatty"
	"github.com/tidwall/pretty"
)

// Output format constants
const (
	OutputFormatJSON  = "json"
	OutputFormatYAML  = "yaml"
	OutputFormatTable = "table"
)

// resolveFormat picks the effective output format: an explicit flag wins,
// otherwise a terminal gets the table view and pipes get JSON.
func resolveFormat(format string) string {
	if format != "" {
		return format
	}
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return OutputFormatTable
	}
	return OutputFormatJSON
}

// prettyJSON indents raw JSON with sorted keys, matching the byte form the
// document store persists.
func prettyJSON(raw []byte) []byte {
	return pretty.PrettyOptions(raw, &pretty.Options{Indent: "  ", SortKeys: true})
}

// writeJSON renders v as indented JSON with sorted keys.
func writeJSON(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = w.Write(prettyJSON(raw))
	return err
}

// writeYAML renders v as YAML.
func writeYAML(w io.Writer, v any) error {
	raw, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	_, err = w.Write(raw)
	return err
}
