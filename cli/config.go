package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"dario.cat/mergo"
	"github.com/atotto/clipboard"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/gamewarden/gamewarden/engine/config"
	"github.com/gamewarden/gamewarden/pkg/document"
	"github.com/gamewarden/gamewarden/pkg/logger"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit the node's configuration values",
	}

	cmd.AddCommand(
		configListCmd(),
		configShowCmd(),
		configSetCmd(),
		configValidateCmd(),
		configSchemaCmd(),
		configExportCmd(),
		configImportCmd(),
	)

	return cmd
}

// configListCmd lists fields and current values, optionally glob-filtered
func configListCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list [pattern]",
		Short: "List configuration fields and their current values",
		Long: `List every field of this node's configuration with its type and current
value. An optional glob pattern filters by fully-qualified name, e.g.
"cluster.*" or "*.port".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) > 0 {
				pattern = args[0]
			}
			return runConfigList(cmd, pattern, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (json, yaml, table)")
	return cmd
}

func runConfigList(cmd *cobra.Command, pattern, format string) error {
	n, err := loadNode(cmd.Context())
	if err != nil {
		return err
	}
	var fields []config.FieldDefinition
	for _, def := range n.schema.Fields() {
		if pattern != "" {
			matched, err := doublestar.Match(pattern, def.FullName())
			if err != nil {
				return fmt.Errorf("invalid pattern %q: %w", pattern, err)
			}
			if !matched {
				continue
			}
		}
		fields = append(fields, def)
	}

	out := cmd.OutOrStdout()
	format = resolveFormat(format)
	switch format {
	case OutputFormatJSON, OutputFormatYAML:
		values := make(map[string]any, len(fields))
		for _, def := range fields {
			value, err := n.config.Get(def.FullName())
			if err != nil {
				return err
			}
			values[def.FullName()] = value
		}
		if format == OutputFormatYAML {
			return writeYAML(out, values)
		}
		return writeJSON(out, values)
	case OutputFormatTable:
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "FIELD\tTYPE\tVALUE")
		for _, def := range fields {
			value, err := n.config.Get(def.FullName())
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", def.FullName(), def.Type, renderValue(value))
		}
		return nil
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// configShowCmd prints a single value
func configShowCmd() *cobra.Command {
	var copyValue bool

	cmd := &cobra.Command{
		Use:   "show <field>",
		Short: "Show the current value of one field",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, args[0], copyValue)
		},
	}

	cmd.Flags().BoolVarP(&copyValue, "copy", "c", false, "Copy the value to the clipboard")
	return cmd
}

func runConfigShow(cmd *cobra.Command, field string, copyValue bool) error {
	n, err := loadNode(cmd.Context())
	if err != nil {
		return err
	}
	value, err := n.config.Get(field)
	if err != nil {
		return err
	}
	rendered := renderValue(value)
	fmt.Fprintln(cmd.OutOrStdout(), rendered)
	if copyValue {
		if err := clipboard.WriteAll(rendered); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		logger.FromContext(cmd.Context()).Info("Copied value to clipboard", "field", field)
	}
	return nil
}

// configSetCmd validates, applies and persists one value
func configSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <field> [value]",
		Short: "Set a field and persist the document",
		Long: `Validate and apply one value, then persist the whole serialized document
atomically. Omitting the value argument sets an explicit null, which only
optional fields accept. Values are parsed as JSON when possible ("8080"
becomes a number, "true" a boolean); anything unparsable is taken as a raw
string. On a validation error nothing is applied and nothing is persisted.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, args)
		},
	}
	return cmd
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	n, err := loadNode(ctx)
	if err != nil {
		return err
	}
	field := args[0]
	var raw any
	if len(args) == 2 {
		raw = parseValueArg(args[1])
	}
	if err := n.config.Set(field, raw); err != nil {
		return err
	}
	if err := n.manager.Save(ctx); err != nil {
		return err
	}
	value, err := n.config.Get(field)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Configuration updated", "field", field)
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", field, renderValue(value))
	return nil
}

// configValidateCmd checks the persisted document without mutating anything
func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the persisted document against the schema",
		Long: `Check every key of the persisted document against this node's schema and
report unknown fields and invalid values. Nothing is mutated or persisted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd)
		},
	}
	return cmd
}

func runConfigValidate(cmd *cobra.Command) error {
	ctx := cmd.Context()
	n, err := buildNode(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	doc, err := n.manager.Store().Load(ctx)
	if err != nil {
		if errors.Is(err, document.ErrNotFound) {
			fmt.Fprintln(out, "No document found, defaults apply")
			return nil
		}
		return err
	}
	issues := n.config.CheckDocument(doc)
	if len(issues) == 0 {
		fmt.Fprintln(out, "Document is valid")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tPROBLEM")
	for _, issue := range issues {
		fmt.Fprintf(w, "%s\t%s\n", issue.Key, issue.Err)
	}
	w.Flush()
	return fmt.Errorf("document has %d issue(s)", len(issues))
}

// configExportCmd writes the serialized document to a file or stdout
func configExportCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the current configuration document",
		Long: `Write the current values as a document. JSON exports the flat form the
store persists; YAML exports the nested group/field form. With a file
argument the extension picks the format unless --format overrides it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) > 0 {
				file = args[0]
			}
			return runConfigExport(cmd, file, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (json, yaml)")
	return cmd
}

func runConfigExport(cmd *cobra.Command, file, format string) error {
	n, err := loadNode(cmd.Context())
	if err != nil {
		return err
	}
	if format == "" {
		format = documentFormatFor(file)
	}

	var raw []byte
	switch format {
	case OutputFormatJSON:
		encoded, err := json.Marshal(n.config.Serialize())
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		raw = prettyJSON(encoded)
	case OutputFormatYAML:
		encoded, err := yaml.Marshal(n.config.SerializeNested())
		if err != nil {
			return fmt.Errorf("failed to encode document: %w", err)
		}
		raw = encoded
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if file == "" {
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	}
	if err := os.WriteFile(file, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", file, err)
	}
	logger.FromContext(cmd.Context()).Info("Configuration exported", "file", file, "format", format)
	return nil
}

// configImportCmd applies a document file after validating it as a whole
func configImportCmd() *cobra.Command {
	var merge bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a configuration document",
		Long: `Load a JSON or YAML document, validate it as a whole against this node's
schema, apply it and persist. With --merge the file is overlaid onto the
current values first, so fields absent from the file keep their values.
Nothing is applied or persisted when any entry is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigImport(cmd, args[0], merge)
		},
	}

	cmd.Flags().BoolVar(&merge, "merge", false, "Overlay the file onto current values instead of replacing them")
	return cmd
}

func runConfigImport(cmd *cobra.Command, file string, merge bool) error {
	ctx := cmd.Context()
	// A plain import replaces the document, so the file applies onto fresh
	// defaults. With --merge it overlays the currently persisted values.
	var n *node
	var err error
	if merge {
		n, err = loadNode(ctx)
	} else {
		n, err = buildNode(ctx)
	}
	if err != nil {
		return err
	}
	imported, err := readDocumentFile(file)
	if err != nil {
		return err
	}
	flat := n.config.FlattenDocument(imported)
	doc := flat
	if merge {
		base := n.config.Serialize()
		if err := mergo.Merge(&base, flat, mergo.WithOverride); err != nil {
			return fmt.Errorf("failed to merge document: %w", err)
		}
		doc = base
	}
	if issues := n.config.CheckDocument(doc); len(issues) > 0 {
		for _, issue := range issues {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", issue.Key, issue.Err)
		}
		return fmt.Errorf("import aborted, %s has %d issue(s)", file, len(issues))
	}
	if err := n.config.Deserialize(ctx, doc); err != nil {
		return err
	}
	if err := n.manager.Save(ctx); err != nil {
		return err
	}
	logger.FromContext(ctx).Info("Configuration imported", "file", file, "merge", merge)
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d value(s) from %s\n", len(flat), file)
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// renderValue renders a config value for display: strings raw, everything
// else as compact JSON.
func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}

// parseValueArg turns a CLI value argument into a raw config value. JSON
// syntax wins so numbers, booleans, null and objects round-trip; anything
// else is a plain string.
func parseValueArg(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err == nil {
		return v
	}
	return arg
}

// readDocumentFile loads a document from disk, YAML or JSON by extension.
func readDocumentFile(file string) (map[string]any, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	doc := make(map[string]any)
	switch documentFormatFor(file) {
	case OutputFormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s is not valid YAML: %w", file, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%s is not valid JSON: %w", file, err)
		}
	}
	return doc, nil
}

// documentFormatFor picks a document format from a file extension; JSON is
// the fallback and the stdout default.
func documentFormatFor(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		return OutputFormatYAML
	default:
		return OutputFormatJSON
	}
}
