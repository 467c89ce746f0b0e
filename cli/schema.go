package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cobra"

	"github.com/gamewarden/gamewarden/engine/config"
	"github.com/gamewarden/gamewarden/pkg/logger"
)

// configSchemaCmd emits a JSON Schema for this node's values document
func configSchemaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema [file]",
		Short: "Emit the JSON Schema of this node's configuration document",
		Long: `Generate a JSON Schema describing the configuration document for the
configured node kind, including plugin-contributed fields. Useful for editor
completion and external validation.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) > 0 {
				file = args[0]
			}
			return runConfigSchema(cmd, file)
		},
	}
	return cmd
}

func runConfigSchema(cmd *cobra.Command, file string) error {
	n, err := buildNode(cmd.Context())
	if err != nil {
		return err
	}
	schema := buildDocumentSchema(n.schema)
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	raw = append(raw, '\n')
	if file == "" {
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	}
	if err := os.WriteFile(file, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write schema to %s: %w", file, err)
	}
	logger.FromContext(cmd.Context()).Info("Generated schema", "file", file)
	return nil
}

// buildDocumentSchema maps the registry onto a draft-07 JSON Schema. The
// document is described in its flat form, one property per fully-qualified
// field name. Unknown keys stay allowed because deserialization tolerates
// documents written by other schema versions.
func buildDocumentSchema(s *config.Schema) *jsonschema.Schema {
	root := &jsonschema.Schema{
		Version:    "http://json-schema.org/draft-07/schema#",
		ID:         jsonschema.ID(fmt.Sprintf("https://gamewarden.dev/schemas/%s.json", s.Kind())),
		Title:      fmt.Sprintf("gamewarden %s configuration", s.Kind()),
		Type:       "object",
		Properties: jsonschema.NewProperties(),
	}
	for _, def := range s.Fields() {
		root.Properties.Set(def.FullName(), fieldSchema(def))
	}
	return root
}

func fieldSchema(def config.FieldDefinition) *jsonschema.Schema {
	prop := &jsonschema.Schema{
		Title:       def.Title,
		Description: def.Description,
	}
	typed := typeSchema(def.Type)
	if def.Optional && typed.Type != "" {
		prop.OneOf = []*jsonschema.Schema{typed, {Type: "null"}}
	} else {
		prop.Type = typed.Type
	}
	if value, ok := def.Default.LiteralValue(); ok {
		prop.Default = value
	}
	return prop
}

// typeSchema translates a field type into its JSON Schema constraint. Object
// fields carry any JSON structure, so they stay unconstrained.
func typeSchema(t config.FieldType) *jsonschema.Schema {
	switch t {
	case config.TypeString:
		return &jsonschema.Schema{Type: "string"}
	case config.TypeNumber:
		return &jsonschema.Schema{Type: "number"}
	case config.TypeBoolean:
		return &jsonschema.Schema{Type: "boolean"}
	default:
		return &jsonschema.Schema{}
	}
}
