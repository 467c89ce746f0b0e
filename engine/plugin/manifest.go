package plugin

import (
	"fmt"
	"sync"

	"github.com/goccy/go-yaml"
	"github.com/kaptinlin/jsonschema"

	"github.com/gamewarden/gamewarden/engine/config"
)

// manifestSchema constrains plugin manifest files before any group is built
// from them. A manifest that fails here is a packaging defect.
const manifestSchema = `{
	"type": "object",
	"required": ["name", "version"],
	"additionalProperties": false,
	"properties": {
		"name": {"type": "string", "minLength": 1},
		"version": {"type": "string", "minLength": 1},
		"requires": {"type": "string"},
		"instance_entrypoint": {"type": "string"},
		"master_fields": {"type": "array", "items": {"$ref": "#/$defs/field"}},
		"instance_fields": {"type": "array", "items": {"$ref": "#/$defs/field"}}
	},
	"$defs": {
		"field": {
			"type": "object",
			"required": ["name", "type"],
			"additionalProperties": false,
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"type": {"enum": ["string", "number", "boolean", "object"]},
				"optional": {"type": "boolean"},
				"default": {},
				"title": {"type": "string"},
				"description": {"type": "string"}
			}
		}
	}
}`

var (
	manifestSchemaOnce     sync.Once
	compiledManifestSchema *jsonschema.Schema
	manifestSchemaErr      error
)

func manifestValidator() (*jsonschema.Schema, error) {
	manifestSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledManifestSchema, manifestSchemaErr = compiler.Compile([]byte(manifestSchema))
	})
	if manifestSchemaErr != nil {
		return nil, fmt.Errorf("failed to compile manifest schema: %w", manifestSchemaErr)
	}
	return compiledManifestSchema, nil
}

// FieldSpec is the manifest form of a field definition. Manifest defaults are
// always literals; generator defaults exist only for compiled-in plugins.
type FieldSpec struct {
	Name        string `yaml:"name" json:"name"`
	Type        string `yaml:"type" json:"type"`
	Optional    bool   `yaml:"optional,omitempty" json:"optional,omitempty"`
	Default     any    `yaml:"default,omitempty" json:"default,omitempty"`
	Title       string `yaml:"title,omitempty" json:"title,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Manifest is a plugin declared on disk rather than compiled in.
type Manifest struct {
	Name               string      `yaml:"name" json:"name"`
	Version            string      `yaml:"version" json:"version"`
	Requires           string      `yaml:"requires,omitempty" json:"requires,omitempty"`
	InstanceEntrypoint string      `yaml:"instance_entrypoint,omitempty" json:"instance_entrypoint,omitempty"`
	MasterFields       []FieldSpec `yaml:"master_fields,omitempty" json:"master_fields,omitempty"`
	InstanceFields     []FieldSpec `yaml:"instance_fields,omitempty" json:"instance_fields,omitempty"`
}

// ParseManifest decodes and schema-validates one manifest document.
func ParseManifest(data []byte) (*Manifest, error) {
	var decoded map[string]any
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		return nil, config.NewError(config.ErrPluginContract, "PLUGIN_MANIFEST_UNPARSEABLE", map[string]any{
			"error": err.Error(),
		})
	}
	validator, err := manifestValidator()
	if err != nil {
		return nil, err
	}
	result := validator.Validate(decoded)
	if !result.Valid {
		return nil, config.NewError(config.ErrPluginContract, "PLUGIN_MANIFEST_INVALID", map[string]any{
			"errors": fmt.Sprintf("%v", result.Errors),
		})
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, config.NewError(config.ErrPluginContract, "PLUGIN_MANIFEST_UNPARSEABLE", map[string]any{
			"error": err.Error(),
		})
	}
	return &m, nil
}

// Descriptor materializes the manifest into the same descriptor shape
// compiled-in plugins use, so both paths go through one registration
// contract.
func (m *Manifest) Descriptor() (*Descriptor, error) {
	d := &Descriptor{
		Name:              m.Name,
		Version:           m.Version,
		Requires:          m.Requires,
		EntrypointCommand: m.InstanceEntrypoint,
	}
	if len(m.MasterFields) > 0 {
		group, err := buildGroup(m.Name, m.MasterFields)
		if err != nil {
			return nil, err
		}
		d.MasterGroup = group
	}
	if len(m.InstanceFields) > 0 {
		group, err := buildGroup(m.Name, m.InstanceFields)
		if err != nil {
			return nil, err
		}
		d.InstanceGroup = group
	}
	return d, nil
}

func buildGroup(pluginName string, specs []FieldSpec) (*config.Group, error) {
	group := config.NewPluginGroup(pluginName)
	for _, spec := range specs {
		def := config.FieldDefinition{
			Name:        spec.Name,
			Type:        config.FieldType(spec.Type),
			Optional:    spec.Optional,
			Title:       spec.Title,
			Description: spec.Description,
		}
		if spec.Default != nil {
			def.Default = config.Literal(spec.Default)
		}
		if err := group.Define(def); err != nil {
			return nil, config.NewError(err, "PLUGIN_MANIFEST_FIELD_INVALID", map[string]any{
				"plugin": pluginName,
				"field":  spec.Name,
			})
		}
	}
	return group, nil
}
