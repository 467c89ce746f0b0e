package settings

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SourceType identifies where a settings value came from.
type SourceType string

const (
	SourceDefault SourceType = "default"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceFlag    SourceType = "flag"
)

// Source supplies a layer of settings values. Sources are applied in the
// order given to Load, so later sources override earlier ones. Environment
// variables are loaded natively by the loader and always sit between file
// sources and flag sources.
type Source interface {
	// Load returns the settings data provided by this source. A source
	// with nothing to contribute returns an empty map, not an error.
	Load() (map[string]any, error)

	// Type returns the source type identifier used for tracking.
	Type() SourceType
}

// -----------------------------------------------------------------------------
// YAML file source
// -----------------------------------------------------------------------------

type fileSource struct {
	path string
}

// NewFileSource creates a settings source backed by a YAML file. A missing
// file is not an error, the source just contributes nothing.
func NewFileSource(path string) Source {
	return &fileSource{path: path}
}

func (f *fileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", f.path, err)
	}
	return filterNilValues(raw), nil
}

func (f *fileSource) Type() SourceType {
	return SourceYAML
}

// filterNilValues recursively removes nil values from a map so an empty
// YAML key cannot clobber an existing value with nil.
func filterNilValues(m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		if v == nil {
			continue
		}
		if nested, ok := v.(map[string]any); ok {
			filtered := filterNilValues(nested)
			if len(filtered) > 0 {
				result[k] = filtered
			}
		} else {
			result[k] = v
		}
	}
	return result
}

// -----------------------------------------------------------------------------
// CLI flag source
// -----------------------------------------------------------------------------

// flagPaths maps CLI flag names to settings paths. Only flags listed here
// participate in settings resolution.
var flagPaths = map[string]string{
	"kind":       "node.kind",
	"doc":        "document.path",
	"backup":     "document.backup",
	"watch":      "document.watch",
	"plugins":    "plugins.dir",
	"log-level":  "log.level",
	"log-json":   "log.json",
	"log-source": "log.source",
}

type flagSource struct {
	flags map[string]any
}

// NewFlagSource creates a settings source from explicitly set CLI flags.
// The map is keyed by flag name and should only contain flags the user
// actually passed, so defaults never masquerade as explicit choices.
func NewFlagSource(flags map[string]any) Source {
	return &flagSource{flags: flags}
}

func (c *flagSource) Load() (map[string]any, error) {
	if len(c.flags) == 0 {
		return make(map[string]any), nil
	}
	result := make(map[string]any)
	for name, value := range c.flags {
		path, ok := flagPaths[name]
		if !ok {
			continue
		}
		if err := setNested(result, path, value); err != nil {
			return nil, fmt.Errorf("failed to apply flag %s: %w", name, err)
		}
	}
	return result, nil
}

func (c *flagSource) Type() SourceType {
	return SourceFlag
}

// setNested sets a value in a nested map structure using dot notation.
func setNested(m map[string]any, path string, value any) error {
	if path == "" {
		return nil
	}
	parts := strings.Split(path, ".")
	current := m
	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		next, ok := current[part].(map[string]any)
		if !ok {
			return fmt.Errorf("settings conflict: key %q is not a map", strings.Join(parts[:i+1], "."))
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
	return nil
}
