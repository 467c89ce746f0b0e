package settings

import (
	"reflect"
	"sync"
)

// EnvPrefix namespaces every environment variable read by the loader.
const EnvPrefix = "GAMEWARDEN_"

// EnvMapping links one environment variable suffix to a settings path.
// The full variable name is EnvPrefix + EnvVar.
type EnvMapping struct {
	EnvVar       string
	SettingsPath string
}

var (
	cachedMappings []EnvMapping
	mappingsOnce   sync.Once
)

// GenerateEnvMappings builds the environment variable mappings from the
// env struct tags on Settings. The result is computed once and cached.
func GenerateEnvMappings() []EnvMapping {
	mappingsOnce.Do(func() {
		s := &Settings{}
		cachedMappings = extractMappings(reflect.TypeOf(s).Elem(), "")
	})
	return cachedMappings
}

// GenerateEnvToPathMap returns a lookup table from env var suffix to
// settings path.
func GenerateEnvToPathMap() map[string]string {
	mappings := GenerateEnvMappings()
	result := make(map[string]string, len(mappings))
	for _, m := range mappings {
		result[m.EnvVar] = m.SettingsPath
	}
	return result
}

// extractMappings recursively collects env mappings from struct fields.
func extractMappings(t reflect.Type, prefix string) []EnvMapping {
	var mappings []EnvMapping
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		koanfTag := field.Tag.Get("koanf")
		if koanfTag == "" || koanfTag == "-" {
			continue
		}
		path := koanfTag
		if prefix != "" {
			path = prefix + "." + koanfTag
		}
		envTag := field.Tag.Get("env")
		if envTag != "" && envTag != "-" {
			mappings = append(mappings, EnvMapping{
				EnvVar:       envTag,
				SettingsPath: path,
			})
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			mappings = append(mappings, extractMappings(field.Type, path)...)
		}
	}
	return mappings
}
