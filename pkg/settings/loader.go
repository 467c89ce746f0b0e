package settings

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	str2duration "github.com/xhit/go-str2duration/v2"
)

// Metadata records where each resolved settings key came from.
type Metadata struct {
	Sources  map[string]SourceType
	LoadedAt time.Time
}

// Service resolves the effective settings for a node process.
type Service interface {
	// Load resolves settings from defaults, the given sources and the
	// environment. Precedence from lowest to highest: defaults, file
	// sources, environment variables, flag sources.
	Load(ctx context.Context, sources ...Source) (*Settings, error)

	// Validate checks a settings value against the struct constraints.
	Validate(s *Settings) error

	// Current returns the most recently loaded settings, or nil before
	// the first successful Load.
	Current() *Settings

	// GetSource reports which source provided the given settings key.
	GetSource(key string) SourceType
}

// loader implements Service on top of koanf.
type loader struct {
	koanf      *koanf.Koanf
	validator  *validator.Validate
	metadata   Metadata
	metadataMu sync.RWMutex
	current    atomic.Value // stores *Settings
}

// NewService creates a settings service with validation support.
func NewService() Service {
	return &loader{
		koanf:     koanf.New("."),
		validator: validator.New(),
		metadata: Metadata{
			Sources: make(map[string]SourceType),
		},
	}
}

func (l *loader) Load(_ context.Context, sources ...Source) (*Settings, error) {
	l.reset()
	if err := l.loadDefaults(); err != nil {
		return nil, err
	}
	if err := l.loadSources(sources, SourceYAML); err != nil {
		return nil, err
	}
	if err := l.loadEnvironment(); err != nil {
		return nil, err
	}
	if err := l.loadSources(sources, SourceFlag); err != nil {
		return nil, err
	}
	s, err := l.unmarshalAndValidate()
	if err != nil {
		return nil, err
	}
	l.current.Store(s)
	return s, nil
}

func (l *loader) reset() {
	l.koanf.Cut("")
	l.metadataMu.Lock()
	l.metadata.Sources = make(map[string]SourceType)
	l.metadata.LoadedAt = time.Now()
	l.metadataMu.Unlock()
}

// loadDefaults seeds koanf from the Default settings struct so every key
// exists before overrides apply.
func (l *loader) loadDefaults() error {
	if err := l.koanf.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load default settings: %w", err)
	}
	for _, key := range l.koanf.Keys() {
		l.trackSource(key, SourceDefault)
	}
	return nil
}

// loadSources applies the sources matching the wanted type, in order.
func (l *loader) loadSources(sources []Source, want SourceType) error {
	for _, source := range sources {
		if source == nil || source.Type() != want {
			continue
		}
		if err := l.loadSource(source); err != nil {
			return err
		}
	}
	return nil
}

func (l *loader) loadSource(source Source) error {
	data, err := source.Load()
	if err != nil {
		return fmt.Errorf("failed to load %s settings: %w", source.Type(), err)
	}
	if len(data) == 0 {
		return nil
	}
	keysBefore := make(map[string]any)
	for _, key := range l.koanf.Keys() {
		keysBefore[key] = l.koanf.Get(key)
	}
	// Merge key by key so sparse sources never clobber values they do
	// not mention.
	for key, value := range flattenMap("", data) {
		if err := l.koanf.Set(key, value); err != nil {
			return fmt.Errorf("failed to set key %s from %s settings: %w", key, source.Type(), err)
		}
	}
	l.trackChanged(keysBefore, source.Type())
	return nil
}

// transformEnvKey converts an environment variable suffix to a settings
// path. For example DOCUMENT_LOCK_TIMEOUT becomes document.lock_timeout:
// the first segment is the section, the rest stays underscore-joined.
func transformEnvKey(s string) string {
	s = strings.ToLower(s)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_'
	})
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return parts[0] + "." + strings.Join(parts[1:], "_")
}

// loadEnvironment loads GAMEWARDEN_* environment variables. Explicit env
// tag mappings win over the generic transform.
func (l *loader) loadEnvironment() error {
	keysBefore := make(map[string]any)
	for _, key := range l.koanf.Keys() {
		keysBefore[key] = l.koanf.Get(key)
	}
	envToPath := GenerateEnvToPathMap()
	if err := l.koanf.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			key = strings.TrimPrefix(key, EnvPrefix)
			if path, ok := envToPath[key]; ok {
				return path, value
			}
			return transformEnvKey(key), value
		},
	}), nil); err != nil {
		return fmt.Errorf("failed to load environment settings: %w", err)
	}
	l.trackChanged(keysBefore, SourceEnv)
	return nil
}

// flattenMap flattens a nested map into dot-notation keys.
func flattenMap(prefix string, m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			for fk, fv := range flattenMap(key, nested) {
				result[fk] = fv
			}
		} else {
			result[key] = v
		}
	}
	return result
}

// durationDecodeHook converts strings to time.Duration, accepting extended
// day and week units like "1d" or "2w3h" on top of the standard syntax.
func durationDecodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Duration(0)) {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		return time.Duration(0), nil
	}
	d, err := str2duration.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	return d, nil
}

func (l *loader) unmarshalAndValidate() (*Settings, error) {
	var s Settings
	if err := l.koanf.UnmarshalWithConf("", &s, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &s,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				durationDecodeHook,
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
	}
	if err := l.Validate(&s); err != nil {
		return nil, fmt.Errorf("settings validation failed: %w", err)
	}
	return &s, nil
}

func (l *loader) Validate(s *Settings) error {
	if s == nil {
		return fmt.Errorf("settings cannot be nil")
	}
	if err := l.validator.Struct(s); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return l.validateCustom(s)
}

// validateCustom covers the constraints struct tags cannot express.
func (l *loader) validateCustom(s *Settings) error {
	if s.Document.DebounceMaxWait > 0 && s.Document.DebounceMaxWait < s.Document.DebounceWait {
		return fmt.Errorf("document debounce_max_wait must be at least debounce_wait")
	}
	if s.Document.Watch && s.Document.DebounceWait <= 0 {
		return fmt.Errorf("document debounce_wait must be positive when watch is enabled")
	}
	return nil
}

func (l *loader) Current() *Settings {
	if s, ok := l.current.Load().(*Settings); ok {
		return s
	}
	return nil
}

func (l *loader) GetSource(key string) SourceType {
	l.metadataMu.RLock()
	defer l.metadataMu.RUnlock()
	if source, ok := l.metadata.Sources[key]; ok {
		return source
	}
	return SourceDefault
}

func (l *loader) trackSource(key string, source SourceType) {
	l.metadataMu.Lock()
	defer l.metadataMu.Unlock()
	l.metadata.Sources[key] = source
}

// trackChanged records every key whose value differs from the snapshot
// taken before a source was applied.
func (l *loader) trackChanged(keysBefore map[string]any, source SourceType) {
	for _, key := range l.koanf.Keys() {
		before, existed := keysBefore[key]
		after := l.koanf.Get(key)
		if !existed || !reflect.DeepEqual(before, after) {
			l.trackSource(key, source)
		}
	}
}
