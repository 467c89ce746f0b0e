package config

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/gamewarden/gamewarden/pkg/logger"
)

// -----------------------------------------------------------------------------
// Config
// -----------------------------------------------------------------------------

// Config is the instance-level value state for one runtime entity (a master
// process, an agent, or a game instance). Values are resolved from the schema
// at construction and mutated only through Set.
//
// A Config is not safe for concurrent use; one logical owner per instance, or
// callers serialize access externally.
type Config struct {
	schema *Schema
	values map[string]any
	order  []string
}

// New constructs a Config against a finalized schema, resolving the effective
// initial value of every field in enumeration order. Generator defaults are
// invoked exactly once each with ctx; all failures are aggregated so a single
// construction error reports every failed field.
func New(ctx context.Context, schema *Schema) (*Config, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", ErrInvalidDefinition)
	}
	if !schema.Locked() {
		return nil, fmt.Errorf("%w: finalize the %s schema before constructing instances",
			ErrSchemaNotFinalized, schema.Kind())
	}
	c := &Config{
		schema: schema,
		values: make(map[string]any),
	}
	var errs []error
	for _, def := range schema.Fields() {
		fullName := def.FullName()
		c.order = append(c.order, fullName)
		value, err := resolveInitial(ctx, &def)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", fullName, err))
			continue
		}
		c.values[fullName] = value
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%s config construction failed: %w", schema.Kind(), errors.Join(errs...))
	}
	return c, nil
}

// resolveInitial produces the stored initial value for one definition.
// Missing defaults fall back to null for optional fields and the type's zero
// value otherwise, so construction is total for well-formed schemas.
func resolveInitial(ctx context.Context, def *FieldDefinition) (any, error) {
	if def.Default.IsZero() {
		if def.Optional {
			return nil, nil
		}
		return zeroValue(def.Type), nil
	}
	raw, err := def.Default.resolve(ctx)
	if err != nil {
		return nil, err
	}
	value, err := normalizeValue(def.Type, def.Optional, raw)
	if err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	return value, nil
}

// Schema returns the schema this instance was constructed against.
func (c *Config) Schema() *Schema {
	return c.schema
}

// Kind returns the schema's node role.
func (c *Config) Kind() Kind {
	return c.schema.Kind()
}

// Get returns the current value of a fully-qualified field name. Object
// values are returned as deep copies.
func (c *Config) Get(fullName string) (any, error) {
	if _, err := c.schema.Lookup(fullName); err != nil {
		return nil, err
	}
	return cloneValue(c.values[fullName]), nil
}

// Set validates and coerces raw for the named field, then assigns it. On any
// failure the previous value is left untouched; the error wraps either
// ErrUnknownField or ErrInvalidValue.
func (c *Config) Set(fullName string, raw any) error {
	def, err := c.schema.Lookup(fullName)
	if err != nil {
		return err
	}
	value, err := normalizeValue(def.Type, def.Optional, raw)
	if err != nil {
		return fmt.Errorf("%s: %w", fullName, err)
	}
	c.values[fullName] = value
	return nil
}

// Serialize returns a JSON-safe snapshot of all current values keyed by
// fully-qualified name. encoding/json marshals map keys sorted, so the
// persisted byte form is deterministic.
func (c *Config) Serialize() map[string]any {
	out := make(map[string]any, len(c.order))
	for _, fullName := range c.order {
		out[fullName] = cloneValue(c.values[fullName])
	}
	return out
}

// SerializeNested returns the same snapshot nested group then field.
func (c *Config) SerializeNested() map[string]any {
	out := make(map[string]any)
	for _, fullName := range c.order {
		groupName, fieldName, ok := SplitFullName(fullName)
		if !ok {
			continue
		}
		groupMap, ok := out[groupName].(map[string]any)
		if !ok {
			groupMap = make(map[string]any)
			out[groupName] = groupMap
		}
		groupMap[fieldName] = cloneValue(c.values[fullName])
	}
	return out
}

// Deserialize applies a previously serialized document through Set, key by
// key in sorted order. Unknown keys are logged and skipped so documents
// written by other schema versions still load; invalid values are collected
// and reported together while the remaining keys still apply. Both the flat
// and the nested shape are accepted.
func (c *Config) Deserialize(ctx context.Context, data map[string]any) error {
	log := logger.FromContext(ctx)
	flat := flattenDocument(data, func(key string) bool { return c.schema.HasGroup(key) })
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var errs []error
	for _, key := range keys {
		err := c.Set(key, flat[key])
		switch {
		case err == nil:
		case errors.Is(err, ErrUnknownField):
			log.Warn("Ignoring unknown config key", "key", key, "kind", c.schema.Kind())
		case errors.Is(err, ErrInvalidValue):
			errs = append(errs, err)
		default:
			return err
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("deserialize: %w", errors.Join(errs...))
	}
	return nil
}

// DocumentIssue is one problem found while checking a document against the
// schema: the offending key plus an error wrapping ErrUnknownField or
// ErrInvalidValue.
type DocumentIssue struct {
	Key string
	Err error
}

// FlattenDocument reduces a document to the flat fully-qualified form, using
// the schema's group names to expand the nested shape.
func (c *Config) FlattenDocument(data map[string]any) map[string]any {
	return flattenDocument(data, func(key string) bool { return c.schema.HasGroup(key) })
}

// CheckDocument dry-runs Deserialize: every key is classified against the
// schema without mutating instance state. An empty result means Deserialize
// would apply the document cleanly.
func (c *Config) CheckDocument(data map[string]any) []DocumentIssue {
	flat := c.FlattenDocument(data)
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var issues []DocumentIssue
	for _, key := range keys {
		def, err := c.schema.Lookup(key)
		if err != nil {
			issues = append(issues, DocumentIssue{Key: key, Err: err})
			continue
		}
		if _, err := normalizeValue(def.Type, def.Optional, flat[key]); err != nil {
			issues = append(issues, DocumentIssue{Key: key, Err: fmt.Errorf("%s: %w", key, err)})
		}
	}
	return issues
}

// flattenDocument reduces a document to fully-qualified keys. Top-level keys
// containing a dot pass through; a dotless key whose value is a map and whose
// name matches a known group is expanded to "<group>.<field>" entries. Other
// keys pass through untouched and surface as unknown fields.
func flattenDocument(data map[string]any, isGroup func(string) bool) map[string]any {
	flat := make(map[string]any, len(data))
	for key, value := range data {
		nested, ok := value.(map[string]any)
		if ok && isGroup(key) {
			for fieldName, fieldValue := range nested {
				flat[key+"."+fieldName] = fieldValue
			}
			continue
		}
		flat[key] = value
	}
	return flat
}
