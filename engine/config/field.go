package config

import (
	"context"
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// FieldType
// -----------------------------------------------------------------------------

// FieldType is the closed set of value types a field may carry.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
	TypeObject  FieldType = "object"
)

func (t FieldType) String() string {
	return string(t)
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeObject:
		return true
	default:
		return false
	}
}

// -----------------------------------------------------------------------------
// Default
// -----------------------------------------------------------------------------

// Generator produces a field's initial value at instance construction time.
// Generators must be independent of one another and safe to invoke exactly
// once per construction; slow or blocking work is bounded only by ctx.
type Generator func(ctx context.Context) (any, error)

type defaultKind uint8

const (
	defaultNone defaultKind = iota
	defaultLiteral
	defaultGenerator
)

// Default is the initial value of a field: either a literal or a deferred
// generator, resolved uniformly during instance construction.
type Default struct {
	kind      defaultKind
	literal   any
	generator Generator
}

// Literal returns a Default carrying a fixed value.
func Literal(v any) Default {
	return Default{kind: defaultLiteral, literal: v}
}

// Generated returns a Default resolved by invoking g during construction.
func Generated(g Generator) Default {
	return Default{kind: defaultGenerator, generator: g}
}

// IsZero reports whether no default was supplied.
func (d Default) IsZero() bool {
	return d.kind == defaultNone
}

// LiteralValue returns the fixed default value when one was supplied with
// Literal. Generated defaults report false because their value is only known
// at construction time.
func (d Default) LiteralValue() (any, bool) {
	if d.kind != defaultLiteral {
		return nil, false
	}
	return d.literal, true
}

// resolve produces the effective initial value. Literal defaults are returned
// as-is; generator defaults are invoked with ctx.
func (d Default) resolve(ctx context.Context) (any, error) {
	switch d.kind {
	case defaultLiteral:
		return d.literal, nil
	case defaultGenerator:
		if d.generator == nil {
			return nil, fmt.Errorf("%w: nil generator", ErrInvalidDefinition)
		}
		return d.generator(ctx)
	default:
		return nil, nil
	}
}

// -----------------------------------------------------------------------------
// FieldDefinition
// -----------------------------------------------------------------------------

// FieldDefinition describes one configurable value. Definitions become
// immutable once their owning group is finalized.
type FieldDefinition struct {
	// Name is unique within the owning group and must not contain dots.
	Name string
	// Type selects the validation and coercion rules applied on Set.
	Type FieldType
	// Optional permits explicit null values.
	Optional bool
	// Default is the initial value resolved at instance construction.
	Default Default
	// Title and Description are display metadata for listings and schemas.
	Title       string
	Description string

	group string
}

// FullName returns the "<group>.<name>" address of the field, or just the
// name when the definition has not been attached to a group yet.
func (f *FieldDefinition) FullName() string {
	if f.group == "" {
		return f.Name
	}
	return f.group + "." + f.Name
}

// Group returns the owning group's name, empty until the field is defined
// into a group.
func (f *FieldDefinition) Group() string {
	return f.group
}

// validate checks the definition's own consistency. Literal defaults are
// normalized here so a bad packaging literal fails at Define time, not at
// first construction.
func (f *FieldDefinition) validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: empty field name", ErrInvalidDefinition)
	}
	if strings.Contains(f.Name, ".") {
		return fmt.Errorf("%w: field name %q must not contain dots", ErrInvalidDefinition, f.Name)
	}
	if !f.Type.Valid() {
		return fmt.Errorf("%w: field %q has unsupported type %q", ErrInvalidDefinition, f.Name, f.Type)
	}
	if f.Default.kind == defaultLiteral {
		if _, err := normalizeValue(f.Type, f.Optional, f.Default.literal); err != nil {
			return fmt.Errorf("%w: field %q literal default: %w", ErrInvalidDefinition, f.Name, err)
		}
	}
	if f.Default.kind == defaultGenerator && f.Default.generator == nil {
		return fmt.Errorf("%w: field %q has a nil generator", ErrInvalidDefinition, f.Name)
	}
	return nil
}
