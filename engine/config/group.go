package config

import (
	"fmt"
	"strings"
)

// -----------------------------------------------------------------------------
// Group
// -----------------------------------------------------------------------------

// Group is a named, ordered collection of field definitions with a two-phase
// lifecycle: fields are defined while the group is open, then Finalize locks
// the group for the remainder of the process. Listing, validation and
// serialization all iterate the locked field list, so late mutation would
// silently invalidate instances constructed earlier.
type Group struct {
	name   string
	plugin bool
	defs   []FieldDefinition
	index  map[string]int
	locked bool
}

// NewGroup creates an open group. The name is fixed for the group's lifetime.
func NewGroup(name string) *Group {
	return &Group{name: name, index: make(map[string]int)}
}

// NewPluginGroup creates an open group carrying the plugin-extensible
// capability. Plugin registration only accepts groups constructed here, and
// requires the group name to equal the owning plugin's name.
func NewPluginGroup(name string) *Group {
	g := NewGroup(name)
	g.plugin = true
	return g
}

// Name returns the group's fixed name.
func (g *Group) Name() string {
	return g.name
}

// PluginExtensible reports whether the group carries the plugin capability
// marker.
func (g *Group) PluginExtensible() bool {
	return g.plugin
}

// Locked reports whether Finalize has been called.
func (g *Group) Locked() bool {
	return g.locked
}

// Len returns the number of defined fields.
func (g *Group) Len() int {
	return len(g.defs)
}

// Define registers a field on an open group. It fails without mutating the
// group when the group is locked, the definition is inconsistent, or the name
// is already taken.
func (g *Group) Define(def FieldDefinition) error {
	if g.locked {
		return fmt.Errorf("%w: cannot define %q on group %q", ErrGroupLocked, def.Name, g.name)
	}
	if err := g.validateName(); err != nil {
		return err
	}
	if err := def.validate(); err != nil {
		return err
	}
	if _, exists := g.index[def.Name]; exists {
		return fmt.Errorf("%w: %q already defined in group %q", ErrDuplicateField, def.Name, g.name)
	}
	def.group = g.name
	g.index[def.Name] = len(g.defs)
	g.defs = append(g.defs, def)
	return nil
}

// MustDefine is Define for wiring built-in schemas, panicking on error. It
// returns the group so definitions chain.
func (g *Group) MustDefine(def FieldDefinition) *Group {
	if err := g.Define(def); err != nil {
		panic(err)
	}
	return g
}

// Finalize locks the group. Calling it again is a safe no-op.
func (g *Group) Finalize() {
	g.locked = true
}

// Fields returns the definitions in insertion order. The returned slice is a
// copy; the definitions themselves are values and safe to hold.
func (g *Group) Fields() []FieldDefinition {
	out := make([]FieldDefinition, len(g.defs))
	copy(out, g.defs)
	return out
}

// Lookup returns the definition for a bare field name.
func (g *Group) Lookup(name string) (FieldDefinition, bool) {
	i, ok := g.index[name]
	if !ok {
		return FieldDefinition{}, false
	}
	return g.defs[i], true
}

func (g *Group) validateName() error {
	if g.name == "" {
		return fmt.Errorf("%w: empty group name", ErrInvalidDefinition)
	}
	if strings.Contains(g.name, ".") {
		return fmt.Errorf("%w: group name %q must not contain dots", ErrInvalidDefinition, g.name)
	}
	return nil
}
