package config

import (
	"fmt"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Kind
// -----------------------------------------------------------------------------

// Kind identifies which node role a schema describes. The three kinds differ
// only in their base group set and which plugin namespaces they admit.
type Kind string

const (
	KindMaster   Kind = "master"
	KindSlave    Kind = "slave"
	KindInstance Kind = "instance"
)

func (k Kind) String() string {
	return string(k)
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindMaster, KindSlave, KindInstance:
		return true
	default:
		return false
	}
}

// ParseKind normalizes a kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown config kind %q", s)
	}
	return k, nil
}

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

// Schema is the class-level state of one config kind: the ordered, lockable
// set of finalized groups. It is built once at process start, finalized after
// plugin registration, and then passed by reference into every instance
// constructor. The mutex guards the build phase so misuse fails loudly; the
// supported model is still construct-then-lock, sequentially.
type Schema struct {
	mu     sync.RWMutex
	kind   Kind
	groups []*Group
	index  map[string]int
	locked bool
}

// NewSchema creates an open schema for the given kind.
func NewSchema(kind Kind) *Schema {
	return &Schema{kind: kind, index: make(map[string]int)}
}

// Kind returns the schema's node role.
func (s *Schema) Kind() Kind {
	return s.kind
}

// RegisterGroup attaches a finalized group under its name. It fails when the
// schema is locked, the group name is taken, or the group is still open.
func (s *Schema) RegisterGroup(g *Group) error {
	if g == nil {
		return fmt.Errorf("%w: nil group", ErrInvalidDefinition)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked {
		return fmt.Errorf("%w: cannot register group %q", ErrSchemaLocked, g.Name())
	}
	if !g.Locked() {
		return fmt.Errorf("%w: group %q must be finalized before registration", ErrGroupNotFinalized, g.Name())
	}
	if _, exists := s.index[g.Name()]; exists {
		return fmt.Errorf("%w: %q already registered on %s config", ErrDuplicateGroup, g.Name(), s.kind)
	}
	s.index[g.Name()] = len(s.groups)
	s.groups = append(s.groups, g)
	return nil
}

// MustRegisterGroup is RegisterGroup for wiring built-in schemas, panicking
// on error.
func (s *Schema) MustRegisterGroup(g *Group) {
	if err := s.RegisterGroup(g); err != nil {
		panic(err)
	}
}

// Finalize locks the group set. Calling it again is a safe no-op.
func (s *Schema) Finalize() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locked = true
}

// Locked reports whether Finalize has been called.
func (s *Schema) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// Groups returns the registered groups in registration order.
func (s *Schema) Groups() []*Group {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// Group returns the registered group with the given name.
func (s *Schema) Group(name string) (*Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.groups[i], true
}

// HasGroup reports whether a group with the given name is registered.
func (s *Schema) HasGroup(name string) bool {
	_, ok := s.Group(name)
	return ok
}

// Lookup resolves a fully-qualified "<group>.<field>" name to its definition.
func (s *Schema) Lookup(fullName string) (FieldDefinition, error) {
	groupName, fieldName, ok := SplitFullName(fullName)
	if !ok {
		return FieldDefinition{}, fmt.Errorf("%w: %q is not a \"group.field\" name", ErrUnknownField, fullName)
	}
	g, ok := s.Group(groupName)
	if !ok {
		return FieldDefinition{}, fmt.Errorf("%w: no group %q on %s config", ErrUnknownField, groupName, s.kind)
	}
	def, ok := g.Lookup(fieldName)
	if !ok {
		return FieldDefinition{}, fmt.Errorf("%w: no field %q in group %q", ErrUnknownField, fieldName, groupName)
	}
	return def, nil
}

// Fields returns every definition across all groups, in group registration
// order then field insertion order. This is the enumeration order used for
// construction and serialization.
func (s *Schema) Fields() []FieldDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []FieldDefinition
	for _, g := range s.groups {
		out = append(out, g.Fields()...)
	}
	return out
}

// SplitFullName splits "<group>.<field>" at the first dot. Field names may
// not contain dots, group names neither, so the first dot is the separator.
func SplitFullName(fullName string) (group, field string, ok bool) {
	i := strings.Index(fullName, ".")
	if i <= 0 || i == len(fullName)-1 {
		return "", "", false
	}
	return fullName[:i], fullName[i+1:], true
}
