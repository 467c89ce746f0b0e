// Package definition is the single source of truth for the built-in
// configuration groups of each node kind. Plugins extend these schemas
// through the plugin registration step before the schema is finalized.
package definition

import (
	"fmt"

	"github.com/gamewarden/gamewarden/engine/config"
)

// BaseSchema assembles the built-in groups for a node kind. The returned
// schema is still open: plugin registration runs next, then the caller
// finalizes it before constructing instances.
func BaseSchema(kind config.Kind) (*config.Schema, error) {
	var groups []*config.Group
	switch kind {
	case config.KindMaster:
		groups = masterGroups()
	case config.KindSlave:
		groups = slaveGroups()
	case config.KindInstance:
		groups = instanceGroups()
	default:
		return nil, fmt.Errorf("unknown config kind %q", kind)
	}
	schema := config.NewSchema(kind)
	for _, group := range groups {
		if err := schema.RegisterGroup(group); err != nil {
			return nil, err
		}
	}
	return schema, nil
}
