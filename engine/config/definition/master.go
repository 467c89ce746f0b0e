package definition

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"

	"github.com/gamewarden/gamewarden/engine/config"
)

func masterGroups() []*config.Group {
	return []*config.Group{
		clusterGroup(),
		networkGroup(),
	}
}

func clusterGroup() *config.Group {
	g := config.NewGroup("cluster")
	g.MustDefine(config.FieldDefinition{
		Name:        "id",
		Type:        config.TypeString,
		Title:       "Cluster ID",
		Description: "Sortable identifier generated when the master first starts",
		Default: config.Generated(func(context.Context) (any, error) {
			id, err := ksuid.NewRandom()
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		}),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "secret",
		Type:        config.TypeString,
		Title:       "Cluster secret",
		Description: "Shared secret slaves present when joining the cluster",
		Default: config.Generated(func(context.Context) (any, error) {
			secret, err := uuid.NewRandom()
			if err != nil {
				return nil, err
			}
			return secret.String(), nil
		}),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "name",
		Type:        config.TypeString,
		Title:       "Cluster name",
		Description: "Display name shown in listings and the panel",
		Default:     config.Literal("gamewarden"),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "maxSlaves",
		Type:        config.TypeNumber,
		Title:       "Maximum slaves",
		Description: "Upper bound of agents admitted to the cluster",
		Default:     config.Literal(8),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "public",
		Type:        config.TypeBoolean,
		Title:       "Public cluster",
		Description: "Whether the cluster advertises itself to the directory",
		Default:     config.Literal(false),
	})
	g.Finalize()
	return g
}

func networkGroup() *config.Group {
	g := config.NewGroup("network")
	g.MustDefine(config.FieldDefinition{
		Name:        "bindAddr",
		Type:        config.TypeString,
		Title:       "Bind address",
		Default:     config.Literal("0.0.0.0"),
		Description: "Address the master control plane listens on",
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "port",
		Type:        config.TypeNumber,
		Title:       "Control port",
		Default:     config.Literal(8700),
		Description: "TCP port for slave connections",
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "tls",
		Type:        config.TypeBoolean,
		Title:       "TLS enabled",
		Default:     config.Literal(false),
		Description: "Whether slave connections require TLS",
	})
	g.Finalize()
	return g
}
