package definition

import (
	"github.com/gamewarden/gamewarden/engine/config"
)

func slaveGroups() []*config.Group {
	return []*config.Group{
		joinGroup(),
		agentGroup(),
	}
}

func joinGroup() *config.Group {
	g := config.NewGroup("cluster")
	g.MustDefine(config.FieldDefinition{
		Name:        "master",
		Type:        config.TypeString,
		Title:       "Master address",
		Description: "host:port of the master control plane",
		Default:     config.Literal("127.0.0.1:8700"),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "token",
		Type:        config.TypeString,
		Optional:    true,
		Title:       "Join token",
		Description: "Secret presented to the master; null until the node is enrolled",
	})
	g.Finalize()
	return g
}

func agentGroup() *config.Group {
	g := config.NewGroup("agent")
	g.MustDefine(config.FieldDefinition{
		Name:        "region",
		Type:        config.TypeString,
		Optional:    true,
		Title:       "Region",
		Description: "Optional placement hint used by the scheduler",
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "tags",
		Type:        config.TypeObject,
		Optional:    true,
		Title:       "Agent tags",
		Description: "Free-form labels the scheduler can match on",
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "maxInstances",
		Type:        config.TypeNumber,
		Title:       "Maximum instances",
		Description: "Upper bound of game instances this agent will host",
		Default:     config.Literal(10),
	})
	g.Finalize()
	return g
}
