package definition

import (
	"context"

	"github.com/google/uuid"

	"github.com/gamewarden/gamewarden/engine/config"
)

func instanceGroups() []*config.Group {
	return []*config.Group{
		instanceGroup(),
		gameGroup(),
	}
}

func instanceGroup() *config.Group {
	g := config.NewGroup("instance")
	g.MustDefine(config.FieldDefinition{
		Name:        "uuid",
		Type:        config.TypeString,
		Title:       "Instance UUID",
		Description: "Stable identity of this game instance across restarts",
		Default: config.Generated(func(context.Context) (any, error) {
			id, err := uuid.NewRandom()
			if err != nil {
				return nil, err
			}
			return id.String(), nil
		}),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "name",
		Type:        config.TypeString,
		Title:       "Instance name",
		Description: "Display name shown to operators",
		Default:     config.Literal("instance"),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "port",
		Type:        config.TypeNumber,
		Title:       "Game port",
		Description: "UDP/TCP port the game server binds",
		Default:     config.Literal(27015),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "autoRestart",
		Type:        config.TypeBoolean,
		Title:       "Auto restart",
		Description: "Restart the process when it exits unexpectedly",
		Default:     config.Literal(true),
	})
	g.Finalize()
	return g
}

func gameGroup() *config.Group {
	g := config.NewGroup("game")
	g.MustDefine(config.FieldDefinition{
		Name:        "command",
		Type:        config.TypeString,
		Title:       "Launch command",
		Description: "Command line used to start the game server process",
		Default:     config.Literal(""),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "workingDir",
		Type:        config.TypeString,
		Optional:    true,
		Title:       "Working directory",
		Description: "Directory the process starts in; null means the agent default",
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "saveInterval",
		Type:        config.TypeNumber,
		Title:       "Save interval",
		Description: "Seconds between world saves, 0 disables periodic saves",
		Default:     config.Literal(300),
	})
	g.MustDefine(config.FieldDefinition{
		Name:        "rules",
		Type:        config.TypeObject,
		Title:       "Game rules",
		Description: "Game-specific rule overrides passed to the server",
		Default:     config.Literal(map[string]any{}),
	})
	g.Finalize()
	return g
}
