// Package plugin implements the extension contract of the cluster: each
// plugin contributes exactly one configuration namespace to the master
// schema, and optionally one to the instance schema when it runs inside game
// instances. Contract violations are packaging defects and abort startup.
package plugin

import (
	"context"

	"github.com/Masterminds/semver/v3"
	"github.com/gosimple/slug"

	"github.com/gamewarden/gamewarden/engine/config"
	"github.com/gamewarden/gamewarden/pkg/version"
)

// Entrypoint runs a plugin inside a game instance process. It receives the
// resolved instance config and blocks until the instance shuts down or ctx is
// canceled.
type Entrypoint func(ctx context.Context, cfg *config.Config) error

// Descriptor declares a plugin to the registration step.
type Descriptor struct {
	// Name is the plugin's identity and its configuration namespace. It must
	// be slug-form so full names stay addressable.
	Name string
	// Version is the plugin's own semantic version, informational.
	Version string
	// Requires optionally pins a minimum engine version as a semver
	// constraint, e.g. ">= 1.2.0".
	Requires string
	// MasterGroup extends the master schema. When nil an empty namespace is
	// synthesized so "<name>.*" addressing never needs an existence check.
	MasterGroup *config.Group
	// InstanceGroup extends the instance schema; only admitted when the
	// plugin declares an entrypoint.
	InstanceGroup *config.Group
	// Entrypoint marks the plugin as running inside game instances.
	Entrypoint Entrypoint
	// EntrypointCommand is the manifest form of Entrypoint: a command line
	// the agent launches inside the instance environment.
	EntrypointCommand string
}

// RunsInInstance reports whether the plugin executes inside game instances
// and therefore owns an instance-level namespace.
func (d *Descriptor) RunsInInstance() bool {
	return d.Entrypoint != nil || d.EntrypointCommand != ""
}

func (d *Descriptor) validate() error {
	if d.Name == "" {
		return config.NewError(config.ErrPluginContract, "PLUGIN_NAME_EMPTY", nil)
	}
	if !slug.IsSlug(d.Name) {
		return config.NewError(config.ErrPluginContract, "PLUGIN_NAME_NOT_SLUG", map[string]any{
			"plugin": d.Name,
			"want":   slug.Make(d.Name),
		})
	}
	if d.Version != "" {
		if _, err := semver.NewVersion(d.Version); err != nil {
			return config.NewError(config.ErrPluginContract, "PLUGIN_VERSION_INVALID", map[string]any{
				"plugin":  d.Name,
				"version": d.Version,
			})
		}
	}
	if d.Requires != "" {
		if err := checkEngineConstraint(d.Name, d.Requires); err != nil {
			return err
		}
	}
	if d.InstanceGroup != nil && !d.RunsInInstance() {
		return config.NewError(config.ErrPluginContract, "PLUGIN_INSTANCE_GROUP_WITHOUT_ENTRYPOINT", map[string]any{
			"plugin": d.Name,
		})
	}
	if err := validateGroup(d.Name, d.MasterGroup); err != nil {
		return err
	}
	return validateGroup(d.Name, d.InstanceGroup)
}

// validateGroup enforces the naming and capability contract on a supplied
// group: it must carry the plugin-extensible marker and be named exactly
// after the plugin.
func validateGroup(pluginName string, g *config.Group) error {
	if g == nil {
		return nil
	}
	if !g.PluginExtensible() {
		return config.NewError(config.ErrPluginContract, "PLUGIN_GROUP_NOT_EXTENSIBLE", map[string]any{
			"plugin": pluginName,
			"group":  g.Name(),
		})
	}
	if g.Name() != pluginName {
		return config.NewError(config.ErrPluginContract, "PLUGIN_GROUP_MISMATCH", map[string]any{
			"plugin": pluginName,
			"group":  g.Name(),
		})
	}
	return nil
}

// checkEngineConstraint fails when the running engine is older than the
// plugin demands. Dev builds report "unknown" and satisfy every constraint.
func checkEngineConstraint(pluginName, requires string) error {
	constraint, err := semver.NewConstraint(requires)
	if err != nil {
		return config.NewError(config.ErrPluginContract, "PLUGIN_REQUIRES_INVALID", map[string]any{
			"plugin":   pluginName,
			"requires": requires,
		})
	}
	current := version.Get().Version
	if current == "unknown" || current == "" {
		return nil
	}
	engineVersion, err := semver.NewVersion(current)
	if err != nil {
		return nil
	}
	if !constraint.Check(engineVersion) {
		return config.NewError(config.ErrPluginContract, "PLUGIN_REQUIRES_UNSATISFIED", map[string]any{
			"plugin":   pluginName,
			"requires": requires,
			"engine":   current,
		})
	}
	return nil
}
