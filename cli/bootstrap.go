package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/gamewarden/gamewarden/engine/config"
	"github.com/gamewarden/gamewarden/engine/config/definition"
	"github.com/gamewarden/gamewarden/engine/plugin"
	"github.com/gamewarden/gamewarden/pkg/document"
	"github.com/gamewarden/gamewarden/pkg/logger"
	"github.com/gamewarden/gamewarden/pkg/settings"
)

// node bundles everything a subcommand needs to work with the local node's
// configuration: the finalized schema, the live config instance and the
// persisted-document manager.
type node struct {
	settings *settings.Settings
	registry *plugin.Registry
	schema   *config.Schema
	config   *config.Config
	manager  *document.Manager
}

// buildNode assembles the configuration state for the configured node kind:
// base schema, discovered plugins applied, schema finalized, instance
// constructed, document manager attached. The persisted document is not
// loaded yet; most commands want loadNode instead.
func buildNode(ctx context.Context) (*node, error) {
	s := settings.FromContext(ctx)

	kind, err := config.ParseKind(s.Node.Kind)
	if err != nil {
		return nil, err
	}
	schema, err := definition.BaseSchema(kind)
	if err != nil {
		return nil, err
	}

	registry := plugin.NewRegistry()
	if kind != config.KindSlave {
		if err := plugin.LoadDir(ctx, registry, s.Plugins.Dir, s.Plugins.Patterns...); err != nil {
			return nil, fmt.Errorf("failed to load plugins from %s: %w", s.Plugins.Dir, err)
		}
	}
	switch kind {
	case config.KindMaster:
		err = registry.Apply(ctx, schema, nil)
	case config.KindInstance:
		err = registry.Apply(ctx, nil, schema)
	}
	if err != nil {
		return nil, err
	}
	schema.Finalize()

	cfg, err := config.New(ctx, schema)
	if err != nil {
		return nil, err
	}

	store := document.NewStore(s.Document.Path, &document.Options{
		Backup:      s.Document.Backup,
		LockTimeout: s.Document.LockTimeout,
		SaveRetries: s.Document.SaveRetries,
	})
	return &node{
		settings: s,
		registry: registry,
		schema:   schema,
		config:   cfg,
		manager:  document.NewManager(store, cfg),
	}, nil
}

// loadNode builds the node and applies the persisted document on top. A
// document carrying invalid values is reported but does not block the CLI,
// so a broken value can still be repaired with "config set".
func loadNode(ctx context.Context) (*node, error) {
	log := logger.FromContext(ctx)
	n, err := buildNode(ctx)
	if err != nil {
		return nil, err
	}
	if err := n.manager.Load(ctx); err != nil {
		if !errors.Is(err, config.ErrInvalidValue) {
			return nil, err
		}
		log.Warn("Persisted document has invalid values, valid keys applied", "error", err)
	}
	log.Debug("Node configuration loaded",
		"kind", n.schema.Kind(),
		"document", n.manager.Store().Path(),
		"plugins", n.registry.Len())
	return n, nil
}

// loadRegistry discovers plugin manifests without touching schema or
// document state, for commands that only inspect plugins.
func loadRegistry(ctx context.Context) (*plugin.Registry, error) {
	s := settings.FromContext(ctx)
	registry := plugin.NewRegistry()
	if err := plugin.LoadDir(ctx, registry, s.Plugins.Dir, s.Plugins.Patterns...); err != nil {
		return nil, fmt.Errorf("failed to load plugins from %s: %w", s.Plugins.Dir, err)
	}
	return registry, nil
}
