package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gamewarden/gamewarden/engine/config"
	"github.com/gamewarden/gamewarden/pkg/logger"
)

// ErrDuplicatePlugin is returned when two descriptors claim the same name.
var ErrDuplicatePlugin = errors.New("duplicate plugin name")

// Registry collects plugin descriptors in registration order until they are
// applied onto the config schemas.
type Registry struct {
	mu      sync.RWMutex
	plugins []*Descriptor
	index   map[string]*Descriptor
	applied bool
}

func NewRegistry() *Registry {
	return &Registry{index: make(map[string]*Descriptor)}
}

// Register validates a descriptor and queues it for Apply. Registration
// after Apply is a contract violation: the schemas are already locked down.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil {
		return config.NewError(config.ErrPluginContract, "PLUGIN_DESCRIPTOR_NIL", nil)
	}
	if err := d.validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applied {
		return config.NewError(config.ErrSchemaLocked, "PLUGIN_REGISTERED_AFTER_APPLY", map[string]any{
			"plugin": d.Name,
		})
	}
	if _, exists := r.index[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePlugin, d.Name)
	}
	r.index[d.Name] = d
	r.plugins = append(r.plugins, d)
	return nil
}

// MustRegister is Register for compiled-in plugins wired at init time,
// panicking on error.
func (r *Registry) MustRegister(d *Descriptor) {
	if err := r.Register(d); err != nil {
		panic(err)
	}
}

// Plugins returns descriptors in registration order.
func (r *Registry) Plugins() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, len(r.plugins))
	copy(out, r.plugins)
	return out
}

// Get returns the descriptor registered under name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.index[name]
	return d, ok
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// Apply attaches every plugin's namespaces onto the master and instance
// schemas, in registration order, before either schema is finalized. Either
// schema may be nil when the process does not host that kind. Any error is a
// startup-fatal packaging defect; no group of the offending plugin attaches.
func (r *Registry) Apply(ctx context.Context, master, instance *config.Schema) error {
	log := logger.FromContext(ctx)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.plugins {
		if err := applyMaster(master, d); err != nil {
			return err
		}
		if err := applyInstance(instance, d); err != nil {
			return err
		}
		log.Debug("Registered plugin namespaces",
			"plugin", d.Name,
			"version", d.Version,
			"instance", d.RunsInInstance())
	}
	r.applied = true
	return nil
}

// applyMaster attaches the plugin's master namespace, synthesizing an empty
// one when the descriptor supplies none. Every plugin is guaranteed exactly
// one group under the master schema.
func applyMaster(master *config.Schema, d *Descriptor) error {
	if master == nil {
		return nil
	}
	group := d.MasterGroup
	if group == nil {
		group = config.NewPluginGroup(d.Name)
	}
	return attach(master, d.Name, group)
}

// applyInstance attaches the plugin's instance namespace only when the
// plugin runs inside game instances.
func applyInstance(instance *config.Schema, d *Descriptor) error {
	if !d.RunsInInstance() {
		return nil
	}
	if instance == nil {
		return nil
	}
	group := d.InstanceGroup
	if group == nil {
		group = config.NewPluginGroup(d.Name)
	}
	return attach(instance, d.Name, group)
}

func attach(schema *config.Schema, pluginName string, group *config.Group) error {
	// Validated again here because a descriptor mutated after Register must
	// still fail before anything attaches.
	if err := validateGroup(pluginName, group); err != nil {
		return err
	}
	group.Finalize()
	if err := schema.RegisterGroup(group); err != nil {
		return config.NewError(err, "PLUGIN_GROUP_REGISTRATION_FAILED", map[string]any{
			"plugin": pluginName,
			"kind":   schema.Kind().String(),
		})
	}
	return nil
}
