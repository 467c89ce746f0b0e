package settings

import (
	"time"
)

// -----------------------------------------------------------------------------
// Settings
// -----------------------------------------------------------------------------

// Settings holds the process-level runtime settings for a gamewarden node.
// These are not cluster configuration values: they tell the process which
// node kind it runs as, where the configuration document lives and how the
// process itself should behave. Cluster configuration is managed separately
// by the schema registry in engine/config.
type Settings struct {
	Node     NodeSettings     `koanf:"node"     validate:"required"`
	Document DocumentSettings `koanf:"document" validate:"required"`
	Plugins  PluginSettings   `koanf:"plugins"`
	Log      LogSettings      `koanf:"log"`
}

// NodeSettings identifies the role this process plays in the cluster.
type NodeSettings struct {
	// Kind selects which schema the node builds: master, slave or instance.
	Kind string `koanf:"kind" validate:"required,oneof=master slave instance" env:"NODE_KIND"`
}

// DocumentSettings controls how the configuration document is read and
// persisted on disk.
type DocumentSettings struct {
	// Path is the location of the JSON configuration document.
	Path string `koanf:"path" validate:"required" env:"DOCUMENT_PATH"`

	// Backup writes a .bak copy of the previous document before each save.
	Backup bool `koanf:"backup" env:"DOCUMENT_BACKUP"`

	// Watch reloads the in-memory configuration when the document changes
	// on disk.
	Watch bool `koanf:"watch" env:"DOCUMENT_WATCH"`

	// LockTimeout bounds how long a save waits for the document file lock
	// held by another gamewarden process.
	LockTimeout time.Duration `koanf:"lock_timeout" validate:"min=0" env:"DOCUMENT_LOCK_TIMEOUT"`

	// SaveRetries is the number of retry attempts for transient save
	// failures before the error is surfaced.
	SaveRetries int `koanf:"save_retries" validate:"min=0,max=10" env:"DOCUMENT_SAVE_RETRIES"`

	// DebounceWait coalesces rapid file change events into a single reload.
	DebounceWait time.Duration `koanf:"debounce_wait" validate:"min=0" env:"DOCUMENT_DEBOUNCE_WAIT"`

	// DebounceMaxWait caps how long reloads can be deferred while change
	// events keep arriving.
	DebounceMaxWait time.Duration `koanf:"debounce_max_wait" validate:"min=0" env:"DOCUMENT_DEBOUNCE_MAX_WAIT"`
}

// PluginSettings controls plugin manifest discovery.
type PluginSettings struct {
	// Dir is the root directory scanned for plugin manifests. An empty or
	// missing directory disables manifest discovery.
	Dir string `koanf:"dir" env:"PLUGINS_DIR"`

	// Patterns are the glob patterns used to locate manifests under Dir.
	Patterns []string `koanf:"patterns" env:"PLUGINS_PATTERNS"`
}

// LogSettings controls process logging.
type LogSettings struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error disabled" env:"LOG_LEVEL"`
	JSON   bool   `koanf:"json"   env:"LOG_JSON"`
	Source bool   `koanf:"source" env:"LOG_SOURCE"`
}

// -----------------------------------------------------------------------------
// Defaults
// -----------------------------------------------------------------------------

// Default returns the settings a node runs with when nothing else is
// provided. Every value here can be overridden by the settings file,
// environment variables or CLI flags.
func Default() *Settings {
	return &Settings{
		Node: NodeSettings{
			Kind: "master",
		},
		Document: DocumentSettings{
			Path:            "gamewarden.json",
			Backup:          true,
			Watch:           false,
			LockTimeout:     5 * time.Second,
			SaveRetries:     3,
			DebounceWait:    200 * time.Millisecond,
			DebounceMaxWait: 2 * time.Second,
		},
		Plugins: PluginSettings{
			Dir:      "plugins",
			Patterns: []string{"*.plugin.yaml", "*/plugin.yaml"},
		},
		Log: LogSettings{
			Level:  "info",
			JSON:   false,
			Source: false,
		},
	}
}
