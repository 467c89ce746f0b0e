package plugin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/gamewarden/gamewarden/engine/config"
	"github.com/gamewarden/gamewarden/pkg/logger"
)

// DefaultManifestPatterns locate plugin manifests under the plugins dir:
// either "<plugin>.plugin.yaml" at the root or "<plugin>/plugin.yaml".
var DefaultManifestPatterns = []string{"*.plugin.yaml", "*/plugin.yaml"}

// DefaultExcludes are always filtered out of discovery results.
var DefaultExcludes = []string{"**/.git/**", "**/node_modules/**"}

// Discoverer finds plugin manifest files on disk.
type Discoverer interface {
	Discover(includes, excludes []string) ([]string, error)
}

type fsDiscoverer struct {
	root string
}

// NewDiscoverer creates a filesystem discoverer rooted at the plugins dir.
func NewDiscoverer(root string) Discoverer {
	return &fsDiscoverer{root: root}
}

// Discover finds all files matching include patterns and filters out exclude
// patterns. Results are sorted so registration order is stable across runs.
func (d *fsDiscoverer) Discover(includes, excludes []string) ([]string, error) {
	if len(includes) == 0 {
		return []string{}, nil
	}
	discovered := make(map[string]bool)
	for _, pattern := range includes {
		if err := d.validatePattern(pattern); err != nil {
			return nil, err
		}
		matches, err := doublestar.FilepathGlob(filepath.Join(d.root, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			rel, err := filepath.Rel(d.root, match)
			if err != nil || strings.HasPrefix(rel, "..") || filepath.IsAbs(rel) {
				return nil, config.NewError(nil, "PATH_ESCAPE_ATTEMPT", map[string]any{
					"file": match,
					"root": d.root,
				})
			}
			discovered[match] = true
		}
	}
	files := make([]string, 0, len(discovered))
	for file := range discovered {
		files = append(files, file)
	}
	files = d.applyExcludes(files, excludes)
	sort.Strings(files)
	return files, nil
}

// validatePattern blocks traversal and absolute path injection.
func (d *fsDiscoverer) validatePattern(pattern string) error {
	cleanPattern := filepath.Clean(pattern)
	if filepath.IsAbs(cleanPattern) {
		return config.NewError(nil, "INVALID_PATTERN", map[string]any{
			"pattern": pattern,
			"reason":  "absolute paths not allowed",
		})
	}
	if slices.Contains(strings.Split(cleanPattern, string(filepath.Separator)), "..") {
		return config.NewError(nil, "INVALID_PATTERN", map[string]any{
			"pattern": pattern,
			"reason":  "parent directory references not allowed",
		})
	}
	return nil
}

func (d *fsDiscoverer) applyExcludes(files, excludes []string) []string {
	patterns := make([]string, 0, len(DefaultExcludes)+len(excludes))
	patterns = append(patterns, DefaultExcludes...)
	patterns = append(patterns, excludes...)
	for i, pattern := range patterns {
		patterns[i] = filepath.ToSlash(pattern)
	}
	filtered := make([]string, 0, len(files))
	for _, file := range files {
		if d.shouldExclude(file, patterns) {
			continue
		}
		filtered = append(filtered, file)
	}
	return filtered
}

func (d *fsDiscoverer) shouldExclude(file string, patterns []string) bool {
	rel, err := filepath.Rel(d.root, file)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(file)
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, base); err == nil && matched {
			return true
		}
	}
	return false
}

// LoadDir discovers, parses and registers every manifest under root onto the
// registry. Discovery is skipped silently when root does not exist, since a
// plugins dir is optional. When no patterns are given the default manifest
// conventions apply.
func LoadDir(ctx context.Context, registry *Registry, root string, patterns ...string) error {
	log := logger.FromContext(ctx)
	if root == "" {
		return nil
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		log.Debug("Plugin manifest dir not present, skipping discovery", "dir", root)
		return nil
	}
	if len(patterns) == 0 {
		patterns = DefaultManifestPatterns
	}
	files, err := NewDiscoverer(root).Discover(patterns, nil)
	if err != nil {
		return fmt.Errorf("plugin discovery failed: %w", err)
	}
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read plugin manifest %s: %w", file, err)
		}
		manifest, err := ParseManifest(data)
		if err != nil {
			return fmt.Errorf("plugin manifest %s: %w", file, err)
		}
		descriptor, err := manifest.Descriptor()
		if err != nil {
			return fmt.Errorf("plugin manifest %s: %w", file, err)
		}
		if err := registry.Register(descriptor); err != nil {
			return fmt.Errorf("plugin manifest %s: %w", file, err)
		}
		log.Info("Discovered plugin manifest",
			"plugin", manifest.Name,
			"version", manifest.Version,
			"file", file)
	}
	return nil
}
