package settings

import (
	"context"
	"sync"

	"github.com/gamewarden/gamewarden/pkg/logger"
)

// ContextKey is an alias used for storing values in context.
type ContextKey string

// SettingsCtxKey is the context key under which the resolved *Settings is
// stored.
const SettingsCtxKey ContextKey = "gamewarden_settings"

// ContextWithSettings stores the resolved settings in the context.
func ContextWithSettings(ctx context.Context, s *Settings) context.Context {
	return context.WithValue(ctx, SettingsCtxKey, s)
}

var (
	defaultSettings     *Settings
	defaultSettingsOnce sync.Once
)

// FromContext returns the settings attached to the context. When none are
// attached it falls back to a lazily resolved default, built from defaults
// and environment variables only, so components always see usable settings.
func FromContext(ctx context.Context) *Settings {
	if ctx != nil {
		if s, ok := ctx.Value(SettingsCtxKey).(*Settings); ok && s != nil {
			return s
		}
	}
	return getDefaultSettings(ctx)
}

func getDefaultSettings(ctx context.Context) *Settings {
	defaultSettingsOnce.Do(func() {
		s, err := NewService().Load(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("Failed to resolve settings, using built-in defaults", "error", err)
			s = Default()
		}
		defaultSettings = s
	})
	return defaultSettings
}
