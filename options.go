package steward

import (
	"log/slog"

	"github.com/xraph/steward/activity"
	"github.com/xraph/steward/plugin"
	"github.com/xraph/steward/store"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithStore sets the composite store.
func WithStore(s store.Store) Option { return func(e *Engine) { e.store = s } }

// WithCache sets the derived-view cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithBroadcaster sets the live-activity broadcaster. By default the engine
// owns one sized from Config.
func WithBroadcaster(b *activity.Broadcaster) Option { return func(e *Engine) { e.feed = b } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
