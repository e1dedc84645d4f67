package extension

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// StateListener is notified after a plugin changes enable state through the registry
type StateListener func(p Plugin, enabled bool)

// Registry owns the plugins of one process. The manager pseudo-plugin is
// always registered first and cannot be replaced or disabled.
type Registry struct {
	mu        sync.RWMutex
	plugins   map[string]Plugin
	order     []string
	manager   *Manager
	listeners []StateListener
	logger    zerolog.Logger
}

// NewRegistry creates a registry holding only the manager pseudo-plugin
func NewRegistry(logger zerolog.Logger) *Registry {
	r := &Registry{
		logger: logger.With().Str("component", "plugin-registry").Logger(),
	}
	r.manager = newManager(r)
	r.plugins = map[string]Plugin{ManagerName: r.manager}
	r.order = []string{ManagerName}
	return r
}

// Manager returns the manager pseudo-plugin
func (r *Registry) Manager() *Manager {
	return r.manager
}

// SetPlugins replaces every plugin except the manager in one step. Later
// entries win over earlier ones with the same name.
func (r *Registry) SetPlugins(plugins []Plugin) {
	next := map[string]Plugin{ManagerName: r.manager}
	order := []string{ManagerName}

	for _, p := range plugins {
		if p == nil {
			continue
		}
		name := p.Name()
		switch {
		case name == "":
			r.logger.Warn().Msg("Skipping plugin without a name")
			continue
		case name == ManagerName:
			r.logger.Warn().Str("plugin", name).Msg("Plugin name is reserved, skipping")
			continue
		}

		if _, exists := next[name]; exists {
			r.logger.Warn().Str("plugin", name).Msg("Duplicate plugin name, keeping the later one")
		} else {
			order = append(order, name)
		}
		next[name] = p
	}

	r.mu.Lock()
	r.plugins = next
	r.order = order
	r.mu.Unlock()

	r.logger.Info().Int("count", len(order)).Msg("Plugins registered")
}

// OnStateChange registers a listener for enable state changes
func (r *Registry) OnStateChange(fn StateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Get returns a plugin by name
func (r *Registry) Get(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.plugins[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// Plugins returns every registered plugin, enabled or not, in registration order
func (r *Registry) Plugins() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	plugins := make([]Plugin, 0, len(r.order))
	for _, name := range r.order {
		plugins = append(plugins, r.plugins[name])
	}
	return plugins
}

// Enable enables a plugin by name
func (r *Registry) Enable(name string) error {
	p, err := r.Get(name)
	if err != nil {
		return err
	}

	wasEnabled := p.Enabled()
	p.Enable()
	r.logger.Info().Str("plugin", name).Msg("Plugin enabled")

	if !wasEnabled {
		r.notify(p, true)
	}
	return nil
}

// Disable disables a plugin by name. The manager cannot be disabled.
func (r *Registry) Disable(name string) error {
	if name == ManagerName {
		return ErrCannotDisableManager
	}

	p, err := r.Get(name)
	if err != nil {
		return err
	}

	wasEnabled := p.Enabled()
	p.Disable()
	r.logger.Info().Str("plugin", name).Msg("Plugin disabled")

	if wasEnabled {
		r.notify(p, false)
	}
	return nil
}

func (r *Registry) notify(p Plugin, enabled bool) {
	r.mu.RLock()
	listeners := make([]StateListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(p, enabled)
	}
}

// enabled returns the enabled plugins in registration order
func (r *Registry) enabled() []Plugin {
	plugins := r.Plugins()
	out := plugins[:0]
	for _, p := range plugins {
		if p.Enabled() {
			out = append(out, p)
		}
	}
	return out
}

// UserCommands returns the commands of every enabled plugin
func (r *Registry) UserCommands() []BoundCommand {
	var out []BoundCommand
	for _, p := range r.enabled() {
		for _, cmd := range p.UserCommands() {
			out = append(out, BoundCommand{Plugin: p, Command: cmd})
		}
	}
	return out
}

// DailyEvents returns the daily events of every enabled plugin
func (r *Registry) DailyEvents() []BoundEvent {
	return r.collect(Plugin.DailyEvents)
}

// MonthlyEvents returns the monthly events of every enabled plugin
func (r *Registry) MonthlyEvents() []BoundEvent {
	return r.collect(Plugin.MonthlyEvents)
}

// DisorderedEvents returns the one-off events of every enabled plugin
func (r *Registry) DisorderedEvents() []BoundEvent {
	return r.collect(Plugin.DisorderedEvents)
}

func (r *Registry) collect(events func(Plugin) []Event) []BoundEvent {
	var out []BoundEvent
	for _, p := range r.enabled() {
		for _, evt := range events(p) {
			out = append(out, BoundEvent{Plugin: p, Event: evt})
		}
	}
	return out
}
