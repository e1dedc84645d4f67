package extension

import (
	"sync/atomic"
	"time"
)

// Plugin is a unit of assistant behaviour. The name is the tag of every
// trigger the plugin owns and must be unique and stable.
type Plugin interface {
	Name() string

	// Enable and Disable are idempotent
	Enable()
	Disable()
	Enabled() bool

	// UserCommands returns the chat commands, in order
	UserCommands() []Command

	// DailyEvents fire every day at the clock time of At
	DailyEvents() []Event

	// MonthlyEvents fire on Day of every month at the clock time of At
	MonthlyEvents() []Event

	// DisorderedEvents fire once at At
	DisorderedEvents() []Event
}

// Helper is implemented by plugins that describe their commands
type Helper interface {
	Help() []HelpEntry
}

// HelpEntry describes one command
type HelpEntry struct {
	Command     string
	Description string
}

// Command binds a chat command name to an action
type Command struct {
	Name   string
	Action Action
}

// Event binds a point in time to an action. The meaning of At depends on the
// list it is declared in; Day is used by monthly events only.
type Event struct {
	At     time.Time
	Day    int
	Action Action
}

// NewCommand creates a command
func NewCommand(name string, action Action) Command {
	return Command{Name: name, Action: action}
}

// Daily creates a daily event at the clock time of at
func Daily(at time.Time, action Action) Event {
	return Event{At: at, Action: action}
}

// Monthly creates a monthly event on day at the clock time of at
func Monthly(day int, at time.Time, action Action) Event {
	return Event{At: at, Day: day, Action: action}
}

// Once creates a disordered event firing at at
func Once(at time.Time, action Action) Event {
	return Event{At: at, Action: action}
}

// Base implements the identity and enable state of a Plugin and declares no
// commands or events. Plugins embed *Base and override what they provide.
type Base struct {
	name     string
	disabled atomic.Bool
}

// NewBase creates an enabled Base
func NewBase(name string) *Base {
	return &Base{name: name}
}

func (b *Base) Name() string { return b.name }

func (b *Base) Enable() { b.disabled.Store(false) }

func (b *Base) Disable() { b.disabled.Store(true) }

func (b *Base) Enabled() bool { return !b.disabled.Load() }

func (b *Base) UserCommands() []Command { return nil }

func (b *Base) DailyEvents() []Event { return nil }

func (b *Base) MonthlyEvents() []Event { return nil }

func (b *Base) DisorderedEvents() []Event { return nil }

// BoundCommand is a command tagged with its owning plugin
type BoundCommand struct {
	Plugin  Plugin
	Command Command
}

// BoundEvent is an event tagged with its owning plugin
type BoundEvent struct {
	Plugin Plugin
	Event  Event
}
