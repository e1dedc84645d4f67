package extension

import (
	"bytes"
	"context"
	"errors"
	"html"
	"sort"
	"strings"
	"sync"

	"github.com/olekukonko/tablewriter"
)

// ManagerName is the reserved name of the manager pseudo-plugin
const ManagerName = "PluginManager"

// Rescheduler rebuilds every plugin's time-based triggers
type Rescheduler interface {
	Reschedule(ctx context.Context) (RescheduleSummary, error)
}

// Manager is the administrative pseudo-plugin. Its commands go through the
// same binding path as every other plugin command.
type Manager struct {
	*Base
	registry *Registry

	mu          sync.RWMutex
	rescheduler Rescheduler
}

func newManager(r *Registry) *Manager {
	return &Manager{
		Base:     NewBase(ManagerName),
		registry: r,
	}
}

// Disable is a no-op; the manager is always enabled
func (m *Manager) Disable() {}

// SetRescheduler wires the reschedule commands
func (m *Manager) SetRescheduler(r Rescheduler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rescheduler = r
}

func (m *Manager) UserCommands() []Command {
	enable := NewAction("enable", m.enable)
	disable := NewAction("disable", m.disable)
	list := NewAction("list_plugins", m.listPlugins)
	reschedule := NewAction("reschedule", m.reschedule)
	help := NewAction("help", m.help)

	return []Command{
		NewCommand("enable", enable),
		NewCommand("disable", disable),
		NewCommand("plugins", list),
		NewCommand("pl", list),
		NewCommand("reschedule", reschedule),
		NewCommand("reschedule_notifications", reschedule),
		NewCommand("help", help),
	}
}

func (m *Manager) Help() []HelpEntry {
	return []HelpEntry{
		{Command: "enable <plugin>", Description: "enable a plugin"},
		{Command: "disable <plugin>", Description: "disable a plugin"},
		{Command: "plugins, pl", Description: "list plugins and their state"},
		{Command: "reschedule", Description: "rebuild notifications after changing send times"},
		{Command: "help", Description: "show this message"},
	}
}

func (m *Manager) enable(ctx context.Context, args ...string) (ActionResult, error) {
	if len(args) == 0 {
		return Reply("Usage: /enable &lt;plugin&gt;"), nil
	}
	name := strings.Join(args, " ")

	if err := m.registry.Enable(name); err != nil {
		return m.stateReply(name, err)
	}
	return Replyf("Plugin <b>%s</b> enabled", html.EscapeString(name)), nil
}

func (m *Manager) disable(ctx context.Context, args ...string) (ActionResult, error) {
	if len(args) == 0 {
		return Reply("Usage: /disable &lt;plugin&gt;"), nil
	}
	name := strings.Join(args, " ")

	if err := m.registry.Disable(name); err != nil {
		return m.stateReply(name, err)
	}
	return Replyf("Plugin <b>%s</b> disabled", html.EscapeString(name)), nil
}

func (m *Manager) stateReply(name string, err error) (ActionResult, error) {
	switch {
	case errors.Is(err, ErrPluginNotFound):
		return Replyf("Plugin <b>%s</b> not found", html.EscapeString(name)), nil
	case errors.Is(err, ErrCannotDisableManager):
		return Reply(ErrCannotDisableManager.Error()), nil
	default:
		return ActionResult{}, err
	}
}

func (m *Manager) listPlugins(ctx context.Context, args ...string) (ActionResult, error) {
	return Reply("<pre>" + html.EscapeString(PluginTable(m.registry.Plugins())) + "</pre>"), nil
}

func (m *Manager) reschedule(ctx context.Context, args ...string) (ActionResult, error) {
	m.mu.RLock()
	r := m.rescheduler
	m.mu.RUnlock()

	if r == nil {
		return Reply("Rescheduling is not available"), nil
	}

	summary, err := r.Reschedule(ctx)
	if err != nil {
		return ActionResult{}, err
	}
	return Replyf("Rescheduled %d notifications for %d plugins", summary.Triggers, summary.Plugins), nil
}

func (m *Manager) help(ctx context.Context, args ...string) (ActionResult, error) {
	var b strings.Builder
	for _, p := range m.registry.enabled() {
		helper, ok := p.(Helper)
		if !ok {
			continue
		}
		entries := helper.Help()
		if len(entries) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("<b>" + html.EscapeString(p.Name()) + "</b>\n")
		for _, e := range entries {
			b.WriteString("/" + html.EscapeString(e.Command) + " - " + html.EscapeString(e.Description) + "\n")
		}
	}
	if b.Len() == 0 {
		return Reply("No commands available"), nil
	}
	return Reply(strings.TrimRight(b.String(), "\n")), nil
}

// PluginTable renders plugin names and states as an aligned plain-text table
func PluginTable(plugins []Plugin) string {
	sorted := make([]Plugin, len(plugins))
	copy(sorted, plugins)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name() < sorted[j].Name()
	})

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetHeader([]string{"Plugin", "State"})
	table.SetBorder(false)
	table.SetColumnSeparator("|")
	table.SetAutoWrapText(false)
	for _, p := range sorted {
		state := "disabled"
		if p.Enabled() {
			state = "enabled"
		}
		table.Append([]string{p.Name(), state})
	}
	table.Render()

	return buf.String()
}
