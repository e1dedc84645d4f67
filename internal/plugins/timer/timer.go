// Package timer provides countdown timers and reminders built on follow-up actions.
package timer

import (
	"context"
	"html"
	"strings"

	"github.com/ggeorg0/life-assistant/internal/plugins/pluginutil"
	"github.com/ggeorg0/life-assistant/pkg/extension"
)

// Name is the plugin name
const Name = "Timer"

const remindUsage = "Usage: /remind HH:MM[:SS] &lt;text&gt;"

// Plugin sets one-shot timers and reminders
type Plugin struct {
	*extension.Base
	now pluginutil.Clock
}

// New creates the timer plugin
func New(now pluginutil.Clock) *Plugin {
	return &Plugin{
		Base: extension.NewBase(Name),
		now:  now.OrNow(),
	}
}

func (p *Plugin) UserCommands() []extension.Command {
	set := extension.NewAction("set_timer", p.setTimer)
	return []extension.Command{
		extension.NewCommand("timerset", set),
		extension.NewCommand("settimer", set),
		extension.NewCommand("remind", extension.NewAction("remind", p.remind)),
	}
}

func (p *Plugin) Help() []extension.HelpEntry {
	return []extension.HelpEntry{
		{Command: "settimer <time>, /timerset <time>", Description: "set a timer, time as HH MM SS or HH:MM[:SS]"},
		{Command: "remind <time> <text>", Description: "send text at the next HH:MM[:SS]"},
	}
}

func (p *Plugin) setTimer(ctx context.Context, args ...string) (extension.ActionResult, error) {
	span, err := pluginutil.ParseTimeArgs(args)
	if err != nil {
		return extension.Reply(err.Error()), nil
	}

	beep := extension.NewAction("timer_beep", func(ctx context.Context, args ...string) (extension.ActionResult, error) {
		return extension.Replyf("Ring!!! %s is done", pluginutil.FormatSpan(span)), nil
	})
	return extension.Reply("Timer is set").WithFollowUp(beep, p.now().Add(span)), nil
}

func (p *Plugin) remind(ctx context.Context, args ...string) (extension.ActionResult, error) {
	if len(args) < 2 {
		return extension.Reply(remindUsage), nil
	}

	clock, err := pluginutil.ParseTimeArgs(args[:1])
	if err != nil {
		return extension.Reply(remindUsage), nil
	}
	text := html.EscapeString(strings.Join(args[1:], " "))
	at := pluginutil.NextClock(p.now(), clock)

	reminder := extension.NewAction("reminder", func(ctx context.Context, args ...string) (extension.ActionResult, error) {
		return extension.Reply("Reminder: " + text), nil
	})
	return extension.Replyf("Reminder set for %s", at.Format("02/01 15:04:05")).WithFollowUp(reminder, at), nil
}
