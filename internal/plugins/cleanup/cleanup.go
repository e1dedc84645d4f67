// Package cleanup archives calendar events that are already over.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/ggeorg0/life-assistant/internal/plugins/pluginutil"
	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/notion"
)

// Name is the plugin name
const Name = "CalendarCleanup"

// Calendar is the part of the notes database the plugin uses
type Calendar interface {
	CalendarEvents(ctx context.Context) ([]notion.Event, error)
	ArchivePage(ctx context.Context, id string) error
}

// Options configures the monthly run; a zero Day disables it
type Options struct {
	Day      int
	Time     time.Duration
	Location *time.Location
	Now      pluginutil.Clock
}

// Plugin removes past events on demand and once a month
type Plugin struct {
	*extension.Base
	calendar Calendar
	opts     Options
}

// New creates the cleanup plugin
func New(calendar Calendar, opts Options) *Plugin {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	opts.Now = opts.Now.OrNow()

	return &Plugin{
		Base:     extension.NewBase(Name),
		calendar: calendar,
		opts:     opts,
	}
}

func (p *Plugin) UserCommands() []extension.Command {
	return []extension.Command{
		extension.NewCommand("rm_past_events", p.removeAction()),
	}
}

func (p *Plugin) MonthlyEvents() []extension.Event {
	if p.opts.Day == 0 {
		return nil
	}
	return []extension.Event{
		extension.Monthly(p.opts.Day, pluginutil.ClockAt(p.opts.Time, p.opts.Location), p.removeAction()),
	}
}

func (p *Plugin) Help() []extension.HelpEntry {
	return []extension.HelpEntry{
		{Command: "rm_past_events", Description: "remove past events from the calendar"},
	}
}

func (p *Plugin) removeAction() extension.Action {
	return extension.NewAction("remove_past_events", p.removePast)
}

func (p *Plugin) removePast(ctx context.Context, args ...string) (extension.ActionResult, error) {
	events, err := p.calendar.CalendarEvents(ctx)
	if err != nil {
		return extension.ActionResult{}, fmt.Errorf("load calendar: %w", err)
	}

	now := p.opts.Now().In(p.opts.Location)
	deleted := 0
	for _, e := range events {
		if !e.Passed(now) {
			continue
		}
		if err := p.calendar.ArchivePage(ctx, e.ID); err != nil {
			return extension.ActionResult{}, fmt.Errorf("archive event %s after %d deletions: %w", e.ID, deleted, err)
		}
		deleted++
	}

	return extension.Replyf("%d past events have been deleted!", deleted), nil
}
