// Package unischedule sends the university timetable for today, tomorrow and yesterday.
package unischedule

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"github.com/muesli/reflow/wordwrap"

	"github.com/ggeorg0/life-assistant/internal/plugins/pluginutil"
	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/notion"
)

// Name is the plugin name
const Name = "UniSchedule"

const (
	lineWidth  = 38
	wrapIndent = 17
)

// Timetable is the part of the notes database the plugin reads
type Timetable interface {
	DailySchedule(ctx context.Context, day time.Time, slots []notion.LessonSlot) ([]notion.Lesson, error)
}

// Options configures the plugin
type Options struct {
	TodayTime        time.Duration
	TomorrowTime     time.Duration
	TomorrowAutosend bool
	Slots            []notion.LessonSlot
	Location         *time.Location
	Now              pluginutil.Clock
}

// Plugin formats and sends the timetable
type Plugin struct {
	*extension.Base
	timetable Timetable
	slots     []notion.LessonSlot
	loc       *time.Location
	now       pluginutil.Clock

	mu               sync.Mutex
	todayTime        time.Duration
	tomorrowTime     time.Duration
	tomorrowAutosend bool
}

// New creates the timetable plugin
func New(timetable Timetable, opts Options) *Plugin {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Plugin{
		Base:             extension.NewBase(Name),
		timetable:        timetable,
		slots:            opts.Slots,
		loc:              opts.Location,
		now:              opts.Now.OrNow(),
		todayTime:        opts.TodayTime,
		tomorrowTime:     opts.TomorrowTime,
		tomorrowAutosend: opts.TomorrowAutosend,
	}
}

func (p *Plugin) UserCommands() []extension.Command {
	return []extension.Command{
		extension.NewCommand("schedule", p.todayAction()),
		extension.NewCommand("yschedule", extension.NewAction("yesterday_schedule", p.dayOffset(-1, "Вчерашнее расписание:"))),
		extension.NewCommand("tschedule", extension.NewAction("tomorrow_schedule", p.dayOffset(1, "Расписание на завтра:"))),
		extension.NewCommand("schedule_settime", extension.NewAction("schedule_settime", p.setTodayTime)),
		extension.NewCommand("tschedule_settime", extension.NewAction("tschedule_settime", p.setTomorrowTime)),
		extension.NewCommand("tschedule_togglesend", extension.NewAction("tschedule_togglesend", p.toggleTomorrow)),
	}
}

func (p *Plugin) DailyEvents() []extension.Event {
	p.mu.Lock()
	today, tomorrow := p.todayTime, p.tomorrowTime
	p.mu.Unlock()

	return []extension.Event{
		extension.Daily(pluginutil.ClockAt(today, p.loc), p.todayAction()),
		extension.Daily(pluginutil.ClockAt(tomorrow, p.loc), extension.NewAction("tomorrow_autosend", p.tomorrowAutosendAction)),
	}
}

func (p *Plugin) Help() []extension.HelpEntry {
	return []extension.HelpEntry{
		{Command: "schedule", Description: "today's schedule"},
		{Command: "yschedule", Description: "yesterday's schedule"},
		{Command: "tschedule", Description: "tomorrow's schedule"},
		{Command: "schedule_settime <time>", Description: "set the send time of today's schedule"},
		{Command: "tschedule_settime <time>", Description: "set the send time of tomorrow's schedule"},
		{Command: "tschedule_togglesend on|off", Description: "toggle the evening send of tomorrow's schedule"},
	}
}

func (p *Plugin) todayAction() extension.Action {
	return extension.NewAction("today_schedule", p.dayOffset(0, "Расписание на сегодня:"))
}

func (p *Plugin) dayOffset(days int, title string) extension.ActionFunc {
	return func(ctx context.Context, args ...string) (extension.ActionResult, error) {
		now := p.now().In(p.loc)
		day := now.AddDate(0, 0, days)

		lessons, err := p.timetable.DailySchedule(ctx, day, p.slots)
		if err != nil {
			return extension.ActionResult{}, fmt.Errorf("load schedule: %w", err)
		}
		return extension.Reply(title + "\n" + p.render(now, day, lessons)), nil
	}
}

func (p *Plugin) tomorrowAutosendAction(ctx context.Context, args ...string) (extension.ActionResult, error) {
	p.mu.Lock()
	enabled := p.tomorrowAutosend
	p.mu.Unlock()

	if !enabled {
		return extension.ActionResult{}, nil
	}
	return p.dayOffset(1, "Расписание на завтра:")(ctx, args...)
}

// render lays the lessons out as a fixed-width table. On the current day a
// marker line precedes the first lesson that has not started yet.
func (p *Plugin) render(now, day time.Time, lessons []notion.Lesson) string {
	lines := []string{
		fmt.Sprintf("%-2s %-5s %-7s %-20s", "#", "нач.", "каб.", "предмет"),
		strings.Repeat("-", lineWidth),
	}
	if len(lessons) == 0 {
		lines = append(lines, "нет пар")
	}

	sameDay := now.Year() == day.Year() && now.YearDay() == day.YearDay()
	marked := !sameDay
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, p.loc)

	for _, l := range lessons {
		start := midnight.Add(l.Slot.Start)
		row := fmt.Sprintf("%-2d %02d:%02d %-7s %-20s", l.Number, start.Hour(), start.Minute(), l.Room, l.Subject)
		row = wrap(html.EscapeString(strings.TrimRight(row, " ")))

		if !marked && now.Before(start) {
			lines = append(lines, html.EscapeString(">"+strings.Repeat("- ", 18)+"<"))
			marked = true
		}
		lines = append(lines, row+"\n")
	}

	return "<pre>" + strings.Join(lines, "\n") + "</pre>"
}

// wrap breaks a row at lineWidth and indents continuation lines
func wrap(row string) string {
	parts := strings.Split(wordwrap.String(row, lineWidth), "\n")
	indent := strings.Repeat(" ", wrapIndent)
	for i := 1; i < len(parts); i++ {
		parts[i] = indent + parts[i]
	}
	return strings.Join(parts, "\n")
}

func (p *Plugin) setTodayTime(ctx context.Context, args ...string) (extension.ActionResult, error) {
	d, err := pluginutil.ParseTimeArgs(args)
	if err != nil {
		return extension.Reply(err.Error()), nil
	}

	p.mu.Lock()
	p.todayTime = d
	p.mu.Unlock()

	return extension.Replyf("New schedule send time: %s\nRun /reschedule to apply this change", pluginutil.FormatClock(d)), nil
}

func (p *Plugin) setTomorrowTime(ctx context.Context, args ...string) (extension.ActionResult, error) {
	d, err := pluginutil.ParseTimeArgs(args)
	if err != nil {
		return extension.Reply(err.Error()), nil
	}

	p.mu.Lock()
	p.tomorrowTime = d
	p.mu.Unlock()

	return extension.Replyf("New send time of tomorrow's schedule: %s\nRun /reschedule to apply this change", pluginutil.FormatClock(d)), nil
}

func (p *Plugin) toggleTomorrow(ctx context.Context, args ...string) (extension.ActionResult, error) {
	if len(args) != 1 {
		return extension.Reply("invalid arguments, use `on` or `off`"), nil
	}

	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return extension.Reply("invalid arguments, use `on` or `off`"), nil
	}

	p.mu.Lock()
	p.tomorrowAutosend = enabled
	p.mu.Unlock()

	if enabled {
		return extension.Reply("enabled auto sending schedule for tomorrow"), nil
	}
	return extension.Reply("disabled auto sending schedule for tomorrow"), nil
}
