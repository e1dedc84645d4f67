// Package plugins assembles the builtin plugins from configuration.
package plugins

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/internal/config"
	"github.com/ggeorg0/life-assistant/internal/plugins/cleanup"
	"github.com/ggeorg0/life-assistant/internal/plugins/inbox"
	"github.com/ggeorg0/life-assistant/internal/plugins/morning"
	"github.com/ggeorg0/life-assistant/internal/plugins/pluginutil"
	"github.com/ggeorg0/life-assistant/internal/plugins/randomtask"
	"github.com/ggeorg0/life-assistant/internal/plugins/timer"
	"github.com/ggeorg0/life-assistant/internal/plugins/unischedule"
	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/notion"
)

// Notes is everything the builtin plugins need from the notes database; *notion.Client implements it
type Notes interface {
	CalendarEvents(ctx context.Context) ([]notion.Event, error)
	CurrentTasks(ctx context.Context) ([]notion.Task, error)
	DailySchedule(ctx context.Context, day time.Time, slots []notion.LessonSlot) ([]notion.Lesson, error)
	LastInboxPages(ctx context.Context, n int) ([]notion.InboxPage, bool, error)
	ArchiveLastInboxPages(ctx context.Context, n int) (int, error)
	ArchivePage(ctx context.Context, id string) error
	UnarchivePage(ctx context.Context, id string) error
	LogDone(ctx context.Context, title string) error
}

// Deps are the collaborators of the builtin plugins
type Deps struct {
	Config   *config.Config
	Notes    Notes
	Location *time.Location
	Now      pluginutil.Clock
	Logger   zerolog.Logger
}

// Units returns the builtin plugin units. A unit whose database is not
// configured fails to load and is skipped by discovery.
func Units(deps Deps) []extension.Unit {
	return []extension.Unit{
		{Name: "timer", New: deps.timer},
		{Name: "morning", New: deps.morning},
		{Name: "unischedule", New: deps.unischedule},
		{Name: "randomtask", New: deps.randomtask},
		{Name: "inbox", New: deps.inbox},
		{Name: "cleanup", New: deps.cleanup},
	}
}

func single(p extension.Plugin) ([]extension.Plugin, error) {
	return []extension.Plugin{p}, nil
}

func requireDatabase(key, id string) error {
	if id == "" {
		return fmt.Errorf("notion.%s is not configured", key)
	}
	return nil
}

func (d Deps) timer() ([]extension.Plugin, error) {
	return single(timer.New(d.Now))
}

func (d Deps) morning() ([]extension.Plugin, error) {
	cfg := d.Config
	if err := requireDatabase("calendar_database", cfg.Notion.CalendarDatabase); err != nil {
		return nil, err
	}
	if err := requireDatabase("current_tasks", cfg.Notion.CurrentTasks); err != nil {
		return nil, err
	}

	sendTime, err := config.ParseTimeOfDay(cfg.Plugins.Morning.SendTime)
	if err != nil {
		return nil, fmt.Errorf("plugins.morning.send_time: %w", err)
	}

	return single(morning.New(d.Notes, morning.Options{
		SendTime:  sendTime,
		TaskCount: cfg.Plugins.Morning.TaskCount,
		Location:  d.Location,
		Now:       d.Now,
	}))
}

func (d Deps) unischedule() ([]extension.Plugin, error) {
	cfg := d.Config
	if err := requireDatabase("uni_schedule", cfg.Notion.UniSchedule); err != nil {
		return nil, err
	}

	today, err := config.ParseTimeOfDay(cfg.Plugins.UniSchedule.TodayTime)
	if err != nil {
		return nil, fmt.Errorf("plugins.uni_schedule.today_time: %w", err)
	}
	tomorrow, err := config.ParseTimeOfDay(cfg.Plugins.UniSchedule.TomorrowTime)
	if err != nil {
		return nil, fmt.Errorf("plugins.uni_schedule.tomorrow_time: %w", err)
	}
	slots, err := LessonSlots(cfg.Plugins.UniSchedule.Lessons)
	if err != nil {
		return nil, err
	}

	return single(unischedule.New(d.Notes, unischedule.Options{
		TodayTime:        today,
		TomorrowTime:     tomorrow,
		TomorrowAutosend: cfg.Plugins.UniSchedule.TomorrowAutosend,
		Slots:            slots,
		Location:         d.Location,
		Now:              d.Now,
	}))
}

func (d Deps) randomtask() ([]extension.Plugin, error) {
	if err := requireDatabase("current_tasks", d.Config.Notion.CurrentTasks); err != nil {
		return nil, err
	}
	return single(randomtask.New(d.Notes, nil))
}

func (d Deps) inbox() ([]extension.Plugin, error) {
	if err := requireDatabase("inbox_database", d.Config.Notion.InboxDatabase); err != nil {
		return nil, err
	}
	return single(inbox.New(d.Notes, d.Config.Inbox.LastN, d.Logger))
}

func (d Deps) cleanup() ([]extension.Plugin, error) {
	cfg := d.Config
	if err := requireDatabase("calendar_database", cfg.Notion.CalendarDatabase); err != nil {
		return nil, err
	}

	at, err := config.ParseTimeOfDay(cfg.Plugins.Cleanup.Time)
	if err != nil {
		return nil, fmt.Errorf("plugins.cleanup.time: %w", err)
	}

	return single(cleanup.New(d.Notes, cleanup.Options{
		Day:      cfg.Plugins.Cleanup.MonthlyDay,
		Time:     at,
		Location: d.Location,
		Now:      d.Now,
	}))
}

// LessonSlots converts configured lesson times into offsets from midnight
func LessonSlots(lessons []config.LessonSlot) ([]notion.LessonSlot, error) {
	slots := make([]notion.LessonSlot, 0, len(lessons))
	for i, l := range lessons {
		start, err := config.ParseTimeOfDay(l.Start)
		if err != nil {
			return nil, fmt.Errorf("lesson %d start: %w", i+1, err)
		}
		end, err := config.ParseTimeOfDay(l.End)
		if err != nil {
			return nil, fmt.Errorf("lesson %d end: %w", i+1, err)
		}
		slots = append(slots, notion.LessonSlot{Start: start, End: end})
	}
	return slots, nil
}

// ApplyDisabled disables the named plugins and returns the names the registry refused
func ApplyDisabled(r *extension.Registry, names []string) []string {
	var rejected []string
	for _, name := range names {
		if err := r.Disable(name); err != nil {
			rejected = append(rejected, name)
		}
	}
	return rejected
}
