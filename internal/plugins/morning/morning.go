// Package morning sends a daily summary of today's calendar and a few current tasks.
package morning

import (
	"context"
	"fmt"
	"html"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ggeorg0/life-assistant/internal/plugins/pluginutil"
	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/notion"
)

// Name is the plugin name
const Name = "MorningSummary"

// Notes is the part of the notes database the summary reads
type Notes interface {
	CalendarEvents(ctx context.Context) ([]notion.Event, error)
	CurrentTasks(ctx context.Context) ([]notion.Task, error)
}

var (
	greetings = []string{
		"Доброе утро!",
		"С добрым утром!",
		"Подъем!",
		"Guten Morgen!",
	}
	defaultWishes = []string{
		"Хорошего дня!",
		"Отличной работы",
		"Have a nice day!",
	}
	busyWishes = []string{
		"За работу!",
		"Вперед на завод!!!",
		"Работаем и ботаем",
	}
	weekendWishes = []string{
		"Выходные!",
		"Хороших выходных!",
		"Не забывай отдыхать!",
	}
	mondayWishes = []string{
		"С понедельничком!",
		"С началом рабочей недели!",
		"Снова понедельник!",
	}
)

// busyLines is the summary length above which the day counts as busy
const busyLines = 16

// Options configures the plugin
type Options struct {
	SendTime  time.Duration
	TaskCount int
	Location  *time.Location
	Now       pluginutil.Clock
	Rand      *rand.Rand
}

// Plugin composes and sends the morning summary
type Plugin struct {
	*extension.Base
	notes     Notes
	taskCount int
	loc       *time.Location
	now       pluginutil.Clock

	mu       sync.Mutex
	sendTime time.Duration
	rnd      *rand.Rand
}

// New creates the morning summary plugin
func New(notes Notes, opts Options) *Plugin {
	if opts.TaskCount <= 0 {
		opts.TaskCount = 5
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Plugin{
		Base:      extension.NewBase(Name),
		notes:     notes,
		taskCount: opts.TaskCount,
		loc:       opts.Location,
		now:       opts.Now.OrNow(),
		sendTime:  opts.SendTime,
		rnd:       opts.Rand,
	}
}

func (p *Plugin) UserCommands() []extension.Command {
	return []extension.Command{
		extension.NewCommand("morning", p.summaryAction()),
		extension.NewCommand("morning_sendtime", extension.NewAction("morning_sendtime", p.sendTimeCommand)),
	}
}

func (p *Plugin) DailyEvents() []extension.Event {
	p.mu.Lock()
	at := pluginutil.ClockAt(p.sendTime, p.loc)
	p.mu.Unlock()

	return []extension.Event{extension.Daily(at, p.summaryAction())}
}

func (p *Plugin) Help() []extension.HelpEntry {
	return []extension.HelpEntry{
		{Command: "morning", Description: "show the morning message now"},
		{Command: "morning_sendtime [time]", Description: "show or change the morning message time"},
	}
}

func (p *Plugin) summaryAction() extension.Action {
	return extension.NewAction("morning_message", p.summary)
}

func (p *Plugin) summary(ctx context.Context, args ...string) (extension.ActionResult, error) {
	events, err := p.notes.CalendarEvents(ctx)
	if err != nil {
		return extension.ActionResult{}, fmt.Errorf("load calendar: %w", err)
	}
	tasks, err := p.notes.CurrentTasks(ctx)
	if err != nil {
		return extension.ActionResult{}, fmt.Errorf("load current tasks: %w", err)
	}

	now := p.now().In(p.loc)
	return extension.Reply(p.compose(now, events, tasks)), nil
}

func (p *Plugin) compose(now time.Time, events []notion.Event, tasks []notion.Task) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	lines := []string{
		p.choose(greetings),
		fmt.Sprintf("Сегодня <b>%s</b>\n", now.Format("02 Jan Monday")),
	}

	var today []string
	for _, e := range events {
		if e.OccursOn(now) {
			today = append(today, html.EscapeString(" > "+e.Title+p.eventTime(e)))
		}
	}
	if len(today) > 0 {
		today[len(today)-1] += "\n"
		lines = append(lines, "<b>События календаря:</b>")
		lines = append(lines, today...)
	}

	lines = append(lines, fmt.Sprintf("<b>%d случайных текущих задач:</b>", p.taskCount))
	shuffled := append([]notion.Task(nil), tasks...)
	p.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	if len(shuffled) > p.taskCount {
		shuffled = shuffled[:p.taskCount]
	}
	for _, t := range shuffled {
		lines = append(lines, html.EscapeString(" > "+t.Title))
	}
	lines[len(lines)-1] += "\n"

	lines = append(lines, p.choose(p.wishes(now, len(lines))))
	return strings.Join(lines, "\n")
}

func (p *Plugin) wishes(now time.Time, lines int) []string {
	pool := append([]string(nil), defaultWishes...)
	if lines > busyLines {
		pool = append(pool, busyWishes...)
	}
	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		pool = append(pool, weekendWishes...)
	case time.Monday:
		pool = append(pool, mondayWishes...)
	}
	return pool
}

// choose picks a random element (must hold lock)
func (p *Plugin) choose(pool []string) string {
	return pool[p.rnd.IntN(len(pool))]
}

// eventTime renders the date range and clock times that are set
func (p *Plugin) eventTime(e notion.Event) string {
	start := e.Start.In(p.loc)

	var b strings.Builder
	if e.HasEnd() {
		b.WriteString(start.Format(" 02/01"))
	}
	if hasClock(start) {
		b.WriteString(start.Format(" 15:04"))
	}
	if e.HasEnd() {
		end := e.End.In(p.loc)
		b.WriteString(end.Format(" - 02/01"))
		if hasClock(end) {
			b.WriteString(end.Format(" 15:04"))
		}
	}
	return b.String()
}

func hasClock(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0
}

func (p *Plugin) sendTimeCommand(ctx context.Context, args ...string) (extension.ActionResult, error) {
	if len(args) == 0 {
		p.mu.Lock()
		current := p.sendTime
		p.mu.Unlock()
		return extension.Reply(pluginutil.FormatClock(current)), nil
	}

	d, err := pluginutil.ParseTimeArgs(args)
	if err != nil {
		return extension.Reply(err.Error()), nil
	}

	p.mu.Lock()
	p.sendTime = d
	p.mu.Unlock()

	return extension.Replyf("New morning message time: %s\nRun /reschedule to apply this change", pluginutil.FormatClock(d)), nil
}
