// Package randomtask picks a random entry from the current tasks list and lets
// the user complete or restore it.
package randomtask

import (
	"context"
	"fmt"
	"html"
	"math/rand/v2"
	"sync"

	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/notion"
)

// Name is the plugin name
const Name = "RandomCurrentTask"

const noLastTask = "There is no last random task!"

// Tasks is the part of the notes database the plugin uses
type Tasks interface {
	CurrentTasks(ctx context.Context) ([]notion.Task, error)
	ArchivePage(ctx context.Context, id string) error
	UnarchivePage(ctx context.Context, id string) error
	LogDone(ctx context.Context, title string) error
}

// Plugin remembers the last task it picked
type Plugin struct {
	*extension.Base
	tasks Tasks

	mu   sync.Mutex
	rnd  *rand.Rand
	last *notion.Task
}

// New creates the plugin; rnd may be nil
func New(tasks Tasks, rnd *rand.Rand) *Plugin {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Plugin{
		Base:  extension.NewBase(Name),
		tasks: tasks,
		rnd:   rnd,
	}
}

func (p *Plugin) UserCommands() []extension.Command {
	pick := extension.NewAction("random_task", p.pick)
	return []extension.Command{
		extension.NewCommand("rtask", pick),
		extension.NewCommand("task", pick),
		extension.NewCommand("done", extension.NewAction("complete_task", p.complete)),
		extension.NewCommand("undone", extension.NewAction("restore_task", p.restore)),
	}
}

func (p *Plugin) Help() []extension.HelpEntry {
	return []extension.HelpEntry{
		{Command: "rtask, /task", Description: "random task from the current tasks list"},
		{Command: "done", Description: "mark the last random task as complete"},
		{Command: "undone", Description: "bring the last completed task back"},
	}
}

func (p *Plugin) pick(ctx context.Context, args ...string) (extension.ActionResult, error) {
	tasks, err := p.tasks.CurrentTasks(ctx)
	if err != nil {
		return extension.ActionResult{}, fmt.Errorf("load current tasks: %w", err)
	}
	if len(tasks) == 0 {
		return extension.Reply("There are no current tasks!"), nil
	}

	p.mu.Lock()
	task := tasks[p.rnd.IntN(len(tasks))]
	p.last = &task
	p.mu.Unlock()

	return extension.Reply(html.EscapeString(task.Title)), nil
}

func (p *Plugin) lastTask() (notion.Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return notion.Task{}, false
	}
	return *p.last, true
}

func (p *Plugin) complete(ctx context.Context, args ...string) (extension.ActionResult, error) {
	task, ok := p.lastTask()
	if !ok {
		return extension.Reply(noLastTask), nil
	}

	if err := p.tasks.ArchivePage(ctx, task.ID); err != nil {
		return extension.ActionResult{}, fmt.Errorf("archive task: %w", err)
	}

	msg := fmt.Sprintf("The task %q is archived!", task.Title)
	if err := p.tasks.LogDone(ctx, task.Title); err != nil {
		msg += "\nIt could not be added to the done list."
	}
	return extension.Reply(html.EscapeString(msg)), nil
}

func (p *Plugin) restore(ctx context.Context, args ...string) (extension.ActionResult, error) {
	task, ok := p.lastTask()
	if !ok {
		return extension.Reply(noLastTask), nil
	}

	if err := p.tasks.UnarchivePage(ctx, task.ID); err != nil {
		return extension.ActionResult{}, fmt.Errorf("restore task: %w", err)
	}
	return extension.Reply("The task is back!"), nil
}
