// Package inbox lists and trims the notes inbox.
package inbox

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/internal/plugins/pluginutil"
	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/notion"
)

// Name is the plugin name
const Name = "InboxManagement"

const deleteUsage = "Error: you must specify the number of pages. Example:\n<pre>/delete_last 10</pre>"

// Inbox is the part of the notes database the plugin uses
type Inbox interface {
	LastInboxPages(ctx context.Context, n int) ([]notion.InboxPage, bool, error)
	ArchiveLastInboxPages(ctx context.Context, n int) (int, error)
}

// Plugin shows and deletes the newest inbox entries
type Plugin struct {
	*extension.Base
	inbox  Inbox
	lastN  int
	logger zerolog.Logger
}

// New creates the inbox plugin; lastN is the default listing length
func New(inbox Inbox, lastN int, logger zerolog.Logger) *Plugin {
	if lastN <= 0 {
		lastN = 10
	}
	return &Plugin{
		Base:   extension.NewBase(Name),
		inbox:  inbox,
		lastN:  lastN,
		logger: logger.With().Str("plugin", Name).Logger(),
	}
}

func (p *Plugin) UserCommands() []extension.Command {
	del := extension.NewAction("delete_last", p.deleteLast)
	list := extension.NewAction("last_tasks", p.list)
	return []extension.Command{
		extension.NewCommand("delete_last", del),
		extension.NewCommand("delete", del),
		extension.NewCommand("del_last", del),
		extension.NewCommand("inbox", list),
		extension.NewCommand("last", list),
	}
}

func (p *Plugin) Help() []extension.HelpEntry {
	return []extension.HelpEntry{
		{Command: "delete <n>, /delete_last <n>, /del_last <n>", Description: "delete the last n inbox entries"},
		{Command: "inbox [n], /last [n]", Description: fmt.Sprintf("show the last n (default %d) inbox entries", p.lastN)},
	}
}

func (p *Plugin) list(ctx context.Context, args ...string) (extension.ActionResult, error) {
	n, err := pluginutil.IntArg(args, 0, p.lastN)
	if err != nil || n <= 0 {
		n = p.lastN
	}

	pages, more, err := p.inbox.LastInboxPages(ctx, n)
	if err != nil {
		return extension.ActionResult{}, fmt.Errorf("list inbox: %w", err)
	}
	if len(pages) == 0 {
		return extension.Reply("Inbox is empty"), nil
	}

	lines := []string{"<b>List of tasks</b>"}
	for i, page := range pages {
		lines = append(lines, html.EscapeString(fmt.Sprintf("%3d. %s", i+1, page.Title)))
	}
	if more {
		lines = append(lines, "Visit Notion to see the full list...")
	}
	return extension.Reply(strings.Join(lines, "\n")), nil
}

func (p *Plugin) deleteLast(ctx context.Context, args ...string) (extension.ActionResult, error) {
	if len(args) == 0 {
		return extension.Reply(deleteUsage), nil
	}

	n, err := pluginutil.IntArg(args, 0, 0)
	if err != nil || n <= 0 {
		return extension.Replyf("Invalid number of pages: %s", html.EscapeString(args[0])), nil
	}

	deleted, err := p.inbox.ArchiveLastInboxPages(ctx, n)
	if err != nil {
		p.logger.Error().Err(err).Int("requested", n).Int("deleted", deleted).Msg("Failed to delete inbox pages")
		return extension.Replyf("Some error occurred during deletion, %d pages have been deleted", deleted), nil
	}
	return extension.Replyf("%d pages have been deleted", deleted), nil
}
