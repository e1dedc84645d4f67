package telegram

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/pkg/extension"
)

// Commands routes slash commands to the handlers bound by the scheduler
type Commands struct {
	bot    *Bot
	logger zerolog.Logger

	mu       sync.RWMutex
	handlers map[string]extension.CommandHandler
}

func newCommands(bot *Bot) *Commands {
	return &Commands{
		bot:      bot,
		logger:   bot.logger.With().Str("module", "commands").Logger(),
		handlers: make(map[string]extension.CommandHandler),
	}
}

// HandleCommand processes an incoming command. Handlers run without the
// registry lock held since they may rebind commands.
func (c *Commands) HandleCommand(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}

	msg := update.Message
	command := strings.ToLower(msg.Command())
	args := strings.Fields(msg.CommandArguments())

	req := extension.CommandRequest{
		Target: msg.Chat.ID,
		Args:   args,
	}
	if msg.From != nil {
		req.UserID = msg.From.ID
	}

	c.logger.Debug().
		Int64("chat_id", req.Target).
		Str("command", command).
		Strs("args", args).
		Msg("Command received")

	c.mu.RLock()
	handler, exists := c.handlers[command]
	c.mu.RUnlock()

	if !exists {
		if !c.bot.authorized(req.Target) {
			return nil
		}
		return c.bot.SendMessageWithReply(req.Target, fmt.Sprintf("Unknown command: /%s", command), msg.MessageID)
	}

	handler(ctx, req)
	return nil
}

// Register binds a command handler, replacing any previous one
func (c *Commands) Register(command string, handler extension.CommandHandler) {
	c.mu.Lock()
	c.handlers[command] = handler
	c.mu.Unlock()

	c.logger.Debug().Str("command", command).Msg("Command registered")
}

// Unregister removes a command handler
func (c *Commands) Unregister(command string) {
	c.mu.Lock()
	delete(c.handlers, command)
	c.mu.Unlock()

	c.logger.Debug().Str("command", command).Msg("Command unregistered")
}

// GetRegisteredCommands returns all registered commands sorted by name
func (c *Commands) GetRegisteredCommands() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	commands := make([]string, 0, len(c.handlers))
	for cmd := range c.handlers {
		commands = append(commands, cmd)
	}
	sort.Strings(commands)
	return commands
}

// SetCommands sets the bot's command list in Telegram
func (c *Commands) SetCommands(commands []tgbotapi.BotCommand) error {
	cfg := tgbotapi.NewSetMyCommands(commands...)
	if _, err := c.bot.api.Request(cfg); err != nil {
		c.bot.counters.TelegramError()
		return fmt.Errorf("failed to set commands: %w", err)
	}

	c.logger.Info().Int("count", len(commands)).Msg("Bot commands updated")
	return nil
}

// PublishMenu publishes every registered command, described from the help
// entries where one exists
func (c *Commands) PublishMenu(help []extension.HelpEntry) error {
	return c.SetCommands(Menu(c.GetRegisteredCommands(), help))
}

// Menu builds the command menu for the given command names. A help entry
// may describe several aliases ("inbox [n], /last [n]").
func Menu(names []string, help []extension.HelpEntry) []tgbotapi.BotCommand {
	descriptions := make(map[string]string)
	for _, e := range help {
		for _, alias := range strings.Split(e.Command, ",") {
			fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(alias), "/"))
			if len(fields) == 0 {
				continue
			}
			if _, ok := descriptions[fields[0]]; !ok {
				descriptions[fields[0]] = e.Description
			}
		}
	}

	menu := make([]tgbotapi.BotCommand, 0, len(names))
	for _, name := range names {
		desc := descriptions[name]
		if desc == "" {
			desc = name
		}
		menu = append(menu, tgbotapi.BotCommand{Command: name, Description: desc})
	}
	return menu
}
