package telegram

import (
	"context"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggeorg0/life-assistant/pkg/extension"
)

func TestRegisterCommand(t *testing.T) {
	bot, _ := createTestBot(t)

	var got []extension.CommandRequest
	bot.RegisterCommand("settimer", func(ctx context.Context, req extension.CommandRequest) {
		got = append(got, req)
	})

	err := bot.Commands().HandleCommand(context.Background(), textUpdate(ownerChat, "/settimer 00 00 05"))
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, ownerChat, got[0].Target)
	assert.Equal(t, int64(12345), got[0].UserID)
	assert.Equal(t, []string{"00", "00", "05"}, got[0].Args)
}

func TestRegisterReplaces(t *testing.T) {
	bot, _ := createTestBot(t)

	calls := ""
	bot.RegisterCommand("task", func(context.Context, extension.CommandRequest) { calls += "a" })
	bot.RegisterCommand("task", func(context.Context, extension.CommandRequest) { calls += "b" })

	require.NoError(t, bot.Commands().HandleCommand(context.Background(), textUpdate(ownerChat, "/task")))
	assert.Equal(t, "b", calls)
	assert.Equal(t, []string{"task"}, bot.Commands().GetRegisteredCommands())
}

func TestHandlerMayRebindCommands(t *testing.T) {
	bot, _ := createTestBot(t)

	bot.RegisterCommand("enable", func(ctx context.Context, req extension.CommandRequest) {
		bot.RegisterCommand("morning", func(context.Context, extension.CommandRequest) {})
	})

	require.NoError(t, bot.Commands().HandleCommand(context.Background(), textUpdate(ownerChat, "/enable MorningSummary")))
	assert.Equal(t, []string{"enable", "morning"}, bot.Commands().GetRegisteredCommands())
}

func TestUnknownCommand(t *testing.T) {
	bot, api := createTestBot(t)

	require.NoError(t, bot.Commands().HandleCommand(context.Background(), textUpdate(ownerChat, "/nope")))
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Unknown command: /nope", msgs[0].Text)
	assert.Equal(t, 1, msgs[0].ReplyToMessageID)

	// strangers get no answer
	require.NoError(t, bot.Commands().HandleCommand(context.Background(), textUpdate(1, "/nope")))
	assert.Len(t, api.messages(), 1)
}

func TestUnregister(t *testing.T) {
	bot, _ := createTestBot(t)
	bot.RegisterCommand("a", func(context.Context, extension.CommandRequest) {})
	bot.UnregisterCommand("a")

	assert.Empty(t, bot.Commands().GetRegisteredCommands())
}

func TestMenu(t *testing.T) {
	help := []extension.HelpEntry{
		{Command: "inbox [n], /last [n]", Description: "show the last inbox entries"},
		{Command: "morning", Description: "show the morning message now"},
	}

	menu := Menu([]string{"inbox", "last", "morning", "pl"}, help)

	assert.Equal(t, []tgbotapi.BotCommand{
		{Command: "inbox", Description: "show the last inbox entries"},
		{Command: "last", Description: "show the last inbox entries"},
		{Command: "morning", Description: "show the morning message now"},
		{Command: "pl", Description: "pl"},
	}, menu)
}

func TestPublishMenu(t *testing.T) {
	bot, api := createTestBot(t)
	bot.RegisterCommand("morning", func(context.Context, extension.CommandRequest) {})

	require.NoError(t, bot.Commands().PublishMenu(nil))

	require.Len(t, api.requests, 1)
	cfg, ok := api.requests[0].(tgbotapi.SetMyCommandsConfig)
	require.True(t, ok)
	assert.Equal(t, []tgbotapi.BotCommand{{Command: "morning", Description: "morning"}}, cfg.Commands)
}
