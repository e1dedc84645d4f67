package telegram

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/internal/config"
	"github.com/ggeorg0/life-assistant/internal/logger"
	"github.com/ggeorg0/life-assistant/pkg/extension"
)

// API is the part of the Bot API client the bot uses; *tgbotapi.BotAPI implements it
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Counters receives traffic counts; *metrics.Metrics implements it
type Counters interface {
	MessageSent()
	MessageReceived()
	TelegramError()
}

type nopCounters struct{}

func (nopCounters) MessageSent()     {}
func (nopCounters) MessageReceived() {}
func (nopCounters) TelegramError()   {}

// Bot represents a Telegram bot instance. It implements extension.Transport.
type Bot struct {
	api       API
	config    *config.TelegramConfig
	logger    zerolog.Logger
	authorize func(chatID int64) bool
	counters  Counters

	commands *Commands
	handler  *Handler

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

var _ extension.Transport = (*Bot)(nil)

// New creates a new Telegram bot instance
func New(cfg *config.TelegramConfig, log *logger.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("telegram config is required")
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.Debug

	bot := NewWithAPI(api, cfg, log.Component("telegram"))

	bot.logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authenticated")

	return bot, nil
}

// NewWithAPI creates a bot over an existing API client
func NewWithAPI(api API, cfg *config.TelegramConfig, logger zerolog.Logger) *Bot {
	b := &Bot{
		api:      api,
		config:   cfg,
		logger:   logger,
		counters: nopCounters{},
	}
	b.commands = newCommands(b)
	b.handler = newHandler(b)
	return b
}

// SetAuthorize installs the predicate deciding which chats the bot talks to
func (b *Bot) SetAuthorize(fn func(chatID int64) bool) {
	b.authorize = fn
}

// SetCounters installs traffic counters
func (b *Bot) SetCounters(c Counters) {
	if c == nil {
		c = nopCounters{}
	}
	b.counters = c
}

// Commands returns the command registry
func (b *Bot) Commands() *Commands {
	return b.commands
}

// Handler returns the plain-text message handler
func (b *Bot) Handler() *Handler {
	return b.handler
}

func (b *Bot) authorized(chatID int64) bool {
	return b.authorize == nil || b.authorize(chatID)
}

// Start begins long polling. Updates are processed until ctx is cancelled or Stop is called.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		return fmt.Errorf("bot is already running")
	}

	b.logger.Info().Msg("Starting Telegram bot")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.config.PollTimeout
	updates := b.api.GetUpdatesChan(u)

	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.done = make(chan struct{})
	b.running = true

	go b.processUpdates(ctx, updates, b.done)

	b.logger.Info().Msg("Telegram bot started")
	return nil
}

// Stop stops polling and waits for the update loop to exit
func (b *Bot) Stop() error {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return fmt.Errorf("bot is not running")
	}
	b.running = false
	cancel, done := b.cancel, b.done
	b.mu.Unlock()

	b.logger.Info().Msg("Stopping Telegram bot")

	cancel()
	b.api.StopReceivingUpdates()
	<-done

	b.logger.Info().Msg("Telegram bot stopped")
	return nil
}

// IsRunning returns whether the bot is polling
func (b *Bot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

func (b *Bot) processUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := b.handleUpdate(ctx, update); err != nil {
				b.logger.Error().
					Err(err).
					Int("update_id", update.UpdateID).
					Msg("Failed to handle update")
			}
		}
	}
}

// handleUpdate routes an update to the command registry or the text handler
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}
	b.counters.MessageReceived()

	if msg.IsCommand() {
		return b.commands.HandleCommand(ctx, update)
	}
	return b.handler.HandleMessage(ctx, update)
}

// SendMessage sends an HTML formatted message
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	return b.send(newHTMLMessage(chatID, text))
}

// SendMessageWithReply sends an HTML formatted message as a reply
func (b *Bot) SendMessageWithReply(chatID int64, text string, replyToMessageID int) error {
	msg := newHTMLMessage(chatID, text)
	msg.ReplyToMessageID = replyToMessageID
	return b.send(msg)
}

// RegisterCommand implements extension.Transport
func (b *Bot) RegisterCommand(name string, handler extension.CommandHandler) {
	b.commands.Register(name, handler)
}

// UnregisterCommand implements extension.Transport
func (b *Bot) UnregisterCommand(name string) {
	b.commands.Unregister(name)
}

func newHTMLMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg
}

func (b *Bot) send(msg tgbotapi.MessageConfig) error {
	if _, err := b.api.Send(msg); err != nil {
		b.counters.TelegramError()
		return fmt.Errorf("failed to send message: %w", err)
	}
	b.counters.MessageSent()

	b.logger.Debug().
		Int64("chat_id", msg.ChatID).
		Int("reply_to", msg.ReplyToMessageID).
		Msg("Message sent")

	return nil
}

// ValidateToken validates a bot token by attempting to authenticate
func ValidateToken(token string) error {
	if token == "" {
		return fmt.Errorf("bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return fmt.Errorf("invalid bot token: %w", err)
	}

	if api.Self.UserName == "" {
		return fmt.Errorf("failed to get bot info")
	}

	return nil
}
