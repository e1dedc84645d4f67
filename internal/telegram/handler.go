package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Handler delivers plain-text messages from authorized chats
type Handler struct {
	bot    *Bot
	logger zerolog.Logger

	onText func(context.Context, MessageContext) error
}

// MessageContext contains message metadata
type MessageContext struct {
	ChatID    int64
	MessageID int
	UserID    int64
	Username  string
	Text      string
	Timestamp time.Time
}

func newHandler(bot *Bot) *Handler {
	return &Handler{
		bot:    bot,
		logger: bot.logger.With().Str("module", "handler").Logger(),
	}
}

// HandleMessage processes a non-command message
func (h *Handler) HandleMessage(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return nil
	}

	mc := MessageContext{
		ChatID:    msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      ParseCaption(msg),
		Timestamp: time.Unix(int64(msg.Date), 0),
	}
	if msg.From != nil {
		mc.UserID = msg.From.ID
		mc.Username = msg.From.UserName
	}

	if !h.bot.authorized(mc.ChatID) {
		h.logger.Warn().
			Int64("chat_id", mc.ChatID).
			Int64("user_id", mc.UserID).
			Msg("Message from unauthorized chat ignored")
		return nil
	}

	if mc.Text == "" {
		h.logger.Debug().Int64("chat_id", mc.ChatID).Msg("Message without text ignored")
		return nil
	}

	h.logger.Debug().
		Int64("chat_id", mc.ChatID).
		Int64("user_id", mc.UserID).
		Str("username", mc.Username).
		Msg("Message received")

	if h.onText != nil {
		return h.onText(ctx, mc)
	}
	return nil
}

// SetOnText sets the plain-text callback
func (h *Handler) SetOnText(callback func(context.Context, MessageContext) error) {
	h.onText = callback
}

// SendResponse sends a reply to a message
func (h *Handler) SendResponse(mc MessageContext, text string) error {
	return h.bot.SendMessageWithReply(mc.ChatID, text, mc.MessageID)
}

// ParseCaption extracts the text of a message, falling back to a media caption
func ParseCaption(msg *tgbotapi.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}
