package telegram

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggeorg0/life-assistant/internal/config"
	"github.com/ggeorg0/life-assistant/internal/logger"
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
	updates  chan tgbotapi.Update
	stopped  bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update, 8)}
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

type countingCounters struct {
	mu                     sync.Mutex
	sent, received, errors int
}

func (c *countingCounters) MessageSent()     { c.mu.Lock(); c.sent++; c.mu.Unlock() }
func (c *countingCounters) MessageReceived() { c.mu.Lock(); c.received++; c.mu.Unlock() }
func (c *countingCounters) TelegramError()   { c.mu.Lock(); c.errors++; c.mu.Unlock() }

const ownerChat int64 = 67890

func createTestBot(t *testing.T) (*Bot, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	bot := NewWithAPI(api, &config.TelegramConfig{PollTimeout: 1}, zerolog.Nop())
	bot.SetAuthorize(func(chatID int64) bool { return chatID == ownerChat })
	return bot, api
}

func textUpdate(chatID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: 12345, UserName: "testuser"},
		Chat:      &tgbotapi.Chat{ID: chatID, Type: "private"},
		Text:      text,
		Date:      1234567890,
	}
	if len(text) > 0 && text[0] == '/' {
		end := len(text)
		for i, r := range text {
			if r == ' ' {
				end = i
				break
			}
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func TestNew(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "info", Console: true})
	require.NoError(t, err)

	t.Run("nil config", func(t *testing.T) {
		bot, err := New(nil, log)
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "config is required")
	})

	t.Run("empty bot token", func(t *testing.T) {
		bot, err := New(&config.TelegramConfig{}, log)
		assert.Error(t, err)
		assert.Nil(t, bot)
		assert.Contains(t, err.Error(), "bot token is required")
	})
}

func TestValidateToken(t *testing.T) {
	err := ValidateToken("")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestSendMessageUsesHTML(t *testing.T) {
	bot, api := createTestBot(t)
	counters := &countingCounters{}
	bot.SetCounters(counters)

	require.NoError(t, bot.SendMessage(context.Background(), ownerChat, "<b>hi</b>"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, ownerChat, msgs[0].ChatID)
	assert.Equal(t, "<b>hi</b>", msgs[0].Text)
	assert.Equal(t, tgbotapi.ModeHTML, msgs[0].ParseMode)
	assert.Equal(t, 1, counters.sent)
}

func TestSendMessageError(t *testing.T) {
	bot, api := createTestBot(t)
	counters := &countingCounters{}
	bot.SetCounters(counters)
	api.sendErr = errors.New("flood")

	err := bot.SendMessage(context.Background(), ownerChat, "x")
	assert.ErrorContains(t, err, "failed to send message")
	assert.Equal(t, 1, counters.errors)
	assert.Equal(t, 0, counters.sent)
}

func TestStartStop(t *testing.T) {
	bot, api := createTestBot(t)

	received := make(chan string, 1)
	bot.Handler().SetOnText(func(ctx context.Context, mc MessageContext) error {
		received <- mc.Text
		return nil
	})

	require.NoError(t, bot.Start(context.Background()))
	assert.True(t, bot.IsRunning())
	assert.Error(t, bot.Start(context.Background()))

	api.updates <- textUpdate(ownerChat, "buy milk")

	select {
	case text := <-received:
		assert.Equal(t, "buy milk", text)
	case <-time.After(time.Second):
		t.Fatal("update was not processed")
	}

	require.NoError(t, bot.Stop())
	assert.False(t, bot.IsRunning())
	assert.True(t, api.stopped)
	assert.Error(t, bot.Stop())
}

func TestHandleUpdateRoutes(t *testing.T) {
	bot, _ := createTestBot(t)
	counters := &countingCounters{}
	bot.SetCounters(counters)

	var texts []string
	bot.Handler().SetOnText(func(ctx context.Context, mc MessageContext) error {
		texts = append(texts, mc.Text)
		return nil
	})

	require.NoError(t, bot.handleUpdate(context.Background(), textUpdate(ownerChat, "note")))
	require.NoError(t, bot.handleUpdate(context.Background(), textUpdate(ownerChat, "/unknown")))
	require.NoError(t, bot.handleUpdate(context.Background(), tgbotapi.Update{}))

	assert.Equal(t, []string{"note"}, texts)
	assert.Equal(t, 2, counters.received)
}
