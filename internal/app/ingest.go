package app

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/internal/telegram"
	"github.com/ggeorg0/life-assistant/pkg/jobqueue"
	"github.com/ggeorg0/life-assistant/pkg/notion"
)

// inboxRetryTag groups the deferred inbox submissions in the job queue
const inboxRetryTag = "inbox-retry"

// Inbox saves text in the notes inbox; *notion.Client implements it
type Inbox interface {
	CreateInboxPage(ctx context.Context, title string) (string, error)
}

// Retrier schedules deferred submissions; *jobqueue.Queue implements it
type Retrier interface {
	Now() time.Time
	ScheduleOnce(tag, name string, at time.Time, fn jobqueue.Func) (jobqueue.Job, error)
}

// Replier answers a message in the chat it came from; *telegram.Handler implements it
type Replier interface {
	SendResponse(mc telegram.MessageContext, text string) error
}

// IngestConfig controls deferred retries of inbox submissions
type IngestConfig struct {
	RateLimitDelay   time.Duration
	UnavailableDelay time.Duration
	DepthLimit       int

	// OnRetry is called every time a submission is deferred
	OnRetry func()
}

// Ingestor turns plain-text messages into inbox pages. Submissions Notion
// refuses for a temporary reason are retried on the job queue with a
// delay of base × depth × 2.
type Ingestor struct {
	inbox   Inbox
	retrier Retrier
	replier Replier
	cfg     IngestConfig
	logger  zerolog.Logger
}

// NewIngestor creates an ingestor
func NewIngestor(inbox Inbox, retrier Retrier, replier Replier, cfg IngestConfig, logger zerolog.Logger) *Ingestor {
	if cfg.OnRetry == nil {
		cfg.OnRetry = func() {}
	}
	return &Ingestor{
		inbox:   inbox,
		retrier: retrier,
		replier: replier,
		cfg:     cfg,
		logger:  logger.With().Str("component", "inbox-ingest").Logger(),
	}
}

// HandleText is a telegram.Handler callback
func (i *Ingestor) HandleText(ctx context.Context, mc telegram.MessageContext) error {
	_, err := i.inbox.CreateInboxPage(ctx, mc.Text)
	if err == nil {
		return i.replier.SendResponse(mc, "added to Notion")
	}

	base, reason := i.retryBase(err)
	if base == 0 {
		i.logger.Error().Err(err).Int64("chat_id", mc.ChatID).Msg("Failed to add message to the inbox")
		if errors.Is(err, notion.ErrNotConfigured) {
			return i.replier.SendResponse(mc, "Inbox database is not configured")
		}
		if replyErr := i.replier.SendResponse(mc, "Failed to add to Notion"); replyErr != nil {
			return errors.Join(err, replyErr)
		}
		return err
	}

	if err := i.scheduleRetry(mc, 1, retryDelay(base, 0)); err != nil {
		return err
	}
	return i.replier.SendResponse(mc, reason+", the message will be sent again later")
}

// retryBase returns the base delay for a temporary failure, or 0 for a permanent one
func (i *Ingestor) retryBase(err error) (time.Duration, string) {
	switch {
	case notion.IsRateLimited(err):
		return i.cfg.RateLimitDelay, "Notion rate limit reached"
	case notion.IsUnavailable(err):
		return i.cfg.UnavailableDelay, "Notion is unavailable"
	}
	return 0, ""
}

// retryDelay is the wait after the failed attempt number depth; the first
// failure is the direct submission with depth 0
func retryDelay(base time.Duration, depth int) time.Duration {
	if depth == 0 {
		return base
	}
	return base * time.Duration(depth) * 2
}

// scheduleRetry registers attempt number depth
func (i *Ingestor) scheduleRetry(mc telegram.MessageContext, depth int, delay time.Duration) error {
	at := i.retrier.Now().Add(delay)
	name := fmt.Sprintf("inbox retry %d", depth)

	_, err := i.retrier.ScheduleOnce(inboxRetryTag, name, at, func(ctx context.Context) {
		i.retry(ctx, mc, depth)
	})
	if err != nil {
		return fmt.Errorf("schedule inbox retry: %w", err)
	}
	i.cfg.OnRetry()

	i.logger.Info().
		Int("depth", depth).
		Time("at", at).
		Msg("Inbox submission deferred")
	return nil
}

func (i *Ingestor) retry(ctx context.Context, mc telegram.MessageContext, depth int) {
	_, err := i.inbox.CreateInboxPage(ctx, mc.Text)
	if err == nil {
		i.logger.Info().Int("depth", depth).Msg("Deferred inbox submission saved")
		return
	}

	base, _ := i.retryBase(err)
	next := depth + 1
	if base == 0 || next > i.cfg.DepthLimit {
		i.logger.Error().
			Err(err).
			Int("depth", depth).
			Int("limit", i.cfg.DepthLimit).
			Msg("Giving up on inbox submission")
		msg := fmt.Sprintf("Could not add to Notion: <i>%s</i>", html.EscapeString(mc.Text))
		if sendErr := i.replier.SendResponse(mc, msg); sendErr != nil {
			i.logger.Error().Err(sendErr).Msg("Failed to report lost inbox submission")
		}
		return
	}

	if err := i.scheduleRetry(mc, next, retryDelay(base, depth)); err != nil {
		i.logger.Error().Err(err).Msg("Failed to defer inbox submission")
	}
}
