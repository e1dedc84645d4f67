// Package app wires the assistant together and runs it.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/internal/config"
	"github.com/ggeorg0/life-assistant/internal/logger"
	"github.com/ggeorg0/life-assistant/internal/metrics"
	"github.com/ggeorg0/life-assistant/internal/plugins"
	"github.com/ggeorg0/life-assistant/internal/telegram"
	"github.com/ggeorg0/life-assistant/pkg/extension"
	"github.com/ggeorg0/life-assistant/pkg/jobqueue"
	"github.com/ggeorg0/life-assistant/pkg/notion"
)

// Notes is the notes database as the whole assistant uses it
type Notes interface {
	plugins.Notes
	Inbox
}

// App represents the running assistant
type App struct {
	config   *config.Config
	logger   *logger.Logger
	log      zerolog.Logger
	location *time.Location

	notes     Notes
	metrics   *metrics.Metrics
	queue     *jobqueue.Queue
	registry  *extension.Registry
	scheduler *extension.Scheduler
	bot       *telegram.Bot
	ingest    *Ingestor
	lifecycle *LifecycleManager
	heartbeat *Heartbeat

	unitErrors []error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

// Option overrides a collaborator, mostly for tests
type Option func(*options)

type options struct {
	telegramAPI telegram.API
	notes       Notes
	clock       jobqueue.Clock
}

// WithTelegramAPI uses api instead of connecting to Telegram
func WithTelegramAPI(api telegram.API) Option {
	return func(o *options) { o.telegramAPI = api }
}

// WithNotes uses notes instead of the Notion client
func WithNotes(notes Notes) Option {
	return func(o *options) { o.notes = notes }
}

// WithClock drives the job queue from clock
func WithClock(clock jobqueue.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// New creates the assistant. Plugins whose databases are not configured are
// skipped and reported by UnitErrors.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if r := log.Redactor(); r != nil {
		r.AddLiteral(cfg.Telegram.BotToken)
		r.AddLiteral(cfg.Notion.Token)
	}

	a := &App{
		config:   cfg,
		logger:   log,
		log:      log.Component("app"),
		location: loc,
		metrics:  metrics.NewMetrics(),
	}

	if err := a.initNotes(o.notes); err != nil {
		return nil, err
	}
	if err := a.initBot(o.telegramAPI); err != nil {
		return nil, err
	}

	queueLogger := log.Component("jobqueue")
	a.queue = jobqueue.New(jobqueue.Options{
		Clock:   o.clock,
		Logger:  &queueLogger,
		OnEvent: a.metrics.ObserveJob,
	})

	if err := a.initPlugins(); err != nil {
		a.queue.Stop()
		return nil, err
	}

	a.ingest = NewIngestor(a.notes, a.queue, a.bot.Handler(), IngestConfig{
		RateLimitDelay:   time.Duration(cfg.Inbox.RateLimitDelaySec) * time.Second,
		UnavailableDelay: time.Duration(cfg.Inbox.UnavailableDelaySec) * time.Second,
		DepthLimit:       cfg.Inbox.RetryDepthLimit,
		OnRetry:          a.metrics.InboxRetriesScheduled.Inc,
	}, log.Component("inbox"))
	a.bot.Handler().SetOnText(a.ingest.HandleText)

	a.lifecycle = NewLifecycleManager(cfg.DataDir, a.log)
	a.heartbeat = NewHeartbeat(a.queue, a.registry, a.log)

	return a, nil
}

func (a *App) initNotes(notes Notes) error {
	if notes != nil {
		a.notes = notes
		return nil
	}

	n := a.config.Notion
	client, err := notion.New(notion.Config{
		Token:            n.Token,
		InboxDatabase:    n.InboxDatabase,
		CalendarDatabase: n.CalendarDatabase,
		CurrentTasks:     n.CurrentTasks,
		UniSchedule:      n.UniSchedule,
		DoneList:         n.DoneList,
		PageSize:         n.PageSize,
		MaxElapsed:       time.Duration(n.RetryMaxElapsedSec) * time.Second,
	}, a.logger.GetZerolog())
	if err != nil {
		return fmt.Errorf("failed to create notion client: %w", err)
	}
	a.notes = client
	return nil
}

func (a *App) initBot(api telegram.API) error {
	if api != nil {
		a.bot = telegram.NewWithAPI(api, &a.config.Telegram, a.logger.Component("telegram"))
	} else {
		bot, err := telegram.New(&a.config.Telegram, a.logger)
		if err != nil {
			return fmt.Errorf("failed to create telegram bot: %w", err)
		}
		a.bot = bot
	}

	a.bot.SetAuthorize(a.authorized)
	a.bot.SetCounters(a.metrics)
	return nil
}

func (a *App) authorized(chatID int64) bool {
	return slices.Contains(a.config.AllowedChats(), chatID)
}

func (a *App) initPlugins() error {
	log := a.logger.GetZerolog()

	units := plugins.Units(plugins.Deps{
		Config:   a.config,
		Notes:    a.notes,
		Location: a.location,
		Now:      a.queue.Now,
		Logger:   a.logger.Component("plugins"),
	})
	loaded, errs := extension.NewDiscovery(log, units...).LoadWithErrors()
	a.unitErrors = errs

	a.registry = extension.NewRegistry(log)
	a.registry.SetPlugins(loaded)

	for _, name := range plugins.ApplyDisabled(a.registry, a.config.Plugins.Disabled) {
		a.log.Warn().Str("plugin", name).Msg("Cannot disable plugin from configuration")
	}

	scheduler, err := extension.NewScheduler(extension.SchedulerConfig{
		Registry:  a.registry,
		Timers:    a.queue,
		Transport: a.bot,
		Target:    a.config.Telegram.ChatID,
		Authorize: a.authorized,
		Observer:  a.metrics,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	a.scheduler = scheduler
	return nil
}

// Start binds commands, registers triggers and starts polling
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("assistant is already running")
	}
	a.running = true
	a.startTime = time.Now()
	a.ctx, a.cancel = context.WithCancel(ctx)
	a.mu.Unlock()

	a.log.Info().Msg("Starting assistant")

	if err := a.lifecycle.Start(); err != nil {
		return fmt.Errorf("failed to start lifecycle manager: %w", err)
	}

	summary, err := a.scheduler.Start(a.ctx)
	if err != nil {
		a.log.Warn().Err(err).Msg("Some triggers could not be registered")
	}
	a.log.Info().
		Int("plugins", summary.Plugins).
		Int("triggers", summary.Triggers).
		Msg("Plugins scheduled")

	if err := a.bot.Commands().PublishMenu(a.helpEntries()); err != nil {
		a.log.Warn().Err(err).Msg("Failed to publish the command menu")
	}

	if err := a.bot.Start(a.ctx); err != nil {
		return fmt.Errorf("failed to start telegram bot: %w", err)
	}

	if a.config.Metrics.Enabled {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.metrics.Serve(a.ctx, a.config.Metrics.Addr, a.log); err != nil {
				a.log.Error().Err(err).Msg("Metrics endpoint failed")
			}
		}()
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.heartbeat.Run(a.ctx)
	}()

	a.log.Info().Msg("Assistant started")
	return nil
}

func (a *App) helpEntries() []extension.HelpEntry {
	var entries []extension.HelpEntry
	for _, p := range a.registry.Plugins() {
		if h, ok := p.(extension.Helper); ok {
			entries = append(entries, h.Help()...)
		}
	}
	return entries
}

// Stop stops polling and every pending trigger
func (a *App) Stop() error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return fmt.Errorf("assistant is not running")
	}
	a.running = false
	a.mu.Unlock()

	a.log.Info().Msg("Stopping assistant")

	if err := a.bot.Stop(); err != nil {
		a.log.Error().Err(err).Msg("Failed to stop telegram bot")
	}
	a.queue.Stop()
	a.cancel()
	a.wg.Wait()

	if err := a.lifecycle.Stop(); err != nil {
		a.log.Error().Err(err).Msg("Failed to stop lifecycle manager")
	}

	a.log.Info().Msg("Assistant stopped")
	return nil
}

// Status describes a running assistant
type Status struct {
	Running   bool          `json:"running"`
	Uptime    time.Duration `json:"uptime"`
	StartTime time.Time     `json:"startTime"`
	Plugins   int           `json:"plugins"`
	Jobs      int           `json:"jobs"`

	// Upcoming holds the soonest pending jobs
	Upcoming []jobqueue.Job `json:"upcoming"`
}

const statusUpcoming = 5

// Status returns the assistant status
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	jobs := a.queue.List()
	status := Status{
		Running:  a.running,
		Plugins:  len(a.registry.Plugins()),
		Jobs:     len(jobs),
		Upcoming: jobs[:min(len(jobs), statusUpcoming)],
	}
	if a.running {
		status.Uptime = time.Since(a.startTime)
		status.StartTime = a.startTime
	}
	return status
}

// Wait blocks until SIGINT or SIGTERM and stops the assistant
func (a *App) Wait() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	a.log.Info().Str("signal", sig.String()).Msg("Received signal")

	if err := a.Stop(); err != nil {
		a.log.Error().Err(err).Msg("Failed to stop assistant")
	}
}

// Registry returns the plugin registry
func (a *App) Registry() *extension.Registry {
	return a.registry
}

// Scheduler returns the plugin scheduler
func (a *App) Scheduler() *extension.Scheduler {
	return a.scheduler
}

// Queue returns the job queue
func (a *App) Queue() *jobqueue.Queue {
	return a.queue
}

// Bot returns the Telegram bot
func (a *App) Bot() *telegram.Bot {
	return a.bot
}

// Metrics returns the metrics registry
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// UnitErrors returns the plugin units that failed to load
func (a *App) UnitErrors() []error {
	return a.unitErrors
}
