package extension

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ggeorg0/life-assistant/pkg/jobqueue"
)

// CommandRequest is one command invocation delivered by the transport
type CommandRequest struct {
	Target int64 // chat the command came from; replies go back there
	UserID int64
	Args   []string
}

// CommandHandler handles one command invocation
type CommandHandler func(ctx context.Context, req CommandRequest)

// Transport is the chat side of the scheduler
type Transport interface {
	RegisterCommand(name string, handler CommandHandler)
	UnregisterCommand(name string)
	SendMessage(ctx context.Context, target int64, text string) error
}

// Timers is the trigger substrate of the scheduler; *jobqueue.Queue implements it
type Timers interface {
	Now() time.Time
	ScheduleOnce(tag, name string, at time.Time, fn jobqueue.Func) (jobqueue.Job, error)
	ReplaceTag(tag string, specs []jobqueue.Spec) ([]jobqueue.Job, error)
	CancelTag(tag string) int
	ListTag(tag string) []jobqueue.Job
}

// Outcome classifies a finished action invocation
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeError    Outcome = "error"
	OutcomePanic    Outcome = "panic"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeRejected Outcome = "rejected"
)

// Observer receives one call per action invocation
type Observer interface {
	ObserveAction(plugin, action string, outcome Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveAction(string, string, Outcome, time.Duration) {}

// RescheduleSummary reports the outcome of a reschedule
type RescheduleSummary struct {
	Plugins  int // enabled plugins processed
	Triggers int // triggers registered
}

// SchedulerConfig configures a Scheduler
type SchedulerConfig struct {
	Registry  *Registry
	Timers    Timers
	Transport Transport

	// Target receives the messages of time-based events
	Target int64

	// Authorize decides whether a chat may run commands; nil allows every chat
	Authorize func(target int64) bool

	Observer Observer
	Logger   zerolog.Logger
}

// Scheduler binds plugin commands and events and dispatches every action
// through the same envelope.
type Scheduler struct {
	registry  *Registry
	timers    Timers
	transport Transport
	target    int64
	authorize func(target int64) bool
	observer  Observer
	logger    zerolog.Logger

	// mu serializes trigger rebuilds and command binding
	mu    sync.Mutex
	bound map[string]string // command -> plugin
	tags  map[string]struct{}
}

// NewScheduler creates a scheduler and hooks it into the registry: the
// manager's reschedule commands call Reschedule, disabling a plugin cancels
// its triggers and enabling it rebuilds them.
func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Timers == nil {
		return nil, fmt.Errorf("timers are required")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required")
	}

	observer := cfg.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	s := &Scheduler{
		registry:  cfg.Registry,
		timers:    cfg.Timers,
		transport: cfg.Transport,
		target:    cfg.Target,
		authorize: cfg.Authorize,
		observer:  observer,
		logger:    cfg.Logger.With().Str("component", "scheduler").Logger(),
		bound:     make(map[string]string),
		tags:      make(map[string]struct{}),
	}

	cfg.Registry.Manager().SetRescheduler(s)
	cfg.Registry.OnStateChange(s.onStateChange)

	return s, nil
}

// Start binds all commands and registers all time-based triggers
func (s *Scheduler) Start(ctx context.Context) (RescheduleSummary, error) {
	commands := s.BindCommands()
	summary, err := s.Reschedule(ctx)

	s.logger.Info().
		Int("commands", commands).
		Int("plugins", summary.Plugins).
		Int("triggers", summary.Triggers).
		Msg("Scheduler started")

	return summary, err
}

// BindCommands registers the commands of every enabled plugin with the
// transport. Commands no registered plugin declares any more are unbound;
// commands of disabled plugins stay bound so they can answer with a rejection.
func (s *Scheduler) BindCommands() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, bc := range s.registry.UserCommands() {
		s.bindLocked(bc.Plugin, bc.Command)
		n++
	}

	// command -> plugin name -> declaration
	declared := make(map[string]map[string]BoundCommand)
	for _, p := range s.registry.Plugins() {
		for _, cmd := range p.UserCommands() {
			if declared[cmd.Name] == nil {
				declared[cmd.Name] = make(map[string]BoundCommand)
			}
			declared[cmd.Name][p.Name()] = BoundCommand{Plugin: p, Command: cmd}
		}
	}
	for name, owner := range s.bound {
		if _, ok := declared[name][owner]; ok {
			continue
		}
		if len(declared[name]) == 0 {
			delete(s.bound, name)
			s.transport.UnregisterCommand(name)
			s.logger.Info().Str("command", name).Str("plugin", owner).Msg("Command unbound")
			continue
		}
		for _, bc := range declared[name] {
			s.bindLocked(bc.Plugin, bc.Command)
			break
		}
	}
	return n
}

// BoundCommands returns a copy of the command to plugin binding
func (s *Scheduler) BoundCommands() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.bound))
	for k, v := range s.bound {
		out[k] = v
	}
	return out
}

func (s *Scheduler) bindLocked(p Plugin, cmd Command) {
	if owner, exists := s.bound[cmd.Name]; exists && owner != p.Name() {
		s.logger.Warn().
			Str("command", cmd.Name).
			Str("previous", owner).
			Str("plugin", p.Name()).
			Msg("Command already bound by another plugin, rebinding")
	}
	s.bound[cmd.Name] = p.Name()
	s.transport.RegisterCommand(cmd.Name, s.commandHandler(p, cmd))
}

func (s *Scheduler) commandHandler(p Plugin, cmd Command) CommandHandler {
	return func(ctx context.Context, req CommandRequest) {
		if s.authorize != nil && !s.authorize(req.Target) {
			s.logger.Warn().
				Int64("chatId", req.Target).
				Int64("userId", req.UserID).
				Str("command", cmd.Name).
				Msg("Unauthorized command ignored")
			s.observer.ObserveAction(p.Name(), cmd.Action.Name, OutcomeRejected, 0)
			return
		}

		if !p.Enabled() {
			s.observer.ObserveAction(p.Name(), cmd.Action.Name, OutcomeRejected, 0)
			s.send(ctx, req.Target, fmt.Sprintf("Plugin <b>%s</b> is disabled", html.EscapeString(p.Name())), s.logger)
			return
		}

		s.Execute(ctx, p, cmd.Action, req.Target, req.Args...)
	}
}

// Reschedule cancels every trigger of every plugin and registers the current
// declarations of the enabled ones. Running it twice in a row leaves the same
// trigger set as running it once.
func (s *Scheduler) Reschedule(ctx context.Context) (RescheduleSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		summary RescheduleSummary
		errs    []error
	)

	current := make(map[string]struct{})
	for _, p := range s.registry.Plugins() {
		current[p.Name()] = struct{}{}

		n, err := s.rescheduleLocked(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if p.Enabled() {
			summary.Plugins++
			summary.Triggers += n
		}
	}

	// Plugins dropped by SetPlugins lose their triggers too.
	for tag := range s.tags {
		if _, ok := current[tag]; !ok {
			s.timers.CancelTag(tag)
			delete(s.tags, tag)
		}
	}

	s.logger.Info().
		Int("plugins", summary.Plugins).
		Int("triggers", summary.Triggers).
		Msg("Notifications rescheduled")

	return summary, errors.Join(errs...)
}

// rescheduleLocked replaces the triggers tagged with the plugin name in one step (must hold lock)
func (s *Scheduler) rescheduleLocked(p Plugin) (int, error) {
	var specs []jobqueue.Spec
	if p.Enabled() {
		specs = s.specsFor(p)
	}

	jobs, err := s.timers.ReplaceTag(p.Name(), specs)
	if err != nil {
		s.logger.Error().Err(err).Str("plugin", p.Name()).Msg("Failed to reschedule plugin")
		return 0, fmt.Errorf("reschedule %s: %w", p.Name(), err)
	}
	s.tags[p.Name()] = struct{}{}

	return len(jobs), nil
}

func (s *Scheduler) specsFor(p Plugin) []jobqueue.Spec {
	now := s.timers.Now()
	logger := s.logger.With().Str("plugin", p.Name()).Logger()

	var specs []jobqueue.Spec
	add := func(spec jobqueue.Spec) {
		if err := spec.Validate(); err != nil {
			logger.Warn().Err(err).Str("action", spec.Name).Msg("Skipping invalid event")
			return
		}
		specs = append(specs, spec)
	}

	for _, evt := range p.DailyEvents() {
		add(jobqueue.Spec{Kind: jobqueue.KindDaily, At: evt.At, Name: evt.Action.Name, Run: s.eventJob(p, evt.Action)})
	}
	for _, evt := range p.MonthlyEvents() {
		add(jobqueue.Spec{Kind: jobqueue.KindMonthly, At: evt.At, Day: evt.Day, Name: evt.Action.Name, Run: s.eventJob(p, evt.Action)})
	}
	for _, evt := range p.DisorderedEvents() {
		if !evt.At.After(now) {
			logger.Warn().
				Str("action", evt.Action.Name).
				Time("at", evt.At).
				Msg("Skipping one-off event in the past")
			continue
		}
		add(jobqueue.Spec{Kind: jobqueue.KindOnce, At: evt.At, Name: evt.Action.Name, Run: s.eventJob(p, evt.Action)})
	}

	return specs
}

func (s *Scheduler) eventJob(p Plugin, action Action) jobqueue.Func {
	return s.triggerJob(p, action, s.target)
}

// triggerJob runs action for target when a trigger fires, unless the plugin was disabled meanwhile
func (s *Scheduler) triggerJob(p Plugin, action Action, target int64) jobqueue.Func {
	return func(ctx context.Context) {
		if !p.Enabled() {
			s.logger.Debug().Str("plugin", p.Name()).Str("action", action.Name).Msg("Plugin disabled, trigger skipped")
			return
		}
		s.Execute(ctx, p, action, target)
	}
}

func (s *Scheduler) onStateChange(p Plugin, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !enabled {
		n := s.timers.CancelTag(p.Name())
		s.logger.Info().Str("plugin", p.Name()).Int("cancelled", n).Msg("Plugin triggers cancelled")
		return
	}

	for _, cmd := range p.UserCommands() {
		s.bindLocked(p, cmd)
	}
	if _, err := s.rescheduleLocked(p); err == nil {
		s.logger.Info().Str("plugin", p.Name()).Msg("Plugin triggers restored")
	}
}

// Execute runs one action and applies its result: the message goes to target
// and a follow-up becomes a one-off trigger tagged with the plugin name.
// Failures are logged and never propagate.
//
// An invocation already running when its plugin is disabled still completes
// and may still register a follow-up after the plugin's triggers were
// cancelled. That follow-up is skipped when it fires.
func (s *Scheduler) Execute(ctx context.Context, p Plugin, action Action, target int64, args ...string) {
	logger := s.logger.With().Str("plugin", p.Name()).Str("action", action.Name).Logger()

	start := s.timers.Now()
	result, err := s.invoke(ctx, p, action, args)
	elapsed := s.timers.Now().Sub(start)

	if err != nil {
		outcome := OutcomeError
		var actionErr *ActionError
		if errors.As(err, &actionErr) && actionErr.Panicked {
			outcome = OutcomePanic
		}
		s.observer.ObserveAction(p.Name(), action.Name, outcome, elapsed)
		logger.Error().Err(err).Msg("Action failed")
		return
	}

	if err := result.Validate(); err != nil {
		s.observer.ObserveAction(p.Name(), action.Name, OutcomeInvalid, elapsed)
		logger.Warn().Err(err).Msg("Ignoring invalid action result")
		return
	}

	s.observer.ObserveAction(p.Name(), action.Name, OutcomeOK, elapsed)

	if result.HasMessage() {
		s.send(ctx, target, result.Message, logger)
	}

	if result.HasFollowUp() {
		next := *result.NextAction
		job, err := s.timers.ScheduleOnce(p.Name(), next.Name, result.NextTime, s.triggerJob(p, next, target))
		if err != nil {
			logger.Error().Err(err).Str("next", next.Name).Msg("Failed to schedule follow-up")
			return
		}
		logger.Debug().Str("next", next.Name).Str("jobId", job.ID).Time("at", result.NextTime).Msg("Follow-up scheduled")
	}
}

func (s *Scheduler) invoke(ctx context.Context, p Plugin, action Action, args []string) (result ActionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = ActionResult{}
			err = &ActionError{Plugin: p.Name(), Action: action.Name, Err: fmt.Errorf("%v", r), Panicked: true}
		}
	}()

	result, err = action.Call(ctx, args...)
	if err != nil {
		return ActionResult{}, &ActionError{Plugin: p.Name(), Action: action.Name, Err: err}
	}
	return result, nil
}

func (s *Scheduler) send(ctx context.Context, target int64, text string, logger zerolog.Logger) {
	if err := s.transport.SendMessage(ctx, target, text); err != nil {
		logger.Error().Err(err).Int64("chatId", target).Msg("Failed to deliver message")
	}
}
