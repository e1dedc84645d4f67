package extension

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/ggeorg0/life-assistant/pkg/jobqueue"
)

var testStart = time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)

const ownerChat int64 = 1001

type testPlugin struct {
	*Base
	commands   []Command
	daily      []Event
	monthly    []Event
	disordered []Event
	help       []HelpEntry
}

func newTestPlugin(name string) *testPlugin {
	return &testPlugin{Base: NewBase(name)}
}

func (p *testPlugin) UserCommands() []Command   { return p.commands }
func (p *testPlugin) DailyEvents() []Event      { return p.daily }
func (p *testPlugin) MonthlyEvents() []Event    { return p.monthly }
func (p *testPlugin) DisorderedEvents() []Event { return p.disordered }
func (p *testPlugin) Help() []HelpEntry         { return p.help }

type sentMessage struct {
	Target int64
	Text   string
}

type fakeTransport struct {
	mu       sync.Mutex
	handlers map[string]CommandHandler
	sent     []sentMessage
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]CommandHandler)}
}

func (f *fakeTransport) RegisterCommand(name string, handler CommandHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = handler
}

func (f *fakeTransport) UnregisterCommand(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, name)
}

func (f *fakeTransport) SendMessage(ctx context.Context, target int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Target: target, Text: text})
	return nil
}

func (f *fakeTransport) command(t *testing.T, name string, target int64, args ...string) {
	t.Helper()
	f.mu.Lock()
	handler, ok := f.handlers[name]
	f.mu.Unlock()
	require.True(t, ok, "command %q not bound", name)
	handler(context.Background(), CommandRequest{Target: target, UserID: target, Args: args})
}

func (f *fakeTransport) has(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.handlers[name]
	return ok
}

func (f *fakeTransport) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		out = append(out, m.Text)
	}
	return out
}

func (f *fakeTransport) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMessage{}
	}
	return f.sent[len(f.sent)-1]
}

type observed struct {
	Plugin  string
	Action  string
	Outcome Outcome
	Elapsed time.Duration
}

type recordingObserver struct {
	mu     sync.Mutex
	events []observed
}

func (o *recordingObserver) ObserveAction(plugin, action string, outcome Outcome, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, observed{Plugin: plugin, Action: action, Outcome: outcome, Elapsed: elapsed})
}

func (o *recordingObserver) last() observed {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.events) == 0 {
		return observed{}
	}
	return o.events[len(o.events)-1]
}

func (o *recordingObserver) outcomes() []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Outcome, 0, len(o.events))
	for _, e := range o.events {
		out = append(out, e.Outcome)
	}
	return out
}

type testEnv struct {
	registry  *Registry
	queue     *jobqueue.Queue
	clock     *jobqueue.MockClock
	transport *fakeTransport
	observer  *recordingObserver
	scheduler *Scheduler
}

func newTestEnv(t *testing.T, plugins ...Plugin) *testEnv {
	t.Helper()

	clock := jobqueue.NewMockClock(testStart)
	queue := jobqueue.New(jobqueue.Options{Clock: clock})
	t.Cleanup(queue.Stop)

	registry := NewRegistry(zerolog.Nop())
	registry.SetPlugins(plugins)

	transport := newFakeTransport()
	observer := &recordingObserver{}

	scheduler, err := NewScheduler(SchedulerConfig{
		Registry:  registry,
		Timers:    queue,
		Transport: transport,
		Target:    ownerChat,
		Authorize: func(target int64) bool { return target == ownerChat },
		Observer:  observer,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)

	_, err = scheduler.Start(context.Background())
	require.NoError(t, err)

	return &testEnv{
		registry:  registry,
		queue:     queue,
		clock:     clock,
		transport: transport,
		observer:  observer,
		scheduler: scheduler,
	}
}

func replyAction(name, msg string) Action {
	return NewAction(name, func(ctx context.Context, args ...string) (ActionResult, error) {
		return Reply(msg), nil
	})
}

func timeOfDay(h, m, s int) time.Time {
	return time.Date(2000, 1, 1, h, m, s, 0, time.UTC)
}
