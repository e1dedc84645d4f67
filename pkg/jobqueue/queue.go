package jobqueue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options configures a Queue
type Options struct {
	// Clock defaults to RealClock
	Clock Clock

	// Logger defaults to a no-op logger
	Logger *zerolog.Logger

	// OnEvent is called with the queue lock held and must not call back into the queue
	OnEvent func(evt Event)
}

// Queue keeps tagged one-off, daily and monthly jobs armed on a Clock
type Queue struct {
	mu      sync.Mutex
	jobs    map[string]*entry
	clock   Clock
	logger  zerolog.Logger
	onEvent func(evt Event)
	stopped bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type entry struct {
	job   Job
	spec  Spec
	timer Timer
}

// New creates a new job queue
func New(opts Options) *Queue {
	clock := opts.Clock
	if clock == nil {
		clock = NewRealClock()
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "jobqueue").Logger()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		jobs:    make(map[string]*entry),
		clock:   clock,
		logger:  logger,
		onEvent: opts.OnEvent,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Now returns the queue's current time
func (q *Queue) Now() time.Time {
	return q.clock.Now()
}

// Schedule registers a job under tag
func (q *Queue) Schedule(tag string, spec Spec) (Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return Job{}, fmt.Errorf("queue is stopped")
	}

	next, err := q.prepare(tag, spec)
	if err != nil {
		return Job{}, err
	}

	return q.scheduleLocked(tag, spec, next), nil
}

// ScheduleOnce registers a job that fires once at the given instant
func (q *Queue) ScheduleOnce(tag, name string, at time.Time, fn Func) (Job, error) {
	return q.Schedule(tag, Spec{Kind: KindOnce, At: at, Name: name, Run: fn})
}

// ScheduleDaily registers a job that fires every day at the clock time of at
func (q *Queue) ScheduleDaily(tag, name string, at time.Time, fn Func) (Job, error) {
	return q.Schedule(tag, Spec{Kind: KindDaily, At: at, Name: name, Run: fn})
}

// ScheduleMonthly registers a job that fires on the given day of every month
// at the clock time of at. Months without that day are skipped.
func (q *Queue) ScheduleMonthly(tag, name string, day int, at time.Time, fn Func) (Job, error) {
	return q.Schedule(tag, Spec{Kind: KindMonthly, At: at, Day: day, Name: name, Run: fn})
}

// ReplaceTag cancels every job under tag and registers specs in its place.
// Nothing changes if any spec is invalid.
func (q *Queue) ReplaceTag(tag string, specs []Spec) ([]Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return nil, fmt.Errorf("queue is stopped")
	}

	nexts := make([]time.Time, len(specs))
	for i, spec := range specs {
		next, err := q.prepare(tag, spec)
		if err != nil {
			return nil, fmt.Errorf("spec %d (%s): %w", i, spec.Name, err)
		}
		nexts[i] = next
	}

	cancelled := q.cancelTagLocked(tag)

	jobs := make([]Job, 0, len(specs))
	for i, spec := range specs {
		jobs = append(jobs, q.scheduleLocked(tag, spec, nexts[i]))
	}

	q.logger.Debug().
		Str("tag", tag).
		Int("cancelled", cancelled).
		Int("scheduled", len(jobs)).
		Msg("Tag replaced")

	return jobs, nil
}

// CancelTag cancels every job under tag and returns how many were removed
func (q *Queue) CancelTag(tag string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.cancelTagLocked(tag)
}

// ListTag returns snapshots of the jobs under tag, soonest first
func (q *Queue) ListTag(tag string) []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]Job, 0)
	for _, e := range q.jobs {
		if e.job.Tag == tag {
			jobs = append(jobs, e.job)
		}
	}
	sortJobs(jobs)
	return jobs
}

// List returns snapshots of all jobs, soonest first
func (q *Queue) List() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	jobs := make([]Job, 0, len(q.jobs))
	for _, e := range q.jobs {
		jobs = append(jobs, e.job)
	}
	sortJobs(jobs)
	return jobs
}

// Len returns the number of registered jobs
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.jobs)
}

// Stop cancels all jobs and rejects new ones. Running jobs see their context cancelled.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return
	}

	q.stopped = true
	q.cancel()

	for _, e := range q.jobs {
		e.timer.Stop()
	}
	q.jobs = make(map[string]*entry)

	q.logger.Info().Msg("Job queue stopped")
}

func (q *Queue) prepare(tag string, spec Spec) (time.Time, error) {
	if tag == "" {
		return time.Time{}, fmt.Errorf("job tag is required")
	}

	next, err := NextRun(spec, q.clock.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule: %w", err)
	}
	return next, nil
}

// scheduleLocked registers and arms a validated job (must hold lock)
func (q *Queue) scheduleLocked(tag string, spec Spec, next time.Time) Job {
	name := spec.Name
	if name == "" {
		name = string(spec.Kind)
	}

	e := &entry{
		job: Job{
			ID:      uuid.New().String(),
			Tag:     tag,
			Name:    name,
			Kind:    spec.Kind,
			Day:     spec.Day,
			NextRun: next,
		},
		spec: spec,
	}

	q.jobs[e.job.ID] = e
	q.armLocked(e)

	q.emitLocked(EventScheduled, e.job)

	return e.job
}

// armLocked starts the timer for the job's next run; past-due jobs fire immediately
func (q *Queue) armLocked(e *entry) {
	delay := e.job.NextRun.Sub(q.clock.Now())
	if delay < 0 {
		delay = 0
	}

	id := e.job.ID
	e.timer = q.clock.AfterFunc(delay, func() {
		q.fire(id)
	})

	q.logger.Debug().
		Str("jobId", id).
		Str("tag", e.job.Tag).
		Str("name", e.job.Name).
		Dur("delay", delay).
		Time("nextRun", e.job.NextRun).
		Msg("Job scheduled")
}

func (q *Queue) cancelTagLocked(tag string) int {
	n := 0
	for _, e := range q.jobs {
		if e.job.Tag == tag {
			q.removeLocked(e, EventCancelled)
			n++
		}
	}
	return n
}

func (q *Queue) removeLocked(e *entry, action EventAction) {
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(q.jobs, e.job.ID)
	q.emitLocked(action, e.job)
}

func (q *Queue) emitLocked(action EventAction, job Job) {
	if q.onEvent == nil {
		return
	}
	q.onEvent(Event{
		Action:  action,
		JobID:   job.ID,
		Tag:     job.Tag,
		Kind:    job.Kind,
		Pending: len(q.jobs),
	})
}

// fire runs a job outside the lock. One-off jobs leave the queue before they run;
// recurring jobs are re-armed afterwards unless they were cancelled meanwhile.
func (q *Queue) fire(id string) {
	q.mu.Lock()
	e, exists := q.jobs[id]
	if !exists || q.stopped {
		q.mu.Unlock()
		q.logger.Debug().Str("jobId", id).Msg("Job no longer exists, skipping execution")
		return
	}

	started := q.clock.Now()
	e.job.LastRun = started
	e.job.Runs++
	if e.spec.Kind == KindOnce {
		q.removeLocked(e, EventFired)
	} else {
		q.emitLocked(EventFired, e.job)
	}
	job := e.job
	run := e.spec.Run
	ctx := q.ctx
	q.mu.Unlock()

	q.logger.Debug().Str("jobId", id).Str("tag", job.Tag).Str("name", job.Name).Msg("Executing job")

	q.run(ctx, job, run)

	if job.Kind == KindOnce {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	current, exists := q.jobs[id]
	if !exists || q.stopped {
		return
	}

	next, err := NextRun(current.spec, q.clock.Now())
	if err != nil {
		q.logger.Error().Str("jobId", id).Err(err).Msg("Failed to calculate next run")
		q.removeLocked(current, EventCancelled)
		return
	}
	current.job.NextRun = next
	q.armLocked(current)
}

func (q *Queue) run(ctx context.Context, job Job, fn Func) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error().
				Str("jobId", job.ID).
				Str("tag", job.Tag).
				Str("name", job.Name).
				Interface("panic", r).
				Msg("Job panicked")
		}
	}()

	fn(ctx)
}

func sortJobs(jobs []Job) {
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].NextRun.Equal(jobs[j].NextRun) {
			return jobs[i].ID < jobs[j].ID
		}
		return jobs[i].NextRun.Before(jobs[j].NextRun)
	})
}
