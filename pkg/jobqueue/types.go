package jobqueue

import (
	"context"
	"time"
)

// Kind represents the recurrence of a job
type Kind string

const (
	KindOnce    Kind = "once"
	KindDaily   Kind = "daily"
	KindMonthly Kind = "monthly"
)

// Func is the work a job performs when it fires
type Func func(ctx context.Context)

// Spec describes a job to register.
//
// For KindOnce, At is the absolute instant. For KindDaily and KindMonthly only
// the clock time of At is used, interpreted in At's location; KindMonthly also
// requires Day (1-31).
type Spec struct {
	Kind Kind
	At   time.Time
	Day  int
	Name string
	Run  Func
}

// Job is a snapshot of a registered job
type Job struct {
	ID      string    `json:"id"`
	Tag     string    `json:"tag"`
	Name    string    `json:"name"`
	Kind    Kind      `json:"kind"`
	Day     int       `json:"day,omitempty"`
	NextRun time.Time `json:"nextRun"`
	LastRun time.Time `json:"lastRun,omitempty"`
	Runs    int       `json:"runs"`
}

// EventAction represents the type of event
type EventAction string

const (
	EventScheduled EventAction = "scheduled"
	EventFired     EventAction = "fired"
	EventCancelled EventAction = "cancelled"
)

// Event represents a job lifecycle event
type Event struct {
	Action  EventAction
	JobID   string
	Tag     string
	Kind    Kind
	Pending int // jobs registered after the event
}
