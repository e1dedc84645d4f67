package extension

import (
	"context"
	"fmt"
	"time"
)

// ActionFunc is the body of an action. Expected user errors belong in the
// result message; a returned error (or a panic) is an unexpected failure.
type ActionFunc func(ctx context.Context, args ...string) (ActionResult, error)

// Action is a named plugin callable
type Action struct {
	Name string
	Fn   ActionFunc
}

// NewAction creates a named action
func NewAction(name string, fn ActionFunc) Action {
	return Action{Name: name, Fn: fn}
}

// Call runs the action
func (a Action) Call(ctx context.Context, args ...string) (ActionResult, error) {
	if a.Fn == nil {
		return ActionResult{}, fmt.Errorf("action %q has no body", a.Name)
	}
	return a.Fn(ctx, args...)
}

// ActionResult is what an action hands back to the dispatcher: an optional
// message for the originating chat and an optional follow-up action to run
// once at NextTime. NextAction and NextTime are set together or not at all.
type ActionResult struct {
	Message    string
	NextAction *Action
	NextTime   time.Time
}

// Reply returns a result carrying only a message
func Reply(msg string) ActionResult {
	return ActionResult{Message: msg}
}

// Replyf returns a result carrying only a formatted message
func Replyf(format string, args ...any) ActionResult {
	return ActionResult{Message: fmt.Sprintf(format, args...)}
}

// FollowUp returns a result that schedules next at the given time
func FollowUp(next Action, at time.Time) ActionResult {
	return ActionResult{NextAction: &next, NextTime: at}
}

// WithFollowUp adds a follow-up to a result
func (r ActionResult) WithFollowUp(next Action, at time.Time) ActionResult {
	r.NextAction = &next
	r.NextTime = at
	return r
}

// HasMessage reports whether the result carries a message
func (r ActionResult) HasMessage() bool {
	return r.Message != ""
}

// HasFollowUp reports whether the result carries a complete follow-up
func (r ActionResult) HasFollowUp() bool {
	return r.NextAction != nil && !r.NextTime.IsZero()
}

// Validate rejects results that carry half of a follow-up
func (r ActionResult) Validate() error {
	hasAction := r.NextAction != nil
	hasTime := !r.NextTime.IsZero()

	switch {
	case hasAction && !hasTime:
		return fmt.Errorf("%w: next action %q without a time", ErrInvalidActionResult, r.NextAction.Name)
	case hasTime && !hasAction:
		return fmt.Errorf("%w: next time %s without an action", ErrInvalidActionResult, r.NextTime.Format(time.RFC3339))
	case hasAction && r.NextAction.Fn == nil:
		return fmt.Errorf("%w: next action %q has no body", ErrInvalidActionResult, r.NextAction.Name)
	}
	return nil
}
