package jobqueue

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Validate reports whether spec can be registered
func (s Spec) Validate() error {
	if s.Run == nil {
		return fmt.Errorf("job function is required")
	}

	switch s.Kind {
	case KindOnce:
		if s.At.IsZero() {
			return fmt.Errorf("'once' job requires a time")
		}
	case KindDaily:
	case KindMonthly:
		if s.Day < 1 || s.Day > 31 {
			return fmt.Errorf("'monthly' job requires a day between 1 and 31, got %d", s.Day)
		}
	default:
		return fmt.Errorf("unknown job kind: %q", s.Kind)
	}

	return nil
}

// Expr returns the six-field cron expression of a recurring spec
func (s Spec) Expr() string {
	switch s.Kind {
	case KindDaily:
		return fmt.Sprintf("%d %d %d * * *", s.At.Second(), s.At.Minute(), s.At.Hour())
	case KindMonthly:
		return fmt.Sprintf("%d %d %d %d * *", s.At.Second(), s.At.Minute(), s.At.Hour(), s.Day)
	default:
		return ""
	}
}

// NextRun calculates the first run of spec strictly after now. One-off jobs
// return their instant unchanged, even if it is already in the past.
func NextRun(spec Spec, now time.Time) (time.Time, error) {
	if err := spec.Validate(); err != nil {
		return time.Time{}, err
	}

	if spec.Kind == KindOnce {
		return spec.At, nil
	}

	sched, err := parser.Parse(spec.Expr())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}

	// The schedule carries no location, so it is evaluated in the location of now.
	next := sched.Next(now.In(spec.At.Location()))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no upcoming run for %q", spec.Expr())
	}

	return next, nil
}
