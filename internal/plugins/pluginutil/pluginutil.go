// Package pluginutil holds helpers shared by the builtin plugins.
package pluginutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrTimeUsage is returned when time arguments are missing or not numbers.
// Its message is meant for the user.
var ErrTimeUsage = errors.New("You should provide your command with hours, minutes and seconds like this:\n" +
	"/your_command HH MM SS\n" +
	"or\n" +
	"/your_command HH:MM[:SS]")

// ParseTimeArgs reads a time of day from command arguments given either as
// "HH MM [SS]" or as a single "HH:MM[:SS]". The result is an offset from midnight.
func ParseTimeArgs(args []string) (time.Duration, error) {
	var parts []string
	switch {
	case len(args) == 1 && strings.Contains(args[0], ":"):
		parts = strings.Split(args[0], ":")
	default:
		parts = args
	}
	if len(parts) < 2 || len(parts) > 3 {
		return 0, ErrTimeUsage
	}

	values := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return 0, ErrTimeUsage
		}
		values[i] = n
	}

	h, m, s := values[0], values[1], values[2]
	switch {
	case h < 0 || h > 23:
		return 0, fmt.Errorf("hour must be in 0..23")
	case m < 0 || m > 59:
		return 0, fmt.Errorf("minute must be in 0..59")
	case s < 0 || s > 59:
		return 0, fmt.Errorf("second must be in 0..59")
	}

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, nil
}

// ClockAt returns a point in time whose clock reading in loc is the offset d
// from midnight. Only the time of day is meaningful.
func ClockAt(d time.Duration, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, loc)
	return base.Add(d)
}

// NextClock returns the first instant after now whose clock reading is d.
// The reading is built from wall-clock fields so days with a DST shift keep it.
func NextClock(now time.Time, d time.Duration) time.Time {
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)

	next := time.Date(now.Year(), now.Month(), now.Day(), h, m, s, 0, now.Location())
	if !next.After(now) {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		next = time.Date(day.Year(), day.Month(), day.Day(), h, m, s, 0, now.Location())
	}
	return next
}

// FormatClock renders an offset from midnight as HH:MM:SS
func FormatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatSpan renders a duration as H:MM:SS
func FormatSpan(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

// IntArg parses args[i] as an integer, returning def when the argument is absent
func IntArg(args []string, i, def int) (int, error) {
	if i >= len(args) {
		return def, nil
	}
	return strconv.Atoi(args[i])
}

// Clock returns the current time; plugins take one so tests can pin it
type Clock func() time.Time

// OrNow returns c, or time.Now when c is nil
func (c Clock) OrNow() Clock {
	if c == nil {
		return time.Now
	}
	return c
}
