package notion

import "time"

// InboxPage is one captured note
type InboxPage struct {
	ID    string
	Title string
}

// Task is one entry of the current tasks list
type Task struct {
	ID    string
	Title string
}

// Event is one calendar entry. End is zero for single-point events.
type Event struct {
	ID    string
	Title string
	Start time.Time
	End   time.Time
}

// HasEnd reports whether the event spans a range
func (e Event) HasEnd() bool {
	return !e.End.IsZero()
}

// Passed reports whether the event ended before the day of now
func (e Event) Passed(now time.Time) bool {
	last := e.Start
	if e.HasEnd() {
		last = e.End
	}
	return dateOf(last, now.Location()).Before(dateOf(now, now.Location()))
}

// OccursOn reports whether the event starts on day or spans it
func (e Event) OccursOn(day time.Time) bool {
	loc := day.Location()
	d := dateOf(day, loc)
	start := dateOf(e.Start, loc)

	if start.Equal(d) {
		return true
	}
	return e.HasEnd() && !start.After(d) && !dateOf(e.End, loc).Before(d)
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// LessonSlot is the start and end of one numbered lesson as offsets from midnight
type LessonSlot struct {
	Start time.Duration
	End   time.Duration
}

// Lesson is one entry of a day's university schedule
type Lesson struct {
	Number   int
	Slot     LessonSlot
	Subject  string
	Lecturer string
	Room     string
}

// Parity selects the weeks a lesson takes place on
type Parity int

const (
	EveryWeek Parity = iota
	OddWeeks
	EvenWeeks
)

// Matches reports whether a lesson with this parity takes place in the given week
func (p Parity) Matches(evenWeek bool) bool {
	switch p {
	case OddWeeks:
		return !evenWeek
	case EvenWeeks:
		return evenWeek
	default:
		return true
	}
}

// IsEvenWeek reports whether day falls into an even ISO week
func IsEvenWeek(day time.Time) bool {
	_, week := day.ISOWeek()
	return week%2 == 0
}
