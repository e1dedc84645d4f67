package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ggeorg0/life-assistant/pkg/notion"
)

type fakeCalendar struct {
	events     []notion.Event
	archived   []string
	archiveErr error
}

func (f *fakeCalendar) CalendarEvents(ctx context.Context) ([]notion.Event, error) {
	return f.events, nil
}

func (f *fakeCalendar) ArchivePage(ctx context.Context, id string) error {
	if f.archiveErr != nil {
		return f.archiveErr
	}
	f.archived = append(f.archived, id)
	return nil
}

var now = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func createTestPlugin(cal Calendar, day int) *Plugin {
	return New(cal, Options{
		Day:      day,
		Time:     3 * time.Hour,
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
}

func TestRemovePast(t *testing.T) {
	cal := &fakeCalendar{events: []notion.Event{
		{ID: "old", Start: now.AddDate(0, 0, -3)},
		{ID: "today", Start: now.Add(-2 * time.Hour)},
		{ID: "range-over", Start: now.AddDate(0, 0, -5), End: now.AddDate(0, 0, -1)},
		{ID: "range-running", Start: now.AddDate(0, 0, -5), End: now.AddDate(0, 0, 1)},
		{ID: "future", Start: now.AddDate(0, 0, 2)},
	}}
	p := createTestPlugin(cal, 1)

	res, err := p.removePast(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2 past events have been deleted!", res.Message)
	assert.Equal(t, []string{"old", "range-over"}, cal.archived)
}

func TestRemovePastError(t *testing.T) {
	cal := &fakeCalendar{
		events:     []notion.Event{{ID: "old", Start: now.AddDate(0, 0, -3)}},
		archiveErr: errors.New("notion down"),
	}

	_, err := createTestPlugin(cal, 1).removePast(context.Background())
	assert.Error(t, err)
}

func TestMonthlyEvent(t *testing.T) {
	events := createTestPlugin(&fakeCalendar{}, 15).MonthlyEvents()
	require.Len(t, events, 1)
	assert.Equal(t, 15, events[0].Day)
	assert.Equal(t, 3, events[0].At.Hour())
	assert.Equal(t, "remove_past_events", events[0].Action.Name)

	assert.Empty(t, createTestPlugin(&fakeCalendar{}, 0).MonthlyEvents())
}
