package notion

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type queryCall struct {
	DB  notionapi.DatabaseID
	Req notionapi.DatabaseQueryRequest
}

type fakeDatabases struct {
	mu        sync.Mutex
	responses map[notionapi.Cursor]*notionapi.DatabaseQueryResponse
	errs      []error
	calls     []queryCall
}

func (f *fakeDatabases) Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, queryCall{DB: id, Req: *req})
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	resp, ok := f.responses[req.StartCursor]
	if !ok {
		return &notionapi.DatabaseQueryResponse{}, nil
	}
	return resp, nil
}

type updateCall struct {
	ID       notionapi.PageID
	Archived bool
}

type fakePages struct {
	mu      sync.Mutex
	created []notionapi.PageCreateRequest
	updated []updateCall
	errs    []error
}

func (f *fakePages) Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		return nil, err
	}
	f.created = append(f.created, *req)
	return &notionapi.Page{ID: notionapi.ObjectID("new-page")}, nil
}

func (f *fakePages) Update(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updated = append(f.updated, updateCall{ID: id, Archived: req.Archived})
	return &notionapi.Page{ID: notionapi.ObjectID(id)}, nil
}

func createTestClient(cfg Config) (*Client, *fakeDatabases, *fakePages) {
	dbs := &fakeDatabases{responses: make(map[notionapi.Cursor]*notionapi.DatabaseQueryResponse)}
	pages := &fakePages{}
	c := newClient(cfg, dbs, pages, zerolog.Nop())
	c.newBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 3)
	}
	return c, dbs, pages
}

func titled(id, title string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			PropName: &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: title}}},
		},
	}
}

func dated(id, title string, start, end time.Time) notionapi.Page {
	p := titled(id, title)
	obj := &notionapi.DateObject{}
	if !start.IsZero() {
		s := notionapi.Date(start)
		obj.Start = &s
	}
	if !end.IsZero() {
		e := notionapi.Date(end)
		obj.End = &e
	}
	p.Properties[PropDate] = &notionapi.DateProperty{Date: obj}
	return p
}

func lesson(id, weekday, week string, number float64, subject string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			PropWeekday:  &notionapi.SelectProperty{Select: notionapi.Option{Name: weekday}},
			PropWeek:     &notionapi.SelectProperty{Select: notionapi.Option{Name: week}},
			PropNumber:   &notionapi.NumberProperty{Number: number},
			PropSubject:  &notionapi.TitleProperty{Title: []notionapi.RichText{{PlainText: subject}}},
			PropLecturer: &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: "Ivanov"}}},
			PropRoom:     &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: "A-101"}}},
		},
	}
}

func apiError(status int) error {
	return &notionapi.Error{Status: status, Message: http.StatusText(status)}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		rateLimited bool
		unavailable bool
	}{
		{name: "rate limited", err: apiError(http.StatusTooManyRequests), rateLimited: true},
		{name: "service unavailable", err: apiError(http.StatusServiceUnavailable), unavailable: true},
		{name: "bad gateway", err: apiError(http.StatusBadGateway), unavailable: true},
		{name: "gateway timeout", err: apiError(http.StatusGatewayTimeout), unavailable: true},
		{name: "validation", err: apiError(http.StatusBadRequest)},
		{name: "wrapped", err: errors.Join(errors.New("ctx"), apiError(http.StatusTooManyRequests)), rateLimited: true},
		{name: "plain", err: errors.New("boom")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.rateLimited, IsRateLimited(tt.err))
			assert.Equal(t, tt.unavailable, IsUnavailable(tt.err))
			assert.Equal(t, tt.rateLimited || tt.unavailable, IsRetryable(tt.err))
		})
	}
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{}, zerolog.Nop())
	assert.Error(t, err)
}

func TestCreateInboxPage(t *testing.T) {
	c, _, pages := createTestClient(Config{InboxDatabase: "inbox-db"})

	id, err := c.CreateInboxPage(context.Background(), "  buy milk ")
	require.NoError(t, err)
	assert.Equal(t, "new-page", id)

	require.Len(t, pages.created, 1)
	req := pages.created[0]
	assert.Equal(t, notionapi.DatabaseID("inbox-db"), req.Parent.DatabaseID)
	title, ok := req.Properties[PropName].(*notionapi.TitleProperty)
	require.True(t, ok)
	require.Len(t, title.Title, 1)
	assert.Equal(t, "buy milk", title.Title[0].Text.Content)
}

func TestCreateInboxPageErrors(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		c, _, _ := createTestClient(Config{})
		_, err := c.CreateInboxPage(context.Background(), "x")
		assert.ErrorIs(t, err, ErrNotConfigured)
	})

	t.Run("empty title", func(t *testing.T) {
		c, _, _ := createTestClient(Config{InboxDatabase: "inbox-db"})
		_, err := c.CreateInboxPage(context.Background(), "   ")
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("retries rate limiting", func(t *testing.T) {
		c, _, pages := createTestClient(Config{InboxDatabase: "inbox-db"})
		pages.errs = []error{apiError(http.StatusTooManyRequests), apiError(http.StatusServiceUnavailable)}

		_, err := c.CreateInboxPage(context.Background(), "x")
		require.NoError(t, err)
		assert.Len(t, pages.created, 1)
	})

	t.Run("gives up and keeps the status", func(t *testing.T) {
		c, _, pages := createTestClient(Config{InboxDatabase: "inbox-db"})
		for i := 0; i < 4; i++ {
			pages.errs = append(pages.errs, apiError(http.StatusTooManyRequests))
		}

		_, err := c.CreateInboxPage(context.Background(), "x")
		require.Error(t, err)
		assert.True(t, IsRateLimited(err))
		assert.Empty(t, pages.created)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		c, _, pages := createTestClient(Config{InboxDatabase: "inbox-db"})
		pages.errs = []error{apiError(http.StatusBadRequest), apiError(http.StatusBadRequest)}

		_, err := c.CreateInboxPage(context.Background(), "x")
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))
		assert.Len(t, pages.errs, 1)
	})
}

func TestLogDone(t *testing.T) {
	c, _, pages := createTestClient(Config{})
	require.NoError(t, c.LogDone(context.Background(), "task"))
	assert.Empty(t, pages.created)

	c, _, pages = createTestClient(Config{DoneList: "done-db"})
	require.NoError(t, c.LogDone(context.Background(), "task"))
	require.Len(t, pages.created, 1)
	assert.Equal(t, notionapi.DatabaseID("done-db"), pages.created[0].Parent.DatabaseID)
}

func TestLastInboxPages(t *testing.T) {
	c, dbs, _ := createTestClient(Config{InboxDatabase: "inbox-db"})
	dbs.responses[""] = &notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{titled("p1", "newest"), titled("p2", ""), titled("p3", "older")},
		HasMore: true,
	}

	pages, more, err := c.LastInboxPages(context.Background(), 3)
	require.NoError(t, err)

	assert.True(t, more)
	assert.Equal(t, []InboxPage{{ID: "p1", Title: "newest"}, {ID: "p3", Title: "older"}}, pages)

	require.Len(t, dbs.calls, 1)
	call := dbs.calls[0]
	assert.Equal(t, notionapi.DatabaseID("inbox-db"), call.DB)
	assert.Equal(t, 3, call.Req.PageSize)
	require.Len(t, call.Req.Sorts, 1)
	assert.Equal(t, PropCreated, call.Req.Sorts[0].Property)
	assert.Equal(t, notionapi.SortOrderDESC, call.Req.Sorts[0].Direction)
}

func TestArchiveLastInboxPages(t *testing.T) {
	c, dbs, pages := createTestClient(Config{InboxDatabase: "inbox-db"})
	dbs.responses[""] = &notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{titled("p1", "a"), titled("p2", "b")},
	}

	n, err := c.ArchiveLastInboxPages(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, []updateCall{{ID: "p1", Archived: true}, {ID: "p2", Archived: true}}, pages.updated)

	n, err = c.ArchiveLastInboxPages(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestUnarchivePage(t *testing.T) {
	c, _, pages := createTestClient(Config{})

	require.NoError(t, c.UnarchivePage(context.Background(), "p1"))
	assert.Equal(t, []updateCall{{ID: "p1", Archived: false}}, pages.updated)
}

func TestCalendarEventsPaginates(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	c, dbs, _ := createTestClient(Config{CalendarDatabase: "cal-db", PageSize: 2})
	dbs.responses[""] = &notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{dated("e1", "dentist", day.Add(9*time.Hour), time.Time{}), dated("e2", "", day, time.Time{})},
		HasMore:    true,
		NextCursor: "c2",
	}
	dbs.responses["c2"] = &notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{dated("e3", "trip", day, day.AddDate(0, 0, 3)), dated("e4", "undated", time.Time{}, time.Time{})},
	}

	events, err := c.CalendarEvents(context.Background())
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, "dentist", events[0].Title)
	assert.False(t, events[0].HasEnd())
	assert.Equal(t, "trip", events[1].Title)
	assert.True(t, events[1].HasEnd())

	require.Len(t, dbs.calls, 2)
	assert.Equal(t, 2, dbs.calls[0].Req.PageSize)
	assert.Equal(t, notionapi.Cursor("c2"), dbs.calls[1].Req.StartCursor)
}

func TestCurrentTasks(t *testing.T) {
	c, dbs, _ := createTestClient(Config{CurrentTasks: "tasks-db"})
	dbs.responses[""] = &notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{titled("t1", "write report"), titled("t2", "")},
	}

	tasks, err := c.CurrentTasks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Task{{ID: "t1", Title: "write report"}}, tasks)

	_, err = (&Client{cfg: Config{}}).CurrentTasks(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestDailySchedule(t *testing.T) {
	slots := []LessonSlot{
		{Start: 9 * time.Hour, End: 10*time.Hour + 30*time.Minute},
		{Start: 10*time.Hour + 40*time.Minute, End: 12*time.Hour + 10*time.Minute},
		{Start: 12*time.Hour + 50*time.Minute, End: 14*time.Hour + 20*time.Minute},
	}

	// Monday 2024-03-11 is in ISO week 11, an odd week.
	monday := time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC)
	require.False(t, IsEvenWeek(monday))

	c, dbs, _ := createTestClient(Config{UniSchedule: "uni-db"})
	dbs.responses[""] = &notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{
			lesson("l3", "Пн", "", 3, "Physics"),
			lesson("l1", "Пн", weekOdd, 1, "Math"),
			lesson("l2", "Пн", weekEven, 2, "History"),
			lesson("l4", "Вт", "", 1, "Chemistry"),
			lesson("l9", "Пн", "", 9, "Unknown slot"),
		},
	}

	lessons, err := c.DailySchedule(context.Background(), monday, slots)
	require.NoError(t, err)

	require.Len(t, lessons, 2)
	assert.Equal(t, 1, lessons[0].Number)
	assert.Equal(t, "Math", lessons[0].Subject)
	assert.Equal(t, slots[0], lessons[0].Slot)
	assert.Equal(t, "A-101", lessons[0].Room)
	assert.Equal(t, "Ivanov", lessons[0].Lecturer)
	assert.Equal(t, 3, lessons[1].Number)

	evenMonday := monday.AddDate(0, 0, 7)
	lessons, err = c.DailySchedule(context.Background(), evenMonday, slots)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	assert.Equal(t, "History", lessons[0].Subject)
	assert.Equal(t, "Physics", lessons[1].Subject)
}
