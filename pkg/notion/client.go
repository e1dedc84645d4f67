package notion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jomei/notionapi"
	"github.com/rs/zerolog"
)

// maxPageSize is the largest page the Notion API returns
const maxPageSize = 100

// Config holds the token, database ids and paging of the client
type Config struct {
	Token string

	InboxDatabase    string
	CalendarDatabase string
	CurrentTasks     string
	UniSchedule      string
	DoneList         string

	// PageSize bounds every database query page
	PageSize int

	// MaxElapsed bounds retries of rate-limited or unavailable requests; 0 disables them
	MaxElapsed time.Duration
}

type databaseQuerier interface {
	Query(ctx context.Context, id notionapi.DatabaseID, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
}

type pageWriter interface {
	Create(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	Update(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// Client reads and writes the assistant's Notion databases
type Client struct {
	cfg        Config
	databases  databaseQuerier
	pages      pageWriter
	newBackOff func() backoff.BackOff
	logger     zerolog.Logger
}

// New creates a client talking to the Notion API
func New(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("notion token is required")
	}

	api := notionapi.NewClient(notionapi.Token(cfg.Token))
	return newClient(cfg, api.Database, api.Page, logger), nil
}

func newClient(cfg Config, databases databaseQuerier, pages pageWriter, logger zerolog.Logger) *Client {
	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}

	c := &Client{
		cfg:       cfg,
		databases: databases,
		pages:     pages,
		logger:    logger.With().Str("component", "notion").Logger(),
	}
	c.newBackOff = c.defaultBackOff
	return c
}

func (c *Client) defaultBackOff() backoff.BackOff {
	if c.cfg.MaxElapsed <= 0 {
		return &backoff.StopBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = c.cfg.MaxElapsed
	return b
}

// do runs fn, retrying rate-limited and unavailable responses with exponential backoff
func (c *Client) do(ctx context.Context, op string, fn func() error) error {
	attempt := func() error {
		err := fn()
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("op", op).
			Int("status", StatusCode(err)).
			Dur("retryIn", wait).
			Msg("Notion request failed, retrying")
	}

	if err := backoff.RetryNotify(attempt, backoff.WithContext(c.newBackOff(), ctx), notify); err != nil {
		return fmt.Errorf("notion %s: %w", op, err)
	}
	return nil
}

func (c *Client) query(ctx context.Context, op, db string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	var resp *notionapi.DatabaseQueryResponse
	err := c.do(ctx, op, func() error {
		var err error
		resp, err = c.databases.Query(ctx, notionapi.DatabaseID(db), req)
		return err
	})
	return resp, err
}

// queryAll walks every page of a database query
func (c *Client) queryAll(ctx context.Context, op, db string, visit func(notionapi.Page)) error {
	if db == "" {
		return fmt.Errorf("notion %s: %w", op, ErrNotConfigured)
	}

	req := &notionapi.DatabaseQueryRequest{PageSize: c.cfg.PageSize}
	for {
		resp, err := c.query(ctx, op, db, req)
		if err != nil {
			return err
		}
		for _, page := range resp.Results {
			visit(page)
		}
		if !resp.HasMore || resp.NextCursor == "" {
			return nil
		}
		req.StartCursor = resp.NextCursor
	}
}

func (c *Client) createTitled(ctx context.Context, op, db, title string) (string, error) {
	if db == "" {
		return "", fmt.Errorf("notion %s: %w", op, ErrNotConfigured)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("notion %s: %w", op, ErrEmptyTitle)
	}

	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(db),
		},
		Properties: notionapi.Properties{
			PropName: titleProperty(title),
		},
	}

	var page *notionapi.Page
	err := c.do(ctx, op, func() error {
		var err error
		page, err = c.pages.Create(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}
	return string(page.ID), nil
}

// CreateInboxPage saves text as a new inbox page and returns its id
func (c *Client) CreateInboxPage(ctx context.Context, title string) (string, error) {
	return c.createTitled(ctx, "create inbox page", c.cfg.InboxDatabase, title)
}

// LogDone records a finished task in the done list. It is a no-op without a done list.
func (c *Client) LogDone(ctx context.Context, title string) error {
	if c.cfg.DoneList == "" {
		return nil
	}
	_, err := c.createTitled(ctx, "log done task", c.cfg.DoneList, title)
	return err
}

func (c *Client) latestInbox(ctx context.Context, op string, n int) (*notionapi.DatabaseQueryResponse, error) {
	if c.cfg.InboxDatabase == "" {
		return nil, fmt.Errorf("notion %s: %w", op, ErrNotConfigured)
	}
	if n <= 0 || n > maxPageSize {
		n = maxPageSize
	}

	return c.query(ctx, op, c.cfg.InboxDatabase, &notionapi.DatabaseQueryRequest{
		Sorts:    []notionapi.SortObject{{Property: PropCreated, Direction: notionapi.SortOrderDESC}},
		PageSize: n,
	})
}

// LastInboxPages returns the n newest inbox pages, newest first. more reports
// whether older pages exist.
func (c *Client) LastInboxPages(ctx context.Context, n int) (pages []InboxPage, more bool, err error) {
	resp, err := c.latestInbox(ctx, "list inbox", n)
	if err != nil {
		return nil, false, err
	}

	for _, p := range resp.Results {
		title := titleOf(p.Properties, PropName)
		if title == "" {
			continue
		}
		pages = append(pages, InboxPage{ID: string(p.ID), Title: title})
	}
	return pages, resp.HasMore, nil
}

// ArchiveLastInboxPages archives the n newest inbox pages and returns how many were archived
func (c *Client) ArchiveLastInboxPages(ctx context.Context, n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}

	resp, err := c.latestInbox(ctx, "archive inbox", n)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, p := range resp.Results {
		if err := c.ArchivePage(ctx, string(p.ID)); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}

// ArchivePage moves a page to the trash
func (c *Client) ArchivePage(ctx context.Context, id string) error {
	return c.setArchived(ctx, "archive page", id, true)
}

// UnarchivePage restores a page from the trash
func (c *Client) UnarchivePage(ctx context.Context, id string) error {
	return c.setArchived(ctx, "unarchive page", id, false)
}

func (c *Client) setArchived(ctx context.Context, op, id string, archived bool) error {
	req := &notionapi.PageUpdateRequest{
		Properties: notionapi.Properties{},
		Archived:   archived,
	}
	return c.do(ctx, op, func() error {
		_, err := c.pages.Update(ctx, notionapi.PageID(id), req)
		return err
	})
}

// CalendarEvents returns every calendar entry that has a title and a date
func (c *Client) CalendarEvents(ctx context.Context) ([]Event, error) {
	var events []Event
	err := c.queryAll(ctx, "list calendar", c.cfg.CalendarDatabase, func(p notionapi.Page) {
		title := titleOf(p.Properties, PropName)
		start, end, ok := dateOfProperty(p.Properties, PropDate)
		if title == "" || !ok {
			return
		}
		events = append(events, Event{ID: string(p.ID), Title: title, Start: start, End: end})
	})
	return events, err
}

// CurrentTasks returns every titled entry of the current tasks list
func (c *Client) CurrentTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	err := c.queryAll(ctx, "list current tasks", c.cfg.CurrentTasks, func(p notionapi.Page) {
		title := titleOf(p.Properties, PropName)
		if title == "" {
			return
		}
		tasks = append(tasks, Task{ID: string(p.ID), Title: title})
	})
	return tasks, err
}

// DailySchedule returns the lessons on the weekday of day that take place in
// its week, ordered by lesson number. slots maps lesson numbers (1-based) to times.
func (c *Client) DailySchedule(ctx context.Context, day time.Time, slots []LessonSlot) ([]Lesson, error) {
	even := IsEvenWeek(day)

	var lessons []Lesson
	err := c.queryAll(ctx, "list schedule", c.cfg.UniSchedule, func(p notionapi.Page) {
		weekday, ok := weekdays[selectOf(p.Properties, PropWeekday)]
		if !ok || weekday != day.Weekday() {
			return
		}
		if !parityOf(selectOf(p.Properties, PropWeek)).Matches(even) {
			return
		}

		num, ok := numberOf(p.Properties, PropNumber)
		if !ok || int(num) < 1 || int(num) > len(slots) {
			c.logger.Warn().Str("pageId", string(p.ID)).Float64("number", num).Msg("Skipping lesson without a known slot")
			return
		}

		lessons = append(lessons, Lesson{
			Number:   int(num),
			Slot:     slots[int(num)-1],
			Subject:  titleOf(p.Properties, PropSubject),
			Lecturer: richTextOf(p.Properties, PropLecturer),
			Room:     richTextOf(p.Properties, PropRoom),
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].Number < lessons[j].Number
	})
	return lessons, nil
}
