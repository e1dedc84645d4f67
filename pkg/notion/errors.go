package notion

import (
	"errors"
	"net/http"

	"github.com/jomei/notionapi"
)

var (
	// ErrNotConfigured is returned when an operation needs a database id that was not set
	ErrNotConfigured = errors.New("notion database is not configured")

	// ErrEmptyTitle is returned when creating a page without a title
	ErrEmptyTitle = errors.New("page title is empty")
)

// StatusCode returns the HTTP status of a Notion API error, or 0
func StatusCode(err error) int {
	var apiErr *notionapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsRateLimited reports whether err is a Notion 429
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}

// IsUnavailable reports whether err means the Notion API is temporarily down
func IsUnavailable(err error) bool {
	switch StatusCode(err) {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsRetryable reports whether repeating the request later may succeed
func IsRetryable(err error) bool {
	return IsRateLimited(err) || IsUnavailable(err)
}
