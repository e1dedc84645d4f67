package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var telegramTokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Validator validates individual configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTelegramToken validates a Telegram bot token
func (v *Validator) ValidateTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("telegram bot token cannot be empty")
	}

	// Telegram bot tokens have format: <bot_id>:<token>
	if !telegramTokenPattern.MatchString(token) {
		return fmt.Errorf("invalid Telegram bot token format")
	}

	return nil
}

// ValidateDayOfMonth validates a monthly trigger day
func (v *Validator) ValidateDayOfMonth(day int) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("day of month must be between 1 and 31, got %d", day)
	}
	return nil
}

// ValidateLessonSlot checks that a class period starts before it ends
func (v *Validator) ValidateLessonSlot(slot LessonSlot) error {
	start, err := ParseTimeOfDay(slot.Start)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := ParseTimeOfDay(slot.End)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	if end <= start {
		return fmt.Errorf("lesson ends (%s) before it starts (%s)", slot.End, slot.Start)
	}
	return nil
}

// ParseTimeOfDay parses "HH:MM" or "HH:MM:SS" into an offset from midnight
func ParseTimeOfDay(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q (expected HH:MM or HH:MM:SS)", s)
}

// FormatTimeOfDay renders an offset from midnight as HH:MM:SS
func FormatTimeOfDay(d time.Duration) string {
	d = d % (24 * time.Hour)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
