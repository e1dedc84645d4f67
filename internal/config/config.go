package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the assistant configuration
type Config struct {
	// Telegram
	Telegram TelegramConfig `json:"telegram" mapstructure:"telegram"`

	// Notion databases
	Notion NotionConfig `json:"notion" mapstructure:"notion"`

	// IANA timezone used for every time of day in the configuration
	Timezone string `json:"timezone" mapstructure:"timezone"`

	// Inbox ingestion of plain text messages
	Inbox InboxConfig `json:"inbox" mapstructure:"inbox"`

	// Plugins
	Plugins PluginsConfig `json:"plugins" mapstructure:"plugins"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken    string  `json:"bot_token" mapstructure:"bot_token"`
	ChatID      int64   `json:"chat_id" mapstructure:"chat_id"`     // owner chat, target of scheduled notifications
	Allowlist   []int64 `json:"allowlist" mapstructure:"allowlist"` // extra chats allowed to issue commands
	PollTimeout int     `json:"poll_timeout" mapstructure:"poll_timeout"`
	Debug       bool    `json:"debug" mapstructure:"debug"`
}

// NotionConfig holds the integration token and database ids
type NotionConfig struct {
	Token              string `json:"token" mapstructure:"token"`
	InboxDatabase      string `json:"inbox_database" mapstructure:"inbox_database"`
	CalendarDatabase   string `json:"calendar_database" mapstructure:"calendar_database"`
	CurrentTasks       string `json:"current_tasks" mapstructure:"current_tasks"`
	UniSchedule        string `json:"uni_schedule" mapstructure:"uni_schedule"`
	DoneList           string `json:"done_list" mapstructure:"done_list"`
	PageSize           int    `json:"page_size" mapstructure:"page_size"`
	RetryMaxElapsedSec int    `json:"retry_max_elapsed_sec" mapstructure:"retry_max_elapsed_sec"`
}

// InboxConfig controls plain-text ingestion into the Notion inbox
type InboxConfig struct {
	LastN               int `json:"last_n" mapstructure:"last_n"`
	RetryDepthLimit     int `json:"retry_depth_limit" mapstructure:"retry_depth_limit"`
	RateLimitDelaySec   int `json:"rate_limit_delay_sec" mapstructure:"rate_limit_delay_sec"`
	UnavailableDelaySec int `json:"unavailable_delay_sec" mapstructure:"unavailable_delay_sec"`
}

// PluginsConfig holds per-plugin settings
type PluginsConfig struct {
	Disabled    []string          `json:"disabled" mapstructure:"disabled"`
	Morning     MorningConfig     `json:"morning" mapstructure:"morning"`
	UniSchedule UniScheduleConfig `json:"uni_schedule" mapstructure:"uni_schedule"`
	Cleanup     CleanupConfig     `json:"cleanup" mapstructure:"cleanup"`
}

// MorningConfig configures the morning summary
type MorningConfig struct {
	SendTime  string `json:"send_time" mapstructure:"send_time"`
	TaskCount int    `json:"task_count" mapstructure:"task_count"`
}

// UniScheduleConfig configures the university schedule notifications
type UniScheduleConfig struct {
	TodayTime        string       `json:"today_time" mapstructure:"today_time"`
	TomorrowTime     string       `json:"tomorrow_time" mapstructure:"tomorrow_time"`
	TomorrowAutosend bool         `json:"tomorrow_autosend" mapstructure:"tomorrow_autosend"`
	Lessons          []LessonSlot `json:"lessons" mapstructure:"lessons"`
}

// LessonSlot is one numbered class period
type LessonSlot struct {
	Start string `json:"start" mapstructure:"start"`
	End   string `json:"end" mapstructure:"end"`
}

// CleanupConfig configures the monthly calendar cleanup
type CleanupConfig struct {
	MonthlyDay int    `json:"monthly_day" mapstructure:"monthly_day"`
	Time       string `json:"time" mapstructure:"time"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"`
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			PollTimeout: 60,
		},
		Notion: NotionConfig{
			PageSize:           25,
			RetryMaxElapsedSec: 30,
		},
		Timezone: "Europe/Moscow",
		Inbox: InboxConfig{
			LastN:               10,
			RetryDepthLimit:     16,
			RateLimitDelaySec:   3,
			UnavailableDelaySec: 60,
		},
		Plugins: PluginsConfig{
			Disabled: []string{},
			Morning: MorningConfig{
				SendTime:  "08:10:00",
				TaskCount: 5,
			},
			UniSchedule: UniScheduleConfig{
				TodayTime:        "08:10:15",
				TomorrowTime:     "22:30:10",
				TomorrowAutosend: true,
				Lessons: []LessonSlot{
					{Start: "09:00", End: "10:30"},
					{Start: "10:40", End: "12:10"},
					{Start: "12:50", End: "14:20"},
					{Start: "14:30", End: "16:00"},
					{Start: "16:10", End: "17:40"},
					{Start: "17:50", End: "19:20"},
				},
			},
			Cleanup: CleanupConfig{
				MonthlyDay: 1,
				Time:       "03:00:00",
			},
		},
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			MaxSize:   0,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
	}
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	masked.Telegram.BotToken = mask(c.Telegram.BotToken)
	masked.Notion.Token = mask(c.Notion.Token)
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

// Location loads the configured timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AllowedChats returns the owner chat followed by the allowlist
func (c *Config) AllowedChats() []int64 {
	chats := make([]int64, 0, len(c.Telegram.Allowlist)+1)
	if c.Telegram.ChatID != 0 {
		chats = append(chats, c.Telegram.ChatID)
	}
	for _, id := range c.Telegram.Allowlist {
		if id != c.Telegram.ChatID {
			chats = append(chats, id)
		}
	}
	return chats
}

// Validate validates the configuration
func (c *Config) Validate() error {
	v := NewValidator()

	if err := v.ValidateTelegramToken(c.Telegram.BotToken); err != nil {
		return err
	}
	if c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram chat_id is required")
	}
	if c.Notion.Token == "" {
		return fmt.Errorf("notion integration token is required")
	}
	if c.Notion.PageSize < 1 || c.Notion.PageSize > 100 {
		return fmt.Errorf("notion page_size must be between 1 and 100, got %d", c.Notion.PageSize)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Inbox.RetryDepthLimit < 0 {
		return fmt.Errorf("inbox retry_depth_limit cannot be negative")
	}

	times := map[string]string{
		"plugins.morning.send_time":          c.Plugins.Morning.SendTime,
		"plugins.uni_schedule.today_time":    c.Plugins.UniSchedule.TodayTime,
		"plugins.uni_schedule.tomorrow_time": c.Plugins.UniSchedule.TomorrowTime,
		"plugins.cleanup.time":               c.Plugins.Cleanup.Time,
	}
	for key, value := range times {
		if _, err := ParseTimeOfDay(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	// 0 turns the monthly cleanup off
	if day := c.Plugins.Cleanup.MonthlyDay; day != 0 {
		if err := v.ValidateDayOfMonth(day); err != nil {
			return fmt.Errorf("plugins.cleanup.monthly_day: %w", err)
		}
	}

	for i, slot := range c.Plugins.UniSchedule.Lessons {
		if err := v.ValidateLessonSlot(slot); err != nil {
			return fmt.Errorf("lesson %d: %w", i+1, err)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics addr is required when metrics are enabled")
	}

	return nil
}
