package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Norgate-AV/casewatch/internal/logging"
	"github.com/Norgate-AV/casewatch/internal/notify"
	"github.com/Norgate-AV/casewatch/internal/uscis"
)

// Default configuration values
const (
	DefaultEndpoint         = uscis.DefaultEndpoint
	DefaultUserAgent        = uscis.DefaultUserAgent
	DefaultStatusPath       = uscis.DefaultStatusPath
	DefaultDescriptionPath  = uscis.DefaultDescriptionPath
	DefaultTimeout          = uscis.DefaultTimeout
	DefaultRetries          = 0
	DefaultMaxMessageLength = notify.MaxMessageLength
	DefaultLogLevel         = logging.DefaultLevel
	DefaultFailFast         = false
	DefaultNoColor          = false
)

// Holds the configuration options for casewatch
type Config struct {
	// Receipt numbers to check, in order
	Receipts []string
	// Path to the history / cache CSV file, empty disables history
	HistoryFile string
	// Telegram bot token, empty disables notifications
	TelegramToken string
	// Telegram chat id or channel username
	TelegramChatID string
	// Bot API URL format, for self-hosted Bot API servers
	TelegramEndpoint string
	// Case status endpoint
	Endpoint string
	// User-Agent header sent to the case status endpoint
	UserAgent string
	// Element path of the status headline
	StatusPath string
	// Element path of the status description
	DescriptionPath string
	// HTTP timeout per request
	Timeout time.Duration
	// Extra HTTP attempts on connection errors and 5xx responses
	Retries int
	// Notification length ceiling
	MaxMessageLength int
	// Stop at the first failed lookup or notification
	FailFast bool
	// Disable colored summaries
	NoColor bool
	// Diagnostic log level
	LogLevel string
}

func Load() (*Config, error) {
	cfg := &Config{
		Receipts:         viper.GetStringSlice("receipts"),
		HistoryFile:      viper.GetString("file"),
		TelegramToken:    viper.GetString("telegram.token"),
		TelegramChatID:   viper.GetString("telegram.chat_id"),
		TelegramEndpoint: viper.GetString("telegram.endpoint"),
		Endpoint:         viper.GetString("endpoint"),
		UserAgent:        viper.GetString("user_agent"),
		StatusPath:       viper.GetString("status_path"),
		DescriptionPath:  viper.GetString("description_path"),
		Timeout:          viper.GetDuration("timeout"),
		Retries:          viper.GetInt("retries"),
		MaxMessageLength: viper.GetInt("max_message_length"),
		FailFast:         viper.GetBool("fail_fast"),
		NoColor:          viper.GetBool("no_color"),
		LogLevel:         viper.GetString("log_level"),
	}

	// Apply defaults if not set
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	if cfg.StatusPath == "" {
		cfg.StatusPath = DefaultStatusPath
	}

	if cfg.DescriptionPath == "" {
		cfg.DescriptionPath = DefaultDescriptionPath
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.MaxMessageLength == 0 {
		cfg.MaxMessageLength = DefaultMaxMessageLength
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	// Env values arrive as one comma joined string; drop blanks left over
	receipts := make([]string, 0, len(c.Receipts))
	for _, item := range c.Receipts {
		for _, r := range strings.Split(item, ",") {
			if r = strings.TrimSpace(r); r != "" {
				receipts = append(receipts, r)
			}
		}
	}

	c.Receipts = receipts

	if len(c.Receipts) == 0 {
		return fmt.Errorf("at least one receipt number is required")
	}

	// Resolve history file path
	if c.HistoryFile != "" {
		abs, err := filepath.Abs(c.HistoryFile)
		if err != nil {
			return fmt.Errorf("invalid history file path: %v", err)
		}

		c.HistoryFile = abs
	}

	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("telegram requires both a bot token and a chat id")
	}

	if c.TelegramEndpoint != "" && strings.Count(c.TelegramEndpoint, "%s") != 2 {
		return fmt.Errorf("invalid telegram endpoint %q: needs two %%s verbs for token and method", c.TelegramEndpoint)
	}

	u, err := url.Parse(c.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid endpoint: %q", c.Endpoint)
	}

	if _, err := uscis.ParsePath(c.StatusPath); err != nil {
		return fmt.Errorf("invalid status path: %v", err)
	}

	if _, err := uscis.ParsePath(c.DescriptionPath); err != nil {
		return fmt.Errorf("invalid description path: %v", err)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}

	if c.Retries < 0 {
		return fmt.Errorf("invalid retries: %d", c.Retries)
	}

	if c.MaxMessageLength < 3 {
		return fmt.Errorf("invalid max message length: %d", c.MaxMessageLength)
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %v", err)
	}

	return nil
}

// HasHistory reports whether a history file is configured
func (c *Config) HasHistory() bool {
	return c.HistoryFile != ""
}

// HasTelegram reports whether notifications are configured
func (c *Config) HasTelegram() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// FetchOptions returns the case status client options
func (c *Config) FetchOptions() uscis.Options {
	return uscis.Options{
		Endpoint:        c.Endpoint,
		UserAgent:       c.UserAgent,
		StatusPath:      c.StatusPath,
		DescriptionPath: c.DescriptionPath,
		Timeout:         c.Timeout,
		Retries:         c.Retries,
	}
}
