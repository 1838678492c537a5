package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var apiKeyPlaceholder = regexp.MustCompile(`(?i)\{\{\s*api_key\s*\}\}`)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLookup()
	c.normalizeWorker()
	if err := c.normalizeQueue(); err != nil {
		return err
	}
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	c.API.Token = strings.TrimSpace(c.API.Token)
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// normalizeLookup resolves the API key. A key value may itself be a template
// whose {{api_key}} placeholder is filled from DRIVETIME_API_KEY; an empty key
// falls back to the variable directly.
func (c *Config) normalizeLookup() {
	c.Lookup.URLTemplate = strings.TrimSpace(c.Lookup.URLTemplate)
	if c.Lookup.URLTemplate == "" {
		c.Lookup.URLTemplate = defaultURLTemplate
	}

	envKey := strings.TrimSpace(os.Getenv(apiKeyEnv))
	key := strings.TrimSpace(c.Lookup.APIKey)
	switch {
	case key == "":
		key = envKey
	case apiKeyPlaceholder.MatchString(key) && envKey != "":
		key = apiKeyPlaceholder.ReplaceAllLiteralString(key, envKey)
	}
	c.Lookup.APIKey = key

	if c.Lookup.TimeoutSeconds <= 0 {
		c.Lookup.TimeoutSeconds = defaultLookupTimeout
	}
	if c.Lookup.MaxRequestsPerSecond < 0 {
		c.Lookup.MaxRequestsPerSecond = 0
	}
	c.Lookup.UserAgent = strings.TrimSpace(c.Lookup.UserAgent)
	if c.Lookup.UserAgent == "" {
		c.Lookup.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeWorker() {
	c.Worker.ResumeSchedule = strings.TrimSpace(c.Worker.ResumeSchedule)
}

func (c *Config) normalizeQueue() error {
	var err error
	c.Queue.Database = strings.TrimSpace(c.Queue.Database)
	if c.Queue.Database == "" {
		c.Queue.Database = filepath.Join(c.Paths.DataDir, defaultDatabaseName)
	}
	if c.Queue.Database, err = expandPath(c.Queue.Database); err != nil {
		return fmt.Errorf("queue.database: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("DRIVETIME_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
