package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/adhocore/gronx"
)

var (
	originPlaceholder      = regexp.MustCompile(`(?i)\{\{\s*origin\s*\}\}`)
	destinationPlaceholder = regexp.MustCompile(`(?i)\{\{\s*destination\s*\}\}`)
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLookup(); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLookup() error {
	tmpl := c.Lookup.URLTemplate
	if !originPlaceholder.MatchString(tmpl) {
		return errors.New("lookup.url_template must contain an {{origin}} placeholder")
	}
	if !destinationPlaceholder.MatchString(tmpl) {
		return errors.New("lookup.url_template must contain a {{destination}} placeholder")
	}
	probe := destinationPlaceholder.ReplaceAllString(originPlaceholder.ReplaceAllString(tmpl, "x"), "x")
	probe = apiKeyPlaceholder.ReplaceAllString(probe, "x")
	parsed, err := url.Parse(probe)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("lookup.url_template must be an absolute URL, got %q", tmpl)
	}

	if apiKeyPlaceholder.MatchString(tmpl) {
		key := strings.TrimSpace(c.Lookup.APIKey)
		if key == "" || apiKeyPlaceholder.MatchString(key) {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("lookup.api_key is required. Set %s env var or edit %s (create with 'drivetime config init')", apiKeyEnv, defaultPath)
		}
	}
	if c.Lookup.TimeoutSeconds <= 0 {
		return errors.New("lookup.timeout_seconds must be positive")
	}
	if c.Lookup.MaxRequestsPerSecond < 0 {
		return errors.New("lookup.max_requests_per_second must be >= 0")
	}
	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.EmptySleepMs <= 0 {
		return errors.New("worker.empty_sleep_ms must be positive")
	}
	if c.Worker.RequestDelayMs < 0 {
		return errors.New("worker.request_delay_ms must be >= 0")
	}
	if expr := c.Worker.ResumeSchedule; expr != "" && !gronx.IsValid(expr) {
		return fmt.Errorf("worker.resume_schedule: invalid cron expression %q", expr)
	}
	return nil
}

func (c *Config) validateQueue() error {
	if strings.TrimSpace(c.Queue.Database) == "" {
		return errors.New("queue.database must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"queue.batch_size":           c.Queue.BatchSize,
		"queue.lock_timeout_seconds": c.Queue.LockTimeoutSeconds,
	}); err != nil {
		return err
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
