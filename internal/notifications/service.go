package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mhingston/DriveTime/internal/config"
)

const userAgent = "DriveTime/0.1.0"

// Service defines the notification surface exposed to the worker and daemon.
type Service interface {
	NotifySuspended(ctx context.Context, status string, until time.Time) error
	NotifyFatal(ctx context.Context, err error, exitCode string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		suspend:  cfg.Notifications.Suspend,
		fatal:    cfg.Notifications.Fatal,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	suspend  bool
	fatal    bool
}

func (n *ntfyService) NotifySuspended(ctx context.Context, status string, until time.Time) error {
	if !n.suspend {
		return nil
	}
	status = strings.TrimSpace(status)
	if status == "" {
		status = "unknown"
	}
	data := payload{
		title:   "DriveTime - Suspended",
		message: fmt.Sprintf("⏸️ Lookups suspended after %s; resuming %s", status, until.Format("Mon 2 Jan 15:04 MST")),
		tags:    []string{"drivetime", "suspended", strings.ToLower(status)},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyFatal(ctx context.Context, err error, exitCode string) error {
	if !n.fatal {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Worker exiting")
	if exitCode = strings.TrimSpace(exitCode); exitCode != "" {
		builder.WriteString(" (")
		builder.WriteString(exitCode)
		builder.WriteString(")")
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "DriveTime - Fatal Error",
		message:  builder.String(),
		tags:     []string{"drivetime", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "DriveTime - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"drivetime", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifySuspended(context.Context, string, time.Time) error { return nil }
func (noopService) NotifyFatal(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
