package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxResponseBytes   = 1 << 20
	// maxDurationSeconds keeps the minutes conversion inside int32.
	maxDurationSeconds = float64(math.MaxInt32) * 60
)

var (
	originPlaceholder      = regexp.MustCompile(`(?i)\{\{\s*origin\s*\}\}`)
	destinationPlaceholder = regexp.MustCompile(`(?i)\{\{\s*destination\s*\}\}`)
	apiKeyPlaceholder      = regexp.MustCompile(`(?i)\{\{\s*api_key\s*\}\}`)
)

// Client calls the distance-matrix API.
type Client struct {
	template   string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Lookuper = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero or less disables the
// limiter.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			c.userAgent = ua
		}
	}
}

// New creates a lookup client for the URL template. The template must carry
// {{origin}} and {{destination}} placeholders; {{api_key}} is optional.
func New(urlTemplate, apiKey string, opts ...Option) (*Client, error) {
	urlTemplate = strings.TrimSpace(urlTemplate)
	if urlTemplate == "" {
		return nil, errors.New("distance url template required")
	}
	if !originPlaceholder.MatchString(urlTemplate) || !destinationPlaceholder.MatchString(urlTemplate) {
		return nil, errors.New("distance url template must contain {{origin}} and {{destination}}")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKeyPlaceholder.MatchString(urlTemplate) && apiKey == "" {
		return nil, errors.New("distance api key required")
	}
	client := &Client{
		template:   urlTemplate,
		apiKey:     apiKey,
		userAgent:  "DriveTime",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Lookup resolves the drive time between origin and destination.
func (c *Client) Lookup(ctx context.Context, origin, destination string) Result {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return transportFailure(fmt.Errorf("rate limiter: %w", err))
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.buildURL(origin, destination), nil)
	if err != nil {
		return transportFailure(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFailure(fmt.Errorf("distance request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return transportFailure(fmt.Errorf("distance api returned %s", resp.Status))
	}

	var payload matrixResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		return transportFailure(fmt.Errorf("decode distance response: %w", err))
	}
	return payload.result()
}

// Close releases idle connections held by the HTTP client.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	c.httpClient.CloseIdleConnections()
}

func (c *Client) buildURL(origin, destination string) string {
	rendered := originPlaceholder.ReplaceAllLiteralString(c.template, escape(origin))
	rendered = destinationPlaceholder.ReplaceAllLiteralString(rendered, escape(destination))
	return apiKeyPlaceholder.ReplaceAllLiteralString(rendered, escape(c.apiKey))
}

// escape percent-encodes value for a query string, spaces as %20.
func escape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

type matrixResponse struct {
	Status string      `json:"status"`
	Rows   []matrixRow `json:"rows"`
}

type matrixRow struct {
	Elements []*matrixElement `json:"elements"`
}

type matrixElement struct {
	Status   string `json:"status"`
	Duration *struct {
		Value *float64 `json:"value"`
	} `json:"duration"`
}

func (m matrixResponse) result() Result {
	status := strings.TrimSpace(m.Status)
	if status == "" {
		return transportFailure(errors.New("distance response missing status"))
	}
	if status != StatusOK {
		return upstream(status)
	}
	if len(m.Rows) == 0 || len(m.Rows[0].Elements) == 0 {
		return transportFailure(errors.New("distance response has no elements"))
	}
	element := m.Rows[0].Elements[0]
	if element == nil {
		return transportFailure(errors.New("distance response element is null"))
	}
	if element.Status != StatusOK {
		return notFound()
	}
	if element.Duration == nil || element.Duration.Value == nil {
		return transportFailure(errors.New("distance element missing duration"))
	}
	seconds := *element.Duration.Value
	if math.IsNaN(seconds) || seconds < 0 || seconds > maxDurationSeconds {
		return transportFailure(fmt.Errorf("distance element has invalid duration %v", seconds))
	}
	return success(int(math.Round(seconds / 60.0)))
}
