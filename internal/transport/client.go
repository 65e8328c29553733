// Package transport talks to the remote trace service.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go"

	"github.com/pulsetrace/pulse/internal/log"
	"github.com/pulsetrace/pulse/internal/span"
)

const (
	// DefaultTimeout bounds interactive requests.
	DefaultTimeout = 5 * time.Second
	// EmitTimeout bounds span delivery from the hot path.
	EmitTimeout = 2 * time.Second

	healthPath = "/health"
	spansPath  = "/v1/spans/batch"
)

var (
	// ErrUnauthorized is returned for 401 and 403 responses.
	ErrUnauthorized = errors.New("trace service rejected the API key")
	// ErrInvalidURL is returned when the base URL cannot be used.
	ErrInvalidURL = errors.New("invalid API URL")
)

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("trace service returned %d", e.Code)
	}
	return fmt.Sprintf("trace service returned %d: %s", e.Code, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string
	ProjectID string
	Version   string
	Timeout   time.Duration

	// HealthAttempts and HealthDelay tune health check retries.
	HealthAttempts uint
	HealthDelay    time.Duration

	// HTTPClient overrides the default client, e.g. in tests.
	HTTPClient *http.Client
}

// Client is a trace service client. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	base      *url.URL
	apiKey    string
	projectID string
	userAgent string
	attempts  uint
	delay     time.Duration
}

// New validates the base URL and builds a Client.
func New(opts Options) (*Client, error) {
	base, err := ParseBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	attempts := opts.HealthAttempts
	if attempts == 0 {
		attempts = 3
	}
	delay := opts.HealthDelay
	if delay <= 0 {
		delay = 250 * time.Millisecond
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	return &Client{
		http:      hc,
		base:      base,
		apiKey:    opts.APIKey,
		projectID: opts.ProjectID,
		userAgent: "pulse-cli/" + version,
		attempts:  attempts,
		delay:     delay,
	}, nil
}

// ParseBaseURL trims whitespace and trailing slashes and requires http(s).
func ParseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

// Health checks GET /health, retrying transient failures. Auth errors are
// not retried.
func (c *Client) Health(ctx context.Context) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(healthPath), nil)
			if err != nil {
				return err
			}
			return c.do(req)
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrUnauthorized)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Debug(log.CatHTTP, "health check retry", "attempt", n+1, "error", err)
		}),
	)
}

// PostSpans sends spans as one JSON array. An empty batch is a no-op.
func (c *Client) PostSpans(ctx context.Context, spans []span.Span) error {
	if len(spans) == 0 {
		return nil
	}
	body, err := json.Marshal(spans)
	if err != nil {
		return fmt.Errorf("encoding spans: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(spansPath), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) error {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Project-Id", c.projectID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug(log.CatHTTP, "request failed", "method", req.Method, "url", req.URL.Path, "error", err)
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	log.Debug(log.CatHTTP, "response", "method", req.Method, "url", req.URL.Path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %w", ErrUnauthorized, statusErr)
	}
	return statusErr
}
