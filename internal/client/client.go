// Package client talks to the hamcounter HTTP API and realtime channel.
package client

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

	"github.com/jonboulle/clockwork"

	"github.com/refty/hamcounter/internal/domain"
	apperrors "github.com/refty/hamcounter/internal/platform/errors"
	"github.com/refty/hamcounter/internal/platform/retry"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 1 << 20
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Response   apperrors.ErrorResponse
}

func (e *APIError) Error() string {
	if e.Response.Error == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	msg := fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Response.Error)
	for _, issue := range e.Response.Issues {
		msg += fmt.Sprintf("; %s %s", issue.Field, issue.Message)
	}
	return msg
}

// Temporary reports whether retrying the same request may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	retry      retry.Policy
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets how submissions are retried on network errors, 429 and 5xx.
func WithRetry(p retry.Policy) Option {
	return func(c *Client) { c.retry = p }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		retry: retry.Policy{
			MaxAttempts:    3,
			InitialBackoff: 200 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			Clock:          clockwork.NewRealClock(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) SubmitRun(ctx context.Context, run domain.Run) error {
	_, err := c.CreateRun(ctx, run)
	return err
}

func (c *Client) SubmitSprint(ctx context.Context, sprint domain.Sprint) error {
	_, err := c.CreateSprint(ctx, sprint)
	return err
}

// CreateRun posts a run and returns the stored copy.
func (c *Client) CreateRun(ctx context.Context, run domain.Run) (domain.Run, error) {
	body := map[string]any{"from": run.From, "to": run.To, "seconds": run.Seconds, "speed": run.Speed}
	var stored domain.Run
	err := c.doWithRetry(ctx, http.MethodPost, "/run", nil, body, &stored)
	return stored, err
}

func (c *Client) CreateSprint(ctx context.Context, sprint domain.Sprint) (domain.Sprint, error) {
	body := map[string]any{"from": sprint.From, "to": sprint.To, "count": sprint.Count, "averageSpeed": sprint.AverageSpeed}
	var stored domain.Sprint
	err := c.doWithRetry(ctx, http.MethodPost, "/sprint", nil, body, &stored)
	return stored, err
}

// CountRuns counts runs that started in [from, to].
func (c *Client) CountRuns(ctx context.Context, from, to time.Time) (int64, error) {
	q := url.Values{}
	q.Set("from", from.UTC().Format(time.RFC3339Nano))
	q.Set("to", to.UTC().Format(time.RFC3339Nano))

	var resp struct {
		Count int64 `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, "/run", q, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// DayCount is today's count and the bounds it was taken over.
type DayCount struct {
	Count int64     `json:"count"`
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
}

func (c *Client) Today(ctx context.Context) (DayCount, error) {
	var resp DayCount
	err := c.do(ctx, http.MethodGet, "/run/today", nil, nil, &resp)
	return resp, err
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, query url.Values, body, out any) error {
	classify := func(err error) retry.Action {
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return retry.Stop
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return retry.Stop
		}
		return retry.Retry
	}
	err := retry.DoVoid(ctx, c.retry, classify, func(ctx context.Context) error {
		return c.do(ctx, method, path, query, body, out)
	})
	var permanent *retry.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(data, &apiErr.Response)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
