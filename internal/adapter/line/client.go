// Package line sends broadcast messages through the LINE Messaging API.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/refty/hamcounter/internal/domain"
)

const (
	requestTimeout     = 10 * time.Second
	maxErrorBodyBytes  = 512
	breakerOpenTimeout = time.Minute
	breakerTripAfter   = 3
)

type textMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type broadcastRequest struct {
	Messages []textMessage `json:"messages"`
}

// Client posts to the broadcast endpoint. Failed deliveries are returned to
// the caller and never retried. After three consecutive failures the breaker
// rejects calls for a minute.
type Client struct {
	httpClient *http.Client
	url        string
	token      string
	breaker    *gobreaker.CircuitBreaker
}

var _ domain.Notifier = (*Client)(nil)

func NewClient(url, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		url:        url,
		token:      token,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "line",
			MaxRequests: 1,
			Timeout:     breakerOpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerTripAfter
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				slog.Warn("LINE circuit breaker state changed", "from", from.String(), "to", to.String())
			},
		}),
	}
}

func (c *Client) Notify(ctx context.Context, message string) error {
	if c.token == "" {
		return domain.ErrAlertsDisabled
	}

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.broadcast(ctx, message)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("LINE broadcast skipped: %w", err)
	}
	return err
}

func (c *Client) broadcast(ctx context.Context, message string) error {
	body, err := json.Marshal(broadcastRequest{Messages: []textMessage{{Type: "text", Text: message}}})
	if err != nil {
		return fmt.Errorf("failed to encode LINE message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build LINE request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE broadcast request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("%w: status %d: %s", domain.ErrAlertRejected, resp.StatusCode, bytes.TrimSpace(detail))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
