package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"

	"github.com/refty/hamcounter/internal/adapter/metrics"
	"github.com/refty/hamcounter/internal/domain"
	"github.com/refty/hamcounter/internal/platform/retry"
)

// RunInsertedChannel is the NOTIFY channel the runs insert trigger uses.
const RunInsertedChannel = "run_inserted"

const (
	listenerBuffer         = 64
	listenerInitialBackoff = 500 * time.Millisecond
	listenerMaxBackoff     = 30 * time.Second
)

// Listener turns NOTIFY events from the runs trigger into a stream of runs.
// It holds one dedicated connection outside the pool and reconnects with
// backoff when that connection fails. Notifications sent while disconnected
// are lost.
type Listener struct {
	databaseURL string
	clock       clockwork.Clock
	metrics     *metrics.FeedMetrics

	runs      chan domain.Run
	ready     chan struct{}
	readyOnce sync.Once
	listening atomic.Bool
}

var _ domain.RunFeed = (*Listener)(nil)

func NewListener(databaseURL string, clock clockwork.Clock, m *metrics.FeedMetrics) *Listener {
	return &Listener{
		databaseURL: databaseURL,
		clock:       clock,
		metrics:     m,
		runs:        make(chan domain.Run, listenerBuffer),
		ready:       make(chan struct{}),
	}
}

// Runs is closed when Run returns.
func (l *Listener) Runs() <-chan domain.Run {
	return l.runs
}

// Ready is closed once the first LISTEN succeeded.
func (l *Listener) Ready() <-chan struct{} {
	return l.ready
}

var (
	errNotListening = errors.New("run listener has not connected yet")
	errReconnecting = errors.New("run listener is reconnecting")
)

// Check reports whether the listener currently holds a LISTEN connection.
func (l *Listener) Check(context.Context) error {
	select {
	case <-l.ready:
	default:
		return errNotListening
	}
	if !l.listening.Load() {
		return errReconnecting
	}
	return nil
}

// Run listens until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	defer close(l.runs)

	policy := retry.Policy{
		InitialBackoff: listenerInitialBackoff,
		MaxBackoff:     listenerMaxBackoff,
		Clock:          l.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Run listener connection failed, retrying",
				"attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	for connected := false; ; connected = true {
		if connected {
			l.metrics.Reconnects.Inc()
		}

		conn, err := retry.Do(ctx, policy, retry.Always, l.connect)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("run listener gave up: %w", err)
		}

		err = l.receive(ctx, conn)
		l.listening.Store(false)
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = conn.Close(closeCtx)
		cancel()

		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("Run listener disconnected", "error", err)
	}
}

func (l *Listener) connect(ctx context.Context) (*pgx.Conn, error) {
	conn, err := pgx.Connect(ctx, l.databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+RunInsertedChannel); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to listen on %s: %w", RunInsertedChannel, err)
	}

	l.listening.Store(true)
	l.readyOnce.Do(func() { close(l.ready) })
	slog.Info("Run listener connected", "channel", RunInsertedChannel)
	return conn, nil
}

func (l *Listener) receive(ctx context.Context, conn *pgx.Conn) error {
	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("failed waiting for notification: %w", err)
		}

		run, err := decodeRun(n.Payload)
		if err != nil {
			l.metrics.DecodeErrors.Inc()
			slog.Error("Dropping undecodable run notification", "payload", n.Payload, "error", err)
			continue
		}
		l.metrics.RunsObserved.Inc()

		select {
		case l.runs <- run:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

var errEmptyPayload = errors.New("empty notification payload")

func decodeRun(payload string) (domain.Run, error) {
	if payload == "" {
		return domain.Run{}, errEmptyPayload
	}
	var run domain.Run
	if err := json.Unmarshal([]byte(payload), &run); err != nil {
		return domain.Run{}, fmt.Errorf("failed to decode run notification: %w", err)
	}
	return run, nil
}
