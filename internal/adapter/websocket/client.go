package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/refty/hamcounter/internal/adapter/metrics"
	"github.com/refty/hamcounter/internal/domain"
)

const (
	countTimeout      = 2 * time.Second
	subscriptionDepth = 8
)

// heartbeatGate decides whether a tick emits a heartbeat. A run observed
// since the previous tick suppresses exactly one heartbeat.
type heartbeatGate struct {
	changed bool
}

func (g *heartbeatGate) markChanged() {
	g.changed = true
}

func (g *heartbeatGate) shouldBeat() bool {
	if g.changed {
		g.changed = false
		return false
	}
	return true
}

// Client is one dashboard connection. It owns its subscription to inserted
// runs and its heartbeat ticker; both end when the client is unregistered.
type Client struct {
	id       uuid.UUID
	writer   *clientWriter
	runs     chan domain.Run
	counter  domain.TodayCounter
	clock    clockwork.Clock
	interval time.Duration
	metrics  *metrics.RealtimeMetrics
	evict    func(c *Client, reason string)

	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newClient(conn *ws.Conn, h *Hub) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		id:       uuid.New(),
		writer:   newClientWriter(conn, h.clock),
		runs:     make(chan domain.Run, subscriptionDepth),
		counter:  h.counter,
		clock:    h.clock,
		interval: h.heartbeatInterval,
		metrics:  h.metrics,
		evict:    h.evict,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Client) ID() uuid.UUID {
	return c.id
}

func (c *Client) start() {
	c.wg.Add(1)
	go c.run()
}

// stop ends the subscription loop, then closes the connection. A non-empty
// reason is sent to the peer in a close frame.
func (c *Client) stop(reason string) {
	c.stopOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		if reason == "" {
			c.writer.stop()
		} else {
			c.writer.stopGraceful(reason)
		}
	})
}

// deliver hands a run to the client's subscription without blocking.
func (c *Client) deliver(run domain.Run) bool {
	select {
	case c.runs <- run:
		return true
	default:
		return false
	}
}

// Echo sends data straight back as receiveMessage.
func (c *Client) Echo(data json.RawMessage) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	c.send(metrics.KindEcho, data)
}

func (c *Client) run() {
	defer c.wg.Done()

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	var gate heartbeatGate
	for {
		select {
		case <-c.ctx.Done():
			return
		case run := <-c.runs:
			gate.markChanged()
			c.handleRun(run)
		case <-ticker.Chan():
			if gate.shouldBeat() {
				c.handleHeartbeat()
			}
		}
	}
}

func (c *Client) handleRun(run domain.Run) {
	total, ok := c.todayCount()
	if !ok {
		return
	}
	c.send(metrics.KindRun, domain.RunningFor(run, total))
}

func (c *Client) handleHeartbeat() {
	total, ok := c.todayCount()
	if !ok {
		return
	}
	c.send(metrics.KindHeartbeat, domain.Heartbeat(c.clock.Now().UTC(), total))
}

func (c *Client) todayCount() (int64, bool) {
	ctx, cancel := context.WithTimeout(c.ctx, countTimeout)
	defer cancel()

	total, err := c.counter.TodayCount(ctx)
	if err != nil {
		if c.ctx.Err() == nil {
			slog.Error("Failed to count today's runs", "client_id", c.id, "error", err)
		}
		return 0, false
	}
	return total, true
}

func (c *Client) send(kind string, payload any) {
	frame, err := encode(EventReceiveMessage, payload)
	if err != nil {
		slog.Error("Failed to encode realtime message", "kind", kind, "error", err)
		return
	}
	if !c.writer.enqueue(frame) {
		c.evict(c, "slow_client")
		return
	}
	c.metrics.MessagesSent.WithLabelValues(kind).Inc()
}
