package websocket

import (
	"fmt"
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
	commandTimeout    = 5 * time.Second
	stopTimeout       = 10 * time.Second
	clientStopTimeout = 5 * time.Second
	commandBuffer     = 256
)

type hubCmd interface{ isHubCmd() }

type registerCmd struct {
	connection *ws.Conn
	reply      chan registerResult
}

type registerResult struct {
	client *Client
	err    error
}

type unregisterCmd struct {
	client *Client
	reason string
}

type publishCmd struct {
	run domain.Run
}

type countCmd struct {
	reply chan int
}

type stopCmd struct{}

func (registerCmd) isHubCmd()   {}
func (unregisterCmd) isHubCmd() {}
func (publishCmd) isHubCmd()    {}
func (countCmd) isHubCmd()      {}
func (stopCmd) isHubCmd()       {}

// Hub owns the set of connected dashboard clients. All membership changes and
// fan-out run on its single goroutine; callers talk to it via commands.
type Hub struct {
	cmdCh             chan hubCmd
	done              chan struct{}
	clients           map[uuid.UUID]*Client
	counter           domain.TodayCounter
	clock             clockwork.Clock
	heartbeatInterval time.Duration
	maxClients        int
	metrics           *metrics.RealtimeMetrics
}

var _ domain.RunPublisher = (*Hub)(nil)

type HubConfig struct {
	Counter           domain.TodayCounter
	Clock             clockwork.Clock
	HeartbeatInterval time.Duration
	MaxClients        int
	Metrics           *metrics.RealtimeMetrics
}

func NewHub(cfg HubConfig) *Hub {
	h := &Hub{
		cmdCh:             make(chan hubCmd, commandBuffer),
		done:              make(chan struct{}),
		clients:           make(map[uuid.UUID]*Client),
		counter:           cfg.Counter,
		clock:             cfg.Clock,
		heartbeatInterval: cfg.HeartbeatInterval,
		maxClients:        cfg.MaxClients,
		metrics:           cfg.Metrics,
	}
	go h.run()
	return h
}

// send returns false once the hub has stopped.
func (h *Hub) send(cmd hubCmd) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.cmdCh <- cmd:
		return true
	case <-h.done:
		return false
	}
}

// Register attaches conn and starts its subscription and heartbeat.
func (h *Hub) Register(conn *ws.Conn) (*Client, error) {
	reply := make(chan registerResult, 1)
	if !h.send(registerCmd{connection: conn, reply: reply}) {
		return nil, domain.ErrHubStopped
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case res := <-reply:
		return res.client, res.err
	case <-h.done:
		return nil, domain.ErrHubStopped
	case <-timer.Chan():
		return nil, fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister detaches c and closes its connection. Safe to call repeatedly.
func (h *Hub) Unregister(c *Client) {
	h.send(unregisterCmd{client: c})
}

// PublishRun fans run out to every client's subscription.
func (h *Hub) PublishRun(run domain.Run) {
	h.send(publishCmd{run: run})
}

// ClientCount returns -1 if the hub does not answer in time.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	if !h.send(countCmd{reply: reply}) {
		return 0
	}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case n := <-reply:
		return n
	case <-h.done:
		return 0
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop closes every client with a close frame and waits for the hub to exit.
func (h *Hub) Stop() {
	if !h.send(stopCmd{}) {
		return
	}

	timer := time.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Realtime hub stopped")
	case <-timer.C:
		slog.Warn("Realtime hub stop timed out", "timeout", stopTimeout)
	}
}

func (h *Hub) evict(c *Client, reason string) {
	go h.send(unregisterCmd{client: c, reason: reason})
}

func (h *Hub) run() {
	defer close(h.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Realtime hub panic recovered", "panic", r)
			h.closeAll("server error")
		}
	}()

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			c.reply <- h.handleRegister(c.connection)
		case unregisterCmd:
			h.handleUnregister(c.client, c.reason)
		case publishCmd:
			h.handlePublish(c.run)
		case countCmd:
			c.reply <- len(h.clients)
		case stopCmd:
			slog.Info("Realtime hub shutting down", "clients", len(h.clients))
			h.closeAll("server shutting down")
			return
		default:
			slog.Warn("Realtime hub received unknown command", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(conn *ws.Conn) registerResult {
	if len(h.clients) >= h.maxClients {
		h.metrics.ConnectionsDenied.Inc()
		slog.Warn("Rejecting dashboard client: hub full", "max_clients", h.maxClients)
		return registerResult{err: domain.ErrHubFull}
	}

	c := newClient(conn, h)
	h.clients[c.id] = c
	c.start()

	h.metrics.ActiveConnections.Set(float64(len(h.clients)))
	slog.Debug("Dashboard client registered", "client_id", c.id, "total_clients", len(h.clients))
	return registerResult{client: c}
}

func (h *Hub) handleUnregister(c *Client, reason string) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)

	if reason != "" {
		h.metrics.ClientsDropped.WithLabelValues(reason).Inc()
		slog.Warn("Disconnecting dashboard client", "client_id", c.id, "reason", reason)
	}
	// A client may be mid-count; it must not hold up the hub.
	go c.stop(reason)

	h.metrics.ActiveConnections.Set(float64(len(h.clients)))
	slog.Debug("Dashboard client unregistered", "client_id", c.id, "remaining_clients", len(h.clients))
}

func (h *Hub) handlePublish(run domain.Run) {
	var slow []*Client
	for _, c := range h.clients {
		if !c.deliver(run) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.handleUnregister(c, "slow_client")
	}
}

// closeAll stops every client concurrently and waits for them up to
// clientStopTimeout.
func (h *Hub) closeAll(reason string) {
	var wg sync.WaitGroup
	for id, c := range h.clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.stop(reason)
		}()
		delete(h.clients, id)
	}
	h.metrics.ActiveConnections.Set(0)

	stopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(stopped)
	}()

	timer := time.NewTimer(clientStopTimeout)
	defer timer.Stop()
	select {
	case <-stopped:
	case <-timer.C:
		slog.Warn("Dashboard clients did not stop in time", "timeout", clientStopTimeout)
	}
}
