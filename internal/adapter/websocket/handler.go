package websocket

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	ws "github.com/gorilla/websocket"

	"github.com/refty/hamcounter/internal/domain"
)

const maxFrameBytes = 64 * 1024

// Handler upgrades dashboard connections and pumps their inbound frames.
type Handler struct {
	hub      *Hub
	upgrader ws.Upgrader
}

func NewHandler(hub *Hub, checkOrigin func(r *http.Request) bool) *Handler {
	return &Handler{
		hub: hub,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		slog.Debug("WebSocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	client, err := h.hub.Register(conn)
	if err != nil {
		code := ws.CloseInternalServerErr
		if errors.Is(err, domain.ErrHubFull) {
			code = ws.CloseTryAgainLater
		}
		deadline := time.Now().Add(writeDeadline)
		_ = conn.WriteControl(ws.CloseMessage, ws.FormatCloseMessage(code, err.Error()), deadline)
		_ = conn.Close()
		return
	}
	defer h.hub.Unregister(client)

	slog.Info("Dashboard connected", "client_id", client.ID(), "remote_addr", r.RemoteAddr)
	h.readLoop(conn, client)
	slog.Info("Dashboard disconnected", "client_id", client.ID())
}

func (h *Handler) readLoop(conn *ws.Conn, client *Client) {
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway, ws.CloseNoStatusReceived) {
				slog.Debug("Dashboard read failed", "client_id", client.ID(), "error", err)
			}
			return
		}
		client.writer.extendReadDeadline()

		env, err := decode(frame)
		if err != nil {
			slog.Debug("Ignoring malformed dashboard frame", "client_id", client.ID(), "error", err)
			continue
		}
		if env.Event == EventMessage {
			client.Echo(env.Data)
		}
	}
}
