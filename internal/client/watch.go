package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	ws "github.com/gorilla/websocket"

	"github.com/refty/hamcounter/internal/domain"
)

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Watch streams receiveMessage aggregates from /ws to fn until ctx is
// cancelled or the server closes the connection.
func (c *Client) Watch(ctx context.Context, fn func(domain.Running)) error {
	u := *c.baseURL
	u.Path += "/ws"
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	conn, resp, err := ws.DefaultDialer.DialContext(ctx, u.String(), http.Header{})
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", u.String(), err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer func() { _ = conn.Close() }()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			var closeErr *ws.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == ws.CloseNormalClosure {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(frame, &env); err != nil || env.Event != "receiveMessage" {
			continue
		}
		var running domain.Running
		if err := json.Unmarshal(env.Data, &running); err != nil {
			continue
		}
		fn(running)
	}
}
