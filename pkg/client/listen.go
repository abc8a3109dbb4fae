package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/gorilla/websocket"
)

var errNoHandler = errors.New("client: nil event handler")

// EventHandler receives each real-time event in arrival order.
type EventHandler func(domain.Event)

// streamURL maps the API base URL onto the websocket endpoint.
func (c *Client) streamURL() (string, error) {
	switch {
	case strings.HasPrefix(c.baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(c.baseURL, "https://") + apiPrefix + "/ws", nil
	case strings.HasPrefix(c.baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(c.baseURL, "http://") + apiPrefix + "/ws", nil
	default:
		return "", fmt.Errorf("unsupported base URL %q", c.baseURL)
	}
}

// Listen streams the caller's real-time notification events to handler
// until ctx ends or the connection drops. The server replays its recent
// backlog first, so handlers should be idempotent (Inbox.Apply is).
// Listen returns ctx.Err() when cancelled.
func (c *Client) Listen(ctx context.Context, handler EventHandler) error {
	if handler == nil {
		return errNoHandler
	}
	target, err := c.streamURL()
	if err != nil {
		return fmt.Errorf("client.Listen: %w", err)
	}
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close() //nolint:errcheck // best-effort close
			return fmt.Errorf("client.Listen: %w", readHTTPError(resp))
		}
		return fmt.Errorf("client.Listen: dial: %w", err)
	}
	defer conn.Close() //nolint:errcheck // best-effort close

	stop := context.AfterFunc(ctx, func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteMessage(websocket.CloseMessage, msg)
		conn.Close() //nolint:errcheck // unblocks ReadMessage
	})
	defer stop()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("client.Listen: read: %w", err)
		}

		var ev domain.Event
		if err := json.Unmarshal(raw, &ev); err != nil || ev.Notification.ID == "" {
			continue
		}
		handler(ev)
	}
}
