package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHubServer serves the hub, taking the user id from the "user" query param.
func newHubServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseUint(r.URL.Query().Get("user"), 10, 64)
		_ = h.Serve(w, r, uint(id))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, user uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=" + strconv.FormatUint(uint64(user), 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev domain.Event
	require.NoError(t, json.Unmarshal(raw, &ev))
	return ev
}

func TestHub_ReplaysBacklogOnConnect(t *testing.T) {
	_, rdb := newRedis(t)
	pub := NewRedisPublisher(rdb, 10)
	ctx := context.Background()
	require.NoError(t, pub.Publish(ctx, 7, insertEvent("n1")))
	require.NoError(t, pub.Publish(ctx, 7, insertEvent("n2")))

	h := NewHub(pub, logger.Discard())
	t.Cleanup(func() { h.Close() })
	conn := dial(t, newHubServer(t, h), 7)

	assert.Equal(t, "n1", readEvent(t, conn).Notification.ID)
	assert.Equal(t, "n2", readEvent(t, conn).Notification.ID)
}

func TestHub_ForwardsRedisEventsToRecipientOnly(t *testing.T) {
	_, rdb := newRedis(t)
	pub := NewRedisPublisher(rdb, 10)
	ctx := context.Background()

	h := NewHub(nil, logger.Discard())
	t.Cleanup(func() { h.Close() })
	stop, err := h.Listen(ctx, rdb)
	require.NoError(t, err)
	t.Cleanup(stop)

	srv := newHubServer(t, h)
	mine := dial(t, srv, 7)
	theirs := dial(t, srv, 8)
	require.Eventually(t, func() bool { return h.Sessions() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, pub.Publish(ctx, 8, insertEvent("for-8")))
	require.NoError(t, pub.Publish(ctx, 7, insertEvent("for-7")))

	assert.Equal(t, "for-7", readEvent(t, mine).Notification.ID)
	assert.Equal(t, "for-8", readEvent(t, theirs).Notification.ID)
}

func TestHub_PublishWithoutRedis(t *testing.T) {
	h := NewHub(nil, logger.Discard())
	t.Cleanup(func() { h.Close() })
	conn := dial(t, newHubServer(t, h), 3)
	require.Eventually(t, func() bool { return h.Sessions() == 1 }, 2*time.Second, 10*time.Millisecond)

	ev := insertEvent("local")
	ev.Kind = domain.EventDelete
	require.NoError(t, h.Publish(context.Background(), 3, ev))

	got := readEvent(t, conn)
	assert.Equal(t, domain.EventDelete, got.Kind)
	assert.Equal(t, "local", got.Notification.ID)
}
