package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	"github.com/olahol/melody"
	"github.com/redis/go-redis/v9"
)

const sessionUserKey = "user_id"

// Hub holds the websocket sessions of signed-in users. Each event reaches
// only the sessions of its recipient.
type Hub struct {
	m       *melody.Melody
	backlog Backlog
	log     *logger.Logger
}

// NewHub creates a Hub. backlog may be nil, in which case new sessions get
// no replay.
func NewHub(backlog Backlog, log *logger.Logger) *Hub {
	h := &Hub{m: melody.New(), backlog: backlog, log: log}
	h.m.HandleConnect(h.onConnect)
	h.m.HandleError(func(s *melody.Session, err error) {
		h.log.Debug("websocket session error: %v", err)
	})
	return h
}

// Serve upgrades the request into a session owned by userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uint) error {
	return h.m.HandleRequestWithKeys(w, r, map[string]interface{}{sessionUserKey: userID})
}

func sessionUser(s *melody.Session) (uint, bool) {
	v, ok := s.Get(sessionUserKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func (h *Hub) onConnect(s *melody.Session) {
	userID, ok := sessionUser(s)
	if !ok || h.backlog == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := h.backlog.Recent(ctx, userID)
	if err != nil {
		h.log.Warn("replay backlog for user %d: %v", userID, err)
		return
	}
	for _, ev := range events {
		raw, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := s.Write(raw); err != nil {
			return
		}
	}
}

// Deliver writes raw to every session of recipientID.
func (h *Hub) Deliver(recipientID uint, raw []byte) error {
	return h.m.BroadcastFilter(raw, func(s *melody.Session) bool {
		id, ok := sessionUser(s)
		return ok && id == recipientID
	})
}

// Publish delivers to this process's sessions only. It serves as the
// Publisher when no Redis is configured.
func (h *Hub) Publish(_ context.Context, recipientID uint, ev domain.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode realtime event: %w", err)
	}
	return h.Deliver(recipientID, raw)
}

// Listen subscribes to every recipient channel and forwards messages to
// local sessions until ctx ends or the returned stop func is called. The
// subscription is active when Listen returns.
func (h *Hub) Listen(ctx context.Context, rdb *redis.Client) (stop func(), err error) {
	sub := rdb.PSubscribe(ctx, channelPrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe to realtime channels: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				id, ok := recipientFromChannel(msg.Channel)
				if !ok {
					continue
				}
				if err := h.Deliver(id, []byte(msg.Payload)); err != nil {
					h.log.Warn("deliver realtime event to user %d: %v", id, err)
				}
			}
		}
	}()

	return func() {
		cancel()
		sub.Close()
		<-done
	}, nil
}

// Sessions reports how many websocket sessions are open.
func (h *Hub) Sessions() int {
	return h.m.Len()
}

func (h *Hub) Close() error {
	return h.m.Close()
}
