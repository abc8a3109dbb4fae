// Package realtime fans notification events out to connected clients.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atlas-fitness/atlas-api/pkg/domain"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultBacklog = 100
	backlogTTL     = 30 * 24 * time.Hour

	channelPrefix = "notifications:"
	backlogPrefix = "notifications:recent:"
)

// Publisher emits an event to one recipient's live sessions.
type Publisher interface {
	Publish(ctx context.Context, recipientID uint, ev domain.Event) error
}

// Backlog returns the most recent events for a recipient, oldest first.
type Backlog interface {
	Recent(ctx context.Context, recipientID uint) ([]domain.Event, error)
}

func channelFor(recipientID uint) string {
	return channelPrefix + strconv.FormatUint(uint64(recipientID), 10)
}

func backlogKey(recipientID uint) string {
	return backlogPrefix + strconv.FormatUint(uint64(recipientID), 10)
}

// recipientFromChannel parses "notifications:{id}".
func recipientFromChannel(channel string) (uint, bool) {
	raw := strings.TrimPrefix(channel, channelPrefix)
	if raw == channel {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// RedisPublisher keeps a bounded per-recipient backlog in a Redis list and
// publishes each event on the recipient's channel.
type RedisPublisher struct {
	rdb     *redis.Client
	backlog int64
}

func NewRedisPublisher(rdb *redis.Client, backlog int) *RedisPublisher {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &RedisPublisher{rdb: rdb, backlog: int64(backlog)}
}

func (p *RedisPublisher) Publish(ctx context.Context, recipientID uint, ev domain.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode realtime event: %w", err)
	}

	key := backlogKey(recipientID)
	_, err = p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.LTrim(ctx, key, 0, p.backlog-1)
		pipe.Expire(ctx, key, backlogTTL)
		pipe.Publish(ctx, channelFor(recipientID), raw)
		return nil
	})
	if err != nil {
		return fmt.Errorf("publish realtime event: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Recent(ctx context.Context, recipientID uint) ([]domain.Event, error) {
	raws, err := p.rdb.LRange(ctx, backlogKey(recipientID), 0, p.backlog-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read realtime backlog: %w", err)
	}

	events := make([]domain.Event, 0, len(raws))
	for i := len(raws) - 1; i >= 0; i-- {
		var ev domain.Event
		if err := json.Unmarshal([]byte(raws[i]), &ev); err != nil {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, uint, domain.Event) error { return nil }

func (NopPublisher) Recent(context.Context, uint) ([]domain.Event, error) { return nil, nil }
