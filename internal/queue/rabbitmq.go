// Package queue carries push events over RabbitMQ so that social writes
// never wait on batching.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/atlas-fitness/atlas-api/internal/push"
	"github.com/atlas-fitness/atlas-api/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	PushEventsExchange = "push_events"
	PushEventsQueue    = "push_events_queue"
	pushEventsKey      = "push.event"
)

// Handler processes one decoded event.
type Handler func(ctx context.Context, e push.Event) error

type Client struct {
	conn    *amqp.Connection
	publish *amqp.Channel
	pubMu   sync.Mutex
	logger  *logger.Logger
}

func NewRabbitMQClient(url string, log *logger.Logger) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declare(channel); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.Info("Connected to RabbitMQ, exchange=%s queue=%s", PushEventsExchange, PushEventsQueue)
	return &Client{conn: conn, publish: channel, logger: log}, nil
}

func declare(channel *amqp.Channel) error {
	err := channel.ExchangeDeclare(
		PushEventsExchange, // name
		"direct",           // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		PushEventsQueue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		nil,             // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(PushEventsQueue, pushEventsKey, PushEventsExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.publish != nil {
		c.publish.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Queue publishes e as a persistent message. It satisfies push.Queuer.
func (c *Client) Queue(ctx context.Context, e push.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal push event: %w", err)
	}

	c.pubMu.Lock()
	defer c.pubMu.Unlock()
	err = c.publish.PublishWithContext(ctx,
		PushEventsExchange, // exchange
		pushEventsKey,      // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		c.logger.Error("[RABBITMQ] publish %s event for user %d: %v", e.Type, e.RecipientID, err)
		return fmt.Errorf("failed to publish push event: %w", err)
	}
	return nil
}

// Consume hands each delivery to handler until ctx is done or the
// connection drops.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	channel, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open consumer channel: %w", err)
	}
	defer channel.Close()

	if err := channel.Qos(20, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}
	msgs, err := channel.Consume(
		PushEventsQueue, // queue
		"",              // consumer
		false,           // auto-ack
		false,           // exclusive
		false,           // no-local
		false,           // no-wait
		nil,             // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.logger.Info("[RABBITMQ] consuming %s", PushEventsQueue)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("consumer channel closed")
			}
			c.handle(ctx, msg, handler)
		}
	}
}

// handle acks processed messages, drops undecodable or malformed ones and
// requeues on any other handler failure.
func (c *Client) handle(ctx context.Context, msg amqp.Delivery, handler Handler) {
	var e push.Event
	if err := json.Unmarshal(msg.Body, &e); err != nil {
		c.logger.Error("[RABBITMQ] undecodable push event: %v, body=%s", err, string(msg.Body))
		msg.Nack(false, false)
		return
	}

	if err := handler(ctx, e); err != nil {
		if errors.Is(err, push.ErrMalformedEvent) {
			c.logger.Error("[RABBITMQ] dropping push event: %v", err)
			msg.Nack(false, false)
			return
		}
		c.logger.Error("[RABBITMQ] push event for user %d failed: %v", e.RecipientID, err)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
