package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Handler processes one decoded liveness event.
type Handler func(ctx context.Context, ev RegisterSessionEvent) error

// LogHandler returns a Handler that writes each event to log.
func LogHandler(log *zap.Logger) Handler {
	return func(_ context.Context, ev RegisterSessionEvent) error {
		log.Info("register session updated",
			zap.String("session_id", ev.SessionID),
			zap.Int("register_number", ev.RegisterNumber),
			zap.String("staff_id", ev.StaffID),
			zap.String("device_id", ev.DeviceID),
			zap.String("status", ev.Status),
			zap.String("ended_reason", ev.EndedReason),
			zap.Time("occurred_at", ev.OccurredAt),
		)
		return nil
	}
}

// Consumer reads liveness events from RabbitMQ.
type Consumer struct {
	url     string
	handler Handler
	log     *zap.Logger
}

// NewConsumer returns a consumer for the broker at url.
func NewConsumer(url string, handler Handler, log *zap.Logger) *Consumer {
	return &Consumer{url: url, handler: handler, log: log.Named("liveness-consumer")}
}

// Run connects, declares the durable queue, and consumes until ctx is
// cancelled.  Dial failures back off exponentially up to 30s; a dropped
// connection is re-established.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn("failed to dial broker", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("consume loop ended; reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(RegisterSessionQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(RegisterSessionQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.handle(ctx, d.Body); err != nil {
				c.log.Warn("handle message failed", zap.Error(err))
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev RegisterSessionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return c.handler(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
