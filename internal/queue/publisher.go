package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) PublishRegisterSessionUpdated(context.Context, RegisterSessionEvent) error {
	return nil
}

// Dial limits for RabbitPublisher.
const (
	dialTimeout    = 3 * time.Second
	minRedialDelay = time.Second
	maxRedialDelay = 30 * time.Second
)

// ErrBrokerUnavailable is returned while RabbitPublisher is waiting out the
// delay after a failed dial.
var ErrBrokerUnavailable = errors.New("rabbitmq unavailable")

// RabbitPublisher publishes liveness events to a durable RabbitMQ queue.  The
// connection is opened lazily and re-dialed after a failure, with a growing
// delay between dials, so a broker outage only costs the events published
// while it lasts.
type RabbitPublisher struct {
	url string
	log *zap.Logger
	now func() time.Time

	mu          sync.Mutex
	conn        *amqp.Connection
	ch          *amqp.Channel
	redialAt    time.Time
	redialDelay time.Duration
}

// NewRabbitPublisher returns a publisher for the broker at url.
func NewRabbitPublisher(url string, log *zap.Logger) *RabbitPublisher {
	return &RabbitPublisher{url: url, log: log.Named("rabbitmq"), now: time.Now}
}

func dialBroker(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
}

// dialFailed schedules the next dial attempt.
func (p *RabbitPublisher) dialFailed() {
	switch {
	case p.redialDelay == 0:
		p.redialDelay = minRedialDelay
	case p.redialDelay < maxRedialDelay:
		p.redialDelay = min(2*p.redialDelay, maxRedialDelay)
	}
	p.redialAt = p.now().Add(p.redialDelay)
}

// channel returns an open channel with the queue declared, dialing if
// needed.  Callers hold p.mu.
func (p *RabbitPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()
	if p.now().Before(p.redialAt) {
		return nil, ErrBrokerUnavailable
	}

	conn, err := dialBroker(p.url)
	if err != nil {
		p.dialFailed()
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.dialFailed()
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so events survive broker restarts.
	if _, err := ch.QueueDeclare(
		RegisterSessionQueue, // name
		true,                 // durable
		false,                // autoDelete
		false,                // exclusive
		false,                // noWait
		nil,                  // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.dialFailed()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.redialAt, p.redialDelay = time.Time{}, 0
	return ch, nil
}

func (p *RabbitPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}

// PublishRegisterSessionUpdated publishes ev as a persistent JSON message.
// Errors are logged and returned; callers are expected to ignore them.
func (p *RabbitPublisher) PublishRegisterSessionUpdated(ctx context.Context, ev RegisterSessionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		if !errors.Is(err, ErrBrokerUnavailable) {
			p.log.Warn("publish failed", zap.String("session_id", ev.SessionID), zap.Error(err))
		}
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",                   // default exchange
		RegisterSessionQueue, // routing key = queue name
		false,                // mandatory
		false,                // immediate
		pub,
	); err != nil {
		p.reset()
		p.log.Warn("publish failed", zap.String("session_id", ev.SessionID), zap.Error(err))
		return err
	}
	return nil
}

// Close releases the broker connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
