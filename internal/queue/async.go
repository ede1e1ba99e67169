package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrBufferFull is returned when an AsyncPublisher has no room for another
// event.  The event is dropped.
var ErrBufferFull = errors.New("liveness buffer full")

// ErrPublisherClosed is returned for events published after Close.
var ErrPublisherClosed = errors.New("liveness publisher closed")

// Publisher is anything that can deliver a liveness event.
type Publisher interface {
	PublishRegisterSessionUpdated(ctx context.Context, ev RegisterSessionEvent) error
}

// AsyncPublisher queues events in a bounded buffer and hands them to next on
// a single background goroutine, so a slow or unreachable broker never holds
// up the caller.
type AsyncPublisher struct {
	next    Publisher
	timeout time.Duration
	log     *zap.Logger
	events  chan RegisterSessionEvent
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewAsyncPublisher starts draining a buffer of size events into next.  Each
// delivery gets its own timeout.  Close must be called to stop it.
func NewAsyncPublisher(next Publisher, size int, timeout time.Duration, log *zap.Logger) *AsyncPublisher {
	if size < 1 {
		size = 1
	}
	p := &AsyncPublisher{
		next:    next,
		timeout: timeout,
		log:     log,
		events:  make(chan RegisterSessionEvent, size),
		done:    make(chan struct{}),
	}
	go p.drain()
	return p
}

// PublishRegisterSessionUpdated enqueues ev without blocking.
func (p *AsyncPublisher) PublishRegisterSessionUpdated(_ context.Context, ev RegisterSessionEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

func (p *AsyncPublisher) drain() {
	defer close(p.done)
	for ev := range p.events {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.next.PublishRegisterSessionUpdated(ctx, ev); err != nil {
			p.log.Warn("liveness delivery failed",
				zap.String("session_id", ev.SessionID),
				zap.String("status", ev.Status),
				zap.Error(err))
		}
		cancel()
	}
}

// Close stops accepting events and waits for the buffer to drain or ctx to
// end, whichever comes first.  Later publishes fail with ErrPublisherClosed.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
