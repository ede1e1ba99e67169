package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsumerHandleDecodesEvent(t *testing.T) {
	var got RegisterSessionEvent
	c := NewConsumer("amqp://unused", func(_ context.Context, ev RegisterSessionEvent) error {
		got = ev
		return nil
	}, zap.NewNop())

	err := c.handle(context.Background(), []byte(`{"session_id":"s-1","register_number":2,"status":"ENDED","ended_reason":"TTL_EXPIRED"}`))
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, 2, got.RegisterNumber)
	assert.Equal(t, SessionEnded, got.Status)
	assert.Equal(t, "TTL_EXPIRED", got.EndedReason)
}

func TestConsumerHandleRejectsGarbage(t *testing.T) {
	c := NewConsumer("amqp://unused", func(context.Context, RegisterSessionEvent) error {
		return errors.New("must not be called")
	}, zap.NewNop())
	assert.Error(t, c.handle(context.Background(), []byte("{not json")))
}

func TestLogHandlerWritesFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := LogHandler(zap.New(core))
	require.NoError(t, h(context.Background(), RegisterSessionEvent{SessionID: "s-9", RegisterNumber: 1, Status: SessionActive, OccurredAt: time.Unix(0, 0)}))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "s-9", fields["session_id"])
	assert.Equal(t, SessionActive, fields["status"])
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewConsumer("amqp://127.0.0.1:1/", LogHandler(zap.NewNop()), zap.NewNop())
	assert.ErrorIs(t, c.Run(ctx), context.Canceled)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.PublishRegisterSessionUpdated(context.Background(), RegisterSessionEvent{}))
}
