package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedClockNeverMoves(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	c := NewFixed(at)
	assert.Equal(t, at.UTC(), c.Now())
	assert.Equal(t, time.UTC, c.Now().Location())
}

func TestManualClockAdvance(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewManual(start)
	c.Advance(1200 * time.Millisecond)
	assert.Equal(t, start.Add(1200*time.Millisecond), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
