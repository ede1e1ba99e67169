// Package queue carries register-session liveness events to dashboards over
// RabbitMQ (or Redis pub/sub) and provides a consumer for them.
package queue

import "time"

// RegisterSessionQueue is the queue (and Redis channel) liveness events are
// published on.
const RegisterSessionQueue = "register.session.updated"

// Liveness states.
const (
	SessionActive = "ACTIVE"
	SessionEnded  = "ENDED"
)

// RegisterSessionEvent is published after a register session is opened,
// heartbeats, or ends.  It is fire-and-forget: consumers must tolerate gaps
// and duplicates.
type RegisterSessionEvent struct {
	SessionID      string    `json:"session_id"`
	RegisterNumber int       `json:"register_number"`
	StaffID        string    `json:"staff_id"`
	DeviceID       string    `json:"device_id"`
	Status         string    `json:"status"`
	EndedReason    string    `json:"ended_reason,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}
