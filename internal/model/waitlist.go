package model

import "time"

// WaitlistStatus is the state of a waitlist entry.
type WaitlistStatus string

const (
	WaitlistOpen      WaitlistStatus = "OPEN"
	WaitlistCancelled WaitlistStatus = "CANCELLED"
)

// RequestedType is what a waiting customer asked for; "any" accepts either
// inventory type.
type RequestedType string

const (
	RequestRoom   RequestedType = "room"
	RequestLocker RequestedType = "locker"
	RequestAny    RequestedType = "any"
)

// Valid reports whether r is a known requested type.
func (r RequestedType) Valid() bool {
	return r == RequestRoom || r == RequestLocker || r == RequestAny
}

// WaitlistEntry is a customer waiting for inventory to free up.  Holds may
// reference an OPEN entry.
type WaitlistEntry struct {
	ID            string         `json:"id"`
	CustomerID    string         `json:"customer_id"`
	RequestedType RequestedType  `json:"requested_type"`
	Status        WaitlistStatus `json:"status"`
	Notes         *string        `json:"notes"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
