package model

import "time"

// Register numbers are fixed: the facility has three physical terminals.
const (
	MinRegisterNumber = 1
	MaxRegisterNumber = 3
)

// ValidRegisterNumber reports whether n names a physical register.
func ValidRegisterNumber(n int) bool {
	return n >= MinRegisterNumber && n <= MaxRegisterNumber
}

// SignOutReason records why a register session ended.
type SignOutReason string

const (
	SignOutStaffClosed SignOutReason = "STAFF_CLOSED"
	SignOutForced      SignOutReason = "FORCED_SIGN_OUT"
	SignOutTTLExpired  SignOutReason = "TTL_EXPIRED"
)

// CloseReason is the staff-supplied reason for a voluntary close.
type CloseReason string

const (
	CloseShiftEnd CloseReason = "SHIFT_END"
	CloseBreak    CloseReason = "BREAK"
	CloseOther    CloseReason = "OTHER"
)

// Valid reports whether r is a known close reason.
func (r CloseReason) Valid() bool {
	return r == CloseShiftEnd || r == CloseBreak || r == CloseOther
}

// RegisterSession is a staff member's claim on one register from one
// device.  A session is ACTIVE while SignedOutAt is nil; at most one active
// session exists per register number and per device.
type RegisterSession struct {
	ID               string         `json:"id"`
	RegisterNumber   int            `json:"register_number"`
	StaffID          string         `json:"staff_id"`
	DeviceID         string         `json:"device_id"`
	StartedAt        time.Time      `json:"started_at"`
	LastHeartbeatAt  time.Time      `json:"last_heartbeat_at"`
	SignedOutAt      *time.Time     `json:"signed_out_at"`
	SignedOutReason  *SignOutReason `json:"signed_out_reason"`
	SignedOutByStaff *string        `json:"signed_out_by_staff_id"`
}

// Active reports whether the session has not ended.
func (s RegisterSession) Active() bool { return s.SignedOutAt == nil }

// RegisterAvailability is one row of the register availability board.
type RegisterAvailability struct {
	RegisterNumber  int     `json:"register_number"`
	Available       bool    `json:"available"`
	ActiveSessionID *string `json:"active_session_id"`
	StaffID         *string `json:"staff_id"`
	DeviceID        *string `json:"device_id"`
}
