package model

import "time"

// CheckoutMethod is where a checkout was initiated.
type CheckoutMethod string

const (
	CheckoutKiosk    CheckoutMethod = "KIOSK"
	CheckoutRegister CheckoutMethod = "REGISTER"
	CheckoutAdmin    CheckoutMethod = "ADMIN"
)

// Valid reports whether m is a known checkout method.
func (m CheckoutMethod) Valid() bool {
	return m == CheckoutKiosk || m == CheckoutRegister || m == CheckoutAdmin
}

// CheckoutEvent tracks a checkout from request to completion.
type CheckoutEvent struct {
	ID          string         `json:"id"`
	VisitID     string         `json:"visit_id"`
	Method      CheckoutMethod `json:"method"`
	RequestedAt time.Time      `json:"requested_at"`
	CompletedAt *time.Time     `json:"completed_at"`
	StaffID     *string        `json:"staff_id"`
}

// Completed reports whether the checkout has finished.
func (c CheckoutEvent) Completed() bool { return c.CompletedAt != nil }
