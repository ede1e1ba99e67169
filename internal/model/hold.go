package model

import "time"

// HoldStatus is the lifecycle state of a hold.
type HoldStatus string

const (
	HoldActive   HoldStatus = "ACTIVE"
	HoldReleased HoldStatus = "RELEASED"
	HoldExpired  HoldStatus = "EXPIRED"
)

// Hold is a short-lived exclusive claim on an inventory item made on behalf
// of either a visit or a waitlist entry (exactly one of the two).  At most one
// ACTIVE hold exists per item; an ACTIVE hold whose ExpiresAt has passed is
// flipped to EXPIRED the next time the item is touched.
type Hold struct {
	ID              string     `json:"id"`                  // inventory_holds.id
	InventoryItemID string     `json:"inventory_item_id"`   // inventory_holds.inventory_item_id
	VisitID         *string    `json:"visit_id"`            // inventory_holds.visit_id (nullable)
	WaitlistEntryID *string    `json:"waitlist_entry_id"`   // inventory_holds.waitlist_entry_id (nullable)
	Status          HoldStatus `json:"status"`              // inventory_holds.status
	ExpiresAt       time.Time  `json:"expires_at"`          // inventory_holds.expires_at
	CreatedAt       time.Time  `json:"created_at"`          // inventory_holds.created_at
	CreatedByStaff  *string    `json:"created_by_staff_id"` // inventory_holds.created_by_staff_id (nullable)
}

// Lapsed reports whether h is still ACTIVE but past its expiry at now.
func (h Hold) Lapsed(now time.Time) bool {
	return h.Status == HoldActive && !h.ExpiresAt.After(now)
}

// Live reports whether h currently blocks other claims on its item.
func (h Hold) Live(now time.Time) bool {
	return h.Status == HoldActive && h.ExpiresAt.After(now)
}
