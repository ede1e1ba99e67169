package model

import "time"

// UpgradeStatus is the state of an upgrade offer.  PENDING is the only
// non-terminal state.
type UpgradeStatus string

const (
	UpgradePending  UpgradeStatus = "PENDING"
	UpgradeAccepted UpgradeStatus = "ACCEPTED"
	UpgradeDeclined UpgradeStatus = "DECLINED"
	UpgradeExpired  UpgradeStatus = "EXPIRED"
)

// UpgradeOffer proposes moving a visit from its current item to an item of
// another type.
type UpgradeOffer struct {
	ID                  string        `json:"id"`
	VisitID             string        `json:"visit_id"`
	FromInventoryItemID string        `json:"from_inventory_item_id"`
	ToInventoryType     InventoryType `json:"to_inventory_type"`
	Status              UpgradeStatus `json:"status"`
	ExpiresAt           time.Time     `json:"expires_at"`
	CreatedAt           time.Time     `json:"created_at"`
	DecidedAt           *time.Time    `json:"decided_at"`
	ToInventoryItemID   *string       `json:"to_inventory_item_id"` // set on accept
}
