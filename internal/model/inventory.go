package model

import "time"

// InventoryType distinguishes the two kinds of physical resource a visit can
// occupy.
type InventoryType string

const (
	InventoryTypeRoom   InventoryType = "room"
	InventoryTypeLocker InventoryType = "locker"
)

// Valid reports whether t is a known inventory type.
func (t InventoryType) Valid() bool {
	return t == InventoryTypeRoom || t == InventoryTypeLocker
}

// InventoryStatus is the cleaning/occupancy state of an inventory item.
type InventoryStatus string

const (
	InventoryAvailable    InventoryStatus = "AVAILABLE"
	InventoryOccupied     InventoryStatus = "OCCUPIED"
	InventoryDirty        InventoryStatus = "DIRTY"
	InventoryCleaning     InventoryStatus = "CLEANING"
	InventoryOutOfService InventoryStatus = "OUT_OF_SERVICE"
)

// Valid reports whether s is a known inventory status.
func (s InventoryStatus) Valid() bool {
	_, ok := inventoryTransitions[s]
	return ok
}

// InventoryItem is a room or locker tracked through the occupancy and
// cleaning lifecycle.  Items are created by an administrator and are never
// deleted; their status only changes through the legal transition table
// in transitions.go (or an explicit administrative override).
//
// Fields:
//
//	ID        – UUID primary key.
//	Type      – room or locker.
//	Name      – operator-facing label, e.g. "Room 12".
//	Status    – current lifecycle status.
//	Notes     – free text; required when the item is out of service.
//	CreatedAt – creation timestamp.
//	UpdatedAt – last status change.
type InventoryItem struct {
	ID        string          `json:"id"`         // inventory_items.id
	Type      InventoryType   `json:"type"`       // inventory_items.type
	Name      string          `json:"name"`       // inventory_items.name
	Status    InventoryStatus `json:"status"`     // inventory_items.status
	Notes     *string         `json:"notes"`      // inventory_items.notes (nullable)
	CreatedAt time.Time       `json:"created_at"` // inventory_items.created_at
	UpdatedAt time.Time       `json:"updated_at"` // inventory_items.updated_at
}

// InventoryFilter narrows an inventory listing.  Zero values match all.
type InventoryFilter struct {
	Type   InventoryType
	Status InventoryStatus
}
