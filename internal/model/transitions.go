package model

// inventoryTransitions is the legal transition table for inventory status.
// Every status appears as a key so the table doubles as the set of valid
// statuses.
var inventoryTransitions = map[InventoryStatus][]InventoryStatus{
	InventoryAvailable:    {InventoryDirty, InventoryOutOfService},
	InventoryOccupied:     {InventoryDirty, InventoryOutOfService},
	InventoryDirty:        {InventoryCleaning, InventoryOutOfService},
	InventoryCleaning:     {InventoryAvailable, InventoryOutOfService},
	InventoryOutOfService: {InventoryAvailable},
}

// IsLegalTransition reports whether an item may move from one status to
// another without an administrative override.
func IsLegalTransition(from, to InventoryStatus) bool {
	for _, s := range inventoryTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// LegalTargets returns a copy of the statuses reachable from from.
func LegalTargets(from InventoryStatus) []InventoryStatus {
	return append([]InventoryStatus(nil), inventoryTransitions[from]...)
}

// InventoryStatuses lists every known status in a stable order.
func InventoryStatuses() []InventoryStatus {
	return []InventoryStatus{
		InventoryAvailable,
		InventoryOccupied,
		InventoryDirty,
		InventoryCleaning,
		InventoryOutOfService,
	}
}
