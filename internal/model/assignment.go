package model

import "time"

// VisitAssignment links a visit to the inventory item it currently occupies.
// A row is "active" while ReleasedAt is nil.  Reassignment moves
// InventoryItemID in place so a visit keeps one continuous row until its
// final release.
type VisitAssignment struct {
	ID              string     `json:"id"`                // visit_assignments.id
	VisitID         string     `json:"visit_id"`          // visit_assignments.visit_id
	InventoryItemID string     `json:"inventory_item_id"` // visit_assignments.inventory_item_id
	AssignedAt      time.Time  `json:"assigned_at"`       // visit_assignments.assigned_at
	ReleasedAt      *time.Time `json:"released_at"`       // visit_assignments.released_at (nullable)
}

// Active reports whether the assignment has not been released.
func (a VisitAssignment) Active() bool { return a.ReleasedAt == nil }
