package model

import "time"

// CleaningBatch groups a set of status changes made together by cleaning
// staff.
type CleaningBatch struct {
	ID        string          `json:"id"`
	ToStatus  InventoryStatus `json:"to_status"`
	StaffID   *string         `json:"staff_id"`
	DeviceID  *string         `json:"device_id"`
	CreatedAt time.Time       `json:"created_at"`
}

// CleaningBatchItem records one item's change within a batch.
type CleaningBatchItem struct {
	ID              string          `json:"id"`
	BatchID         string          `json:"batch_id"`
	InventoryItemID string          `json:"inventory_item_id"`
	FromStatus      InventoryStatus `json:"from_status"`
	ToStatus        InventoryStatus `json:"to_status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Per-item outcomes of a cleaning batch.
const (
	CleaningResultUpdated = "UPDATED"
	CleaningResultFailed  = "FAILED"
)

// CleaningResult reports the outcome for one requested item.
type CleaningResult struct {
	InventoryItemID string          `json:"inventory_item_id"`
	Status          string          `json:"status"`
	FromStatus      InventoryStatus `json:"from_status,omitempty"`
	ToStatus        InventoryStatus `json:"to_status,omitempty"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
}
