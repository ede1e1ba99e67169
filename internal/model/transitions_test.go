package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLegalTransitionTable(t *testing.T) {
	legal := map[InventoryStatus][]InventoryStatus{
		InventoryAvailable:    {InventoryDirty, InventoryOutOfService},
		InventoryOccupied:     {InventoryDirty, InventoryOutOfService},
		InventoryDirty:        {InventoryCleaning, InventoryOutOfService},
		InventoryCleaning:     {InventoryAvailable, InventoryOutOfService},
		InventoryOutOfService: {InventoryAvailable},
	}
	for _, from := range InventoryStatuses() {
		for _, to := range InventoryStatuses() {
			want := false
			for _, s := range legal[from] {
				if s == to {
					want = true
				}
			}
			assert.Equalf(t, want, IsLegalTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestNoStatusTransitionsToItself(t *testing.T) {
	for _, s := range InventoryStatuses() {
		assert.False(t, IsLegalTransition(s, s), s)
	}
}

func TestUnknownStatus(t *testing.T) {
	assert.False(t, InventoryStatus("BROKEN").Valid())
	assert.False(t, IsLegalTransition("BROKEN", InventoryAvailable))
	assert.Empty(t, LegalTargets("BROKEN"))
}

func TestLegalTargetsReturnsCopy(t *testing.T) {
	targets := LegalTargets(InventoryOutOfService)
	targets[0] = InventoryDirty
	assert.True(t, IsLegalTransition(InventoryOutOfService, InventoryAvailable))
}
