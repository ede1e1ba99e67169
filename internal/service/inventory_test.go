package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/model"
)

func TestUpdateStatusFollowsLegalTable(t *testing.T) {
	for _, from := range model.InventoryStatuses() {
		for _, to := range model.InventoryStatuses() {
			name := fmt.Sprintf("%s-to-%s", from, to)
			t.Run(name, func(t *testing.T) {
				f := newFixture(t)
				it := f.itemWithStatus(name, from)
				got, err := f.core.Inventory.UpdateStatus(f.ctx, it.ID, to, "note", staff)
				switch {
				case from == to:
					require.ErrorIs(t, err, apperr.ErrSameStatus)
				case model.IsLegalTransition(from, to):
					require.NoError(t, err)
					assert.Equal(t, to, got.Status)
				default:
					require.ErrorIs(t, err, apperr.ErrInvalidTransition)
					assert.Equal(t, from, f.status(it.ID))
				}
			})
		}
	}
}

func TestUpdateStatusAdminOverride(t *testing.T) {
	f := newFixture(t)
	it := f.item(model.InventoryTypeRoom, "101")

	_, err := f.core.Inventory.UpdateStatus(f.ctx, it.ID, model.InventoryCleaning, "", staff)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	got, err := f.core.Inventory.UpdateStatus(f.ctx, it.ID, model.InventoryCleaning, "", admin)
	require.NoError(t, err)
	assert.Equal(t, model.InventoryCleaning, got.Status)
}

func TestUpdateStatusOutOfServiceNeedsNote(t *testing.T) {
	f := newFixture(t)
	it := f.item(model.InventoryTypeLocker, "L1")

	_, err := f.core.Inventory.UpdateStatus(f.ctx, it.ID, model.InventoryOutOfService, "  ", staff)
	require.ErrorIs(t, err, apperr.ErrValidation)

	got, err := f.core.Inventory.UpdateStatus(f.ctx, it.ID, model.InventoryOutOfService, "broken lock", staff)
	require.NoError(t, err)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "broken lock", *got.Notes)
}

func TestUpdateStatusAuditsTransition(t *testing.T) {
	f := newFixture(t)
	it := f.item(model.InventoryTypeRoom, "102")

	_, err := f.core.Inventory.UpdateStatus(f.ctx, it.ID, model.InventoryDirty, "spill", staff)
	require.NoError(t, err)

	entries := f.store.AuditEntriesFor(model.AuditInventoryStatusUpdated, it.ID)
	require.Len(t, entries, 1)
	meta := entries[0].Metadata
	assert.Equal(t, "AVAILABLE", meta["fromStatus"])
	assert.Equal(t, "DIRTY", meta["toStatus"])
	assert.Equal(t, SourceManual, meta["source"])
	assert.Equal(t, "spill", meta["note"])
	require.NotNil(t, entries[0].ActorStaffID)
	assert.Equal(t, staff.StaffID, *entries[0].ActorStaffID)
}

func TestUpdateStatusFailureLeavesNoAudit(t *testing.T) {
	f := newFixture(t)
	it := f.item(model.InventoryTypeRoom, "103")

	_, err := f.core.Inventory.UpdateStatus(f.ctx, it.ID, model.InventoryAvailable, "", staff)
	require.ErrorIs(t, err, apperr.ErrSameStatus)
	assert.Empty(t, f.store.AuditEntriesFor(model.AuditInventoryStatusUpdated, it.ID))
}

func TestUpdateStatusUnknownItem(t *testing.T) {
	f := newFixture(t)
	_, err := f.core.Inventory.UpdateStatus(f.ctx, "missing", model.InventoryDirty, "", staff)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, apperr.CodeInventoryNotFound, apperr.CodeOf(err))
}

func TestCreateItemValidation(t *testing.T) {
	f := newFixture(t)
	cases := []CreateItemRequest{
		{Type: "suite", Name: "x"},
		{Type: model.InventoryTypeRoom, Name: " "},
		{Type: model.InventoryTypeRoom, Name: "x", Status: "BROKEN"},
		{Type: model.InventoryTypeRoom, Name: "x", Status: model.InventoryOutOfService},
	}
	for _, req := range cases {
		_, err := f.core.Inventory.CreateItem(f.ctx, req, admin)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", req)
	}
}

func TestListFiltersByTypeAndStatus(t *testing.T) {
	f := newFixture(t)
	f.item(model.InventoryTypeRoom, "201")
	f.item(model.InventoryTypeLocker, "L2")
	dirty := f.item(model.InventoryTypeRoom, "202")
	_, err := f.core.Inventory.UpdateStatus(f.ctx, dirty.ID, model.InventoryDirty, "", staff)
	require.NoError(t, err)

	rooms, err := f.core.Inventory.List(f.ctx, model.InventoryFilter{Type: model.InventoryTypeRoom})
	require.NoError(t, err)
	assert.Len(t, rooms, 2)

	dirtyRooms, err := f.core.Inventory.List(f.ctx, model.InventoryFilter{Type: model.InventoryTypeRoom, Status: model.InventoryDirty})
	require.NoError(t, err)
	require.Len(t, dirtyRooms, 1)
	assert.Equal(t, dirty.ID, dirtyRooms[0].ID)

	_, err = f.core.Inventory.List(f.ctx, model.InventoryFilter{Status: "NOPE"})
	require.ErrorIs(t, err, apperr.ErrValidation)
}
