package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/model"
)

func TestVisitDurations(t *testing.T) {
	f := newFixture(t)
	v := f.visit("ana")
	assert.Equal(t, 360*time.Minute, v.PlannedEndAt.Sub(v.StartedAt))

	renewed, err := f.core.Visits.Renew(f.ctx, v.ID, 360, staff)
	require.NoError(t, err)
	assert.Equal(t, 720*time.Minute, renewed.PlannedEndAt.Sub(renewed.StartedAt))
	assert.Equal(t, 360, renewed.RenewalTotalMinutes)
	require.Len(t, f.store.Renewals(v.ID), 1)

	_, err = f.core.Visits.Renew(f.ctx, v.ID, 360, staff)
	require.ErrorIs(t, err, apperr.ErrVisitMaxDurationExceeded)

	// 720 + 120 = 840 is exactly the ceiling.
	renewed, err = f.core.Visits.Renew(f.ctx, v.ID, 120, staff)
	require.NoError(t, err)
	assert.Equal(t, 840*time.Minute, renewed.PlannedEndAt.Sub(renewed.StartedAt))
	assert.Len(t, f.store.Renewals(v.ID), 2)
}

func TestRenewValidation(t *testing.T) {
	f := newFixture(t)
	v := f.visit("ana")
	_, err := f.core.Visits.Renew(f.ctx, v.ID, 90, staff)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.core.Visits.Close(f.ctx, v.ID, staff)
	require.NoError(t, err)
	_, err = f.core.Visits.Renew(f.ctx, v.ID, 120, staff)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVisitDurationOptions(t *testing.T) {
	f := newFixture(t, WithVisitDurations(60, 180))
	v := f.visit("ana")
	assert.Equal(t, time.Hour, v.PlannedEndAt.Sub(v.StartedAt))
	_, err := f.core.Visits.Renew(f.ctx, v.ID, 120, staff)
	require.NoError(t, err)
	_, err = f.core.Visits.Renew(f.ctx, v.ID, 120, staff)
	require.ErrorIs(t, err, apperr.ErrVisitMaxDurationExceeded)
}

func TestOpenVisitOncePerCustomer(t *testing.T) {
	f := newFixture(t)
	customer := f.customer("ana")

	v, err := f.core.Visits.Open(f.ctx, customer, staff)
	require.NoError(t, err)
	_, err = f.core.Visits.Open(f.ctx, customer, staff)
	require.ErrorIs(t, err, apperr.ErrVisitAlreadyActive)

	_, err = f.core.Visits.Close(f.ctx, v.ID, staff)
	require.NoError(t, err)
	_, err = f.core.Visits.Open(f.ctx, customer, staff)
	require.NoError(t, err)

	_, err = f.core.Visits.Open(f.ctx, "nobody", staff)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, apperr.CodeCustomerNotFound, apperr.CodeOf(err))
}

func TestCloseVisitReleasesItem(t *testing.T) {
	f := newFixture(t)
	v, it := f.assignedVisit("ana", model.InventoryTypeRoom)
	assert.Equal(t, model.InventoryOccupied, f.status(it.ID))

	closed, err := f.core.Visits.Close(f.ctx, v.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, model.VisitClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	assert.Equal(t, model.InventoryDirty, f.status(it.ID))

	a, err := f.core.Visits.ActiveAssignment(f.ctx, v.ID)
	require.NoError(t, err)
	assert.Nil(t, a)

	f.clock.Advance(time.Minute)
	again, err := f.core.Visits.Close(f.ctx, v.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, *closed, *again)
	assert.Len(t, f.store.AuditEntriesFor(model.AuditVisitClosed, v.ID), 1)
}

func TestCloseVisitSkipsDirtyItem(t *testing.T) {
	f := newFixture(t)
	v, it := f.assignedVisit("ana", model.InventoryTypeRoom)
	_, err := f.core.Inventory.UpdateStatus(f.ctx, it.ID, model.InventoryDirty, "", staff)
	require.NoError(t, err)
	before := len(f.store.AuditEntriesFor(model.AuditInventoryStatusUpdated, it.ID))

	_, err = f.core.Visits.Close(f.ctx, v.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, model.InventoryDirty, f.status(it.ID))
	assert.Len(t, f.store.AuditEntriesFor(model.AuditInventoryStatusUpdated, it.ID), before)
}

func TestAssignInventory(t *testing.T) {
	f := newFixture(t)
	v := f.visit("ana")
	it := f.item(model.InventoryTypeRoom, "101")

	a, err := f.core.Visits.AssignInventory(f.ctx, v.ID, it.ID, staff)
	require.NoError(t, err)
	assert.Equal(t, it.ID, a.InventoryItemID)
	assert.Equal(t, model.InventoryOccupied, f.status(it.ID))
	assert.Len(t, f.store.AuditEntriesFor(model.AuditVisitAssigned, v.ID), 1)

	// A second item for the same visit trips the per-visit constraint.
	other := f.item(model.InventoryTypeRoom, "102")
	_, err = f.core.Visits.AssignInventory(f.ctx, v.ID, other.ID, staff)
	require.ErrorIs(t, err, apperr.ErrInventoryUnavailableForAssignment)
	assert.Equal(t, model.InventoryAvailable, f.status(other.ID))

	// An occupied item cannot take another visit.
	v2 := f.visit("ben")
	_, err = f.core.Visits.AssignInventory(f.ctx, v2.ID, it.ID, staff)
	require.ErrorIs(t, err, apperr.ErrInventoryUnavailableForAssignment)
}

func TestAssignInventoryRespectsHolds(t *testing.T) {
	f := newFixture(t)
	owner := f.visit("ana")
	other := f.visit("ben")
	it := f.item(model.InventoryTypeRoom, "101")

	h, err := f.hold(it.ID, owner.ID, time.Minute)
	require.NoError(t, err)

	_, err = f.core.Visits.AssignInventory(f.ctx, other.ID, it.ID, staff)
	require.ErrorIs(t, err, apperr.ErrInventoryUnavailableForAssignment)

	_, err = f.core.Visits.AssignInventory(f.ctx, owner.ID, it.ID, staff)
	require.NoError(t, err)
	got, err := f.core.Holds.Get(f.ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldReleased, got.Status)
}

func TestAssignInventoryExpiresLapsedHold(t *testing.T) {
	f := newFixture(t)
	owner := f.visit("ana")
	other := f.visit("ben")
	it := f.item(model.InventoryTypeRoom, "101")
	h, err := f.hold(it.ID, owner.ID, time.Second)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Second)
	_, err = f.core.Visits.AssignInventory(f.ctx, other.ID, it.ID, staff)
	require.NoError(t, err)
	got, err := f.core.Holds.Get(f.ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, model.HoldExpired, got.Status)
}

func TestConcurrentAssignmentAtMostOnePerItem(t *testing.T) {
	f := newFixture(t)
	it := f.item(model.InventoryTypeRoom, "101")
	visits := make([]*model.Visit, 6)
	for i := range visits {
		visits[i] = f.visit(string(rune('a' + i)))
	}

	var wg sync.WaitGroup
	errs := make([]error, len(visits))
	for i, v := range visits {
		wg.Add(1)
		go func(i int, visitID string) {
			defer wg.Done()
			_, errs[i] = f.core.Visits.AssignInventory(f.ctx, visitID, it.ID, staff)
		}(i, v.ID)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInventoryUnavailableForAssignment)
	}
	assert.Equal(t, 1, ok)

	active := 0
	for _, a := range f.store.Assignments() {
		if a.InventoryItemID == it.ID && a.Active() {
			active++
		}
	}
	assert.Equal(t, 1, active)
}

func TestGetActiveByCustomer(t *testing.T) {
	f := newFixture(t)
	v := f.visit("ana")
	got, err := f.core.Visits.GetActiveByCustomer(f.ctx, v.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, v.ID, got.ID)

	_, err = f.core.Visits.GetActiveByCustomer(f.ctx, "nobody")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
