package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func TestWithTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Inventory().Create(ctx, &model.InventoryItem{ID: "i1", Type: model.InventoryTypeRoom, Name: "R1", Status: model.InventoryAvailable}))
		require.NoError(t, tx.Audit().Insert(ctx, &model.AuditEntry{ID: "a1", Action: model.AuditInventoryItemCreated}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_ = s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		it, err := tx.Inventory().FindByID(ctx, "i1")
		require.NoError(t, err)
		assert.Nil(t, it)
		return nil
	})
	assert.Empty(t, s.AuditEntries())
}

func TestWithTxCommits(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Inventory().Create(ctx, &model.InventoryItem{ID: "i1", Type: model.InventoryTypeRoom, Name: "R1", Status: model.InventoryAvailable})
	}))
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		it, err := tx.Inventory().FindByID(ctx, "i1")
		require.NoError(t, err)
		require.NotNil(t, it)
		assert.Equal(t, "R1", it.Name)
		return nil
	}))
}

func TestRegisterSessionUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	open := func(id string, n int, device string) error {
		return s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.RegisterSessions().Create(ctx, &model.RegisterSession{
				ID: id, RegisterNumber: n, StaffID: "staff", DeviceID: device, StartedAt: t0, LastHeartbeatAt: t0,
			})
		})
	}
	require.NoError(t, open("s1", 1, "d1"))
	assert.True(t, repository.IsUniqueViolation(open("s2", 1, "d2"), repository.ConstraintRegisterActive))
	assert.True(t, repository.IsUniqueViolation(open("s3", 2, "d1"), repository.ConstraintDeviceActive))

	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		closed, err := tx.RegisterSessions().Close(ctx, "s1", repository.SessionClose{Reason: model.SignOutStaffClosed, SignedOutAt: t0})
		require.NoError(t, err)
		require.NotNil(t, closed)
		again, err := tx.RegisterSessions().Close(ctx, "s1", repository.SessionClose{Reason: model.SignOutStaffClosed, SignedOutAt: t0})
		require.NoError(t, err)
		assert.Nil(t, again)
		return nil
	}))
	require.NoError(t, open("s4", 1, "d1"))
}

func TestRegisterSessionClashOnBothReportsRegister(t *testing.T) {
	s := New()
	ctx := context.Background()
	open := func(id string, n int, device string) error {
		return s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return tx.RegisterSessions().Create(ctx, &model.RegisterSession{
				ID: id, RegisterNumber: n, StaffID: "staff", DeviceID: device, StartedAt: t0, LastHeartbeatAt: t0,
			})
		})
	}
	require.NoError(t, open("s1", 1, "d-a"))
	require.NoError(t, open("s2", 2, "d-b"))

	// Map iteration order varies between runs, so try many times.
	for i := 0; i < 50; i++ {
		err := open("s3", 1, "d-b")
		require.True(t, repository.IsUniqueViolation(err, repository.ConstraintRegisterActive), "got %v", err)
	}
}

func TestHoldUniquenessIgnoresInactive(t *testing.T) {
	s := New()
	ctx := context.Background()
	visit := "v1"
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		require.NoError(t, tx.Holds().Create(ctx, &model.Hold{ID: "h1", InventoryItemID: "i1", VisitID: &visit, Status: model.HoldActive, ExpiresAt: t0}))
		err := tx.Holds().Create(ctx, &model.Hold{ID: "h2", InventoryItemID: "i1", VisitID: &visit, Status: model.HoldActive, ExpiresAt: t0})
		assert.True(t, repository.IsUniqueViolation(err, repository.ConstraintHoldActiveItem))
		require.NoError(t, tx.Holds().UpdateStatus(ctx, "h1", model.HoldExpired))
		return tx.Holds().Create(ctx, &model.Hold{ID: "h3", InventoryItemID: "i1", VisitID: &visit, Status: model.HoldActive, ExpiresAt: t0})
	}))
	holds := s.Holds("i1")
	require.Len(t, holds, 2)
	assert.Equal(t, "h1", holds[0].ID)
	assert.Equal(t, model.HoldExpired, holds[0].Status)
}

func TestLockExpiredOrdersAndLimits(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for i, n := range []int{1, 2, 3} {
			hb := t0.Add(time.Duration(i) * time.Minute)
			require.NoError(t, tx.RegisterSessions().Create(ctx, &model.RegisterSession{
				ID: string(rune('a' + i)), RegisterNumber: n, StaffID: "s", DeviceID: string(rune('x' + i)), StartedAt: t0, LastHeartbeatAt: hb,
			}))
		}
		got, err := tx.RegisterSessions().LockExpired(ctx, t0.Add(90*time.Second), 10)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a", got[0].ID)

		got, err = tx.RegisterSessions().LockExpired(ctx, t0.Add(time.Hour), 1)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		return nil
	}))
}
