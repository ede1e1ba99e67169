package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/queue"
)

func TestOpenSessionConcurrentSameRegister(t *testing.T) {
	f := newFixture(t)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.core.RegisterSessions.OpenSession(f.ctx, 1, fmt.Sprintf("staff-%d", i), fmt.Sprintf("device-%d", i))
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrRegisterActiveConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestOpenSessionConcurrentSameDevice(t *testing.T) {
	f := newFixture(t)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.core.RegisterSessions.OpenSession(f.ctx, i+1, "staff-1", "device-1")
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrDeviceActiveConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
}

func TestOpenSessionValidationAndEvents(t *testing.T) {
	f := newFixture(t)
	_, err := f.core.RegisterSessions.OpenSession(f.ctx, 4, "staff-1", "device-1")
	require.ErrorIs(t, err, apperr.ErrValidation)
	_, err = f.core.RegisterSessions.OpenSession(f.ctx, 1, "", "device-1")
	require.ErrorIs(t, err, apperr.ErrValidation)

	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 2, "staff-1", "device-1")
	require.NoError(t, err)
	assert.True(t, sess.Active())
	assert.Len(t, f.store.AuditEntriesFor(model.AuditRegisterSessionOpened, sess.ID), 1)

	events := f.pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, queue.SessionActive, events[0].Status)
	assert.Equal(t, 2, events[0].RegisterNumber)
}

func TestPublishFailureDoesNotUndoSession(t *testing.T) {
	f := newFixture(t)
	f.pub.err = errors.New("broker down")

	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 1, "staff-1", "device-1")
	require.NoError(t, err)
	got, err := f.core.RegisterSessions.Get(f.ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.Active())
}

// stalledPublisher never returns until released, like a broker that accepts
// the TCP connection and then stops answering.
type stalledPublisher struct{ release chan struct{} }

func (p stalledPublisher) PublishRegisterSessionUpdated(ctx context.Context, _ queue.RegisterSessionEvent) error {
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestStalledBrokerDoesNotDelayHeartbeat(t *testing.T) {
	stalled := stalledPublisher{release: make(chan struct{})}
	async := queue.NewAsyncPublisher(stalled, 4, time.Minute, zap.NewNop())
	f := newFixture(t, WithLivenessPublisher(async))
	t.Cleanup(func() {
		close(stalled.release)
		_ = async.Close(context.Background())
	})

	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 1, "staff-1", "device-1")
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 10; i++ {
		_, err = f.core.RegisterSessions.Heartbeat(f.ctx, sess.ID, "device-1")
		require.NoError(t, err)
	}
	assert.Less(t, time.Since(start), time.Second)
}

func TestHeartbeat(t *testing.T) {
	f := newFixture(t)
	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 1, "staff-1", "device-1")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	got, err := f.core.RegisterSessions.Heartbeat(f.ctx, sess.ID, "device-1")
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Minute), got.LastHeartbeatAt)

	_, err = f.core.RegisterSessions.Heartbeat(f.ctx, sess.ID, "device-2")
	require.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.core.RegisterSessions.Heartbeat(f.ctx, "missing", "device-1")
	require.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.core.RegisterSessions.ForceSignOut(f.ctx, 1, admin)
	require.NoError(t, err)
	_, err = f.core.RegisterSessions.Heartbeat(f.ctx, sess.ID, "device-1")
	require.ErrorIs(t, err, apperr.ErrRegisterSessionNotActive)
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t)
	owner := model.Actor{StaffID: "staff-1", DeviceID: "device-1"}
	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 1, owner.StaffID, owner.DeviceID)
	require.NoError(t, err)

	_, err = f.core.RegisterSessions.CloseSession(f.ctx, sess.ID, CloseSessionRequest{Reason: model.CloseOther}, owner)
	require.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.core.RegisterSessions.CloseSession(f.ctx, sess.ID, CloseSessionRequest{Reason: model.CloseBreak},
		model.Actor{StaffID: "staff-1", DeviceID: "device-2"})
	require.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = f.core.RegisterSessions.CloseSession(f.ctx, sess.ID, CloseSessionRequest{Reason: model.CloseBreak},
		model.Actor{StaffID: "staff-2", DeviceID: "device-1"})
	require.ErrorIs(t, err, apperr.ErrForbidden)

	closed, err := f.core.RegisterSessions.CloseSession(f.ctx, sess.ID, CloseSessionRequest{Reason: model.CloseShiftEnd}, owner)
	require.NoError(t, err)
	require.NotNil(t, closed.SignedOutReason)
	assert.Equal(t, model.SignOutStaffClosed, *closed.SignedOutReason)

	_, err = f.core.RegisterSessions.CloseSession(f.ctx, sess.ID, CloseSessionRequest{Reason: model.CloseShiftEnd}, owner)
	require.ErrorIs(t, err, apperr.ErrRegisterSessionNotActive)

	// The register and device are free again.
	_, err = f.core.RegisterSessions.OpenSession(f.ctx, 1, owner.StaffID, owner.DeviceID)
	require.NoError(t, err)

	events := f.pub.Events()
	require.Len(t, events, 3)
	assert.Equal(t, queue.SessionEnded, events[1].Status)
	assert.Equal(t, string(model.SignOutStaffClosed), events[1].EndedReason)
}

func TestForceSignOut(t *testing.T) {
	f := newFixture(t)
	_, err := f.core.RegisterSessions.ForceSignOut(f.ctx, 1, admin)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 1, "staff-1", "device-1")
	require.NoError(t, err)

	_, err = f.core.RegisterSessions.ForceSignOut(f.ctx, 1, staff)
	require.ErrorIs(t, err, apperr.ErrForbidden)

	ended, err := f.core.RegisterSessions.ForceSignOut(f.ctx, 1, admin)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, ended.ID)
	require.NotNil(t, ended.SignedOutReason)
	assert.Equal(t, model.SignOutForced, *ended.SignedOutReason)
	require.NotNil(t, ended.SignedOutByStaff)
	assert.Equal(t, admin.StaffID, *ended.SignedOutByStaff)

	latest, err := f.core.RegisterSessions.ForceSignOut(f.ctx, 1, admin)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, latest.ID)
	assert.Len(t, f.store.AuditEntriesFor(model.AuditRegisterForceSignOut, sess.ID), 1)
}

func TestForceCloseByDevice(t *testing.T) {
	f := newFixture(t)
	none, err := f.core.RegisterSessions.ForceCloseByDevice(f.ctx, "device-1", admin)
	require.NoError(t, err)
	assert.Nil(t, none)

	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 3, "staff-1", "device-1")
	require.NoError(t, err)
	ended, err := f.core.RegisterSessions.ForceCloseByDevice(f.ctx, "device-1", admin)
	require.NoError(t, err)
	require.NotNil(t, ended)
	assert.Equal(t, sess.ID, ended.ID)
	assert.False(t, ended.Active())
}

func TestSweepClosesExpiredOnce(t *testing.T) {
	f := newFixture(t)
	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 1, "staff-1", "device-1")
	require.NoError(t, err)

	f.clock.Advance(DefaultRegisterSessionTTL + time.Second)
	n, err := f.core.RegisterSessions.CloseExpiredSessions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = f.core.RegisterSessions.CloseExpiredSessions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Len(t, f.store.AuditEntriesFor(model.AuditRegisterTTLExpired, sess.ID), 1)
	got, err := f.core.RegisterSessions.Get(f.ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SignedOutReason)
	assert.Equal(t, model.SignOutTTLExpired, *got.SignedOutReason)

	events := f.pub.Events()
	require.Len(t, events, 2)
	assert.Equal(t, queue.SessionEnded, events[1].Status)
	assert.Equal(t, string(model.SignOutTTLExpired), events[1].EndedReason)
}

func TestSweepSparesFreshSessions(t *testing.T) {
	f := newFixture(t)
	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 1, "staff-1", "device-1")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.core.RegisterSessions.Heartbeat(f.ctx, sess.ID, "device-1")
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)

	n, err := f.core.RegisterSessions.CloseExpiredSessions(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepDrainsInBatches(t *testing.T) {
	f := newFixture(t, WithSweepBatchSize(1), WithRegisterSessionTTL(time.Minute))
	for n := model.MinRegisterNumber; n <= model.MaxRegisterNumber; n++ {
		_, err := f.core.RegisterSessions.OpenSession(f.ctx, n, fmt.Sprintf("staff-%d", n), fmt.Sprintf("device-%d", n))
		require.NoError(t, err)
	}
	f.clock.Advance(2 * time.Minute)

	n, err := f.core.RegisterSessions.CloseExpiredSessions(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, f.store.AuditEntriesFor(model.AuditRegisterTTLExpired, ""), 3)
}

func TestAvailability(t *testing.T) {
	f := newFixture(t)
	sess, err := f.core.RegisterSessions.OpenSession(f.ctx, 2, "staff-1", "device-1")
	require.NoError(t, err)

	rows, err := f.core.RegisterSessions.Availability(f.ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[0].Available)
	assert.False(t, rows[1].Available)
	require.NotNil(t, rows[1].ActiveSessionID)
	assert.Equal(t, sess.ID, *rows[1].ActiveSessionID)
	assert.True(t, rows[2].Available)
}
