package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/observability"
	"github.com/iliyamo/checkin-facility/internal/queue"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

const publishTimeout = 5 * time.Second

// LivenessPublisher delivers register-session events out of band.
// Implementations live in the queue package.
type LivenessPublisher interface {
	PublishRegisterSessionUpdated(ctx context.Context, ev queue.RegisterSessionEvent) error
}

// RegisterSessionService keeps each register and each device down to one
// active session.  The two unique constraints in storage decide races; the
// service only translates their violations.
type RegisterSessionService struct {
	store     repository.Store
	clock     clock.Clock
	audit     *AuditService
	publisher LivenessPublisher
	log       *zap.Logger
	ttl       time.Duration
	batchSize int
}

// CloseSessionRequest is the staff-supplied reason for ending a session.
type CloseSessionRequest struct {
	Reason model.CloseReason
	Note   string
}

func sessionNotFound(id string) error {
	return apperr.NotFound(apperr.CodeRegisterSessionNotFound, model.EntityRegisterSession, id)
}

func sessionNotActive(id string) error {
	return apperr.Conflict(apperr.CodeRegisterSessionNotActive, "register session has ended").
		WithEntity(model.EntityRegisterSession, id)
}

func sessionEvent(s *model.RegisterSession, at time.Time) queue.RegisterSessionEvent {
	ev := queue.RegisterSessionEvent{
		SessionID:      s.ID,
		RegisterNumber: s.RegisterNumber,
		StaffID:        s.StaffID,
		DeviceID:       s.DeviceID,
		Status:         queue.SessionActive,
		OccurredAt:     at,
	}
	if !s.Active() {
		ev.Status = queue.SessionEnded
		if s.SignedOutReason != nil {
			ev.EndedReason = string(*s.SignedOutReason)
		}
	}
	return ev
}

// publish sends events after their unit of work has committed.  Failures are
// logged and dropped.
func (s *RegisterSessionService) publish(ctx context.Context, events ...queue.RegisterSessionEvent) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, ev := range events {
		if err := s.publisher.PublishRegisterSessionUpdated(ctx, ev); err != nil {
			s.log.Warn("liveness publish failed",
				zap.String("session_id", ev.SessionID),
				zap.String("status", ev.Status),
				zap.Error(err))
		}
	}
}

// OpenSession claims registerNumber for staffID on deviceID.
func (s *RegisterSessionService) OpenSession(ctx context.Context, registerNumber int, staffID, deviceID string) (*model.RegisterSession, error) {
	staffID = strings.TrimSpace(staffID)
	deviceID = strings.TrimSpace(deviceID)
	switch {
	case !model.ValidRegisterNumber(registerNumber):
		return nil, apperr.Validation("register_number must be between %d and %d", model.MinRegisterNumber, model.MaxRegisterNumber)
	case staffID == "":
		return nil, apperr.Validation("staff id is required")
	case deviceID == "":
		return nil, apperr.Validation("device id is required")
	}

	now := s.clock.Now()
	sess := &model.RegisterSession{
		ID:              uuid.NewString(),
		RegisterNumber:  registerNumber,
		StaffID:         staffID,
		DeviceID:        deviceID,
		StartedAt:       now,
		LastHeartbeatAt: now,
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.RegisterSessions().Create(ctx, sess); err != nil {
			switch {
			case repository.IsUniqueViolation(err, repository.ConstraintRegisterActive):
				return apperr.Conflict(apperr.CodeRegisterActiveConflict, "register %d is already in use", registerNumber)
			case repository.IsUniqueViolation(err, repository.ConstraintDeviceActive):
				return apperr.Conflict(apperr.CodeDeviceActiveConflict, "device already has an active register session")
			}
			return err
		}
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditRegisterSessionOpened,
			EntityType: model.EntityRegisterSession,
			EntityID:   sess.ID,
			Actor:      model.Actor{StaffID: staffID, DeviceID: deviceID},
			Metadata:   map[string]any{"registerNumber": registerNumber},
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sessionEvent(sess, now))
	return sess, nil
}

// Heartbeat records that deviceID is still driving the session.
func (s *RegisterSessionService) Heartbeat(ctx context.Context, sessionID, deviceID string) (*model.RegisterSession, error) {
	var out *model.RegisterSession
	now := s.clock.Now()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		sess, err := tx.RegisterSessions().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return sessionNotFound(sessionID)
		}
		if !sess.Active() {
			return sessionNotActive(sessionID)
		}
		if sess.DeviceID != deviceID {
			return apperr.Forbidden("session belongs to another device").WithEntity(model.EntityRegisterSession, sessionID)
		}
		if err := tx.RegisterSessions().UpdateHeartbeat(ctx, sessionID, now); err != nil {
			return err
		}
		sess.LastHeartbeatAt = now
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sessionEvent(out, now))
	return out, nil
}

// CloseSession ends a session at the request of the staff member who opened
// it, from the device it was opened on.
func (s *RegisterSessionService) CloseSession(ctx context.Context, sessionID string, req CloseSessionRequest, actor model.Actor) (*model.RegisterSession, error) {
	if !req.Reason.Valid() {
		return nil, apperr.Validation("reason must be SHIFT_END, BREAK or OTHER")
	}
	note := strings.TrimSpace(req.Note)
	if req.Reason == model.CloseOther && note == "" {
		return nil, apperr.Validation("a note is required when the reason is OTHER")
	}

	var out *model.RegisterSession
	now := s.clock.Now()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		sess, err := tx.RegisterSessions().FindByIDForUpdate(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return sessionNotFound(sessionID)
		}
		if !sess.Active() {
			return sessionNotActive(sessionID)
		}
		if sess.StaffID != actor.StaffID || sess.DeviceID != actor.DeviceID {
			return apperr.Forbidden("only the staff member who opened the session may close it from the same device").
				WithEntity(model.EntityRegisterSession, sessionID)
		}
		closed, err := tx.RegisterSessions().Close(ctx, sessionID, repository.SessionClose{
			Reason:      model.SignOutStaffClosed,
			ByStaffID:   actor.StaffRef(),
			SignedOutAt: now,
		})
		if err != nil {
			return err
		}
		if closed == nil {
			return sessionNotActive(sessionID)
		}
		out = closed
		meta := map[string]any{"registerNumber": closed.RegisterNumber, "reason": string(req.Reason)}
		if note != "" {
			meta["note"] = note
		}
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditRegisterSessionClosed,
			EntityType: model.EntityRegisterSession,
			EntityID:   sessionID,
			Actor:      actor,
			Metadata:   meta,
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sessionEvent(out, now))
	return out, nil
}

// ForceSignOut ends whatever session holds registerNumber.  Only
// administrators may use it.  With no active session it returns the
// register's most recent one.
func (s *RegisterSessionService) ForceSignOut(ctx context.Context, registerNumber int, actor model.Actor) (*model.RegisterSession, error) {
	if !actor.IsAdmin() {
		return nil, apperr.Forbidden("force sign-out requires an administrator")
	}
	if !model.ValidRegisterNumber(registerNumber) {
		return nil, apperr.Validation("register_number must be between %d and %d", model.MinRegisterNumber, model.MaxRegisterNumber)
	}

	var (
		out    *model.RegisterSession
		closed bool
	)
	now := s.clock.Now()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		sess, err := tx.RegisterSessions().FindActiveByRegisterForUpdate(ctx, registerNumber)
		if err != nil {
			return err
		}
		if sess == nil {
			latest, err := tx.RegisterSessions().FindLatestByRegister(ctx, registerNumber)
			if err != nil {
				return err
			}
			if latest == nil {
				return apperr.NotFound(apperr.CodeRegisterSessionNotFound, model.EntityRegisterSession, "")
			}
			out = latest
			return nil
		}
		ended, err := s.forceClose(ctx, tx, sess, actor, now, "register")
		if err != nil {
			return err
		}
		out, closed = ended, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if closed {
		s.publish(ctx, sessionEvent(out, now))
	}
	return out, nil
}

// ForceCloseByDevice ends the active session of a disabled device, if it has
// one, and returns it.
func (s *RegisterSessionService) ForceCloseByDevice(ctx context.Context, deviceID string, actor model.Actor) (*model.RegisterSession, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, apperr.Validation("device id is required")
	}
	var out *model.RegisterSession
	now := s.clock.Now()
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		sess, err := tx.RegisterSessions().FindActiveByDeviceForUpdate(ctx, deviceID)
		if err != nil || sess == nil {
			return err
		}
		out, err = s.forceClose(ctx, tx, sess, actor, now, "device")
		return err
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		s.publish(ctx, sessionEvent(out, now))
	}
	return out, nil
}

func (s *RegisterSessionService) forceClose(ctx context.Context, tx repository.Tx, sess *model.RegisterSession, actor model.Actor, now time.Time, scope string) (*model.RegisterSession, error) {
	ended, err := tx.RegisterSessions().Close(ctx, sess.ID, repository.SessionClose{
		Reason:      model.SignOutForced,
		ByStaffID:   actor.StaffRef(),
		SignedOutAt: now,
	})
	if err != nil || ended == nil {
		return ended, err
	}
	if err := s.audit.Write(ctx, tx, AuditRecord{
		Action:     model.AuditRegisterForceSignOut,
		EntityType: model.EntityRegisterSession,
		EntityID:   sess.ID,
		Actor:      actor,
		Metadata: map[string]any{
			"registerNumber": sess.RegisterNumber,
			"staffId":        sess.StaffID,
			"deviceId":       sess.DeviceID,
			"scope":          scope,
		},
	}); err != nil {
		return nil, err
	}
	return ended, nil
}

// CloseExpiredSessions ends every ACTIVE session whose last heartbeat is
// older than the TTL and returns how many it ended.  Sessions are taken in
// batches, each in its own unit of work; rows another sweep has locked are
// skipped, so concurrent sweeps never end the same session twice.
func (s *RegisterSessionService) CloseExpiredSessions(ctx context.Context) (int, error) {
	ctx, span := observability.StartSpan(ctx, "register_sessions.sweep",
		attribute.Int("batch_size", s.batchSize))
	defer span.End()

	total := 0
	for {
		n, err := s.closeExpiredBatch(ctx)
		total += n
		if err != nil {
			span.RecordError(err)
			return total, err
		}
		if n < s.batchSize {
			break
		}
	}
	span.SetAttributes(attribute.Int("closed", total))
	return total, nil
}

func (s *RegisterSessionService) closeExpiredBatch(ctx context.Context) (int, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.ttl)
	var events []queue.RegisterSessionEvent
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		events = events[:0]
		expired, err := tx.RegisterSessions().LockExpired(ctx, cutoff, s.batchSize)
		if err != nil {
			return err
		}
		for i := range expired {
			sess := &expired[i]
			ended, err := tx.RegisterSessions().Close(ctx, sess.ID, repository.SessionClose{
				Reason:      model.SignOutTTLExpired,
				SignedOutAt: now,
			})
			if err != nil {
				return err
			}
			if ended == nil {
				continue
			}
			if err := s.audit.Write(ctx, tx, AuditRecord{
				Action:     model.AuditRegisterTTLExpired,
				EntityType: model.EntityRegisterSession,
				EntityID:   sess.ID,
				Actor:      model.SystemActor,
				Metadata: map[string]any{
					"registerNumber":  sess.RegisterNumber,
					"lastHeartbeatAt": sess.LastHeartbeatAt,
					"ttlSeconds":      int(s.ttl / time.Second),
				},
			}); err != nil {
				return err
			}
			events = append(events, sessionEvent(ended, now))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.publish(ctx, events...)
	return len(events), nil
}

// Availability reports, for every register, whether it can be claimed.
func (s *RegisterSessionService) Availability(ctx context.Context) ([]model.RegisterAvailability, error) {
	var active []model.RegisterSession
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		active, err = tx.RegisterSessions().ListActive(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	byRegister := make(map[int]model.RegisterSession, len(active))
	for _, sess := range active {
		byRegister[sess.RegisterNumber] = sess
	}
	out := make([]model.RegisterAvailability, 0, model.MaxRegisterNumber)
	for n := model.MinRegisterNumber; n <= model.MaxRegisterNumber; n++ {
		row := model.RegisterAvailability{RegisterNumber: n, Available: true}
		if sess, ok := byRegister[n]; ok {
			row.Available = false
			row.ActiveSessionID = &sess.ID
			row.StaffID = &sess.StaffID
			row.DeviceID = &sess.DeviceID
		}
		out = append(out, row)
	}
	return out, nil
}

// Get returns one session.
func (s *RegisterSessionService) Get(ctx context.Context, sessionID string) (*model.RegisterSession, error) {
	var out *model.RegisterSession
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		sess, err := tx.RegisterSessions().FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if sess == nil {
			return sessionNotFound(sessionID)
		}
		out = sess
		return nil
	})
	return out, err
}
