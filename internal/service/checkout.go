package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

// CheckoutService tracks checkouts from request to completion.  Completing
// a checkout closes the visit through VisitService.
type CheckoutService struct {
	store  repository.Store
	clock  clock.Clock
	audit  *AuditService
	visits *VisitService
}

// Request records that the visit asked to check out.
func (s *CheckoutService) Request(ctx context.Context, visitID string, method model.CheckoutMethod, actor model.Actor) (*model.CheckoutEvent, error) {
	if !method.Valid() {
		return nil, apperr.Validation("method must be KIOSK, REGISTER or ADMIN")
	}
	var out *model.CheckoutEvent
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := lockActive(ctx, tx, visitID); err != nil {
			return err
		}
		ev := &model.CheckoutEvent{
			ID:          uuid.NewString(),
			VisitID:     visitID,
			Method:      method,
			RequestedAt: s.clock.Now(),
			StaffID:     actor.StaffRef(),
		}
		if err := tx.Checkout().Create(ctx, ev); err != nil {
			return err
		}
		out = ev
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditCheckoutRequested,
			EntityType: model.EntityCheckout,
			EntityID:   ev.ID,
			Actor:      actor,
			Metadata:   map[string]any{"visitId": visitID, "method": string(method)},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Complete closes the visit and marks its checkout done.  Without a prior
// request a REGISTER checkout is recorded on the spot.
func (s *CheckoutService) Complete(ctx context.Context, visitID string, actor model.Actor) (*model.CheckoutEvent, error) {
	var out *model.CheckoutEvent
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		v, err := tx.Visits().FindByIDForUpdate(ctx, visitID)
		if err != nil {
			return err
		}
		if v == nil {
			return apperr.NotFound(apperr.CodeVisitNotFound, model.EntityVisit, visitID)
		}
		ev, err := tx.Checkout().FindLatestByVisit(ctx, visitID)
		if err != nil {
			return err
		}
		if ev != nil && ev.Completed() {
			return apperr.Conflict(apperr.CodeCheckoutAlreadyCompleted, "checkout already completed").
				WithEntity(model.EntityVisit, visitID)
		}

		if _, err := s.visits.CloseInTx(ctx, tx, visitID, actor, SourceCheckout); err != nil {
			return err
		}

		now := s.clock.Now()
		if ev == nil {
			ev = &model.CheckoutEvent{
				ID:          uuid.NewString(),
				VisitID:     visitID,
				Method:      model.CheckoutRegister,
				RequestedAt: now,
				CompletedAt: &now,
				StaffID:     actor.StaffRef(),
			}
			if err := tx.Checkout().Create(ctx, ev); err != nil {
				return err
			}
		} else {
			if err := tx.Checkout().MarkCompleted(ctx, ev.ID, now, actor.StaffRef()); err != nil {
				return err
			}
			ev.CompletedAt = &now
			if staff := actor.StaffRef(); staff != nil {
				ev.StaffID = staff
			}
		}
		out = ev
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditCheckoutCompleted,
			EntityType: model.EntityCheckout,
			EntityID:   ev.ID,
			Actor:      actor,
			Metadata:   map[string]any{"visitId": visitID, "method": string(ev.Method)},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
