package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

// WaitlistService records customers waiting for inventory.
type WaitlistService struct {
	store repository.Store
	clock clock.Clock
	audit *AuditService
}

// Create opens a waitlist entry.
func (s *WaitlistService) Create(ctx context.Context, customerID string, requested model.RequestedType, notes string, actor model.Actor) (*model.WaitlistEntry, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, apperr.Validation("customer_id is required")
	}
	if !requested.Valid() {
		return nil, apperr.Validation("requested_type must be room, locker or any")
	}
	now := s.clock.Now()
	e := &model.WaitlistEntry{
		ID:            uuid.NewString(),
		CustomerID:    customerID,
		RequestedType: requested,
		Status:        model.WaitlistOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if n := strings.TrimSpace(notes); n != "" {
		e.Notes = &n
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		c, err := tx.Customers().FindByID(ctx, customerID)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.NotFound(apperr.CodeCustomerNotFound, "customer", customerID)
		}
		if err := tx.Waitlist().Create(ctx, e); err != nil {
			return err
		}
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditWaitlistCreated,
			EntityType: model.EntityWaitlistEntry,
			EntityID:   e.ID,
			Actor:      actor,
			Metadata:   map[string]any{"customerId": customerID, "requestedType": string(requested)},
		})
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Cancel closes an entry.  Cancelling a CANCELLED entry returns it unchanged.
func (s *WaitlistService) Cancel(ctx context.Context, entryID string, actor model.Actor) (*model.WaitlistEntry, error) {
	var out *model.WaitlistEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := tx.Waitlist().FindByIDForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return apperr.NotFound(apperr.CodeWaitlistNotFound, model.EntityWaitlistEntry, entryID)
		}
		out = e
		if e.Status == model.WaitlistCancelled {
			return nil
		}
		now := s.clock.Now()
		if err := tx.Waitlist().UpdateStatus(ctx, entryID, model.WaitlistCancelled, now); err != nil {
			return err
		}
		e.Status = model.WaitlistCancelled
		e.UpdatedAt = now
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditWaitlistCancelled,
			EntityType: model.EntityWaitlistEntry,
			EntityID:   entryID,
			Actor:      actor,
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns one entry.
func (s *WaitlistService) Get(ctx context.Context, entryID string) (*model.WaitlistEntry, error) {
	var out *model.WaitlistEntry
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		e, err := tx.Waitlist().FindByID(ctx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return apperr.NotFound(apperr.CodeWaitlistNotFound, model.EntityWaitlistEntry, entryID)
		}
		out = e
		return nil
	})
	return out, err
}
