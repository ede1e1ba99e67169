package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

const noteVisitClose = "Released on visit close"

// VisitService opens, renews, assigns and closes visits.
type VisitService struct {
	store       repository.Store
	clock       clock.Clock
	audit       *AuditService
	inventory   *InventoryService
	assignments *AssignmentService
	holds       *HoldService
	initial     int
	maxTotal    int
}

// Open starts a visit for customerID.  A customer has at most one ACTIVE
// visit.
func (s *VisitService) Open(ctx context.Context, customerID string, actor model.Actor) (*model.Visit, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, apperr.Validation("customer_id is required")
	}
	var out *model.Visit
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		customer, err := tx.Customers().FindByID(ctx, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return apperr.NotFound(apperr.CodeCustomerNotFound, "customer", customerID)
		}
		existing, err := tx.Visits().FindActiveByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if existing != nil {
			return visitAlreadyActive(existing.ID)
		}

		now := s.clock.Now()
		v := &model.Visit{
			ID:                      uuid.NewString(),
			CustomerID:              customerID,
			Status:                  model.VisitActive,
			StartedAt:               now,
			PlannedEndAt:            now.Add(time.Duration(s.initial) * time.Minute),
			InitialDurationMinutes:  s.initial,
			MaxTotalDurationMinutes: s.maxTotal,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		if err := tx.Visits().Create(ctx, v); err != nil {
			if repository.IsUniqueViolation(err, repository.ConstraintVisitActiveCustomer) {
				return visitAlreadyActive("")
			}
			return err
		}
		out = v
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditVisitOpened,
			EntityType: model.EntityVisit,
			EntityID:   v.ID,
			Actor:      actor,
			Metadata: map[string]any{
				"customerId":   customerID,
				"plannedEndAt": v.PlannedEndAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func visitAlreadyActive(visitID string) error {
	e := apperr.Conflict(apperr.CodeVisitAlreadyActive, "customer already has an active visit")
	if visitID != "" {
		e = e.WithEntity(model.EntityVisit, visitID)
	}
	return e
}

// lockActive locks visitID and requires it to be ACTIVE.  A closed visit is
// reported as not found, as callers cannot act on it.
func lockActive(ctx context.Context, tx repository.Tx, visitID string) (*model.Visit, error) {
	v, err := tx.Visits().FindByIDForUpdate(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if v == nil || v.Status != model.VisitActive {
		return nil, apperr.NotFound(apperr.CodeVisitNotFound, model.EntityVisit, visitID)
	}
	return v, nil
}

// Renew extends an ACTIVE visit by 120 or 360 minutes.
func (s *VisitService) Renew(ctx context.Context, visitID string, minutes int, actor model.Actor) (*model.Visit, error) {
	if minutes != model.RenewalShortMinutes && minutes != model.RenewalLongMinutes {
		return nil, apperr.Validation("duration_minutes must be %d or %d", model.RenewalShortMinutes, model.RenewalLongMinutes)
	}
	var out *model.Visit
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		v, err := lockActive(ctx, tx, visitID)
		if err != nil {
			return err
		}
		total := v.TotalMinutes() + minutes
		if total > v.MaxTotalDurationMinutes {
			return apperr.Conflict(apperr.CodeVisitMaxDurationExceeded,
				"renewal would bring the visit to %d minutes, max is %d", total, v.MaxTotalDurationMinutes).
				WithEntity(model.EntityVisit, visitID)
		}

		now := s.clock.Now()
		prev := v.PlannedEndAt
		v.RenewalTotalMinutes += minutes
		v.PlannedEndAt = v.StartedAt.Add(time.Duration(total) * time.Minute)
		v.UpdatedAt = now
		if err := tx.Visits().Update(ctx, v); err != nil {
			return err
		}
		if err := tx.Visits().CreateRenewal(ctx, &model.VisitRenewal{
			ID:                 uuid.NewString(),
			VisitID:            v.ID,
			DurationMinutes:    minutes,
			PreviousPlannedEnd: prev,
			NewPlannedEnd:      v.PlannedEndAt,
			CreatedByStaffID:   actor.StaffRef(),
			CreatedAt:          now,
		}); err != nil {
			return err
		}
		out = v
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditVisitRenewed,
			EntityType: model.EntityVisit,
			EntityID:   v.ID,
			Actor:      actor,
			Metadata: map[string]any{
				"durationMinutes":    minutes,
				"previousPlannedEnd": prev,
				"newPlannedEnd":      v.PlannedEndAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AssignInventory places an ACTIVE visit on an AVAILABLE item.  A live hold
// on the item blocks the assignment unless the visit owns it, in which case
// the hold is consumed.
func (s *VisitService) AssignInventory(ctx context.Context, visitID, itemID string, actor model.Actor) (*model.VisitAssignment, error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, apperr.Validation("inventory_item_id is required")
	}
	var out *model.VisitAssignment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		v, err := lockActive(ctx, tx, visitID)
		if err != nil {
			return err
		}
		item, err := tx.Inventory().FindByIDForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound(apperr.CodeInventoryNotFound, model.EntityInventoryItem, itemID)
		}
		if item.Status != model.InventoryAvailable {
			return unavailableForAssignment(itemID)
		}

		hold, err := tx.Holds().FindActiveByItemForUpdate(ctx, itemID)
		if err != nil {
			return err
		}
		if hold != nil {
			switch {
			case hold.Lapsed(s.clock.Now()):
				if err := s.holds.expire(ctx, tx, hold, actor); err != nil {
					return err
				}
			case hold.VisitID != nil && *hold.VisitID == v.ID:
				if err := s.holds.release(ctx, tx, hold, actor, SourceVisitAssignment); err != nil {
					return err
				}
			default:
				return unavailableForAssignment(itemID)
			}
		}

		if _, _, err := s.inventory.TransitionStatus(ctx, tx, itemID, model.InventoryOccupied, TransitionOptions{
			Actor:    actor,
			AllowAny: true,
			Source:   SourceVisitAssignment,
		}); err != nil {
			return err
		}
		a, err := s.assignments.Create(ctx, tx, v.ID, itemID)
		if err != nil {
			return err
		}
		out = a
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditVisitAssigned,
			EntityType: model.EntityVisit,
			EntityID:   v.ID,
			Actor:      actor,
			Metadata:   map[string]any{"inventoryItemId": itemID, "assignmentId": a.ID},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close ends a visit.  Closing a CLOSED visit returns it unchanged.
func (s *VisitService) Close(ctx context.Context, visitID string, actor model.Actor) (*model.Visit, error) {
	var out *model.Visit
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		v, err := s.CloseInTx(ctx, tx, visitID, actor, SourceVisitClose)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CloseInTx closes visitID inside tx.  Its active assignment, if any, is
// released and the freed item goes to DIRTY unless it already is.
func (s *VisitService) CloseInTx(ctx context.Context, tx repository.Tx, visitID string, actor model.Actor, source string) (*model.Visit, error) {
	v, err := tx.Visits().FindByIDForUpdate(ctx, visitID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, apperr.NotFound(apperr.CodeVisitNotFound, model.EntityVisit, visitID)
	}
	if v.Status == model.VisitClosed {
		return v, nil
	}

	released, err := s.assignments.ReleaseByVisit(ctx, tx, visitID)
	if err != nil {
		return nil, err
	}
	meta := map[string]any{"source": source}
	if released != nil {
		meta["inventoryItemId"] = released.InventoryItemID
		item, err := tx.Inventory().FindByIDForUpdate(ctx, released.InventoryItemID)
		if err != nil {
			return nil, err
		}
		if item != nil && item.Status != model.InventoryDirty {
			if _, _, err := s.inventory.TransitionStatus(ctx, tx, item.ID, model.InventoryDirty, TransitionOptions{
				Note:     noteVisitClose,
				Actor:    actor,
				AllowAny: true,
				Source:   source,
			}); err != nil {
				return nil, err
			}
		}
	}

	now := s.clock.Now()
	v.Status = model.VisitClosed
	v.ClosedAt = &now
	v.UpdatedAt = now
	if err := tx.Visits().Update(ctx, v); err != nil {
		return nil, err
	}
	if err := s.audit.Write(ctx, tx, AuditRecord{
		Action:     model.AuditVisitClosed,
		EntityType: model.EntityVisit,
		EntityID:   v.ID,
		Actor:      actor,
		Metadata:   meta,
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// Get returns one visit.
func (s *VisitService) Get(ctx context.Context, visitID string) (*model.Visit, error) {
	var out *model.Visit
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		v, err := tx.Visits().FindByID(ctx, visitID)
		if err != nil {
			return err
		}
		if v == nil {
			return apperr.NotFound(apperr.CodeVisitNotFound, model.EntityVisit, visitID)
		}
		out = v
		return nil
	})
	return out, err
}

// GetActiveByCustomer returns the customer's ACTIVE visit.
func (s *VisitService) GetActiveByCustomer(ctx context.Context, customerID string) (*model.Visit, error) {
	var out *model.Visit
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		v, err := tx.Visits().FindActiveByCustomer(ctx, customerID)
		if err != nil {
			return err
		}
		if v == nil {
			return apperr.NotFound(apperr.CodeVisitNotFound, model.EntityVisit, customerID)
		}
		out = v
		return nil
	})
	return out, err
}

// ActiveAssignment returns the visit's current assignment, or nil.
func (s *VisitService) ActiveAssignment(ctx context.Context, visitID string) (*model.VisitAssignment, error) {
	var out *model.VisitAssignment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := s.assignments.FindActiveByVisit(ctx, tx, visitID)
		out = a
		return err
	})
	return out, err
}
