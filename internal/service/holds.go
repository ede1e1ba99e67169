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

// HoldService grants and releases short-lived exclusive claims on inventory
// items.  Expiry is lazy: an ACTIVE hold past its ExpiresAt is flipped to
// EXPIRED the next time something touches it.
type HoldService struct {
	store repository.Store
	clock clock.Clock
	audit *AuditService
}

// CreateHoldRequest asks for a hold on behalf of exactly one of a visit or a
// waitlist entry.
type CreateHoldRequest struct {
	InventoryItemID string
	VisitID         string
	WaitlistEntryID string
	ExpiresAt       time.Time
}

// Create places a hold in its own unit of work.
func (s *HoldService) Create(ctx context.Context, req CreateHoldRequest, actor model.Actor) (*model.Hold, error) {
	var out *model.Hold
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		h, err := s.CreateInTx(ctx, tx, req, actor)
		out = h
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInTx places a hold inside tx.
func (s *HoldService) CreateInTx(ctx context.Context, tx repository.Tx, req CreateHoldRequest, actor model.Actor) (*model.Hold, error) {
	now := s.clock.Now()
	itemID := strings.TrimSpace(req.InventoryItemID)
	if itemID == "" {
		return nil, apperr.Validation("inventory_item_id is required")
	}
	if (req.VisitID == "") == (req.WaitlistEntryID == "") {
		return nil, apperr.Validation("exactly one of visit_id or waitlist_entry_id is required")
	}
	if !req.ExpiresAt.After(now) {
		return nil, apperr.Validation("expires_at must be in the future")
	}

	if req.VisitID != "" {
		visit, err := tx.Visits().FindByID(ctx, req.VisitID)
		if err != nil {
			return nil, err
		}
		if visit == nil {
			return nil, apperr.NotFound(apperr.CodeVisitNotFound, model.EntityVisit, req.VisitID)
		}
		if visit.Status != model.VisitActive {
			return nil, apperr.Conflict(apperr.CodeHoldConflict, "visit is not active").WithEntity(model.EntityVisit, req.VisitID)
		}
	} else {
		entry, err := tx.Waitlist().FindByID(ctx, req.WaitlistEntryID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, apperr.NotFound(apperr.CodeWaitlistNotFound, model.EntityWaitlistEntry, req.WaitlistEntryID)
		}
		if entry.Status != model.WaitlistOpen {
			return nil, apperr.Conflict(apperr.CodeHoldConflict, "waitlist entry is not open").WithEntity(model.EntityWaitlistEntry, req.WaitlistEntryID)
		}
	}

	item, err := tx.Inventory().FindByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperr.NotFound(apperr.CodeInventoryNotFound, model.EntityInventoryItem, itemID)
	}
	if item.Status != model.InventoryAvailable {
		return nil, apperr.Conflict(apperr.CodeHoldConflict, "item is %s", item.Status).WithEntity(model.EntityInventoryItem, itemID)
	}
	assigned, err := tx.Assignments().FindActiveByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if assigned != nil {
		return nil, apperr.Conflict(apperr.CodeHoldConflict, "item is assigned to a visit").WithEntity(model.EntityInventoryItem, itemID)
	}

	existing, err := tx.Holds().FindActiveByItemForUpdate(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.Lapsed(now) {
			return nil, apperr.Conflict(apperr.CodeHoldConflict, "item is already held").WithEntity(model.EntityInventoryItem, itemID)
		}
		if err := s.expire(ctx, tx, existing, actor); err != nil {
			return nil, err
		}
	}

	hold := &model.Hold{
		ID:              uuid.NewString(),
		InventoryItemID: itemID,
		Status:          model.HoldActive,
		ExpiresAt:       req.ExpiresAt.UTC(),
		CreatedAt:       now,
		CreatedByStaff:  actor.StaffRef(),
	}
	if req.VisitID != "" {
		hold.VisitID = &req.VisitID
	} else {
		hold.WaitlistEntryID = &req.WaitlistEntryID
	}
	if err := tx.Holds().Create(ctx, hold); err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintHoldActiveItem) {
			return nil, apperr.Conflict(apperr.CodeHoldConflict, "item is already held").WithEntity(model.EntityInventoryItem, itemID)
		}
		return nil, err
	}
	if err := s.audit.Write(ctx, tx, AuditRecord{
		Action:     model.AuditHoldCreated,
		EntityType: model.EntityHold,
		EntityID:   hold.ID,
		Actor:      actor,
		Metadata: map[string]any{
			"inventoryItemId": itemID,
			"visitId":         req.VisitID,
			"waitlistEntryId": req.WaitlistEntryID,
			"expiresAt":       hold.ExpiresAt,
		},
	}); err != nil {
		return nil, err
	}
	return hold, nil
}

// expire flips a lapsed hold to EXPIRED inside tx.
func (s *HoldService) expire(ctx context.Context, tx repository.Tx, h *model.Hold, actor model.Actor) error {
	if err := tx.Holds().UpdateStatus(ctx, h.ID, model.HoldExpired); err != nil {
		return err
	}
	h.Status = model.HoldExpired
	return s.audit.Write(ctx, tx, AuditRecord{
		Action:     model.AuditHoldExpired,
		EntityType: model.EntityHold,
		EntityID:   h.ID,
		Actor:      actor,
		Metadata:   map[string]any{"inventoryItemId": h.InventoryItemID, "expiresAt": h.ExpiresAt},
	})
}

// Release ends a hold.  Releasing a RELEASED hold returns it unchanged.  An
// EXPIRED hold fails with HoldExpired; so does an ACTIVE hold past its
// expiry, which is marked EXPIRED first and stays so.
func (s *HoldService) Release(ctx context.Context, holdID string, actor model.Actor) (*model.Hold, error) {
	var (
		out     *model.Hold
		outcome error
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		h, err := tx.Holds().FindByIDForUpdate(ctx, holdID)
		if err != nil {
			return err
		}
		if h == nil {
			return apperr.NotFound(apperr.CodeHoldNotFound, model.EntityHold, holdID)
		}
		switch {
		case h.Status == model.HoldExpired:
			return apperr.Conflict(apperr.CodeHoldExpired, "hold has expired").WithEntity(model.EntityHold, holdID)
		case h.Status == model.HoldReleased:
			out = h
			return nil
		case h.Lapsed(s.clock.Now()):
			// Commit the expiry, then report the failure.
			outcome = apperr.Conflict(apperr.CodeHoldExpired, "hold has expired").WithEntity(model.EntityHold, holdID)
			return s.expire(ctx, tx, h, actor)
		}
		if err := s.release(ctx, tx, h, actor, SourceManual); err != nil {
			return err
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return out, nil
}

// ReleaseActiveForItem releases whatever ACTIVE hold itemID has inside tx and
// returns it, or nil when there is none.
func (s *HoldService) ReleaseActiveForItem(ctx context.Context, tx repository.Tx, itemID string, actor model.Actor, source string) (*model.Hold, error) {
	h, err := tx.Holds().FindActiveByItemForUpdate(ctx, itemID)
	if err != nil || h == nil {
		return nil, err
	}
	if err := s.release(ctx, tx, h, actor, source); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HoldService) release(ctx context.Context, tx repository.Tx, h *model.Hold, actor model.Actor, source string) error {
	if err := tx.Holds().UpdateStatus(ctx, h.ID, model.HoldReleased); err != nil {
		return err
	}
	h.Status = model.HoldReleased
	return s.audit.Write(ctx, tx, AuditRecord{
		Action:     model.AuditHoldReleased,
		EntityType: model.EntityHold,
		EntityID:   h.ID,
		Actor:      actor,
		Metadata:   map[string]any{"inventoryItemId": h.InventoryItemID, "source": source},
	})
}

// Get returns one hold.  An ACTIVE hold past its expiry is marked EXPIRED
// before it is returned.
func (s *HoldService) Get(ctx context.Context, id string) (*model.Hold, error) {
	var out *model.Hold
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		h, err := tx.Holds().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if h == nil {
			return apperr.NotFound(apperr.CodeHoldNotFound, model.EntityHold, id)
		}
		if h.Lapsed(s.clock.Now()) {
			if h, err = tx.Holds().FindByIDForUpdate(ctx, id); err != nil {
				return err
			}
			if h == nil {
				return apperr.NotFound(apperr.CodeHoldNotFound, model.EntityHold, id)
			}
			if h.Lapsed(s.clock.Now()) {
				if err := s.expire(ctx, tx, h, model.SystemActor); err != nil {
					return err
				}
			}
		}
		out = h
		return nil
	})
	return out, err
}
