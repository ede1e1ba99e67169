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

const noteUpgrade = "Released on upgrade"

// UpgradeService runs the upgrade offer workflow.  Accept moves a visit
// from its current item to a free item of another type in one unit of work.
type UpgradeService struct {
	store       repository.Store
	clock       clock.Clock
	audit       *AuditService
	inventory   *InventoryService
	assignments *AssignmentService
	holds       *HoldService
}

// CreateOfferRequest describes an upgrade offer.
type CreateOfferRequest struct {
	VisitID             string
	FromInventoryItemID string
	ToInventoryType     model.InventoryType
	ExpiresAt           time.Time
}

func invalidFrom(visitID, format string, args ...any) error {
	return apperr.Conflict(apperr.CodeUpgradeInvalidFrom, format, args...).WithEntity(model.EntityVisit, visitID)
}

// checkFrom requires v to be ACTIVE and currently assigned to fromItemID.
func (s *UpgradeService) checkFrom(ctx context.Context, tx repository.Tx, v *model.Visit, fromItemID string) error {
	if v.Status != model.VisitActive {
		return invalidFrom(v.ID, "visit is not active")
	}
	a, err := s.assignments.FindActiveByVisit(ctx, tx, v.ID)
	if err != nil {
		return err
	}
	if a == nil || a.InventoryItemID != fromItemID {
		return invalidFrom(v.ID, "visit is not assigned to item %s", fromItemID)
	}
	return nil
}

// CreateOffer proposes moving a visit off its current item.
func (s *UpgradeService) CreateOffer(ctx context.Context, req CreateOfferRequest, actor model.Actor) (*model.UpgradeOffer, error) {
	req.VisitID = strings.TrimSpace(req.VisitID)
	req.FromInventoryItemID = strings.TrimSpace(req.FromInventoryItemID)
	switch {
	case req.VisitID == "":
		return nil, apperr.Validation("visit_id is required")
	case req.FromInventoryItemID == "":
		return nil, apperr.Validation("from_inventory_item_id is required")
	case !req.ToInventoryType.Valid():
		return nil, apperr.Validation("to_inventory_type must be room or locker")
	}
	now := s.clock.Now()
	if !req.ExpiresAt.After(now) {
		return nil, apperr.Validation("expires_at must be in the future")
	}

	var out *model.UpgradeOffer
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		v, err := tx.Visits().FindByIDForUpdate(ctx, req.VisitID)
		if err != nil {
			return err
		}
		if v == nil {
			return apperr.NotFound(apperr.CodeVisitNotFound, model.EntityVisit, req.VisitID)
		}
		if err := s.checkFrom(ctx, tx, v, req.FromInventoryItemID); err != nil {
			return err
		}
		o := &model.UpgradeOffer{
			ID:                  uuid.NewString(),
			VisitID:             v.ID,
			FromInventoryItemID: req.FromInventoryItemID,
			ToInventoryType:     req.ToInventoryType,
			Status:              model.UpgradePending,
			ExpiresAt:           req.ExpiresAt.UTC(),
			CreatedAt:           now,
		}
		if err := tx.Upgrades().Create(ctx, o); err != nil {
			return err
		}
		out = o
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditUpgradeOffered,
			EntityType: model.EntityUpgradeOffer,
			EntityID:   o.ID,
			Actor:      actor,
			Metadata: map[string]any{
				"visitId":             o.VisitID,
				"fromInventoryItemId": o.FromInventoryItemID,
				"toInventoryType":     string(o.ToInventoryType),
				"expiresAt":           o.ExpiresAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockPending locks offerID and checks it can still be decided.  When the
// offer has lapsed it is marked EXPIRED inside tx and the returned expired
// error must be reported only after tx commits.
func (s *UpgradeService) lockPending(ctx context.Context, tx repository.Tx, offerID string, actor model.Actor) (o *model.UpgradeOffer, expired error, err error) {
	o, err = tx.Upgrades().FindByIDForUpdate(ctx, offerID)
	if err != nil {
		return nil, nil, err
	}
	if o == nil {
		return nil, nil, apperr.NotFound(apperr.CodeUpgradeNotFound, model.EntityUpgradeOffer, offerID)
	}
	switch o.Status {
	case model.UpgradeExpired:
		return nil, nil, upgradeExpired(offerID)
	case model.UpgradePending:
	default:
		return nil, nil, apperr.Conflict(apperr.CodeUpgradeAlreadyDecided, "offer is already %s", o.Status).
			WithEntity(model.EntityUpgradeOffer, offerID)
	}

	now := s.clock.Now()
	if o.ExpiresAt.After(now) {
		return o, nil, nil
	}
	if err := s.expire(ctx, tx, o, actor, now); err != nil {
		return nil, nil, err
	}
	return nil, upgradeExpired(offerID), nil
}

func (s *UpgradeService) expire(ctx context.Context, tx repository.Tx, o *model.UpgradeOffer, actor model.Actor, now time.Time) error {
	o.Status = model.UpgradeExpired
	o.DecidedAt = &now
	if err := tx.Upgrades().Update(ctx, o); err != nil {
		return err
	}
	return s.audit.Write(ctx, tx, AuditRecord{
		Action:     model.AuditUpgradeExpired,
		EntityType: model.EntityUpgradeOffer,
		EntityID:   o.ID,
		Actor:      actor,
		Metadata:   map[string]any{"expiresAt": o.ExpiresAt},
	})
}

func lapsed(o *model.UpgradeOffer, now time.Time) bool {
	return o.Status == model.UpgradePending && !o.ExpiresAt.After(now)
}

func upgradeExpired(offerID string) error {
	return apperr.Conflict(apperr.CodeUpgradeExpired, "offer has expired").WithEntity(model.EntityUpgradeOffer, offerID)
}

// Accept moves the visit to a free item of the offered type.  The old item
// goes to DIRTY, the new one to OCCUPIED, and the assignment row follows the
// visit.  Nothing is written unless every step succeeds, except that a
// lapsed offer is still recorded as EXPIRED.
func (s *UpgradeService) Accept(ctx context.Context, offerID string, actor model.Actor) (*model.UpgradeOffer, error) {
	var (
		out     *model.UpgradeOffer
		outcome error
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, expired, err := s.lockPending(ctx, tx, offerID, actor)
		if err != nil {
			return err
		}
		if expired != nil {
			// Commit the expiry, then report the failure.
			outcome = expired
			return nil
		}

		v, err := tx.Visits().FindByIDForUpdate(ctx, o.VisitID)
		if err != nil {
			return err
		}
		if v == nil {
			return invalidFrom(o.VisitID, "visit no longer exists")
		}
		if err := s.checkFrom(ctx, tx, v, o.FromInventoryItemID); err != nil {
			return err
		}

		now := s.clock.Now()
		target, err := tx.Inventory().FindAvailableByTypeForUpdate(ctx, o.ToInventoryType, o.FromInventoryItemID, now)
		if err != nil {
			return err
		}
		if target == nil {
			return apperr.Conflict(apperr.CodeHoldConflict, "no %s is available", o.ToInventoryType).
				WithEntity(model.EntityUpgradeOffer, offerID)
		}

		// Placeholder claim on the target for the rest of this unit of work.
		hold, err := s.holds.CreateInTx(ctx, tx, CreateHoldRequest{
			InventoryItemID: target.ID,
			VisitID:         v.ID,
			ExpiresAt:       o.ExpiresAt,
		}, actor)
		if err != nil {
			return err
		}

		from, err := tx.Inventory().FindByIDForUpdate(ctx, o.FromInventoryItemID)
		if err != nil {
			return err
		}
		if from != nil && from.Status != model.InventoryDirty {
			if _, _, err := s.inventory.TransitionStatus(ctx, tx, from.ID, model.InventoryDirty, TransitionOptions{
				Note:     noteUpgrade,
				Actor:    actor,
				AllowAny: true,
				Source:   SourceUpgradeAccept,
			}); err != nil {
				return err
			}
		}
		if _, _, err := s.inventory.TransitionStatus(ctx, tx, target.ID, model.InventoryOccupied, TransitionOptions{
			Actor:    actor,
			AllowAny: true,
			Source:   SourceUpgradeAccept,
		}); err != nil {
			return err
		}

		a, err := s.assignments.Reassign(ctx, tx, v.ID, target.ID)
		if err != nil {
			return err
		}
		if a == nil {
			return invalidFrom(v.ID, "visit has no active assignment")
		}

		o.Status = model.UpgradeAccepted
		o.DecidedAt = &now
		o.ToInventoryItemID = &target.ID
		if err := tx.Upgrades().Update(ctx, o); err != nil {
			return err
		}
		if err := s.holds.release(ctx, tx, hold, actor, SourceUpgradeAccept); err != nil {
			return err
		}
		out = o
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditUpgradeAccepted,
			EntityType: model.EntityUpgradeOffer,
			EntityID:   o.ID,
			Actor:      actor,
			Metadata: map[string]any{
				"visitId":             v.ID,
				"fromInventoryItemId": o.FromInventoryItemID,
				"toInventoryItemId":   target.ID,
				"toInventoryType":     string(o.ToInventoryType),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return out, nil
}

// Decline closes a pending offer without moving the visit.
func (s *UpgradeService) Decline(ctx context.Context, offerID string, actor model.Actor) (*model.UpgradeOffer, error) {
	var (
		out     *model.UpgradeOffer
		outcome error
	)
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, expired, err := s.lockPending(ctx, tx, offerID, actor)
		if err != nil {
			return err
		}
		if expired != nil {
			// Commit the expiry, then report the failure.
			outcome = expired
			return nil
		}
		now := s.clock.Now()
		o.Status = model.UpgradeDeclined
		o.DecidedAt = &now
		if err := tx.Upgrades().Update(ctx, o); err != nil {
			return err
		}
		out = o
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditUpgradeDeclined,
			EntityType: model.EntityUpgradeOffer,
			EntityID:   o.ID,
			Actor:      actor,
			Metadata:   map[string]any{"visitId": o.VisitID},
		})
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		return nil, outcome
	}
	return out, nil
}

// Get returns one offer.  A PENDING offer past its expiry is marked EXPIRED
// before it is returned.
func (s *UpgradeService) Get(ctx context.Context, offerID string) (*model.UpgradeOffer, error) {
	var out *model.UpgradeOffer
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		o, err := tx.Upgrades().FindByID(ctx, offerID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.NotFound(apperr.CodeUpgradeNotFound, model.EntityUpgradeOffer, offerID)
		}
		if lapsed(o, s.clock.Now()) {
			if o, err = tx.Upgrades().FindByIDForUpdate(ctx, offerID); err != nil {
				return err
			}
			if o == nil {
				return apperr.NotFound(apperr.CodeUpgradeNotFound, model.EntityUpgradeOffer, offerID)
			}
			if now := s.clock.Now(); lapsed(o, now) {
				if err := s.expire(ctx, tx, o, model.SystemActor, now); err != nil {
					return err
				}
			}
		}
		out = o
		return nil
	})
	return out, err
}
