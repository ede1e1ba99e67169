package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

// AssignmentService links visits to the items they occupy.  It never opens
// its own unit of work; callers flip the item to OCCUPIED through
// InventoryService first and then call Create in the same tx.
type AssignmentService struct {
	clock clock.Clock
}

func unavailableForAssignment(itemID string) error {
	return apperr.Conflict(apperr.CodeInventoryUnavailableForAssignment, "item cannot be assigned").
		WithEntity(model.EntityInventoryItem, itemID)
}

// Create records a new active assignment.
func (s *AssignmentService) Create(ctx context.Context, tx repository.Tx, visitID, itemID string) (*model.VisitAssignment, error) {
	a := &model.VisitAssignment{
		ID:              uuid.NewString(),
		VisitID:         visitID,
		InventoryItemID: itemID,
		AssignedAt:      s.clock.Now(),
	}
	if err := tx.Assignments().Create(ctx, a); err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintAssignmentActiveItem, repository.ConstraintAssignmentActiveVisit) {
			return nil, unavailableForAssignment(itemID)
		}
		return nil, err
	}
	return a, nil
}

// ReleaseByVisit ends the visit's active assignment, if any.
func (s *AssignmentService) ReleaseByVisit(ctx context.Context, tx repository.Tx, visitID string) (*model.VisitAssignment, error) {
	return tx.Assignments().ReleaseByVisit(ctx, visitID, s.clock.Now())
}

// FindActiveByVisit returns the visit's active assignment or nil.
func (s *AssignmentService) FindActiveByVisit(ctx context.Context, tx repository.Tx, visitID string) (*model.VisitAssignment, error) {
	return tx.Assignments().FindActiveByVisit(ctx, visitID)
}

// FindActiveByItem returns the item's active assignment or nil.
func (s *AssignmentService) FindActiveByItem(ctx context.Context, tx repository.Tx, itemID string) (*model.VisitAssignment, error) {
	return tx.Assignments().FindActiveByItem(ctx, itemID)
}

// Reassign moves the visit's active assignment to newItemID in place.  It
// returns nil when the visit has no active assignment.
func (s *AssignmentService) Reassign(ctx context.Context, tx repository.Tx, visitID, newItemID string) (*model.VisitAssignment, error) {
	a, err := tx.Assignments().Reassign(ctx, visitID, newItemID)
	if err != nil {
		if repository.IsUniqueViolation(err, repository.ConstraintAssignmentActiveItem) {
			return nil, unavailableForAssignment(newItemID)
		}
		return nil, err
	}
	return a, nil
}
