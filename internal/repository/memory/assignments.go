package memory

import (
	"context"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

type assignmentRepo struct{ t *tx }

func (r assignmentRepo) checkUnique(id, visitID, itemID string) error {
	for oid, a := range r.t.st.assignments {
		if oid == id || !a.Active() {
			continue
		}
		if a.VisitID == visitID {
			return unique(repository.ConstraintAssignmentActiveVisit)
		}
		if a.InventoryItemID == itemID {
			return unique(repository.ConstraintAssignmentActiveItem)
		}
	}
	return nil
}

func (r assignmentRepo) Create(_ context.Context, a *model.VisitAssignment) error {
	if a.Active() {
		if err := r.checkUnique(a.ID, a.VisitID, a.InventoryItemID); err != nil {
			return err
		}
	}
	r.t.st.assignments[a.ID] = *a
	return nil
}

func (r assignmentRepo) FindActiveByVisit(_ context.Context, visitID string) (*model.VisitAssignment, error) {
	for _, a := range r.t.st.assignments {
		if a.VisitID == visitID && a.Active() {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (r assignmentRepo) FindActiveByItem(_ context.Context, itemID string) (*model.VisitAssignment, error) {
	for _, a := range r.t.st.assignments {
		if a.InventoryItemID == itemID && a.Active() {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}

func (r assignmentRepo) ReleaseByVisit(ctx context.Context, visitID string, at time.Time) (*model.VisitAssignment, error) {
	a, _ := r.FindActiveByVisit(ctx, visitID)
	if a == nil {
		return nil, nil
	}
	a.ReleasedAt = ptr(at)
	r.t.st.assignments[a.ID] = *a
	return a, nil
}

func (r assignmentRepo) Reassign(ctx context.Context, visitID, newItemID string) (*model.VisitAssignment, error) {
	a, _ := r.FindActiveByVisit(ctx, visitID)
	if a == nil {
		return nil, nil
	}
	if err := r.checkUnique(a.ID, visitID, newItemID); err != nil {
		return nil, err
	}
	a.InventoryItemID = newItemID
	r.t.st.assignments[a.ID] = *a
	return a, nil
}
