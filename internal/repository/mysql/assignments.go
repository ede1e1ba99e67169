package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
)

const assignmentColumns = `id, visit_id, inventory_item_id, assigned_at, released_at`

type assignmentRepo struct {
	tx *sql.Tx
}

func scanAssignment(dst *model.VisitAssignment) func(scanner) error {
	return func(row scanner) error {
		var released sql.NullTime
		if err := row.Scan(&dst.ID, &dst.VisitID, &dst.InventoryItemID, &dst.AssignedAt, &released); err != nil {
			return err
		}
		dst.ReleasedAt = timePtr(released)
		return nil
	}
}

func (r *assignmentRepo) Create(ctx context.Context, a *model.VisitAssignment) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO visit_assignments (`+assignmentColumns+`) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.VisitID, a.InventoryItemID, a.AssignedAt, nullableTime(a.ReleasedAt),
	)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", translate(err))
	}
	return nil
}

func (r *assignmentRepo) find(ctx context.Context, where string, args ...any) (*model.VisitAssignment, error) {
	var a model.VisitAssignment
	ok, err := queryOne(ctx, r.tx, scanAssignment(&a), `SELECT `+assignmentColumns+` FROM visit_assignments WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("select assignment: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *assignmentRepo) FindActiveByVisit(ctx context.Context, visitID string) (*model.VisitAssignment, error) {
	return r.find(ctx, `active_visit_id = ?`, visitID)
}

func (r *assignmentRepo) FindActiveByItem(ctx context.Context, itemID string) (*model.VisitAssignment, error) {
	return r.find(ctx, `active_item_id = ?`, itemID)
}

func (r *assignmentRepo) ReleaseByVisit(ctx context.Context, visitID string, at time.Time) (*model.VisitAssignment, error) {
	a, err := r.find(ctx, `active_visit_id = ? FOR UPDATE`, visitID)
	if err != nil || a == nil {
		return nil, err
	}
	if _, err := r.tx.ExecContext(ctx, `UPDATE visit_assignments SET released_at = ? WHERE id = ?`, at, a.ID); err != nil {
		return nil, fmt.Errorf("release assignment: %w", err)
	}
	a.ReleasedAt = &at
	return a, nil
}

func (r *assignmentRepo) Reassign(ctx context.Context, visitID, newItemID string) (*model.VisitAssignment, error) {
	a, err := r.find(ctx, `active_visit_id = ? FOR UPDATE`, visitID)
	if err != nil || a == nil {
		return nil, err
	}
	if _, err := r.tx.ExecContext(ctx, `UPDATE visit_assignments SET inventory_item_id = ? WHERE id = ?`, newItemID, a.ID); err != nil {
		return nil, fmt.Errorf("reassign assignment: %w", translate(err))
	}
	a.InventoryItemID = newItemID
	return a, nil
}
