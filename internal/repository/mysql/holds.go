package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/checkin-facility/internal/model"
)

const holdColumns = `id, inventory_item_id, visit_id, waitlist_entry_id, status, expires_at, created_at, created_by_staff_id`

type holdRepo struct {
	tx *sql.Tx
}

func scanHold(dst *model.Hold) func(scanner) error {
	return func(row scanner) error {
		var visitID, waitlistID, staffID sql.NullString
		if err := row.Scan(&dst.ID, &dst.InventoryItemID, &visitID, &waitlistID, &dst.Status, &dst.ExpiresAt, &dst.CreatedAt, &staffID); err != nil {
			return err
		}
		dst.VisitID = stringPtr(visitID)
		dst.WaitlistEntryID = stringPtr(waitlistID)
		dst.CreatedByStaff = stringPtr(staffID)
		return nil
	}
}

func (r *holdRepo) Create(ctx context.Context, h *model.Hold) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO inventory_holds (`+holdColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.InventoryItemID, nullable(h.VisitID), nullable(h.WaitlistEntryID), h.Status, h.ExpiresAt, h.CreatedAt, nullable(h.CreatedByStaff),
	)
	if err != nil {
		return fmt.Errorf("insert hold: %w", translate(err))
	}
	return nil
}

func (r *holdRepo) find(ctx context.Context, where string, args ...any) (*model.Hold, error) {
	var h model.Hold
	ok, err := queryOne(ctx, r.tx, scanHold(&h), `SELECT `+holdColumns+` FROM inventory_holds WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("select hold: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r *holdRepo) FindByID(ctx context.Context, id string) (*model.Hold, error) {
	return r.find(ctx, `id = ?`, id)
}

func (r *holdRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Hold, error) {
	return r.find(ctx, `id = ? FOR UPDATE`, id)
}

func (r *holdRepo) FindActiveByItemForUpdate(ctx context.Context, itemID string) (*model.Hold, error) {
	return r.find(ctx, `active_item_id = ? FOR UPDATE`, itemID)
}

func (r *holdRepo) UpdateStatus(ctx context.Context, id string, status model.HoldStatus) error {
	if _, err := r.tx.ExecContext(ctx, `UPDATE inventory_holds SET status = ? WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("update hold status: %w", translate(err))
	}
	return nil
}
