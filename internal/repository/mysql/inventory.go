package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
)

const inventoryColumns = `id, type, name, status, notes, created_at, updated_at`

type inventoryRepo struct {
	tx *sql.Tx
}

func scanInventory(dst *model.InventoryItem) func(scanner) error {
	return func(row scanner) error {
		var notes sql.NullString
		if err := row.Scan(&dst.ID, &dst.Type, &dst.Name, &dst.Status, &notes, &dst.CreatedAt, &dst.UpdatedAt); err != nil {
			return err
		}
		dst.Notes = stringPtr(notes)
		return nil
	}
}

func (r *inventoryRepo) Create(ctx context.Context, it *model.InventoryItem) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO inventory_items (`+inventoryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Type, it.Name, it.Status, nullable(it.Notes), it.CreatedAt, it.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert inventory item: %w", translate(err))
	}
	return nil
}

func (r *inventoryRepo) find(ctx context.Context, suffix string, args ...any) (*model.InventoryItem, error) {
	var it model.InventoryItem
	ok, err := queryOne(ctx, r.tx, scanInventory(&it), `SELECT `+inventoryColumns+` FROM inventory_items WHERE id = ?`+suffix, args...)
	if err != nil {
		return nil, fmt.Errorf("select inventory item: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *inventoryRepo) FindByID(ctx context.Context, id string) (*model.InventoryItem, error) {
	return r.find(ctx, "", id)
}

func (r *inventoryRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.InventoryItem, error) {
	return r.find(ctx, " FOR UPDATE", id)
}

func (r *inventoryRepo) FindAvailableByTypeForUpdate(ctx context.Context, t model.InventoryType, excludeID string, now time.Time) (*model.InventoryItem, error) {
	var it model.InventoryItem
	ok, err := queryOne(ctx, r.tx, scanInventory(&it), `
SELECT i.id, i.type, i.name, i.status, i.notes, i.created_at, i.updated_at
FROM inventory_items i
WHERE i.type = ? AND i.status = 'AVAILABLE' AND i.id <> ?
  AND NOT EXISTS (
      SELECT 1 FROM inventory_holds h
      WHERE h.active_item_id = i.id AND h.expires_at > ?)
  AND NOT EXISTS (
      SELECT 1 FROM visit_assignments a
      WHERE a.active_item_id = i.id)
ORDER BY i.name
LIMIT 1
FOR UPDATE OF i SKIP LOCKED`, t, excludeID, now)
	if err != nil {
		return nil, fmt.Errorf("select available inventory: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *inventoryRepo) UpdateStatus(ctx context.Context, id string, status model.InventoryStatus, notes *string, at time.Time) error {
	var err error
	if notes != nil {
		_, err = r.tx.ExecContext(ctx, `UPDATE inventory_items SET status = ?, notes = ?, updated_at = ? WHERE id = ?`, status, *notes, at, id)
	} else {
		_, err = r.tx.ExecContext(ctx, `UPDATE inventory_items SET status = ?, updated_at = ? WHERE id = ?`, status, at, id)
	}
	if err != nil {
		return fmt.Errorf("update inventory status: %w", err)
	}
	return nil
}

func (r *inventoryRepo) List(ctx context.Context, f model.InventoryFilter) ([]model.InventoryItem, error) {
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	q := `SELECT ` + inventoryColumns + ` FROM inventory_items`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY type, name"

	rows, err := r.tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	defer rows.Close()
	var out []model.InventoryItem
	for rows.Next() {
		var it model.InventoryItem
		if err := scanInventory(&it)(rows); err != nil {
			return nil, fmt.Errorf("scan inventory: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
