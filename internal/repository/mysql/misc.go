package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
)

type auditRepo struct {
	tx *sql.Tx
}

func (r *auditRepo) Insert(ctx context.Context, e *model.AuditEntry) error {
	meta, err := marshalMetadata(e.Metadata)
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, `
INSERT INTO audit_log (id, action, entity_type, entity_id, actor_staff_id, actor_device_id, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.EntityType, e.EntityID, nullable(e.ActorStaffID), nullable(e.ActorDeviceID), meta, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func marshalMetadata(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return string(b), nil
}

type waitlistRepo struct {
	tx *sql.Tx
}

const waitlistColumns = `id, customer_id, requested_type, status, notes, created_at, updated_at`

func (r *waitlistRepo) Create(ctx context.Context, e *model.WaitlistEntry) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO waitlist_entries (`+waitlistColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CustomerID, e.RequestedType, e.Status, nullable(e.Notes), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert waitlist entry: %w", translate(err))
	}
	return nil
}

func (r *waitlistRepo) find(ctx context.Context, suffix, id string) (*model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	ok, err := queryOne(ctx, r.tx, func(row scanner) error {
		var notes sql.NullString
		if err := row.Scan(&e.ID, &e.CustomerID, &e.RequestedType, &e.Status, &notes, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return err
		}
		e.Notes = stringPtr(notes)
		return nil
	}, `SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = ?`+suffix, id)
	if err != nil {
		return nil, fmt.Errorf("select waitlist entry: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *waitlistRepo) FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	return r.find(ctx, "", id)
}

func (r *waitlistRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	return r.find(ctx, " FOR UPDATE", id)
}

func (r *waitlistRepo) UpdateStatus(ctx context.Context, id string, status model.WaitlistStatus, at time.Time) error {
	if _, err := r.tx.ExecContext(ctx, `UPDATE waitlist_entries SET status = ?, updated_at = ? WHERE id = ?`, status, at, id); err != nil {
		return fmt.Errorf("update waitlist entry: %w", err)
	}
	return nil
}

type cleaningRepo struct {
	tx *sql.Tx
}

func (r *cleaningRepo) CreateBatch(ctx context.Context, b *model.CleaningBatch) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO cleaning_batches (id, to_status, staff_id, device_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.ToStatus, nullable(b.StaffID), nullable(b.DeviceID), b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cleaning batch: %w", err)
	}
	return nil
}

func (r *cleaningRepo) CreateBatchItem(ctx context.Context, it *model.CleaningBatchItem) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO cleaning_batch_items (id, batch_id, inventory_item_id, from_status, to_status, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		it.ID, it.BatchID, it.InventoryItemID, it.FromStatus, it.ToStatus, it.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert cleaning batch item: %w", err)
	}
	return nil
}

type checkoutRepo struct {
	tx *sql.Tx
}

func (r *checkoutRepo) Create(ctx context.Context, e *model.CheckoutEvent) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO checkout_events (id, visit_id, method, requested_at, completed_at, staff_id)
VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.VisitID, e.Method, e.RequestedAt, nullableTime(e.CompletedAt), nullable(e.StaffID),
	)
	if err != nil {
		return fmt.Errorf("insert checkout event: %w", err)
	}
	return nil
}

func (r *checkoutRepo) FindLatestByVisit(ctx context.Context, visitID string) (*model.CheckoutEvent, error) {
	var e model.CheckoutEvent
	ok, err := queryOne(ctx, r.tx, func(row scanner) error {
		var completed sql.NullTime
		var staff sql.NullString
		if err := row.Scan(&e.ID, &e.VisitID, &e.Method, &e.RequestedAt, &completed, &staff); err != nil {
			return err
		}
		e.CompletedAt = timePtr(completed)
		e.StaffID = stringPtr(staff)
		return nil
	}, `
SELECT id, visit_id, method, requested_at, completed_at, staff_id
FROM checkout_events
WHERE visit_id = ?
ORDER BY seq DESC
LIMIT 1`, visitID)
	if err != nil {
		return nil, fmt.Errorf("select checkout event: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *checkoutRepo) MarkCompleted(ctx context.Context, id string, at time.Time, staffID *string) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE checkout_events SET completed_at = ?, staff_id = COALESCE(?, staff_id) WHERE id = ?`,
		at, nullable(staffID), id,
	)
	if err != nil {
		return fmt.Errorf("complete checkout event: %w", err)
	}
	return nil
}

type agreementRepo struct {
	tx *sql.Tx
}

func (r *agreementRepo) Create(ctx context.Context, a *model.Agreement) error {
	meta, err := marshalMetadata(a.Metadata)
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, `
INSERT INTO agreements (id, visit_id, status, method, metadata, staff_id, captured_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.VisitID, a.Status, a.Method, meta, nullable(a.StaffID), a.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("insert agreement: %w", translate(err))
	}
	return nil
}

func (r *agreementRepo) FindByVisit(ctx context.Context, visitID string) (*model.Agreement, error) {
	var a model.Agreement
	ok, err := queryOne(ctx, r.tx, func(row scanner) error {
		var meta sql.NullString
		var staff sql.NullString
		if err := row.Scan(&a.ID, &a.VisitID, &a.Status, &a.Method, &meta, &staff, &a.CapturedAt); err != nil {
			return err
		}
		a.StaffID = stringPtr(staff)
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &a.Metadata); err != nil {
				return fmt.Errorf("unmarshal agreement metadata: %w", err)
			}
		}
		return nil
	}, `SELECT id, visit_id, status, method, metadata, staff_id, captured_at FROM agreements WHERE visit_id = ?`, visitID)
	if err != nil {
		return nil, fmt.Errorf("select agreement: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &a, nil
}
