package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/checkin-facility/internal/model"
)

const visitColumns = `id, customer_id, status, started_at, planned_end_at, closed_at,
	initial_duration_minutes, max_total_duration_minutes, renewal_total_minutes, created_at, updated_at`

type visitRepo struct {
	tx *sql.Tx
}

func scanVisit(dst *model.Visit) func(scanner) error {
	return func(row scanner) error {
		var closed sql.NullTime
		if err := row.Scan(&dst.ID, &dst.CustomerID, &dst.Status, &dst.StartedAt, &dst.PlannedEndAt, &closed,
			&dst.InitialDurationMinutes, &dst.MaxTotalDurationMinutes, &dst.RenewalTotalMinutes, &dst.CreatedAt, &dst.UpdatedAt); err != nil {
			return err
		}
		dst.ClosedAt = timePtr(closed)
		return nil
	}
}

func (r *visitRepo) Create(ctx context.Context, v *model.Visit) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO visits (`+visitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.CustomerID, v.Status, v.StartedAt, v.PlannedEndAt, nullableTime(v.ClosedAt),
		v.InitialDurationMinutes, v.MaxTotalDurationMinutes, v.RenewalTotalMinutes, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert visit: %w", translate(err))
	}
	return nil
}

func (r *visitRepo) find(ctx context.Context, where string, args ...any) (*model.Visit, error) {
	var v model.Visit
	ok, err := queryOne(ctx, r.tx, scanVisit(&v), `SELECT `+visitColumns+` FROM visits WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("select visit: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r *visitRepo) FindByID(ctx context.Context, id string) (*model.Visit, error) {
	return r.find(ctx, `id = ?`, id)
}

func (r *visitRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Visit, error) {
	return r.find(ctx, `id = ? FOR UPDATE`, id)
}

func (r *visitRepo) FindActiveByCustomer(ctx context.Context, customerID string) (*model.Visit, error) {
	return r.find(ctx, `active_customer_id = ?`, customerID)
}

func (r *visitRepo) Update(ctx context.Context, v *model.Visit) error {
	_, err := r.tx.ExecContext(ctx, `
UPDATE visits
SET status = ?, planned_end_at = ?, closed_at = ?, renewal_total_minutes = ?, updated_at = ?
WHERE id = ?`,
		v.Status, v.PlannedEndAt, nullableTime(v.ClosedAt), v.RenewalTotalMinutes, v.UpdatedAt, v.ID,
	)
	if err != nil {
		return fmt.Errorf("update visit: %w", translate(err))
	}
	return nil
}

func (r *visitRepo) CreateRenewal(ctx context.Context, rn *model.VisitRenewal) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO visit_renewals (id, visit_id, duration_minutes, previous_planned_end_at, new_planned_end_at, created_by_staff_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rn.ID, rn.VisitID, rn.DurationMinutes, rn.PreviousPlannedEnd, rn.NewPlannedEnd, nullable(rn.CreatedByStaffID), rn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert visit renewal: %w", err)
	}
	return nil
}

type customerRepo struct {
	tx *sql.Tx
}

func (r *customerRepo) Create(ctx context.Context, c *model.Customer) error {
	if _, err := r.tx.ExecContext(ctx, `INSERT INTO customers (id, name, created_at) VALUES (?, ?, ?)`, c.ID, c.Name, c.CreatedAt); err != nil {
		return fmt.Errorf("insert customer: %w", translate(err))
	}
	return nil
}

func (r *customerRepo) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	var c model.Customer
	ok, err := queryOne(ctx, r.tx, func(row scanner) error {
		return row.Scan(&c.ID, &c.Name, &c.CreatedAt)
	}, `SELECT id, name, created_at FROM customers WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("select customer: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &c, nil
}
