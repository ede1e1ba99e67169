package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

const sessionColumns = `id, register_number, staff_id, device_id, started_at, last_heartbeat_at,
	signed_out_at, signed_out_reason, signed_out_by_staff_id`

type sessionRepo struct {
	tx *sql.Tx
}

func scanSession(dst *model.RegisterSession) func(scanner) error {
	return func(row scanner) error {
		var (
			signedOut sql.NullTime
			reason    sql.NullString
			by        sql.NullString
		)
		if err := row.Scan(&dst.ID, &dst.RegisterNumber, &dst.StaffID, &dst.DeviceID, &dst.StartedAt, &dst.LastHeartbeatAt,
			&signedOut, &reason, &by); err != nil {
			return err
		}
		dst.SignedOutAt = timePtr(signedOut)
		if reason.Valid {
			r := model.SignOutReason(reason.String)
			dst.SignedOutReason = &r
		}
		dst.SignedOutByStaff = stringPtr(by)
		return nil
	}
}

func (r *sessionRepo) Create(ctx context.Context, s *model.RegisterSession) error {
	_, err := r.tx.ExecContext(ctx, `
INSERT INTO register_sessions (id, register_number, staff_id, device_id, started_at, last_heartbeat_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.RegisterNumber, s.StaffID, s.DeviceID, s.StartedAt, s.LastHeartbeatAt,
	)
	if err != nil {
		return fmt.Errorf("insert register session: %w", translate(err))
	}
	return nil
}

func (r *sessionRepo) find(ctx context.Context, where string, args ...any) (*model.RegisterSession, error) {
	var s model.RegisterSession
	ok, err := queryOne(ctx, r.tx, scanSession(&s), `SELECT `+sessionColumns+` FROM register_sessions WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("select register session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *sessionRepo) FindByID(ctx context.Context, id string) (*model.RegisterSession, error) {
	return r.find(ctx, `id = ?`, id)
}

func (r *sessionRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.RegisterSession, error) {
	return r.find(ctx, `id = ? FOR UPDATE`, id)
}

func (r *sessionRepo) FindActiveByRegisterForUpdate(ctx context.Context, n int) (*model.RegisterSession, error) {
	return r.find(ctx, `active_register_number = ? FOR UPDATE`, n)
}

func (r *sessionRepo) FindLatestByRegister(ctx context.Context, n int) (*model.RegisterSession, error) {
	return r.find(ctx, `register_number = ? ORDER BY seq DESC LIMIT 1`, n)
}

func (r *sessionRepo) FindActiveByDeviceForUpdate(ctx context.Context, deviceID string) (*model.RegisterSession, error) {
	return r.find(ctx, `active_device_id = ? FOR UPDATE`, deviceID)
}

func (r *sessionRepo) list(ctx context.Context, query string, args ...any) ([]model.RegisterSession, error) {
	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.RegisterSession
	for rows.Next() {
		var s model.RegisterSession
		if err := scanSession(&s)(rows); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *sessionRepo) ListActive(ctx context.Context) ([]model.RegisterSession, error) {
	out, err := r.list(ctx, `SELECT `+sessionColumns+` FROM register_sessions WHERE signed_out_at IS NULL ORDER BY register_number`)
	if err != nil {
		return nil, fmt.Errorf("list active register sessions: %w", err)
	}
	return out, nil
}

func (r *sessionRepo) UpdateHeartbeat(ctx context.Context, id string, at time.Time) error {
	if _, err := r.tx.ExecContext(ctx,
		`UPDATE register_sessions SET last_heartbeat_at = ? WHERE id = ? AND signed_out_at IS NULL`, at, id); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

func (r *sessionRepo) Close(ctx context.Context, id string, c repository.SessionClose) (*model.RegisterSession, error) {
	res, err := r.tx.ExecContext(ctx, `
UPDATE register_sessions
SET signed_out_at = ?, signed_out_reason = ?, signed_out_by_staff_id = ?
WHERE id = ? AND signed_out_at IS NULL`,
		c.SignedOutAt, c.Reason, nullable(c.ByStaffID), id,
	)
	if err != nil {
		return nil, fmt.Errorf("close register session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("close register session: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

func (r *sessionRepo) LockExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.RegisterSession, error) {
	out, err := r.list(ctx, `
SELECT `+sessionColumns+`
FROM register_sessions
WHERE signed_out_at IS NULL AND last_heartbeat_at < ?
ORDER BY last_heartbeat_at
LIMIT ?
FOR UPDATE SKIP LOCKED`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("lock expired register sessions: %w", err)
	}
	return out, nil
}
