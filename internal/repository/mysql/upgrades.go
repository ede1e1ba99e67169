package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iliyamo/checkin-facility/internal/model"
)

const upgradeColumns = `id, visit_id, from_inventory_item_id, to_inventory_type, to_inventory_item_id, status, expires_at, created_at, decided_at`

type upgradeRepo struct {
	tx *sql.Tx
}

func scanUpgrade(dst *model.UpgradeOffer) func(scanner) error {
	return func(row scanner) error {
		var toItem sql.NullString
		var decided sql.NullTime
		if err := row.Scan(&dst.ID, &dst.VisitID, &dst.FromInventoryItemID, &dst.ToInventoryType, &toItem,
			&dst.Status, &dst.ExpiresAt, &dst.CreatedAt, &decided); err != nil {
			return err
		}
		dst.ToInventoryItemID = stringPtr(toItem)
		dst.DecidedAt = timePtr(decided)
		return nil
	}
}

func (r *upgradeRepo) Create(ctx context.Context, o *model.UpgradeOffer) error {
	_, err := r.tx.ExecContext(ctx,
		`INSERT INTO upgrade_offers (`+upgradeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.VisitID, o.FromInventoryItemID, o.ToInventoryType, nullable(o.ToInventoryItemID),
		o.Status, o.ExpiresAt, o.CreatedAt, nullableTime(o.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("insert upgrade offer: %w", translate(err))
	}
	return nil
}

func (r *upgradeRepo) find(ctx context.Context, suffix, id string) (*model.UpgradeOffer, error) {
	var o model.UpgradeOffer
	ok, err := queryOne(ctx, r.tx, scanUpgrade(&o), `SELECT `+upgradeColumns+` FROM upgrade_offers WHERE id = ?`+suffix, id)
	if err != nil {
		return nil, fmt.Errorf("select upgrade offer: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *upgradeRepo) FindByID(ctx context.Context, id string) (*model.UpgradeOffer, error) {
	return r.find(ctx, "", id)
}

func (r *upgradeRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.UpgradeOffer, error) {
	return r.find(ctx, " FOR UPDATE", id)
}

func (r *upgradeRepo) Update(ctx context.Context, o *model.UpgradeOffer) error {
	_, err := r.tx.ExecContext(ctx,
		`UPDATE upgrade_offers SET status = ?, to_inventory_item_id = ?, decided_at = ? WHERE id = ?`,
		o.Status, nullable(o.ToInventoryItemID), nullableTime(o.DecidedAt), o.ID,
	)
	if err != nil {
		return fmt.Errorf("update upgrade offer: %w", err)
	}
	return nil
}
