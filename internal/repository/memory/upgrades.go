package memory

import (
	"context"

	"github.com/iliyamo/checkin-facility/internal/model"
)

type upgradeRepo struct{ t *tx }

func (r upgradeRepo) Create(_ context.Context, o *model.UpgradeOffer) error {
	r.t.st.upgrades[o.ID] = *o
	return nil
}

func (r upgradeRepo) FindByID(_ context.Context, id string) (*model.UpgradeOffer, error) {
	o, ok := r.t.st.upgrades[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r upgradeRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.UpgradeOffer, error) {
	return r.FindByID(ctx, id)
}

func (r upgradeRepo) Update(_ context.Context, o *model.UpgradeOffer) error {
	if _, ok := r.t.st.upgrades[o.ID]; ok {
		r.t.st.upgrades[o.ID] = *o
	}
	return nil
}
