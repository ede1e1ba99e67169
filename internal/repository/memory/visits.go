package memory

import (
	"context"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

type visitRepo struct{ t *tx }

func (r visitRepo) checkUnique(v *model.Visit) error {
	if v.Status != model.VisitActive {
		return nil
	}
	for id, other := range r.t.st.visits {
		if id != v.ID && other.CustomerID == v.CustomerID && other.Status == model.VisitActive {
			return unique(repository.ConstraintVisitActiveCustomer)
		}
	}
	return nil
}

func (r visitRepo) Create(_ context.Context, v *model.Visit) error {
	if err := r.checkUnique(v); err != nil {
		return err
	}
	r.t.st.visits[v.ID] = *v
	return nil
}

func (r visitRepo) FindByID(_ context.Context, id string) (*model.Visit, error) {
	v, ok := r.t.st.visits[id]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (r visitRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Visit, error) {
	return r.FindByID(ctx, id)
}

func (r visitRepo) FindActiveByCustomer(_ context.Context, customerID string) (*model.Visit, error) {
	for _, v := range r.t.st.visits {
		if v.CustomerID == customerID && v.Status == model.VisitActive {
			found := v
			return &found, nil
		}
	}
	return nil, nil
}

func (r visitRepo) Update(_ context.Context, v *model.Visit) error {
	if _, ok := r.t.st.visits[v.ID]; !ok {
		return nil
	}
	if err := r.checkUnique(v); err != nil {
		return err
	}
	r.t.st.visits[v.ID] = *v
	return nil
}

func (r visitRepo) CreateRenewal(_ context.Context, rn *model.VisitRenewal) error {
	r.t.st.renewals = append(r.t.st.renewals, *rn)
	return nil
}

type customerRepo struct{ t *tx }

func (r customerRepo) Create(_ context.Context, c *model.Customer) error {
	r.t.st.customers[c.ID] = *c
	return nil
}

func (r customerRepo) FindByID(_ context.Context, id string) (*model.Customer, error) {
	c, ok := r.t.st.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}
