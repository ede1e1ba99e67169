package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

// CustomerService maintains the minimal customer directory visits refer to.
type CustomerService struct {
	store repository.Store
	clock clock.Clock
}

// Create registers a customer.
func (s *CustomerService) Create(ctx context.Context, name string) (*model.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	c := &model.Customer{ID: uuid.NewString(), Name: name, CreatedAt: s.clock.Now()}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.Customers().Create(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns one customer.
func (s *CustomerService) Get(ctx context.Context, id string) (*model.Customer, error) {
	var out *model.Customer
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		c, err := tx.Customers().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return apperr.NotFound(apperr.CodeCustomerNotFound, "customer", id)
		}
		out = c
		return nil
	})
	return out, err
}
