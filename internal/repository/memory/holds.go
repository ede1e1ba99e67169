package memory

import (
	"context"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

type holdRepo struct{ t *tx }

func (r holdRepo) Create(_ context.Context, h *model.Hold) error {
	if h.Status == model.HoldActive {
		for _, other := range r.t.st.holds {
			if other.InventoryItemID == h.InventoryItemID && other.Status == model.HoldActive {
				return unique(repository.ConstraintHoldActiveItem)
			}
		}
	}
	r.t.st.holds[h.ID] = *h
	r.t.st.remember(h.ID)
	return nil
}

func (r holdRepo) FindByID(_ context.Context, id string) (*model.Hold, error) {
	h, ok := r.t.st.holds[id]
	if !ok {
		return nil, nil
	}
	return &h, nil
}

func (r holdRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.Hold, error) {
	return r.FindByID(ctx, id)
}

func (r holdRepo) FindActiveByItemForUpdate(_ context.Context, itemID string) (*model.Hold, error) {
	for _, h := range r.t.st.holds {
		if h.InventoryItemID == itemID && h.Status == model.HoldActive {
			found := h
			return &found, nil
		}
	}
	return nil, nil
}

func (r holdRepo) UpdateStatus(_ context.Context, id string, status model.HoldStatus) error {
	h, ok := r.t.st.holds[id]
	if !ok {
		return nil
	}
	if status == model.HoldActive && h.Status != model.HoldActive {
		for oid, other := range r.t.st.holds {
			if oid != id && other.InventoryItemID == h.InventoryItemID && other.Status == model.HoldActive {
				return unique(repository.ConstraintHoldActiveItem)
			}
		}
	}
	h.Status = status
	r.t.st.holds[id] = h
	return nil
}
