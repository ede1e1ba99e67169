package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
)

type inventoryRepo struct{ t *tx }

func (r inventoryRepo) Create(_ context.Context, item *model.InventoryItem) error {
	r.t.st.items[item.ID] = *item
	return nil
}

func (r inventoryRepo) FindByID(_ context.Context, id string) (*model.InventoryItem, error) {
	it, ok := r.t.st.items[id]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r inventoryRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.InventoryItem, error) {
	return r.FindByID(ctx, id)
}

func (r inventoryRepo) FindAvailableByTypeForUpdate(ctx context.Context, t model.InventoryType, excludeID string, now time.Time) (*model.InventoryItem, error) {
	items, _ := r.List(ctx, model.InventoryFilter{Type: t, Status: model.InventoryAvailable})
	for _, it := range items {
		if it.ID == excludeID {
			continue
		}
		if r.hasLiveHold(it.ID, now) || r.hasActiveAssignment(it.ID) {
			continue
		}
		found := it
		return &found, nil
	}
	return nil, nil
}

func (r inventoryRepo) hasLiveHold(itemID string, now time.Time) bool {
	for _, h := range r.t.st.holds {
		if h.InventoryItemID == itemID && h.Live(now) {
			return true
		}
	}
	return false
}

func (r inventoryRepo) hasActiveAssignment(itemID string) bool {
	for _, a := range r.t.st.assignments {
		if a.InventoryItemID == itemID && a.Active() {
			return true
		}
	}
	return false
}

func (r inventoryRepo) UpdateStatus(_ context.Context, id string, status model.InventoryStatus, notes *string, at time.Time) error {
	it, ok := r.t.st.items[id]
	if !ok {
		return nil
	}
	it.Status = status
	if notes != nil {
		it.Notes = ptr(*notes)
	}
	it.UpdatedAt = at
	r.t.st.items[id] = it
	return nil
}

func (r inventoryRepo) List(_ context.Context, f model.InventoryFilter) ([]model.InventoryItem, error) {
	out := make([]model.InventoryItem, 0, len(r.t.st.items))
	for _, it := range r.t.st.items {
		if f.Type != "" && it.Type != f.Type {
			continue
		}
		if f.Status != "" && it.Status != f.Status {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
