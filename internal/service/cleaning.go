package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

// CleaningService applies one target status to many items at once.  Each
// item is moved in its own unit of work, so one failure leaves the others
// alone.
type CleaningService struct {
	store     repository.Store
	clock     clock.Clock
	audit     *AuditService
	inventory *InventoryService
	log       *zap.Logger
}

// BatchResult is the outcome of CreateBatch.
type BatchResult struct {
	Batch   model.CleaningBatch    `json:"batch"`
	Results []model.CleaningResult `json:"results"`
}

// CreateBatch moves itemIDs to CLEANING or AVAILABLE.
func (s *CleaningService) CreateBatch(ctx context.Context, itemIDs []string, to model.InventoryStatus, actor model.Actor) (*BatchResult, error) {
	if to != model.InventoryCleaning && to != model.InventoryAvailable {
		return nil, apperr.Validation("to_status must be CLEANING or AVAILABLE")
	}
	ids := make([]string, 0, len(itemIDs))
	seen := make(map[string]bool, len(itemIDs))
	for _, id := range itemIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, apperr.Validation("at least one inventory item id is required")
	}

	batch := model.CleaningBatch{
		ID:        uuid.NewString(),
		ToStatus:  to,
		StaffID:   actor.StaffRef(),
		DeviceID:  actor.DeviceRef(),
		CreatedAt: s.clock.Now(),
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Cleaning().CreateBatch(ctx, &batch); err != nil {
			return err
		}
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditCleaningBatchCreated,
			EntityType: model.EntityCleaningBatch,
			EntityID:   batch.ID,
			Actor:      actor,
			Metadata:   map[string]any{"toStatus": string(to), "itemCount": len(ids)},
		})
	})
	if err != nil {
		return nil, err
	}

	out := &BatchResult{Batch: batch, Results: make([]model.CleaningResult, 0, len(ids))}
	for _, id := range ids {
		out.Results = append(out.Results, s.apply(ctx, batch, id, actor))
	}
	return out, nil
}

func (s *CleaningService) apply(ctx context.Context, batch model.CleaningBatch, itemID string, actor model.Actor) model.CleaningResult {
	res := model.CleaningResult{InventoryItemID: itemID}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		item, from, err := s.inventory.TransitionStatus(ctx, tx, itemID, batch.ToStatus, TransitionOptions{
			Actor:    actor,
			AllowAny: actor.IsAdmin(),
			Source:   SourceCleaningBatch,
		})
		if err != nil {
			return err
		}
		res.FromStatus, res.ToStatus = from, item.Status
		return tx.Cleaning().CreateBatchItem(ctx, &model.CleaningBatchItem{
			ID:              uuid.NewString(),
			BatchID:         batch.ID,
			InventoryItemID: itemID,
			FromStatus:      from,
			ToStatus:        item.Status,
			CreatedAt:       s.clock.Now(),
		})
	})
	if err != nil {
		res.FromStatus, res.ToStatus = "", ""
		res.Status = model.CleaningResultFailed
		res.Message = err.Error()
		if e, ok := apperr.As(err); ok {
			res.Code = string(e.Code)
			res.Message = e.Message
		} else {
			s.log.Error("cleaning batch item failed",
				zap.String("batch_id", batch.ID),
				zap.String("inventory_item_id", itemID),
				zap.Error(err))
		}
		return res
	}
	res.Status = model.CleaningResultUpdated
	return res
}
