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

// InventoryService owns inventory status.  TransitionStatus is the only
// path that writes an item's status; every other service goes through it.
type InventoryService struct {
	store repository.Store
	clock clock.Clock
	audit *AuditService
}

// TransitionOptions qualifies a status change.
type TransitionOptions struct {
	Note     string      // stored on the item when non-empty; required for OUT_OF_SERVICE
	Actor    model.Actor // who asked
	AllowAny bool        // skip the legal-transition table (administrative override)
	Source   string      // recorded in audit metadata
}

// TransitionStatus moves itemID to status to inside tx and returns the
// updated item together with the status it had before.
func (s *InventoryService) TransitionStatus(ctx context.Context, tx repository.Tx, itemID string, to model.InventoryStatus, opts TransitionOptions) (*model.InventoryItem, model.InventoryStatus, error) {
	if !to.Valid() {
		return nil, "", apperr.Validation("unknown inventory status %q", to)
	}
	item, err := tx.Inventory().FindByIDForUpdate(ctx, itemID)
	if err != nil {
		return nil, "", err
	}
	if item == nil {
		return nil, "", apperr.NotFound(apperr.CodeInventoryNotFound, model.EntityInventoryItem, itemID)
	}
	from := item.Status
	if from == to {
		return nil, "", apperr.Conflict(apperr.CodeSameStatus, "item is already %s", to).WithEntity(model.EntityInventoryItem, itemID)
	}
	note := strings.TrimSpace(opts.Note)
	if to == model.InventoryOutOfService && note == "" {
		return nil, "", apperr.Validation("a note is required to take an item out of service")
	}
	if !opts.AllowAny && !model.IsLegalTransition(from, to) {
		return nil, "", apperr.Conflict(apperr.CodeInvalidTransition, "cannot move item from %s to %s", from, to).WithEntity(model.EntityInventoryItem, itemID)
	}

	now := s.clock.Now()
	var notes *string
	if note != "" {
		notes = &note
		item.Notes = notes
	}
	if err := tx.Inventory().UpdateStatus(ctx, itemID, to, notes, now); err != nil {
		return nil, "", err
	}
	item.Status = to
	item.UpdatedAt = now

	meta := map[string]any{
		"fromStatus": string(from),
		"toStatus":   string(to),
		"source":     opts.Source,
	}
	if note != "" {
		meta["note"] = note
	}
	if err := s.audit.Write(ctx, tx, AuditRecord{
		Action:     model.AuditInventoryStatusUpdated,
		EntityType: model.EntityInventoryItem,
		EntityID:   itemID,
		Actor:      opts.Actor,
		Metadata:   meta,
	}); err != nil {
		return nil, "", err
	}
	return item, from, nil
}

// UpdateStatus is a manual status change in its own unit of work.
// Administrators may bypass the legal-transition table.
func (s *InventoryService) UpdateStatus(ctx context.Context, itemID string, to model.InventoryStatus, note string, actor model.Actor) (*model.InventoryItem, error) {
	var out *model.InventoryItem
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		item, _, err := s.TransitionStatus(ctx, tx, itemID, to, TransitionOptions{
			Note:     note,
			Actor:    actor,
			AllowAny: actor.IsAdmin(),
			Source:   SourceManual,
		})
		out = item
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateItemRequest describes a new inventory item.
type CreateItemRequest struct {
	Type   model.InventoryType
	Name   string
	Status model.InventoryStatus // defaults to AVAILABLE
	Notes  string
}

// CreateItem adds an item to the inventory.
func (s *InventoryService) CreateItem(ctx context.Context, req CreateItemRequest, actor model.Actor) (*model.InventoryItem, error) {
	name := strings.TrimSpace(req.Name)
	if !req.Type.Valid() {
		return nil, apperr.Validation("type must be room or locker")
	}
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	status := req.Status
	if status == "" {
		status = model.InventoryAvailable
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown inventory status %q", status)
	}
	notes := strings.TrimSpace(req.Notes)
	if status == model.InventoryOutOfService && notes == "" {
		return nil, apperr.Validation("a note is required for an out-of-service item")
	}

	now := s.clock.Now()
	item := &model.InventoryItem{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Name:      name,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if notes != "" {
		item.Notes = &notes
	}
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.Inventory().Create(ctx, item); err != nil {
			if repository.IsUniqueViolation(err) {
				return apperr.Validation("an item named %q already exists", name)
			}
			return err
		}
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditInventoryItemCreated,
			EntityType: model.EntityInventoryItem,
			EntityID:   item.ID,
			Actor:      actor,
			Metadata:   map[string]any{"type": string(item.Type), "name": item.Name, "status": string(item.Status)},
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Get returns one item.
func (s *InventoryService) Get(ctx context.Context, id string) (*model.InventoryItem, error) {
	var out *model.InventoryItem
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		item, err := tx.Inventory().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound(apperr.CodeInventoryNotFound, model.EntityInventoryItem, id)
		}
		out = item
		return nil
	})
	return out, err
}

// List returns items matching f ordered by type and name.
func (s *InventoryService) List(ctx context.Context, f model.InventoryFilter) ([]model.InventoryItem, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, apperr.Validation("unknown inventory type %q", f.Type)
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperr.Validation("unknown inventory status %q", f.Status)
	}
	var out []model.InventoryItem
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		items, err := tx.Inventory().List(ctx, f)
		out = items
		return err
	})
	return out, err
}
