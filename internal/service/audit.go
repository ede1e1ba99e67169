package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

// AuditRecord describes one audit entry to append.
type AuditRecord struct {
	Action     string
	EntityType string
	EntityID   string
	Actor      model.Actor
	Metadata   map[string]any
}

// AuditService appends audit entries inside the caller's unit of work.  It
// has no transaction of its own: an entry exists only if the change it
// records commits.
type AuditService struct {
	clock clock.Clock
}

// Write appends rec through tx.
func (s *AuditService) Write(ctx context.Context, tx repository.Tx, rec AuditRecord) error {
	entry := &model.AuditEntry{
		ID:            uuid.NewString(),
		Action:        rec.Action,
		EntityType:    rec.EntityType,
		EntityID:      rec.EntityID,
		ActorStaffID:  rec.Actor.StaffRef(),
		ActorDeviceID: rec.Actor.DeviceRef(),
		Metadata:      rec.Metadata,
		CreatedAt:     s.clock.Now(),
	}
	if err := tx.Audit().Insert(ctx, entry); err != nil {
		return fmt.Errorf("audit %s: %w", rec.Action, err)
	}
	return nil
}
