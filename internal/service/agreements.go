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

// AgreementService captures the house agreement, once per visit.
type AgreementService struct {
	store repository.Store
	clock clock.Clock
	audit *AuditService
}

// CaptureRequest describes how the agreement was handled.
type CaptureRequest struct {
	VisitID  string
	Status   model.AgreementStatus
	Method   string
	Metadata map[string]any
}

func alreadyCaptured(visitID string) error {
	return apperr.Conflict(apperr.CodeAgreementAlreadyCaptured, "agreement already captured for this visit").
		WithEntity(model.EntityVisit, visitID)
}

// Capture records the agreement for an ACTIVE visit.
func (s *AgreementService) Capture(ctx context.Context, req CaptureRequest, actor model.Actor) (*model.Agreement, error) {
	if !req.Status.Valid() {
		return nil, apperr.Validation("status must be SIGNED or BYPASSED")
	}
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return nil, apperr.Validation("method is required")
	}
	var out *model.Agreement
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if _, err := lockActive(ctx, tx, req.VisitID); err != nil {
			return err
		}
		existing, err := tx.Agreements().FindByVisit(ctx, req.VisitID)
		if err != nil {
			return err
		}
		if existing != nil {
			return alreadyCaptured(req.VisitID)
		}
		a := &model.Agreement{
			ID:         uuid.NewString(),
			VisitID:    req.VisitID,
			Status:     req.Status,
			Method:     method,
			Metadata:   req.Metadata,
			StaffID:    actor.StaffRef(),
			CapturedAt: s.clock.Now(),
		}
		if err := tx.Agreements().Create(ctx, a); err != nil {
			if repository.IsUniqueViolation(err, repository.ConstraintAgreementVisit) {
				return alreadyCaptured(req.VisitID)
			}
			return err
		}
		out = a
		return s.audit.Write(ctx, tx, AuditRecord{
			Action:     model.AuditAgreementCaptured,
			EntityType: model.EntityAgreement,
			EntityID:   a.ID,
			Actor:      actor,
			Metadata:   map[string]any{"visitId": req.VisitID, "status": string(req.Status), "method": method},
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the visit's agreement.
func (s *AgreementService) Get(ctx context.Context, visitID string) (*model.Agreement, error) {
	var out *model.Agreement
	err := s.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		a, err := tx.Agreements().FindByVisit(ctx, visitID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.NotFound(apperr.CodeVisitNotFound, model.EntityAgreement, visitID)
		}
		out = a
		return nil
	})
	return out, err
}
