package memory

import (
	"context"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

type auditRepo struct{ t *tx }

func (r auditRepo) Insert(_ context.Context, e *model.AuditEntry) error {
	r.t.st.audit = append(r.t.st.audit, *e)
	return nil
}

type waitlistRepo struct{ t *tx }

func (r waitlistRepo) Create(_ context.Context, e *model.WaitlistEntry) error {
	r.t.st.waitlist[e.ID] = *e
	return nil
}

func (r waitlistRepo) FindByID(_ context.Context, id string) (*model.WaitlistEntry, error) {
	e, ok := r.t.st.waitlist[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r waitlistRepo) FindByIDForUpdate(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	return r.FindByID(ctx, id)
}

func (r waitlistRepo) UpdateStatus(_ context.Context, id string, status model.WaitlistStatus, at time.Time) error {
	e, ok := r.t.st.waitlist[id]
	if !ok {
		return nil
	}
	e.Status = status
	e.UpdatedAt = at
	r.t.st.waitlist[id] = e
	return nil
}

type cleaningRepo struct{ t *tx }

func (r cleaningRepo) CreateBatch(_ context.Context, b *model.CleaningBatch) error {
	r.t.st.batches[b.ID] = *b
	return nil
}

func (r cleaningRepo) CreateBatchItem(_ context.Context, it *model.CleaningBatchItem) error {
	r.t.st.batchItems = append(r.t.st.batchItems, *it)
	return nil
}

type checkoutRepo struct{ t *tx }

func (r checkoutRepo) Create(_ context.Context, e *model.CheckoutEvent) error {
	r.t.st.checkouts[e.ID] = *e
	r.t.st.remember(e.ID)
	return nil
}

func (r checkoutRepo) FindLatestByVisit(_ context.Context, visitID string) (*model.CheckoutEvent, error) {
	var latest *model.CheckoutEvent
	for _, e := range r.t.st.checkouts {
		if e.VisitID != visitID {
			continue
		}
		if latest == nil || r.t.st.order[e.ID] > r.t.st.order[latest.ID] {
			found := e
			latest = &found
		}
	}
	return latest, nil
}

func (r checkoutRepo) MarkCompleted(_ context.Context, id string, at time.Time, staffID *string) error {
	e, ok := r.t.st.checkouts[id]
	if !ok {
		return nil
	}
	e.CompletedAt = ptr(at)
	if staffID != nil {
		e.StaffID = staffID
	}
	r.t.st.checkouts[id] = e
	return nil
}

type agreementRepo struct{ t *tx }

func (r agreementRepo) Create(_ context.Context, a *model.Agreement) error {
	for _, other := range r.t.st.agreements {
		if other.VisitID == a.VisitID {
			return unique(repository.ConstraintAgreementVisit)
		}
	}
	r.t.st.agreements[a.ID] = *a
	return nil
}

func (r agreementRepo) FindByVisit(_ context.Context, visitID string) (*model.Agreement, error) {
	for _, a := range r.t.st.agreements {
		if a.VisitID == visitID {
			found := a
			return &found, nil
		}
	}
	return nil, nil
}
