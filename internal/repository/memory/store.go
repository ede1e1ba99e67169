// Package memory is an in-process implementation of repository.Store.  Units
// of work are serialized by a single mutex and run against a private copy of
// the data that replaces the shared state only on commit, so a failed unit
// of work leaves nothing behind.  Uniqueness constraints are checked with the
// same names the MySQL schema uses.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

type state struct {
	items       map[string]model.InventoryItem
	holds       map[string]model.Hold
	assignments map[string]model.VisitAssignment
	visits      map[string]model.Visit
	renewals    []model.VisitRenewal
	customers   map[string]model.Customer
	upgrades    map[string]model.UpgradeOffer
	sessions    map[string]model.RegisterSession
	audit       []model.AuditEntry
	waitlist    map[string]model.WaitlistEntry
	batches     map[string]model.CleaningBatch
	batchItems  []model.CleaningBatchItem
	checkouts   map[string]model.CheckoutEvent
	agreements  map[string]model.Agreement
	order       map[string]int64 // insertion order of rows whose "latest" matters
	seq         int64
}

func newState() *state {
	return &state{
		items:       map[string]model.InventoryItem{},
		holds:       map[string]model.Hold{},
		assignments: map[string]model.VisitAssignment{},
		visits:      map[string]model.Visit{},
		customers:   map[string]model.Customer{},
		upgrades:    map[string]model.UpgradeOffer{},
		sessions:    map[string]model.RegisterSession{},
		waitlist:    map[string]model.WaitlistEntry{},
		batches:     map[string]model.CleaningBatch{},
		checkouts:   map[string]model.CheckoutEvent{},
		agreements:  map[string]model.Agreement{},
		order:       map[string]int64{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		items:       cloneMap(s.items),
		holds:       cloneMap(s.holds),
		assignments: cloneMap(s.assignments),
		visits:      cloneMap(s.visits),
		renewals:    append([]model.VisitRenewal(nil), s.renewals...),
		customers:   cloneMap(s.customers),
		upgrades:    cloneMap(s.upgrades),
		sessions:    cloneMap(s.sessions),
		audit:       append([]model.AuditEntry(nil), s.audit...),
		waitlist:    cloneMap(s.waitlist),
		batches:     cloneMap(s.batches),
		batchItems:  append([]model.CleaningBatchItem(nil), s.batchItems...),
		checkouts:   cloneMap(s.checkouts),
		agreements:  cloneMap(s.agreements),
		order:       cloneMap(s.order),
		seq:         s.seq,
	}
}

// remember records the insertion order of id so rows created at the same
// instant can still be ordered.
func (s *state) remember(id string) {
	s.seq++
	s.order[id] = s.seq
}

// Store is the in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	data *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{data: newState()}
}

// WithTx implements repository.Store.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(ctx, &tx{st: work}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// AuditEntries returns a copy of the committed audit trail in write order.
func (s *Store) AuditEntries() []model.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditEntry(nil), s.data.audit...)
}

// AuditEntriesFor returns committed audit entries matching action and
// entityID.  Empty arguments match anything.
func (s *Store) AuditEntriesFor(action, entityID string) []model.AuditEntry {
	var out []model.AuditEntry
	for _, e := range s.AuditEntries() {
		if action != "" && e.Action != action {
			continue
		}
		if entityID != "" && e.EntityID != entityID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Holds returns every committed hold on itemID ordered by creation.
func (s *Store) Holds(itemID string) []model.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Hold
	for _, h := range s.data.holds {
		if h.InventoryItemID == itemID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.data.order[out[i].ID] < s.data.order[out[j].ID] })
	return out
}

// Assignments returns every committed assignment row.
func (s *Store) Assignments() []model.VisitAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.VisitAssignment, 0, len(s.data.assignments))
	for _, a := range s.data.assignments {
		out = append(out, a)
	}
	return out
}

// Renewals returns every committed renewal row for visitID.
func (s *Store) Renewals(visitID string) []model.VisitRenewal {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.VisitRenewal
	for _, r := range s.data.renewals {
		if r.VisitID == visitID {
			out = append(out, r)
		}
	}
	return out
}

// BatchItems returns every committed cleaning batch item for batchID.
func (s *Store) BatchItems(batchID string) []model.CleaningBatchItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CleaningBatchItem
	for _, it := range s.data.batchItems {
		if it.BatchID == batchID {
			out = append(out, it)
		}
	}
	return out
}

type tx struct {
	st *state
}

func (t *tx) Inventory() repository.InventoryRepo             { return inventoryRepo{t} }
func (t *tx) Holds() repository.HoldRepo                       { return holdRepo{t} }
func (t *tx) Assignments() repository.AssignmentRepo           { return assignmentRepo{t} }
func (t *tx) Visits() repository.VisitRepo                     { return visitRepo{t} }
func (t *tx) Customers() repository.CustomerRepo               { return customerRepo{t} }
func (t *tx) Upgrades() repository.UpgradeRepo                 { return upgradeRepo{t} }
func (t *tx) RegisterSessions() repository.RegisterSessionRepo { return sessionRepo{t} }
func (t *tx) Audit() repository.AuditRepo                      { return auditRepo{t} }
func (t *tx) Waitlist() repository.WaitlistRepo                { return waitlistRepo{t} }
func (t *tx) Cleaning() repository.CleaningRepo                { return cleaningRepo{t} }
func (t *tx) Checkout() repository.CheckoutRepo                { return checkoutRepo{t} }
func (t *tx) Agreements() repository.AgreementRepo             { return agreementRepo{t} }

func ptr[T any](v T) *T { return &v }

func unique(constraint string) error {
	return &repository.UniqueViolationError{Constraint: constraint}
}
