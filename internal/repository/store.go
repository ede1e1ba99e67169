// Package repository declares the persistence contracts of the check-in core.
// A Store runs a unit of work; the Tx handed to the callback exposes one
// repository per table, all bound to the same transaction, so every write
// made inside the callback (audit entries included) commits or rolls back
// together.  Implementations live in the mysql and memory subpackages.
package repository

import (
	"context"
	"time"

	"github.com/iliyamo/checkin-facility/internal/model"
)

// Store opens units of work.
type Store interface {
	// WithTx runs fn inside a transaction.  The transaction commits when fn
	// returns nil and rolls back otherwise; fn's error is returned as is.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the unit-of-work handle passed to every operation that must join an
// enclosing transaction.
type Tx interface {
	Inventory() InventoryRepo
	Holds() HoldRepo
	Assignments() AssignmentRepo
	Visits() VisitRepo
	Customers() CustomerRepo
	Upgrades() UpgradeRepo
	RegisterSessions() RegisterSessionRepo
	Audit() AuditRepo
	Waitlist() WaitlistRepo
	Cleaning() CleaningRepo
	Checkout() CheckoutRepo
	Agreements() AgreementRepo
}

// Lookups return (nil, nil) when the row does not exist.  Methods with a
// ForUpdate suffix take an exclusive row lock held until the transaction
// ends.

// InventoryRepo persists inventory items.  Status is only written through
// UpdateStatus, which the inventory service is the sole caller of.
type InventoryRepo interface {
	Create(ctx context.Context, item *model.InventoryItem) error
	FindByID(ctx context.Context, id string) (*model.InventoryItem, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.InventoryItem, error)
	// FindAvailableByTypeForUpdate locks one AVAILABLE item of the given type
	// that has neither a live hold nor an active assignment, skipping rows
	// other transactions hold locks on.  excludeID is never returned.
	FindAvailableByTypeForUpdate(ctx context.Context, t model.InventoryType, excludeID string, now time.Time) (*model.InventoryItem, error)
	UpdateStatus(ctx context.Context, id string, status model.InventoryStatus, notes *string, at time.Time) error
	List(ctx context.Context, f model.InventoryFilter) ([]model.InventoryItem, error)
}

// HoldRepo persists holds.  Create returns a *UniqueViolationError for
// ConstraintHoldActiveItem when the item already has an ACTIVE hold.
type HoldRepo interface {
	Create(ctx context.Context, h *model.Hold) error
	FindByID(ctx context.Context, id string) (*model.Hold, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Hold, error)
	FindActiveByItemForUpdate(ctx context.Context, itemID string) (*model.Hold, error)
	UpdateStatus(ctx context.Context, id string, status model.HoldStatus) error
}

// AssignmentRepo persists visit assignments.  Create and Reassign return a
// *UniqueViolationError when the visit or item already has an active row.
type AssignmentRepo interface {
	Create(ctx context.Context, a *model.VisitAssignment) error
	FindActiveByVisit(ctx context.Context, visitID string) (*model.VisitAssignment, error)
	FindActiveByItem(ctx context.Context, itemID string) (*model.VisitAssignment, error)
	// ReleaseByVisit stamps releasedAt on the visit's active row and returns
	// it, or nil when there was none.
	ReleaseByVisit(ctx context.Context, visitID string, at time.Time) (*model.VisitAssignment, error)
	// Reassign moves the visit's active row to newItemID in place and returns
	// it, or nil when the visit has no active row.
	Reassign(ctx context.Context, visitID, newItemID string) (*model.VisitAssignment, error)
}

// VisitRepo persists visits and their renewals.
type VisitRepo interface {
	Create(ctx context.Context, v *model.Visit) error
	FindByID(ctx context.Context, id string) (*model.Visit, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.Visit, error)
	FindActiveByCustomer(ctx context.Context, customerID string) (*model.Visit, error)
	Update(ctx context.Context, v *model.Visit) error
	CreateRenewal(ctx context.Context, r *model.VisitRenewal) error
}

// CustomerRepo reads the customer directory.
type CustomerRepo interface {
	Create(ctx context.Context, c *model.Customer) error
	FindByID(ctx context.Context, id string) (*model.Customer, error)
}

// UpgradeRepo persists upgrade offers.
type UpgradeRepo interface {
	Create(ctx context.Context, o *model.UpgradeOffer) error
	FindByID(ctx context.Context, id string) (*model.UpgradeOffer, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.UpgradeOffer, error)
	Update(ctx context.Context, o *model.UpgradeOffer) error
}

// SessionClose describes how a register session ended.
type SessionClose struct {
	Reason      model.SignOutReason
	ByStaffID   *string
	SignedOutAt time.Time
}

// RegisterSessionRepo persists register sessions.  Create returns a
// *UniqueViolationError naming ConstraintRegisterActive or
// ConstraintDeviceActive when the register or device is already in use.
type RegisterSessionRepo interface {
	Create(ctx context.Context, s *model.RegisterSession) error
	FindByID(ctx context.Context, id string) (*model.RegisterSession, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.RegisterSession, error)
	FindActiveByRegisterForUpdate(ctx context.Context, registerNumber int) (*model.RegisterSession, error)
	FindLatestByRegister(ctx context.Context, registerNumber int) (*model.RegisterSession, error)
	FindActiveByDeviceForUpdate(ctx context.Context, deviceID string) (*model.RegisterSession, error)
	ListActive(ctx context.Context) ([]model.RegisterSession, error)
	UpdateHeartbeat(ctx context.Context, id string, at time.Time) error
	// Close ends the session if it is still active and returns the updated
	// row; it returns nil when the session had already ended.
	Close(ctx context.Context, id string, c SessionClose) (*model.RegisterSession, error)
	// LockExpired locks up to limit active sessions whose last heartbeat is
	// before cutoff, skipping rows another transaction has locked.
	LockExpired(ctx context.Context, cutoff time.Time, limit int) ([]model.RegisterSession, error)
}

// AuditRepo appends audit entries.
type AuditRepo interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
}

// WaitlistRepo persists waitlist entries.
type WaitlistRepo interface {
	Create(ctx context.Context, e *model.WaitlistEntry) error
	FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error)
	FindByIDForUpdate(ctx context.Context, id string) (*model.WaitlistEntry, error)
	UpdateStatus(ctx context.Context, id string, status model.WaitlistStatus, at time.Time) error
}

// CleaningRepo records cleaning batches.
type CleaningRepo interface {
	CreateBatch(ctx context.Context, b *model.CleaningBatch) error
	CreateBatchItem(ctx context.Context, it *model.CleaningBatchItem) error
}

// CheckoutRepo persists checkout events.
type CheckoutRepo interface {
	Create(ctx context.Context, e *model.CheckoutEvent) error
	FindLatestByVisit(ctx context.Context, visitID string) (*model.CheckoutEvent, error)
	MarkCompleted(ctx context.Context, id string, at time.Time, staffID *string) error
}

// AgreementRepo persists agreements.  Create returns a
// *UniqueViolationError for ConstraintAgreementVisit on a second capture.
type AgreementRepo interface {
	Create(ctx context.Context, a *model.Agreement) error
	FindByVisit(ctx context.Context, visitID string) (*model.Agreement, error)
}
