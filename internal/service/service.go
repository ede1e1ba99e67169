// Package service implements the check-in core: inventory status
// transitions, holds, visit assignment, visits, the upgrade workflow, and
// register-session coordination.  Every mutating operation runs inside one
// repository.Store unit of work and records exactly one audit entry per
// state change, written after the change itself.  Operations that must join
// a caller's unit of work take the repository.Tx explicitly and carry an
// InTx suffix or a tx parameter.
package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/queue"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

// Defaults used when no option overrides them.
const (
	DefaultVisitInitialMinutes  = 360
	DefaultVisitMaxTotalMinutes = 840
	DefaultRegisterSessionTTL   = 15 * time.Minute
	DefaultSweepBatchSize       = 100
)

// Transition sources recorded in inventory audit metadata.
const (
	SourceManual          = "MANUAL"
	SourceVisitAssignment = "VISIT_ASSIGNMENT"
	SourceVisitClose      = "VISIT_CLOSE"
	SourceUpgradeAccept   = "UPGRADE_ACCEPT"
	SourceCleaningBatch   = "CLEANING_BATCH"
	SourceCheckout        = "CHECKOUT"
)

type settings struct {
	clock        clock.Clock
	logger       *zap.Logger
	publisher    LivenessPublisher
	visitInitial int
	visitMax     int
	sessionTTL   time.Duration
	batchSize    int
}

// Option customizes a Core.
type Option func(*settings)

// WithClock sets the time source.
func WithClock(c clock.Clock) Option { return func(s *settings) { s.clock = c } }

// WithLogger sets the logger used for best-effort failures.
func WithLogger(l *zap.Logger) Option { return func(s *settings) { s.logger = l } }

// WithLivenessPublisher sets where register-session events go.
func WithLivenessPublisher(p LivenessPublisher) Option {
	return func(s *settings) { s.publisher = p }
}

// WithVisitDurations sets the initial and maximum total visit length in
// minutes.
func WithVisitDurations(initial, maxTotal int) Option {
	return func(s *settings) {
		s.visitInitial = initial
		s.visitMax = maxTotal
	}
}

// WithRegisterSessionTTL sets how long a register session may go without a
// heartbeat before the sweep ends it.
func WithRegisterSessionTTL(ttl time.Duration) Option {
	return func(s *settings) { s.sessionTTL = ttl }
}

// WithSweepBatchSize sets how many expired sessions one sweep batch locks.
func WithSweepBatchSize(n int) Option { return func(s *settings) { s.batchSize = n } }

// Core bundles every service over one store.
type Core struct {
	Audit            *AuditService
	Inventory        *InventoryService
	Holds            *HoldService
	Assignments      *AssignmentService
	Visits           *VisitService
	Customers        *CustomerService
	Upgrades         *UpgradeService
	RegisterSessions *RegisterSessionService
	Waitlist         *WaitlistService
	Cleaning         *CleaningService
	Checkout         *CheckoutService
	Agreements       *AgreementService
}

// NewCore wires all services over store.
func NewCore(store repository.Store, opts ...Option) *Core {
	cfg := settings{
		clock:        clock.NewSystem(),
		logger:       zap.NewNop(),
		publisher:    queue.NoopPublisher{},
		visitInitial: DefaultVisitInitialMinutes,
		visitMax:     DefaultVisitMaxTotalMinutes,
		sessionTTL:   DefaultRegisterSessionTTL,
		batchSize:    DefaultSweepBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.batchSize < 1 {
		cfg.batchSize = DefaultSweepBatchSize
	}

	audit := &AuditService{clock: cfg.clock}
	inventory := &InventoryService{store: store, clock: cfg.clock, audit: audit}
	assignments := &AssignmentService{clock: cfg.clock}
	holds := &HoldService{store: store, clock: cfg.clock, audit: audit}
	visits := &VisitService{
		store:       store,
		clock:       cfg.clock,
		audit:       audit,
		inventory:   inventory,
		assignments: assignments,
		holds:       holds,
		initial:     cfg.visitInitial,
		maxTotal:    cfg.visitMax,
	}
	return &Core{
		Audit:       audit,
		Inventory:   inventory,
		Holds:       holds,
		Assignments: assignments,
		Visits:      visits,
		Customers:   &CustomerService{store: store, clock: cfg.clock},
		Upgrades: &UpgradeService{
			store:       store,
			clock:       cfg.clock,
			audit:       audit,
			inventory:   inventory,
			assignments: assignments,
			holds:       holds,
		},
		RegisterSessions: &RegisterSessionService{
			store:     store,
			clock:     cfg.clock,
			audit:     audit,
			publisher: cfg.publisher,
			log:       cfg.logger.Named("register_sessions"),
			ttl:       cfg.sessionTTL,
			batchSize: cfg.batchSize,
		},
		Waitlist:   &WaitlistService{store: store, clock: cfg.clock, audit: audit},
		Cleaning:   &CleaningService{store: store, clock: cfg.clock, audit: audit, inventory: inventory, log: cfg.logger.Named("cleaning")},
		Checkout:   &CheckoutService{store: store, clock: cfg.clock, audit: audit, visits: visits},
		Agreements: &AgreementService{store: store, clock: cfg.clock, audit: audit},
	}
}
