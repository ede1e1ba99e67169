// Package mysql implements repository.Store on MySQL 8 through
// database/sql and github.com/go-sql-driver/mysql.  Partial uniqueness
// ("one active row per ...") is enforced by UNIQUE keys over stored
// generated columns that are NULL for inactive rows; see the schema in
// internal/database/migrations.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/checkin-facility/internal/observability"
	"github.com/iliyamo/checkin-facility/internal/repository"
)

// erDupEntry is MySQL's duplicate-key error number.
const erDupEntry = 1062

// Store is the MySQL repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore returns a Store bound to db.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("nil *sql.DB passed to mysql.NewStore")
	}
	return &Store{db: db}
}

// DB exposes the underlying pool for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WithTx implements repository.Store.  The transaction is rolled back unless
// fn returns nil and the commit succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	ctx, span := observability.StartSpan(ctx, "store.tx")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.SetStatus(codes.Error, "begin")
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(ctx, &txRepos{tx: tx}); err != nil {
		span.RecordError(err)
		return err
	}
	if err := tx.Commit(); err != nil {
		span.SetStatus(codes.Error, "commit")
		return fmt.Errorf("commit tx: %w", translate(err))
	}
	committed = true
	return nil
}

type txRepos struct {
	tx *sql.Tx
}

func (t *txRepos) Inventory() repository.InventoryRepo             { return &inventoryRepo{tx: t.tx} }
func (t *txRepos) Holds() repository.HoldRepo                       { return &holdRepo{tx: t.tx} }
func (t *txRepos) Assignments() repository.AssignmentRepo           { return &assignmentRepo{tx: t.tx} }
func (t *txRepos) Visits() repository.VisitRepo                     { return &visitRepo{tx: t.tx} }
func (t *txRepos) Customers() repository.CustomerRepo               { return &customerRepo{tx: t.tx} }
func (t *txRepos) Upgrades() repository.UpgradeRepo                 { return &upgradeRepo{tx: t.tx} }
func (t *txRepos) RegisterSessions() repository.RegisterSessionRepo { return &sessionRepo{tx: t.tx} }
func (t *txRepos) Audit() repository.AuditRepo                      { return &auditRepo{tx: t.tx} }
func (t *txRepos) Waitlist() repository.WaitlistRepo                { return &waitlistRepo{tx: t.tx} }
func (t *txRepos) Cleaning() repository.CleaningRepo                { return &cleaningRepo{tx: t.tx} }
func (t *txRepos) Checkout() repository.CheckoutRepo                { return &checkoutRepo{tx: t.tx} }
func (t *txRepos) Agreements() repository.AgreementRepo             { return &agreementRepo{tx: t.tx} }

// translate converts duplicate-key errors into *repository.UniqueViolationError
// and leaves every other error untouched.
func translate(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == erDupEntry {
		return &repository.UniqueViolationError{Constraint: duplicateKeyName(myErr.Message), Err: err}
	}
	return err
}

// duplicateKeyName extracts the index name from a 1062 message such as
// "Duplicate entry '1' for key 'register_sessions.uq_register_sessions_active_register'".
// MySQL before 8.0.19 omits the table prefix.
func duplicateKeyName(msg string) string {
	const marker = "for key '"
	i := strings.LastIndex(msg, marker)
	if i < 0 {
		return ""
	}
	key := strings.TrimSuffix(msg[i+len(marker):], "'")
	if dot := strings.LastIndex(key, "."); dot >= 0 {
		key = key[dot+1:]
	}
	return key
}

type scanner interface {
	Scan(dest ...any) error
}

// queryOne runs a single-row query and returns (false, nil) when no row
// matches.
func queryOne(ctx context.Context, tx *sql.Tx, scan func(scanner) error, query string, args ...any) (bool, error) {
	err := scan(tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	v := nt.Time.UTC()
	return &v
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
