package repository

import (
	"errors"
	"fmt"
)

// Names of the storage-level uniqueness constraints.  Both store
// implementations report violations using these names so services can map
// each one to the matching domain conflict.
const (
	ConstraintHoldActiveItem        = "uq_inventory_holds_active_item"
	ConstraintAssignmentActiveVisit = "uq_visit_assignments_active_visit"
	ConstraintAssignmentActiveItem  = "uq_visit_assignments_active_item"
	ConstraintVisitActiveCustomer   = "uq_visits_active_customer"
	ConstraintRegisterActive        = "uq_register_sessions_active_register"
	ConstraintDeviceActive          = "uq_register_sessions_active_device"
	ConstraintAgreementVisit        = "uq_agreements_visit"
)

// UniqueViolationError is returned when an insert or update would break a
// uniqueness constraint.  Constraint is the name of the violated key; Err is
// the underlying driver error, if any.
type UniqueViolationError struct {
	Constraint string
	Err        error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique violation on %s", e.Constraint)
}

func (e *UniqueViolationError) Unwrap() error { return e.Err }

// IsUniqueViolation reports whether err is a uniqueness violation.  When
// constraints are given, the violated key must be one of them.
func IsUniqueViolation(err error, constraints ...string) bool {
	var uv *UniqueViolationError
	if !errors.As(err, &uv) {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if uv.Constraint == c {
			return true
		}
	}
	return false
}
