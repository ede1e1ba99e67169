// Package apperr defines the typed failures raised by the check-in core.
// Every error carries a Kind (validation, not found, conflict, forbidden),
// a machine-readable Code, and the entity it refers to so callers can decide
// between retrying, prompting the operator, or giving up.
package apperr

import (
	"errors"
	"fmt"
)

// Error is the domain error type.
type Error struct {
	Kind       Kind   // failure class
	Code       Code   // machine-readable code
	Message    string // human-readable description
	EntityType string // optional entity the failure refers to
	EntityID   string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s: %s (%s %s)", e.Code, e.Message, e.EntityType, e.EntityID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches a target *Error by code when the target has one, otherwise by
// kind. This lets callers test against both ErrConflict and ErrHoldConflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" {
		return e.Code == t.Code
	}
	return e.Kind == t.Kind
}

// WithEntity returns a copy of e that names the entity involved.
func (e *Error) WithEntity(entityType, entityID string) *Error {
	cp := *e
	cp.EntityType = entityType
	cp.EntityID = entityID
	return &cp
}

// Kind-level sentinels.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrForbidden  = &Error{Kind: KindForbidden}
)

// Code-level sentinels for the conflicts callers most often branch on.
var (
	ErrSameStatus                        = &Error{Kind: KindConflict, Code: CodeSameStatus}
	ErrInvalidTransition                 = &Error{Kind: KindConflict, Code: CodeInvalidTransition}
	ErrHoldConflict                      = &Error{Kind: KindConflict, Code: CodeHoldConflict}
	ErrHoldExpired                       = &Error{Kind: KindConflict, Code: CodeHoldExpired}
	ErrVisitAlreadyActive                = &Error{Kind: KindConflict, Code: CodeVisitAlreadyActive}
	ErrVisitMaxDurationExceeded          = &Error{Kind: KindConflict, Code: CodeVisitMaxDurationExceeded}
	ErrUpgradeInvalidFrom                = &Error{Kind: KindConflict, Code: CodeUpgradeInvalidFrom}
	ErrUpgradeAlreadyDecided             = &Error{Kind: KindConflict, Code: CodeUpgradeAlreadyDecided}
	ErrUpgradeExpired                    = &Error{Kind: KindConflict, Code: CodeUpgradeExpired}
	ErrRegisterActiveConflict            = &Error{Kind: KindConflict, Code: CodeRegisterActiveConflict}
	ErrDeviceActiveConflict              = &Error{Kind: KindConflict, Code: CodeDeviceActiveConflict}
	ErrRegisterSessionNotActive          = &Error{Kind: KindConflict, Code: CodeRegisterSessionNotActive}
	ErrInventoryUnavailableForAssignment = &Error{Kind: KindConflict, Code: CodeInventoryUnavailableForAssignment}
	ErrAgreementAlreadyCaptured          = &Error{Kind: KindConflict, Code: CodeAgreementAlreadyCaptured}
	ErrCheckoutAlreadyCompleted          = &Error{Kind: KindConflict, Code: CodeCheckoutAlreadyCompleted}
)

// Validation reports malformed or missing input.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports that the referenced entity does not exist.
func NotFound(code Code, entityType, entityID string) *Error {
	return &Error{
		Kind:       KindNotFound,
		Code:       code,
		Message:    entityType + " not found",
		EntityType: entityType,
		EntityID:   entityID,
	}
}

// Conflict reports that a named invariant would be violated.
func Conflict(code Code, format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Forbidden reports that the actor lacks authority over this resource.
func Forbidden(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// As extracts the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}
