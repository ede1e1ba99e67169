package apperr

// Kind groups codes into the four failure classes callers branch on.
type Kind string

const (
	KindValidation Kind = "VALIDATION"
	KindNotFound   Kind = "NOT_FOUND"
	KindConflict   Kind = "CONFLICT"
	KindForbidden  Kind = "FORBIDDEN"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation Code = "VALIDATION_ERROR"
	CodeForbidden  Code = "FORBIDDEN"

	// Not found
	CodeInventoryNotFound       Code = "INVENTORY_NOT_FOUND"
	CodeHoldNotFound            Code = "HOLD_NOT_FOUND"
	CodeVisitNotFound           Code = "VISIT_NOT_FOUND"
	CodeCustomerNotFound        Code = "CUSTOMER_NOT_FOUND"
	CodeWaitlistNotFound        Code = "WAITLIST_NOT_FOUND"
	CodeUpgradeNotFound         Code = "UPGRADE_NOT_FOUND"
	CodeRegisterSessionNotFound Code = "REGISTER_SESSION_NOT_FOUND"

	// Inventory conflicts
	CodeSameStatus                        Code = "SAME_STATUS"
	CodeInvalidTransition                 Code = "INVALID_STATUS_TRANSITION"
	CodeInventoryUnavailableForAssignment Code = "INVENTORY_UNAVAILABLE_FOR_ASSIGNMENT"

	// Hold conflicts
	CodeHoldConflict Code = "HOLD_CONFLICT"
	CodeHoldExpired  Code = "HOLD_EXPIRED"

	// Visit conflicts
	CodeVisitAlreadyActive       Code = "VISIT_ALREADY_ACTIVE"
	CodeVisitMaxDurationExceeded Code = "VISIT_MAX_DURATION_EXCEEDED"

	// Upgrade conflicts
	CodeUpgradeInvalidFrom    Code = "UPGRADE_INVALID_FROM"
	CodeUpgradeAlreadyDecided Code = "UPGRADE_ALREADY_DECIDED"
	CodeUpgradeExpired        Code = "UPGRADE_EXPIRED"

	// Register session conflicts
	CodeRegisterActiveConflict   Code = "REGISTER_ACTIVE_CONFLICT"
	CodeDeviceActiveConflict     Code = "DEVICE_ACTIVE_CONFLICT"
	CodeRegisterSessionNotActive Code = "REGISTER_SESSION_NOT_ACTIVE"

	// Visit paperwork conflicts
	CodeAgreementAlreadyCaptured Code = "AGREEMENT_ALREADY_CAPTURED"
	CodeCheckoutAlreadyCompleted Code = "CHECKOUT_ALREADY_COMPLETED"
)
