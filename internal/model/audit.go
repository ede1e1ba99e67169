package model

import "time"

// AuditEntry is one immutable record in the audit trail.  Entries are
// written in the same transaction as the change they describe.
type AuditEntry struct {
	ID            string         `json:"id"`
	Action        string         `json:"action"`
	EntityType    string         `json:"entity_type"`
	EntityID      string         `json:"entity_id"`
	ActorStaffID  *string        `json:"actor_staff_id"`
	ActorDeviceID *string        `json:"actor_device_id"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Audit actions.
const (
	AuditInventoryItemCreated   = "INVENTORY_ITEM_CREATED"
	AuditInventoryStatusUpdated = "INVENTORY_STATUS_UPDATED"
	AuditHoldCreated            = "HOLD_CREATED"
	AuditHoldReleased           = "HOLD_RELEASED"
	AuditHoldExpired            = "HOLD_EXPIRED"
	AuditVisitOpened            = "VISIT_OPENED"
	AuditVisitRenewed           = "VISIT_RENEWED"
	AuditVisitAssigned          = "VISIT_ASSIGNED"
	AuditVisitClosed            = "VISIT_CLOSED"
	AuditUpgradeOffered         = "UPGRADE_OFFERED"
	AuditUpgradeAccepted        = "UPGRADE_ACCEPTED"
	AuditUpgradeDeclined        = "UPGRADE_DECLINED"
	AuditUpgradeExpired         = "UPGRADE_EXPIRED"
	AuditRegisterSessionOpened  = "REGISTER_SESSION_OPENED"
	AuditRegisterSessionClosed  = "REGISTER_SESSION_CLOSED"
	AuditRegisterForceSignOut   = "REGISTER_SESSION_FORCE_SIGNOUT"
	AuditRegisterTTLExpired     = "REGISTER_SESSION_TTL_EXPIRED"
	AuditWaitlistCreated        = "WAITLIST_CREATED"
	AuditWaitlistCancelled      = "WAITLIST_CANCELLED"
	AuditCleaningBatchCreated   = "CLEANING_BATCH_CREATED"
	AuditCheckoutRequested      = "CHECKOUT_REQUESTED"
	AuditCheckoutCompleted      = "CHECKOUT_COMPLETED"
	AuditAgreementCaptured      = "AGREEMENT_CAPTURED"
)

// Audit entity types.
const (
	EntityInventoryItem   = "inventory_item"
	EntityHold            = "inventory_hold"
	EntityVisit           = "visit"
	EntityUpgradeOffer    = "upgrade_offer"
	EntityRegisterSession = "register_session"
	EntityWaitlistEntry   = "waitlist_entry"
	EntityCleaningBatch   = "cleaning_batch"
	EntityCheckout        = "checkout_event"
	EntityAgreement       = "agreement"
)
