package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/service"
)

// HoldHandler serves holds and the waitlist they can be placed for.
type HoldHandler struct {
	Holds    *service.HoldService
	Waitlist *service.WaitlistService
	clock    clock.Clock
	log      *zap.Logger
}

// NewHoldHandler constructs a HoldHandler over core.  clk resolves relative
// ttl_seconds values into an absolute expiry.
func NewHoldHandler(core *service.Core, clk clock.Clock, log *zap.Logger) *HoldHandler {
	return &HoldHandler{Holds: core.Holds, Waitlist: core.Waitlist, clock: clk, log: log}
}

// expiry resolves an absolute or relative expiry.  Exactly one must be given.
func expiry(clk clock.Clock, at *time.Time, ttlSeconds int) (time.Time, error) {
	switch {
	case at != nil && ttlSeconds != 0:
		return time.Time{}, apperr.Validation("give either expires_at or ttl_seconds, not both")
	case at != nil:
		return at.UTC(), nil
	case ttlSeconds > 0:
		return clk.Now().Add(time.Duration(ttlSeconds) * time.Second), nil
	default:
		return time.Time{}, apperr.Validation("expires_at or a positive ttl_seconds is required")
	}
}

type createHoldBody struct {
	InventoryItemID string     `json:"inventory_item_id"`
	VisitID         string     `json:"visit_id"`
	WaitlistEntryID string     `json:"waitlist_entry_id"`
	ExpiresAt       *time.Time `json:"expires_at"`
	TTLSeconds      int        `json:"ttl_seconds"`
}

// CreateHold handles POST /v1/holds.
func (h *HoldHandler) CreateHold(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body createHoldBody
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	exp, err := expiry(h.clock, body.ExpiresAt, body.TTLSeconds)
	if err != nil {
		return writeError(c, h.log, err)
	}
	hold, err := h.Holds.Create(c.Request().Context(), service.CreateHoldRequest{
		InventoryItemID: body.InventoryItemID,
		VisitID:         body.VisitID,
		WaitlistEntryID: body.WaitlistEntryID,
		ExpiresAt:       exp,
	}, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, hold)
}

// GetHold handles GET /v1/holds/:id.
func (h *HoldHandler) GetHold(c echo.Context) error {
	hold, err := h.Holds.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, hold)
}

// ReleaseHold handles POST /v1/holds/:id/release.
func (h *HoldHandler) ReleaseHold(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	hold, err := h.Holds.Release(c.Request().Context(), c.Param("id"), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, hold)
}

type createWaitlistBody struct {
	CustomerID    string              `json:"customer_id"`
	RequestedType model.RequestedType `json:"requested_type"`
	Notes         string              `json:"notes"`
}

// CreateWaitlistEntry handles POST /v1/waitlist.
func (h *HoldHandler) CreateWaitlistEntry(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body createWaitlistBody
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	entry, err := h.Waitlist.Create(c.Request().Context(), body.CustomerID, body.RequestedType, body.Notes, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, entry)
}

// GetWaitlistEntry handles GET /v1/waitlist/:id.
func (h *HoldHandler) GetWaitlistEntry(c echo.Context) error {
	entry, err := h.Waitlist.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, entry)
}

// CancelWaitlistEntry handles POST /v1/waitlist/:id/cancel.
func (h *HoldHandler) CancelWaitlistEntry(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	entry, err := h.Waitlist.Cancel(c.Request().Context(), c.Param("id"), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, entry)
}
