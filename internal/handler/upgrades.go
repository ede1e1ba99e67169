package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/service"
)

// UpgradeHandler serves upgrade offers.
type UpgradeHandler struct {
	Upgrades *service.UpgradeService
	clock    clock.Clock
	log      *zap.Logger
}

// NewUpgradeHandler constructs an UpgradeHandler over core.
func NewUpgradeHandler(core *service.Core, clk clock.Clock, log *zap.Logger) *UpgradeHandler {
	return &UpgradeHandler{Upgrades: core.Upgrades, clock: clk, log: log}
}

type createOfferBody struct {
	VisitID             string              `json:"visit_id"`
	FromInventoryItemID string              `json:"from_inventory_item_id"`
	ToInventoryType     model.InventoryType `json:"to_inventory_type"`
	ExpiresAt           *time.Time          `json:"expires_at"`
	TTLSeconds          int                 `json:"ttl_seconds"`
}

// CreateOffer handles POST /v1/upgrades.
func (h *UpgradeHandler) CreateOffer(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body createOfferBody
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	exp, err := expiry(h.clock, body.ExpiresAt, body.TTLSeconds)
	if err != nil {
		return writeError(c, h.log, err)
	}
	o, err := h.Upgrades.CreateOffer(c.Request().Context(), service.CreateOfferRequest{
		VisitID:             body.VisitID,
		FromInventoryItemID: body.FromInventoryItemID,
		ToInventoryType:     body.ToInventoryType,
		ExpiresAt:           exp,
	}, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, o)
}

// GetOffer handles GET /v1/upgrades/:id.
func (h *UpgradeHandler) GetOffer(c echo.Context) error {
	o, err := h.Upgrades.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, o)
}

// AcceptOffer handles POST /v1/upgrades/:id/accept.
func (h *UpgradeHandler) AcceptOffer(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	o, err := h.Upgrades.Accept(c.Request().Context(), c.Param("id"), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, o)
}

// DeclineOffer handles POST /v1/upgrades/:id/decline.
func (h *UpgradeHandler) DeclineOffer(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	o, err := h.Upgrades.Decline(c.Request().Context(), c.Param("id"), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, o)
}
