package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/service"
)

// InventoryHandler serves inventory items and cleaning batches.
type InventoryHandler struct {
	Inventory *service.InventoryService
	Cleaning  *service.CleaningService
	log       *zap.Logger
}

// NewInventoryHandler constructs an InventoryHandler over core.
func NewInventoryHandler(core *service.Core, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{Inventory: core.Inventory, Cleaning: core.Cleaning, log: log}
}

type createItemBody struct {
	Type   model.InventoryType   `json:"type"`
	Name   string                `json:"name"`
	Status model.InventoryStatus `json:"status"`
	Notes  string                `json:"notes"`
}

// CreateItem handles POST /v1/inventory (admin only).
func (h *InventoryHandler) CreateItem(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body createItemBody
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	item, err := h.Inventory.CreateItem(c.Request().Context(), service.CreateItemRequest{
		Type:   body.Type,
		Name:   body.Name,
		Status: body.Status,
		Notes:  body.Notes,
	}, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// ListItems handles GET /v1/inventory?type=&status=.
func (h *InventoryHandler) ListItems(c echo.Context) error {
	items, err := h.Inventory.List(c.Request().Context(), model.InventoryFilter{
		Type:   model.InventoryType(c.QueryParam("type")),
		Status: model.InventoryStatus(c.QueryParam("status")),
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	if items == nil {
		items = []model.InventoryItem{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetItem handles GET /v1/inventory/:id.
func (h *InventoryHandler) GetItem(c echo.Context) error {
	item, err := h.Inventory.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, item)
}

type updateStatusBody struct {
	Status model.InventoryStatus `json:"status"`
	Note   string                `json:"note"`
}

// UpdateStatus handles PATCH /v1/inventory/:id/status.  Admins may move an
// item to any status; staff are held to the legal transition table.
func (h *InventoryHandler) UpdateStatus(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body updateStatusBody
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	item, err := h.Inventory.UpdateStatus(c.Request().Context(), c.Param("id"), body.Status, body.Note, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, item)
}

type cleaningBatchBody struct {
	InventoryItemIDs []string              `json:"inventory_item_ids"`
	ToStatus         model.InventoryStatus `json:"to_status"`
}

// CreateCleaningBatch handles POST /v1/cleaning/batches.  The response
// carries a per-item result; a failed item does not fail the request.
func (h *InventoryHandler) CreateCleaningBatch(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body cleaningBatchBody
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	res, err := h.Cleaning.CreateBatch(c.Request().Context(), body.InventoryItemIDs, body.ToStatus, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, res)
}
