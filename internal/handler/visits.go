package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/service"
)

// VisitHandler serves customers, visits, checkout and agreements.
type VisitHandler struct {
	Customers  *service.CustomerService
	Visits     *service.VisitService
	Checkout   *service.CheckoutService
	Agreements *service.AgreementService
	log        *zap.Logger
}

// NewVisitHandler constructs a VisitHandler over core.
func NewVisitHandler(core *service.Core, log *zap.Logger) *VisitHandler {
	return &VisitHandler{
		Customers:  core.Customers,
		Visits:     core.Visits,
		Checkout:   core.Checkout,
		Agreements: core.Agreements,
		log:        log,
	}
}

// CreateCustomer handles POST /v1/customers.
func (h *VisitHandler) CreateCustomer(c echo.Context) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	cust, err := h.Customers.Create(c.Request().Context(), body.Name)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, cust)
}

// GetCustomer handles GET /v1/customers/:id.
func (h *VisitHandler) GetCustomer(c echo.Context) error {
	cust, err := h.Customers.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, cust)
}

// GetActiveVisit handles GET /v1/customers/:id/visit.
func (h *VisitHandler) GetActiveVisit(c echo.Context) error {
	v, err := h.Visits.GetActiveByCustomer(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// OpenVisit handles POST /v1/visits.
func (h *VisitHandler) OpenVisit(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body struct {
		CustomerID string `json:"customer_id"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	v, err := h.Visits.Open(c.Request().Context(), body.CustomerID, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// GetVisit handles GET /v1/visits/:id.  The active assignment, if any, is
// returned alongside the visit.
func (h *VisitHandler) GetVisit(c echo.Context) error {
	ctx := c.Request().Context()
	v, err := h.Visits.Get(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	var assignment *model.VisitAssignment
	if v.Status == model.VisitActive {
		if assignment, err = h.Visits.ActiveAssignment(ctx, v.ID); err != nil {
			return writeError(c, h.log, err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"visit": v, "assignment": assignment})
}

// RenewVisit handles POST /v1/visits/:id/renew.
func (h *VisitHandler) RenewVisit(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body struct {
		Minutes int `json:"minutes"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	v, err := h.Visits.Renew(c.Request().Context(), c.Param("id"), body.Minutes, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// AssignInventory handles POST /v1/visits/:id/assign.
func (h *VisitHandler) AssignInventory(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body struct {
		InventoryItemID string `json:"inventory_item_id"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	asg, err := h.Visits.AssignInventory(c.Request().Context(), c.Param("id"), body.InventoryItemID, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, asg)
}

// CloseVisit handles POST /v1/visits/:id/close.
func (h *VisitHandler) CloseVisit(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	v, err := h.Visits.Close(c.Request().Context(), c.Param("id"), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}

// RequestCheckout handles POST /v1/visits/:id/checkout/request.
func (h *VisitHandler) RequestCheckout(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body struct {
		Method model.CheckoutMethod `json:"method"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	ev, err := h.Checkout.Request(c.Request().Context(), c.Param("id"), body.Method, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, ev)
}

// CompleteCheckout handles POST /v1/visits/:id/checkout/complete.
func (h *VisitHandler) CompleteCheckout(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	ev, err := h.Checkout.Complete(c.Request().Context(), c.Param("id"), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// CaptureAgreement handles POST /v1/visits/:id/agreement.
func (h *VisitHandler) CaptureAgreement(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body struct {
		Status   model.AgreementStatus `json:"status"`
		Method   string                `json:"method"`
		Metadata map[string]any        `json:"metadata"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	ag, err := h.Agreements.Capture(c.Request().Context(), service.CaptureRequest{
		VisitID:  c.Param("id"),
		Status:   body.Status,
		Method:   body.Method,
		Metadata: body.Metadata,
	}, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, ag)
}

// GetAgreement handles GET /v1/visits/:id/agreement.
func (h *VisitHandler) GetAgreement(c echo.Context) error {
	ag, err := h.Agreements.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, ag)
}
