package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/apperr"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/service"
)

// RegisterHandler serves register sessions.  The device and staff member
// always come from the bearer token, never from the body.
type RegisterHandler struct {
	Sessions *service.RegisterSessionService
	log      *zap.Logger
}

// NewRegisterHandler constructs a RegisterHandler over core.
func NewRegisterHandler(core *service.Core, log *zap.Logger) *RegisterHandler {
	return &RegisterHandler{Sessions: core.RegisterSessions, log: log}
}

func registerNumber(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return 0, apperr.Validation("register number must be an integer")
	}
	return n, nil
}

// Availability handles GET /v1/registers.
func (h *RegisterHandler) Availability(c echo.Context) error {
	regs, err := h.Sessions.Availability(c.Request().Context())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registers": regs})
}

// OpenSession handles POST /v1/registers/:number/sessions.
func (h *RegisterHandler) OpenSession(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	n, err := registerNumber(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.Sessions.OpenSession(c.Request().Context(), n, a.StaffID, a.DeviceID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// GetSession handles GET /v1/register-sessions/:id.
func (h *RegisterHandler) GetSession(c echo.Context) error {
	s, err := h.Sessions.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Heartbeat handles POST /v1/register-sessions/:id/heartbeat.
func (h *RegisterHandler) Heartbeat(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.Sessions.Heartbeat(c.Request().Context(), c.Param("id"), a.DeviceID)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// CloseSession handles POST /v1/register-sessions/:id/close.
func (h *RegisterHandler) CloseSession(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var body struct {
		Reason model.CloseReason `json:"reason"`
		Note   string            `json:"note"`
	}
	if err := bind(c, &body); err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.Sessions.CloseSession(c.Request().Context(), c.Param("id"), service.CloseSessionRequest{
		Reason: body.Reason,
		Note:   body.Note,
	}, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// ForceSignOut handles POST /v1/admin/registers/:number/force-sign-out.
func (h *RegisterHandler) ForceSignOut(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	n, err := registerNumber(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.Sessions.ForceSignOut(c.Request().Context(), n, a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, s)
}

// ForceCloseDevice handles POST /v1/admin/devices/:id/force-close.  It
// answers 204 when the device had no active session.
func (h *RegisterHandler) ForceCloseDevice(c echo.Context) error {
	a, err := actor(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	s, err := h.Sessions.ForceCloseByDevice(c.Request().Context(), c.Param("id"), a)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if s == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, s)
}
