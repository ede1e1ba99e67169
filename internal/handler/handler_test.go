package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/clock"
	"github.com/iliyamo/checkin-facility/internal/handler"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/repository/memory"
	"github.com/iliyamo/checkin-facility/internal/router"
	"github.com/iliyamo/checkin-facility/internal/service"
	"github.com/iliyamo/checkin-facility/internal/utils"
)

const secret = "handler-secret"

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	clk := clock.NewManual(time.Now())
	log := zap.NewNop()
	core := service.NewCore(memory.New(), service.WithClock(clk), service.WithLogger(log))

	e := echo.New()
	router.RegisterRoutes(e, nil)
	router.RegisterAPI(e, router.Handlers{
		Inventory: handler.NewInventoryHandler(core, log),
		Holds:     handler.NewHoldHandler(core, clk, log),
		Visits:    handler.NewVisitHandler(core, log),
		Upgrades:  handler.NewUpgradeHandler(core, clk, log),
		Registers: handler.NewRegisterHandler(core, log),
	}, router.Auth{JWTSecret: secret, StaffSessionTTL: time.Hour})
	return &api{t: t, e: e}
}

func (a *api) token(staffID, deviceID string, role model.Role) string {
	a.t.Helper()
	tok, err := utils.NewAccessToken(secret, staffID, deviceID, role, time.Hour)
	require.NoError(a.t, err)
	return tok.Token
}

func (a *api) staff() string { return a.token("staff-1", "device-1", model.RoleStaff) }
func (a *api) admin() string { return a.token("admin-1", "device-admin", model.RoleAdmin) }

func (a *api) raw(method, path, token string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var b []byte
	if body != nil {
		var err error
		b, err = json.Marshal(body)
		require.NoError(a.t, err)
	}
	return a.raw(method, path, token, b)
}

// decode asserts the status and unmarshals the body into out.
func decode[T any](t *testing.T, rec *httptest.ResponseRecorder, status int) T {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type errorBody struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
}

func (a *api) item(name string) model.InventoryItem {
	a.t.Helper()
	return decode[model.InventoryItem](a.t, a.do(http.MethodPost, "/v1/inventory", a.admin(), echo.Map{
		"type": "room",
		"name": name,
	}), http.StatusCreated)
}

func (a *api) visit(name string) model.Visit {
	a.t.Helper()
	c := decode[model.Customer](a.t, a.do(http.MethodPost, "/v1/customers", a.staff(), echo.Map{"name": name}), http.StatusCreated)
	return decode[model.Visit](a.t, a.do(http.MethodPost, "/v1/visits", a.staff(), echo.Map{"customer_id": c.ID}), http.StatusCreated)
}

func TestHealthz(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAPIRequiresToken(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodGet, "/v1/inventory", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateItemIsAdminOnly(t *testing.T) {
	a := newAPI(t)
	rec := a.do(http.MethodPost, "/v1/inventory", a.staff(), echo.Map{"type": "room", "name": "Room 1"})
	body := decode[errorBody](t, rec, http.StatusForbidden)
	assert.Equal(t, "FORBIDDEN", body.Code)

	it := a.item("Room 1")
	assert.Equal(t, model.InventoryAvailable, it.Status)

	got := decode[model.InventoryItem](t, a.do(http.MethodGet, "/v1/inventory/"+it.ID, a.staff(), nil), http.StatusOK)
	assert.Equal(t, "Room 1", got.Name)
}

func TestErrorMapping(t *testing.T) {
	a := newAPI(t)

	t.Run("malformed body", func(t *testing.T) {
		rec := a.raw(http.MethodPost, "/v1/customers", a.staff(), []byte("{"))
		body := decode[errorBody](t, rec, http.StatusBadRequest)
		assert.Equal(t, "VALIDATION_ERROR", body.Code)
	})

	t.Run("not found carries entity", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/v1/visits/missing", a.staff(), nil)
		body := decode[errorBody](t, rec, http.StatusNotFound)
		assert.Equal(t, "VISIT_NOT_FOUND", body.Code)
		assert.Equal(t, "missing", body.EntityID)
	})

	t.Run("conflict", func(t *testing.T) {
		it := a.item("Room 9")
		rec := a.do(http.MethodPatch, "/v1/inventory/"+it.ID+"/status", a.staff(), echo.Map{"status": "AVAILABLE"})
		body := decode[errorBody](t, rec, http.StatusConflict)
		assert.Equal(t, "SAME_STATUS", body.Code)
	})

	t.Run("bad register number", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/v1/registers/one/sessions", a.staff(), nil)
		decode[errorBody](t, rec, http.StatusBadRequest)
	})
}

func TestVisitAssignAndClose(t *testing.T) {
	a := newAPI(t)
	it := a.item("Room 2")
	v := a.visit("Ada")

	rec := a.do(http.MethodPost, "/v1/visits/"+v.ID+"/assign", a.staff(), echo.Map{"inventory_item_id": it.ID})
	asg := decode[model.VisitAssignment](t, rec, http.StatusCreated)
	assert.Equal(t, it.ID, asg.InventoryItemID)

	got := decode[struct {
		Visit      model.Visit            `json:"visit"`
		Assignment *model.VisitAssignment `json:"assignment"`
	}](t, a.do(http.MethodGet, "/v1/visits/"+v.ID, a.staff(), nil), http.StatusOK)
	require.NotNil(t, got.Assignment)
	assert.Equal(t, it.ID, got.Assignment.InventoryItemID)

	occupied := decode[model.InventoryItem](t, a.do(http.MethodGet, "/v1/inventory/"+it.ID, a.staff(), nil), http.StatusOK)
	assert.Equal(t, model.InventoryOccupied, occupied.Status)

	closed := decode[model.Visit](t, a.do(http.MethodPost, "/v1/visits/"+v.ID+"/close", a.staff(), nil), http.StatusOK)
	assert.Equal(t, model.VisitClosed, closed.Status)

	dirty := decode[model.InventoryItem](t, a.do(http.MethodGet, "/v1/inventory/"+it.ID, a.staff(), nil), http.StatusOK)
	assert.Equal(t, model.InventoryDirty, dirty.Status)
}

func TestHoldLifecycle(t *testing.T) {
	a := newAPI(t)
	it := a.item("Room 3")
	v1 := a.visit("Ada")
	v2 := a.visit("Grace")

	rec := a.do(http.MethodPost, "/v1/holds", a.staff(), echo.Map{
		"inventory_item_id": it.ID,
		"visit_id":          v1.ID,
		"ttl_seconds":       300,
	})
	h := decode[model.Hold](t, rec, http.StatusCreated)
	assert.Equal(t, model.HoldActive, h.Status)

	rec = a.do(http.MethodPost, "/v1/holds", a.staff(), echo.Map{
		"inventory_item_id": it.ID,
		"visit_id":          v2.ID,
		"ttl_seconds":       300,
	})
	body := decode[errorBody](t, rec, http.StatusConflict)
	assert.Equal(t, "HOLD_CONFLICT", body.Code)

	released := decode[model.Hold](t, a.do(http.MethodPost, "/v1/holds/"+h.ID+"/release", a.staff(), nil), http.StatusOK)
	assert.Equal(t, model.HoldReleased, released.Status)
}

func TestHoldExpiryInput(t *testing.T) {
	a := newAPI(t)
	it := a.item("Room 4")
	v := a.visit("Ada")

	rec := a.do(http.MethodPost, "/v1/holds", a.staff(), echo.Map{
		"inventory_item_id": it.ID,
		"visit_id":          v.ID,
	})
	decode[errorBody](t, rec, http.StatusBadRequest)

	rec = a.do(http.MethodPost, "/v1/holds", a.staff(), echo.Map{
		"inventory_item_id": it.ID,
		"visit_id":          v.ID,
		"ttl_seconds":       60,
		"expires_at":        time.Now().Add(time.Hour),
	})
	decode[errorBody](t, rec, http.StatusBadRequest)
}

func TestRegisterSessionRoutes(t *testing.T) {
	a := newAPI(t)
	other := a.token("staff-2", "device-2", model.RoleStaff)

	s := decode[model.RegisterSession](t, a.do(http.MethodPost, "/v1/registers/1/sessions", a.staff(), nil), http.StatusCreated)
	assert.Equal(t, "device-1", s.DeviceID)
	assert.Equal(t, "staff-1", s.StaffID)

	body := decode[errorBody](t, a.do(http.MethodPost, "/v1/registers/1/sessions", other, nil), http.StatusConflict)
	assert.Equal(t, "REGISTER_ACTIVE_CONFLICT", body.Code)

	body = decode[errorBody](t, a.do(http.MethodPost, "/v1/register-sessions/"+s.ID+"/heartbeat", other, nil), http.StatusForbidden)
	assert.Equal(t, "FORBIDDEN", body.Code)
	decode[model.RegisterSession](t, a.do(http.MethodPost, "/v1/register-sessions/"+s.ID+"/heartbeat", a.staff(), nil), http.StatusOK)

	regs := decode[struct {
		Registers []model.RegisterAvailability `json:"registers"`
	}](t, a.do(http.MethodGet, "/v1/registers", a.staff(), nil), http.StatusOK)
	require.Len(t, regs.Registers, 3)
	assert.False(t, regs.Registers[0].Available)
	assert.True(t, regs.Registers[1].Available)

	decode[errorBody](t, a.do(http.MethodPost, "/v1/admin/registers/1/force-sign-out", a.staff(), nil), http.StatusForbidden)
	ended := decode[model.RegisterSession](t, a.do(http.MethodPost, "/v1/admin/registers/1/force-sign-out", a.admin(), nil), http.StatusOK)
	require.NotNil(t, ended.SignedOutReason)
	assert.Equal(t, model.SignOutForced, *ended.SignedOutReason)

	rec := a.do(http.MethodPost, "/v1/admin/devices/device-1/force-close", a.admin(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestCloseSessionRequiresNoteForOther(t *testing.T) {
	a := newAPI(t)
	s := decode[model.RegisterSession](t, a.do(http.MethodPost, "/v1/registers/2/sessions", a.staff(), nil), http.StatusCreated)

	rec := a.do(http.MethodPost, "/v1/register-sessions/"+s.ID+"/close", a.staff(), echo.Map{"reason": "OTHER"})
	decode[errorBody](t, rec, http.StatusBadRequest)

	rec = a.do(http.MethodPost, "/v1/register-sessions/"+s.ID+"/close", a.staff(), echo.Map{"reason": "SHIFT_END"})
	ended := decode[model.RegisterSession](t, rec, http.StatusOK)
	require.NotNil(t, ended.SignedOutReason)
	assert.Equal(t, model.SignOutStaffClosed, *ended.SignedOutReason)
}
