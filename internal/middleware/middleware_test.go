package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/checkin-facility/internal/config"
	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/utils"
)

const secret = "test-secret"

func newServer(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.GET("/whoami", func(c echo.Context) error {
		a, _ := ActorFrom(c)
		return c.JSON(http.StatusOK, echo.Map{"staff": a.StaffID, "device": a.DeviceID, "role": a.Role})
	}, mw...)
	return e
}

func call(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, "staff-1", "device-1", role, time.Hour)
	require.NoError(t, err)
	return tok.Token
}

func TestJWTAuthSetsActor(t *testing.T) {
	e := newServer(JWTAuth(secret, time.Hour))
	rec := call(e, token(t, model.RoleStaff))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"staff":"staff-1","device":"device-1","role":"staff"}`, rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	e := newServer(JWTAuth(secret, time.Hour))

	assert.Equal(t, http.StatusUnauthorized, call(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(e, "garbage").Code)

	other, err := utils.NewAccessToken("other-secret", "staff-1", "device-1", model.RoleStaff, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(e, other.Token).Code)

	noDevice, err := utils.NewAccessToken(secret, "staff-1", "", model.RoleStaff, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(e, noDevice.Token).Code)

	badRole, err := utils.NewAccessToken(secret, "staff-1", "device-1", "owner", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(e, badRole.Token).Code)

	expired, err := utils.NewAccessToken(secret, "staff-1", "device-1", model.RoleStaff, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(e, expired.Token).Code)
}

func TestJWTAuthBoundsSessionAge(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	claims := utils.StaffClaims{
		DeviceID: "device-1",
		Role:     model.RoleStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "staff-1",
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	old, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, call(newServer(JWTAuth(secret, time.Hour)), old).Code)
	assert.Equal(t, http.StatusOK, call(newServer(JWTAuth(secret, 3*time.Hour)), old).Code)
}

func TestRequireRole(t *testing.T) {
	e := newServer(JWTAuth(secret, time.Hour), RequireRole(model.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, call(e, token(t, model.RoleStaff)).Code)
	assert.Equal(t, http.StatusOK, call(e, token(t, model.RoleAdmin)).Code)
}

func TestTokenBucketDisabledPassesThrough(t *testing.T) {
	e := newServer(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, zap.NewNop()))
	assert.Equal(t, http.StatusOK, call(e, "").Code)
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/holds", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.7")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/holds")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "device"}
	assert.Equal(t, "rl:device:anon", buildRateKey(cfg, c))

	SetActor(c, model.Actor{StaffID: "s1", DeviceID: "d1"})
	assert.Equal(t, "rl:device:d1", buildRateKey(cfg, c))

	cfg.KeyStrategy = "device_route"
	assert.Equal(t, "rl:device:d1:route:POST /v1/holds", buildRateKey(cfg, c))

	cfg.KeyStrategy = "ip_staff"
	assert.Equal(t, "rl:ip:10.0.0.7:staff:s1", buildRateKey(cfg, c))
}
