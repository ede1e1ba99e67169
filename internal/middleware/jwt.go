package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checkin-facility/internal/model"
	"github.com/iliyamo/checkin-facility/internal/utils"
)

// JWTAuth validates the staff bearer token and stores the resulting
// model.Actor on the context.  Besides the usual exp check, a token older
// than maxAge (by its iat claim) is refused, which bounds a staff session
// even when tokens are minted with a long expiry.
func JWTAuth(secret string, maxAge time.Duration) echo.MiddlewareFunc {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			var claims utils.StaffClaims
			tok, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return unauthorized(c, "invalid token")
			}
			if claims.Subject == "" || claims.DeviceID == "" {
				return unauthorized(c, "token lacks staff or device")
			}
			if claims.Role != model.RoleStaff && claims.Role != model.RoleAdmin {
				return unauthorized(c, "unknown role")
			}
			if claims.IssuedAt == nil || time.Since(claims.IssuedAt.Time) > maxAge {
				return unauthorized(c, "staff session expired")
			}

			SetActor(c, model.Actor{
				StaffID:  claims.Subject,
				DeviceID: claims.DeviceID,
				Role:     claims.Role,
			})
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg, "code": "UNAUTHORIZED"})
}
