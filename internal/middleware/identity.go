package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checkin-facility/internal/model"
)

const actorKey = "actor"

// SetActor stores the authenticated actor on the request context.
func SetActor(c echo.Context, a model.Actor) { c.Set(actorKey, a) }

// ActorFrom returns the actor JWTAuth stored, if any.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	a, ok := c.Get(actorKey).(model.Actor)
	return a, ok
}

// deviceID returns the calling device, or "anon" before authentication.
func deviceID(c echo.Context) string {
	if a, ok := ActorFrom(c); ok && a.DeviceID != "" {
		return a.DeviceID
	}
	return "anon"
}

// staffID returns the calling staff member, or "anon" before
// authentication.
func staffID(c echo.Context) string {
	if a, ok := ActorFrom(c); ok && a.StaffID != "" {
		return a.StaffID
	}
	return "anon"
}
