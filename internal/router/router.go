// Package router mounts the HTTP handlers on an echo instance.
package router

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/checkin-facility/internal/handler"
	"github.com/iliyamo/checkin-facility/internal/middleware"
	"github.com/iliyamo/checkin-facility/internal/model"
)

// Handlers bundles every handler the API exposes.
type Handlers struct {
	Inventory *handler.InventoryHandler
	Holds     *handler.HoldHandler
	Visits    *handler.VisitHandler
	Upgrades  *handler.UpgradeHandler
	Registers *handler.RegisterHandler
}

// Auth configures the protected /v1 group.  RateLimit may be nil.
type Auth struct {
	JWTSecret       string
	StaffSessionTTL time.Duration
	RateLimit       echo.MiddlewareFunc
}

// RegisterRoutes registers routes that need no token.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAPI registers every /v1 route.  All of them require a staff
// token; the rate limiter runs after authentication so it can key on the
// device.  Administrative routes additionally require the admin role.
func RegisterAPI(e *echo.Echo, h Handlers, auth Auth) {
	g := e.Group("/v1", middleware.JWTAuth(auth.JWTSecret, auth.StaffSessionTTL))
	if auth.RateLimit != nil {
		g.Use(auth.RateLimit)
	}
	admin := middleware.RequireRole(model.RoleAdmin)

	g.POST("/customers", h.Visits.CreateCustomer)
	g.GET("/customers/:id", h.Visits.GetCustomer)
	g.GET("/customers/:id/visit", h.Visits.GetActiveVisit)

	g.GET("/inventory", h.Inventory.ListItems)
	g.POST("/inventory", h.Inventory.CreateItem, admin)
	g.GET("/inventory/:id", h.Inventory.GetItem)
	g.PATCH("/inventory/:id/status", h.Inventory.UpdateStatus)
	g.POST("/cleaning/batches", h.Inventory.CreateCleaningBatch)

	g.POST("/holds", h.Holds.CreateHold)
	g.GET("/holds/:id", h.Holds.GetHold)
	g.POST("/holds/:id/release", h.Holds.ReleaseHold)

	g.POST("/waitlist", h.Holds.CreateWaitlistEntry)
	g.GET("/waitlist/:id", h.Holds.GetWaitlistEntry)
	g.POST("/waitlist/:id/cancel", h.Holds.CancelWaitlistEntry)

	g.POST("/visits", h.Visits.OpenVisit)
	g.GET("/visits/:id", h.Visits.GetVisit)
	g.POST("/visits/:id/renew", h.Visits.RenewVisit)
	g.POST("/visits/:id/assign", h.Visits.AssignInventory)
	g.POST("/visits/:id/close", h.Visits.CloseVisit)
	g.POST("/visits/:id/checkout/request", h.Visits.RequestCheckout)
	g.POST("/visits/:id/checkout/complete", h.Visits.CompleteCheckout)
	g.POST("/visits/:id/agreement", h.Visits.CaptureAgreement)
	g.GET("/visits/:id/agreement", h.Visits.GetAgreement)

	g.POST("/upgrades", h.Upgrades.CreateOffer)
	g.GET("/upgrades/:id", h.Upgrades.GetOffer)
	g.POST("/upgrades/:id/accept", h.Upgrades.AcceptOffer)
	g.POST("/upgrades/:id/decline", h.Upgrades.DeclineOffer)

	g.GET("/registers", h.Registers.Availability)
	g.POST("/registers/:number/sessions", h.Registers.OpenSession)
	g.GET("/register-sessions/:id", h.Registers.GetSession)
	g.POST("/register-sessions/:id/heartbeat", h.Registers.Heartbeat)
	g.POST("/register-sessions/:id/close", h.Registers.CloseSession)

	a := g.Group("/admin", admin)
	a.POST("/registers/:number/force-sign-out", h.Registers.ForceSignOut)
	a.POST("/devices/:id/force-close", h.Registers.ForceCloseDevice)
}
