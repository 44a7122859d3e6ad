// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/http/handlers"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api", middleware.Auth(deps.Verifier), middleware.RequireTenant())

	// The handler must not be handed a typed-nil *Store.
	var cache handlers.ProgressCache
	if deps.Cache != nil {
		cache = deps.Cache
	}

	qrHandler := handlers.NewQRHandler(deps.Order, deps.Builder, deps.Signer, deps.Validator)
	staff := middleware.RequireRole(middleware.RoleDispatcher, middleware.RoleAdmin)
	issuers := middleware.RequireRole(middleware.RoleDispatcher, middleware.RoleAdmin, middleware.RoleDriver)
	api.POST("/qr/sign", issuers, qrHandler.Sign)
	api.POST("/qr/validate", qrHandler.Validate)
	api.POST("/orders/:id/qr", issuers, qrHandler.Generate)

	orderHandler := handlers.NewOrderHandler(deps.Order, deps.Registry)
	api.GET("/orders/:id", orderHandler.Get)
	api.POST("/orders/:id/status", staff, orderHandler.Advance)

	scanHandler := handlers.NewScanHandler(deps.Validator, deps.Order, deps.Registry, deps.Publisher, deps.QR.SimpleModeEnabled)
	driver := middleware.RequireRole(middleware.RoleDriver)
	api.POST("/scan", driver, scanHandler.Scan)

	tripHandler := handlers.NewTripHandler(deps.Order, deps.Registry, cache, deps.Hub)
	api.POST("/trips/:id", issuers, tripHandler.Start)
	api.PUT("/trips/:id/location", driver, tripHandler.UpdateLocation)
	api.GET("/trips/:id/progress", tripHandler.Progress)
	api.GET("/trips/:id/stream", tripHandler.Stream)
	api.DELETE("/trips/:id", issuers, tripHandler.End)

	return r
}
