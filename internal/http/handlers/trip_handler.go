// README: Trip handlers: start/resume tracking, location ingestion, progress reads, websocket stream and end.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/http/middleware"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/tracking"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/realtime"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// ProgressCache serves trip state written by other instances.
type ProgressCache interface {
	CachedUpdate(ctx context.Context, tenantID, tripID types.ID) (tracking.Update, error)
}

type TripHandler struct {
	order    *order.Service
	registry *tracking.Registry
	cache    ProgressCache
	hub      *realtime.Hub
	now      func() time.Time
}

func NewTripHandler(svc *order.Service, registry *tracking.Registry, cache ProgressCache, hub *realtime.Hub) *TripHandler {
	return &TripHandler{order: svc, registry: registry, cache: cache, hub: hub, now: time.Now}
}

type tripResp struct {
	TripID         types.ID `json:"trip_id"`
	RouteAvailable bool     `json:"route_available"`
}

// Start resumes tracking for an order that is already under way, e.g. after
// an API restart dropped the in-memory trip.
func (h *TripHandler) Start(c *gin.Context) {
	tenant := types.ID(middleware.CallerTenant(c))
	o, err := h.order.Resolve(c.Request.Context(), types.ID(c.Param("id")), tenant)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if !o.Trackable() {
		writeError(c, http.StatusConflict, "order is not in a trackable state")
		return
	}
	tr, err := h.registry.Start(c.Request.Context(), tracking.Trip{ID: o.ID, TenantID: tenant, Origin: o.Pickup, Destination: o.Dropoff})
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, tripResp{TripID: o.ID, RouteAvailable: tr.RouteAvailable()})
}

type locationReq struct {
	Lat         *float64 `json:"lat" binding:"required"`
	Lng         *float64 `json:"lng" binding:"required"`
	TimestampMs int64    `json:"timestamp_ms"`
}

// UpdateLocation ingests one device sample. A missing timestamp is stamped
// with server time.
func (h *TripHandler) UpdateLocation(c *gin.Context) {
	var req locationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	ts := req.TimestampMs
	if ts == 0 {
		ts = h.now().UnixMilli()
	}
	u, err := h.registry.Ingest(c.Request.Context(),
		types.ID(middleware.CallerTenant(c)), types.ID(c.Param("id")),
		tracking.Sample{Position: types.Point{Lat: *req.Lat, Lng: *req.Lng}, TimestampMs: ts},
	)
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

// Progress returns the latest progress and ETA. Trips held by another
// instance are served from the shared cache.
func (h *TripHandler) Progress(c *gin.Context) {
	tenant := types.ID(middleware.CallerTenant(c))
	tripID := types.ID(c.Param("id"))
	u, err := h.registry.Snapshot(tenant, tripID)
	if errors.Is(err, tracking.ErrTripNotFound) && h.cache != nil {
		u, err = h.cache.CachedUpdate(c.Request.Context(), tenant, tripID)
	}
	if err != nil {
		writeTrackingError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, u)
}

func (h *TripHandler) End(c *gin.Context) {
	if err := h.registry.End(c.Request.Context(), types.ID(middleware.CallerTenant(c)), types.ID(c.Param("id"))); err != nil {
		writeTrackingError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Stream upgrades to a websocket that receives every update of the trip
// until it ends.
func (h *TripHandler) Stream(c *gin.Context) {
	tenant := types.ID(middleware.CallerTenant(c))
	tripID := types.ID(c.Param("id"))
	if _, err := h.registry.Snapshot(tenant, tripID); errors.Is(err, tracking.ErrTripNotFound) {
		writeTrackingError(c, err)
		return
	}
	conn, err := realtime.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("trip: websocket upgrade failed", "trip_id", tripID, "err", err)
		return
	}
	h.hub.Serve(conn, tripID)
}
