// README: Scan handler: validates a scanned QR code, activates the order and starts live tracking.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/events"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/http/middleware"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/metrics"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/tracking"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/qrcode"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// TripStarter begins live tracking for an activated order.
type TripStarter interface {
	Start(ctx context.Context, trip tracking.Trip) (*tracking.Tracker, error)
}

type ScanHandler struct {
	validator  *qrcode.Validator
	order      *order.Service
	trips      TripStarter
	publisher  events.Publisher
	simpleMode bool
}

func NewScanHandler(validator *qrcode.Validator, svc *order.Service, trips TripStarter, pub events.Publisher, simpleMode bool) *ScanHandler {
	if pub == nil {
		pub = events.Discard{}
	}
	return &ScanHandler{validator: validator, order: svc, trips: trips, publisher: pub, simpleMode: simpleMode}
}

type scanResp struct {
	orderResponse
	ScanMode       string `json:"scan_mode"`
	RouteAvailable bool   `json:"route_available"`
}

// Scan is the driver's "start this delivery" action.
func (h *ScanHandler) Scan(c *gin.Context) {
	var req rawScanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	ctx := c.Request.Context()
	tenant := types.ID(middleware.CallerTenant(c))
	driver := types.ID(middleware.CallerUID(c))

	scan, res := h.validator.ValidateScan(req.Raw, string(tenant), h.simpleMode)
	if scan == nil {
		metrics.OrderActivationsTotal.WithLabelValues("none", "rejected").Inc()
		writeJSON(c, http.StatusUnprocessableEntity, toValidateResp(res))
		return
	}

	var (
		o    *order.Order
		err  error
		mode string
	)
	switch s := scan.(type) {
	case qrcode.SignedScan:
		mode = order.ScanModeSigned
		o, err = h.order.Resolve(ctx, types.ID(s.Payload.OrderID), tenant)
		if err == nil && s.Payload.OrderNumber != "" && s.Payload.OrderNumber != o.OrderNumber {
			metrics.OrderActivationsTotal.WithLabelValues(mode, "rejected").Inc()
			writeError(c, http.StatusUnprocessableEntity, "QR code does not match the order record")
			return
		}
	case qrcode.SimpleScan:
		mode = order.ScanModeSimple
		o, err = h.order.ResolveKey(ctx, s.Key, tenant)
	}
	if err != nil {
		metrics.OrderActivationsTotal.WithLabelValues(mode, "not_found").Inc()
		writeOrderError(c, err)
		return
	}

	o, err = h.order.Activate(ctx, order.ActivateCommand{
		OrderID:  o.ID,
		TenantID: tenant,
		DriverID: driver,
		ScanMode: mode,
	})
	if err != nil {
		metrics.OrderActivationsTotal.WithLabelValues(mode, "refused").Inc()
		writeOrderError(c, err)
		return
	}
	metrics.OrderActivationsTotal.WithLabelValues(mode, "activated").Inc()
	slog.Info("scan: order activated", "order_id", o.ID, "tenant_id", tenant, "driver_id", driver, "mode", mode)

	if err := h.publisher.Publish(ctx, events.KeyOrderActivated, events.NewOrderActivated(o, mode)); err != nil {
		slog.Error("scan: publish activation failed", "order_id", o.ID, "err", err)
	}

	resp := scanResp{orderResponse: toOrderResponse(o), ScanMode: mode}
	if h.trips != nil {
		tr, err := h.trips.Start(ctx, tracking.Trip{ID: o.ID, TenantID: tenant, Origin: o.Pickup, Destination: o.Dropoff})
		if err != nil {
			slog.Error("scan: start tracking failed", "order_id", o.ID, "err", err)
		} else {
			resp.RouteAvailable = tr.RouteAvailable()
		}
	}
	writeJSON(c, http.StatusOK, resp)
}
