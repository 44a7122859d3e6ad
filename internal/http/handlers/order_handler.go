// README: Order handlers for lookup and status changes after activation.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/http/middleware"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/tracking"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

// TripEnder stops live tracking once an order leaves the trackable states.
type TripEnder interface {
	End(ctx context.Context, tenantID, tripID types.ID) error
}

type OrderHandler struct {
	order *order.Service
	trips TripEnder
}

func NewOrderHandler(svc *order.Service, trips TripEnder) *OrderHandler {
	return &OrderHandler{order: svc, trips: trips}
}

func (h *OrderHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing order id")
		return
	}
	o, err := h.order.Resolve(c.Request.Context(), types.ID(id), types.ID(middleware.CallerTenant(c)))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}

type advanceReq struct {
	To order.Status `json:"to" binding:"required"`
}

func (h *OrderHandler) Advance(c *gin.Context) {
	var req advanceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	tenant := types.ID(middleware.CallerTenant(c))
	o, err := h.order.Advance(c.Request.Context(), order.AdvanceCommand{
		OrderID:   types.ID(c.Param("id")),
		TenantID:  tenant,
		To:        req.To,
		ActorType: middleware.CallerRole(c),
		ActorID:   types.ID(middleware.CallerUID(c)),
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if !o.Trackable() && h.trips != nil {
		if err := h.trips.End(c.Request.Context(), tenant, o.ID); err != nil && !errors.Is(err, tracking.ErrTripNotFound) {
			slog.Error("order: ending trip failed", "order_id", o.ID, "err", err)
		}
	}
	writeJSON(c, http.StatusOK, toOrderResponse(o))
}
