// README: QR handlers: payload generation for an order, the remote signing endpoint and dry-run validation.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/http/middleware"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/modules/order"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/qrcode"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/types"
)

type QRHandler struct {
	order     *order.Service
	builder   *qrcode.Builder
	signer    *qrcode.LocalSigner
	validator *qrcode.Validator
}

// NewQRHandler accepts a nil signer; the signing endpoint then answers 503,
// which is the normal state for instances that delegate signing elsewhere.
func NewQRHandler(svc *order.Service, builder *qrcode.Builder, signer *qrcode.LocalSigner, validator *qrcode.Validator) *QRHandler {
	return &QRHandler{order: svc, builder: builder, signer: signer, validator: validator}
}

type generateReq struct {
	ExpirationHours float64        `json:"expiration_hours"`
	Metadata        map[string]any `json:"metadata"`
}

type generateResp struct {
	OrderID types.ID       `json:"order_id"`
	QR      string         `json:"qr"`
	Payload qrcode.Payload `json:"payload"`
}

// Generate builds a signed payload for an order of the caller's tenant.
func (h *QRHandler) Generate(c *gin.Context) {
	var req generateReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	if req.ExpirationHours < 0 {
		writeError(c, http.StatusBadRequest, "expiration_hours must not be negative")
		return
	}

	tenant := types.ID(middleware.CallerTenant(c))
	o, err := h.order.Resolve(c.Request.Context(), types.ID(c.Param("id")), tenant)
	if err != nil {
		writeOrderError(c, err)
		return
	}

	p, err := h.builder.CreatePayload(c.Request.Context(), string(o.ID), string(o.TenantID), qrcode.Options{
		OrderNumber: o.OrderNumber,
		Expiration:  time.Duration(req.ExpirationHours * float64(time.Hour)),
		Metadata:    req.Metadata,
	})
	switch {
	case errors.Is(err, qrcode.ErrNoSigner):
		writeError(c, http.StatusServiceUnavailable, "qr signing is not configured")
		return
	case err != nil:
		slog.Error("qr: build payload failed", "order_id", o.ID, "err", err)
		writeError(c, http.StatusBadGateway, "could not sign qr payload")
		return
	}
	writeJSON(c, http.StatusOK, generateResp{OrderID: o.ID, QR: qrcode.Serialize(p), Payload: p})
}

// Sign is the remote signing endpoint used by builders that do not hold the
// secret. Callers may only sign tuples of their own tenant.
func (h *QRHandler) Sign(c *gin.Context) {
	if h.signer == nil {
		writeError(c, http.StatusServiceUnavailable, qrcode.MsgSecretNotConfigured)
		return
	}
	var req qrcode.SignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OrderID == "" || req.TenantID == "" || req.Timestamp <= 0 {
		writeError(c, http.StatusBadRequest, "orderId, tenantId and timestamp are required")
		return
	}
	if req.TenantID != middleware.CallerTenant(c) {
		writeError(c, http.StatusForbidden, qrcode.MsgTenantMismatch)
		return
	}
	sig, err := h.signer.Signature(c.Request.Context(), req)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(c, http.StatusOK, qrcode.SignResponse{Signature: sig})
}

type rawScanReq struct {
	Raw string `json:"raw" binding:"required"`
}

type validateResp struct {
	IsValid bool            `json:"is_valid"`
	Reason  qrcode.Reason   `json:"reason,omitempty"`
	Error   string          `json:"error,omitempty"`
	Stage   qrcode.Stage    `json:"stage"`
	Payload *qrcode.Payload `json:"payload,omitempty"`
}

func toValidateResp(res qrcode.ValidationResult) validateResp {
	return validateResp{IsValid: res.IsValid, Reason: res.Reason, Error: res.Error, Stage: res.Stage, Payload: res.Payload}
}

// Validate checks scanned text against the caller's tenant without touching
// the order.
func (h *QRHandler) Validate(c *gin.Context) {
	var req rawScanReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	res := h.validator.Validate(req.Raw, middleware.CallerTenant(c))
	writeJSON(c, http.StatusOK, toValidateResp(res))
}
