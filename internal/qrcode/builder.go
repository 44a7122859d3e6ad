package qrcode

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/config"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/metrics"
)

var ErrInvalidInput = errors.New("qrcode: order id and tenant id are required")

// Options tunes a single payload. Zero values fall back to the builder
// defaults.
type Options struct {
	OrderNumber string
	Expiration  time.Duration
	Metadata    map[string]any
}

type Builder struct {
	source            SignatureSource
	defaultExpiration time.Duration
	now               func() time.Time
}

func NewBuilder(cfg config.QR, source SignatureSource) *Builder {
	return &Builder{
		source:            source,
		defaultExpiration: cfg.DefaultExpiration,
		now:               time.Now,
	}
}

// NewSignatureSource picks the remote signer when a signing URL is
// configured and the in-process secret otherwise.
func NewSignatureSource(cfg config.QR, client *http.Client) (SignatureSource, error) {
	if cfg.SigningURL != "" {
		return NewHTTPSigner(cfg.SigningURL, cfg.SigningToken, client), nil
	}
	s, err := NewLocalSigner(cfg.Secret)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreatePayload stamps the current time, computes the absolute expiration and
// signs. The timestamp is fixed before the signature is requested so the
// signed tuple and the embedded tuple are the same values.
func (b *Builder) CreatePayload(ctx context.Context, orderID, tenantID string, opts Options) (Payload, error) {
	if orderID == "" || tenantID == "" {
		return Payload{}, ErrInvalidInput
	}
	if b.source == nil {
		return Payload{}, ErrNoSigner
	}
	exp := opts.Expiration
	if exp <= 0 {
		exp = b.defaultExpiration
	}

	ts := b.now().UnixMilli()
	expiresAt := ts + exp.Milliseconds()
	fields := Fields{
		OrderID:     orderID,
		Timestamp:   ts,
		TenantID:    tenantID,
		OrderNumber: opts.OrderNumber,
	}
	sig, err := b.source.Signature(ctx, fields)
	if err != nil {
		return Payload{}, fmt.Errorf("sign payload for order %s: %w", orderID, err)
	}
	metrics.PayloadsBuiltTotal.Inc()

	return Payload{
		OrderID:     fields.OrderID,
		TenantID:    fields.TenantID,
		OrderNumber: fields.OrderNumber,
		Timestamp:   fields.Timestamp,
		ExpiresAt:   &expiresAt,
		Signature:   sig,
		Version:     SupportedVersion,
		Metadata:    opts.Metadata,
	}, nil
}
