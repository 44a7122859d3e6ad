package qrcode

import (
	"log/slog"
	"time"

	"github.com/heinNell/MobileOrderTracker-sub002/internal/config"
	"github.com/heinNell/MobileOrderTracker-sub002/internal/metrics"
)

// Reason classifies a rejection so callers can branch without string
// matching.
type Reason string

const (
	ReasonNone                Reason = ""
	ReasonMalformedPayload    Reason = "malformed_payload"
	ReasonUnsupportedVersion  Reason = "unsupported_version"
	ReasonTenantMismatch      Reason = "tenant_mismatch"
	ReasonExpired             Reason = "expired"
	ReasonClockSkewExceeded   Reason = "clock_skew_exceeded"
	ReasonSignatureInvalid    Reason = "signature_invalid"
	ReasonSecretNotConfigured Reason = "secret_not_configured"
)

const (
	MsgInvalidFormat       = "Invalid QR code format"
	MsgUnsupportedVersion  = "Unsupported QR code version: "
	MsgTenantMismatch      = "QR code belongs to a different organization"
	MsgExpired             = "QR code has expired"
	MsgClockSkew           = "QR code timestamp outside allowed clock skew"
	MsgSignatureInvalid    = "Signature verification failed"
	MsgSecretNotConfigured = "QR_CODE_SECRET not configured"
)

// Stage is the last pipeline state a payload reached.
type Stage string

const (
	StageReceived   Stage = "received"
	StageParsed     Stage = "parsed"
	StageVersionOK  Stage = "version_ok"
	StageTenantOK   Stage = "tenant_ok"
	StageNotExpired Stage = "not_expired"
	StageSkewOK     Stage = "skew_ok"
	StageSignedOK   Stage = "signed_ok"
)

type ValidationResult struct {
	IsValid bool
	Reason  Reason
	Error   string
	// Stage is the last state passed; on rejection the failing transition
	// left from here.
	Stage   Stage
	Payload *Payload
}

// Validator runs the scan-time pipeline. It holds the signing settings by
// value and is safe for concurrent use.
type Validator struct {
	cfg     config.QR
	parsers []parser
	now     func() time.Time
}

func NewValidator(cfg config.QR) *Validator {
	return &Validator{
		cfg:     cfg,
		parsers: defaultParsers,
		now:     time.Now,
	}
}

// Validate parses raw and checks version, tenant, expiration, skew and
// signature in that order. The first failing check decides the result.
func (v *Validator) Validate(raw, expectedTenantID string) ValidationResult {
	res := v.validate(raw, expectedTenantID)
	v.record(res)
	return res
}

func (v *Validator) validate(raw, expectedTenantID string) ValidationResult {
	p, ok := parseWith(v.parsers, raw)
	if !ok {
		return reject(StageReceived, ReasonMalformedPayload, MsgInvalidFormat, nil)
	}

	if p.Version != "" && p.Version != SupportedVersion {
		return reject(StageParsed, ReasonUnsupportedVersion, MsgUnsupportedVersion+p.Version, &p)
	}

	if expectedTenantID != "" && p.TenantID != expectedTenantID {
		return reject(StageVersionOK, ReasonTenantMismatch, MsgTenantMismatch, &p)
	}

	now := v.now().UnixMilli()
	if now > p.EffectiveExpiration(v.cfg.DefaultExpiration.Milliseconds()) {
		return reject(StageTenantOK, ReasonExpired, MsgExpired, &p)
	}

	skew := now - p.Timestamp
	if skew < 0 {
		skew = -skew
	}
	if skew > v.cfg.MaxSkew.Milliseconds() {
		return reject(StageNotExpired, ReasonClockSkewExceeded, MsgClockSkew, &p)
	}

	if !v.cfg.HasSecret() {
		if !v.cfg.AllowUnsignedInDevelopment {
			return reject(StageSkewOK, ReasonSecretNotConfigured, MsgSecretNotConfigured, &p)
		}
		slog.Warn("qrcode: signing secret missing, accepting unverified payload in development",
			"order_id", p.OrderID, "tenant_id", p.TenantID)
		return ValidationResult{IsValid: true, Stage: StageSignedOK, Payload: &p}
	}

	if !Verify(v.cfg.Secret, CanonicalMessage(p.Fields()), p.Signature) {
		return reject(StageSkewOK, ReasonSignatureInvalid, MsgSignatureInvalid, &p)
	}
	return ValidationResult{IsValid: true, Stage: StageSignedOK, Payload: &p}
}

func reject(stage Stage, reason Reason, msg string, p *Payload) ValidationResult {
	return ValidationResult{Reason: reason, Error: msg, Stage: stage, Payload: p}
}

func (v *Validator) record(res ValidationResult) {
	label := "accepted"
	if !res.IsValid {
		label = string(res.Reason)
		attrs := []any{"reason", res.Reason, "stage", res.Stage}
		if res.Payload != nil {
			attrs = append(attrs, "order_id", res.Payload.OrderID, "tenant_id", res.Payload.TenantID)
		}
		slog.Info("qrcode: payload rejected", attrs...)
	}
	metrics.QRValidationsTotal.WithLabelValues(label).Inc()
}
