package qrcode

// SupportedVersion is the only protocol version the validator accepts when a
// payload declares one.
const SupportedVersion = "1.0"

// Payload is the signed unit carried inside a QR code.
//
// Metadata is not part of the canonical message. Anyone holding a code can
// rewrite it without breaking the signature, so it is display data only and
// must never drive authorization or order state.
type Payload struct {
	OrderID     string         `json:"orderId"`
	TenantID    string         `json:"tenantId"`
	OrderNumber string         `json:"orderNumber,omitempty"`
	Timestamp   int64          `json:"timestamp"`
	ExpiresAt   *int64         `json:"expiresAt,omitempty"`
	Signature   string         `json:"signature"`
	Version     string         `json:"version,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Fields returns the signed subset of p.
func (p Payload) Fields() Fields {
	return Fields{
		OrderID:     p.OrderID,
		Timestamp:   p.Timestamp,
		TenantID:    p.TenantID,
		OrderNumber: p.OrderNumber,
	}
}

// EffectiveExpiration is ExpiresAt when set, else Timestamp plus the default
// window (both in epoch milliseconds).
func (p Payload) EffectiveExpiration(defaultWindowMs int64) int64 {
	if p.ExpiresAt != nil {
		return *p.ExpiresAt
	}
	return p.Timestamp + defaultWindowMs
}

// wirePayload mirrors Payload with pointer fields so that a missing
// timestamp can be told apart from a zero one.
type wirePayload struct {
	OrderID     string         `json:"orderId"`
	TenantID    string         `json:"tenantId"`
	OrderNumber string         `json:"orderNumber"`
	Timestamp   *int64         `json:"timestamp"`
	ExpiresAt   *int64         `json:"expiresAt"`
	Signature   string         `json:"signature"`
	Version     string         `json:"version"`
	Metadata    map[string]any `json:"metadata"`
}

// payload reports the structural check: orderId, tenantId and signature
// non-empty, timestamp present and integral.
func (w *wirePayload) payload() (Payload, bool) {
	if w == nil || w.OrderID == "" || w.TenantID == "" || w.Signature == "" || w.Timestamp == nil {
		return Payload{}, false
	}
	return Payload{
		OrderID:     w.OrderID,
		TenantID:    w.TenantID,
		OrderNumber: w.OrderNumber,
		Timestamp:   *w.Timestamp,
		ExpiresAt:   w.ExpiresAt,
		Signature:   w.Signature,
		Version:     w.Version,
		Metadata:    w.Metadata,
	}, true
}

// Serialize renders p in the wire format: base64url of its JSON.
func Serialize(p Payload) string {
	return EncodeJSON(p)
}
