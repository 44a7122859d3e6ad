package qrcode

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
)

// messageSeparator joins the canonical fields. Changing it invalidates every
// signature already printed on a label.
const messageSeparator = "."

var ErrNoSigner = errors.New("qrcode: no signing secret or remote signer configured")

// Fields is the signed subset of a payload.
type Fields struct {
	OrderID     string `json:"orderId"`
	Timestamp   int64  `json:"timestamp"`
	TenantID    string `json:"tenantId"`
	OrderNumber string `json:"orderNumber,omitempty"`
}

// CanonicalMessage renders orderId.timestamp.tenantId.orderNumber. An absent
// order number contributes an empty trailing field, never a missing one.
func CanonicalMessage(f Fields) string {
	return strings.Join([]string{
		f.OrderID,
		strconv.FormatInt(f.Timestamp, 10),
		f.TenantID,
		f.OrderNumber,
	}, messageSeparator)
}

// Sign returns the lowercase hex HMAC-SHA256 of message keyed by secret.
func Sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature and compares it in constant time. A
// length mismatch returns false without looking at content.
func Verify(secret, message, candidate string) bool {
	expected := Sign(secret, message)
	if len(expected) != len(candidate) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(candidate)) == 1
}

// SignatureSource produces the signature for a set of canonical fields,
// either in-process or by asking a trusted signing server.
type SignatureSource interface {
	Signature(ctx context.Context, f Fields) (string, error)
}

// LocalSigner signs with a secret held in this process.
type LocalSigner struct {
	secret string
}

func NewLocalSigner(secret string) (*LocalSigner, error) {
	if secret == "" {
		return nil, ErrNoSigner
	}
	return &LocalSigner{secret: secret}, nil
}

func (s *LocalSigner) Signature(_ context.Context, f Fields) (string, error) {
	return Sign(s.secret, CanonicalMessage(f)), nil
}
