package qrcode

import "strings"

// Scan is what a scanned code resolved to: either a verified signed payload
// or, when legacy codes are explicitly allowed, a bare lookup key. The two
// are distinct types so an unsigned code can never pass where a signed one
// is required.
type Scan interface {
	isScan()
}

type SignedScan struct {
	Payload Payload
}

// SimpleScan is a legacy code: an opaque order key with no signature and no
// tenant. Tenant scoping falls entirely on the order lookup.
type SimpleScan struct {
	Key string
}

func (SignedScan) isScan() {}
func (SimpleScan) isScan() {}

const maxSimpleKeyLen = 64

// ValidateScan runs the signed pipeline and, only when allowSimple is set and
// the text could not be a signed payload at all, falls back to the legacy
// bare-key variant. Anything that decodes to a JSON object stays on the
// signed path and keeps its rejection.
func (v *Validator) ValidateScan(raw, expectedTenantID string, allowSimple bool) (Scan, ValidationResult) {
	res := v.Validate(raw, expectedTenantID)
	if res.IsValid {
		return SignedScan{Payload: *res.Payload}, res
	}
	if !allowSimple || res.Reason != ReasonMalformedPayload {
		return nil, res
	}
	key := strings.TrimSpace(raw)
	if !isSimpleKey(key) {
		return nil, res
	}
	return SimpleScan{Key: key}, ValidationResult{IsValid: true, Stage: StageReceived}
}

func isSimpleKey(s string) bool {
	if s == "" || len(s) > maxSimpleKeyLen {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return !strings.HasPrefix(strings.TrimSpace(DecodeBase64URL(s)), "{")
}
