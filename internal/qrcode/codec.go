// Package qrcode implements the signed QR activation protocol: the wire
// codec, HMAC signing over the canonical message, payload construction and
// the scan-time validation pipeline.
package qrcode

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"strings"
)

// EncodeBase64URL encodes text as unpadded base64url. It never fails; the
// empty string is returned only for empty input.
func EncodeBase64URL(text string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(text))
}

// DecodeBase64URL reverses EncodeBase64URL. URL-looking input is returned
// unchanged, as is any input that is not valid base64: callers treat that as
// "try another strategy", not as an error.
func DecodeBase64URL(text string) string {
	if strings.HasPrefix(text, "http") || strings.Contains(text, "://") {
		return text
	}
	s := strings.NewReplacer("-", "+", "_", "/").Replace(text)
	if pad := len(s) % 4; pad != 0 {
		s += strings.Repeat("=", 4-pad)
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		slog.Debug("qrcode: base64url decode failed", "err", err)
		return text
	}
	return string(b)
}

// EncodeJSON marshals v and wraps it in base64url. Marshal failures are
// logged and yield the empty string.
func EncodeJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Warn("qrcode: json encode failed", "err", err)
		return ""
	}
	return EncodeBase64URL(string(b))
}

// DecodeJSON unwraps base64url text and unmarshals it into a new T. It
// returns nil on any decode or parse failure.
func DecodeJSON[T any](text string) *T {
	var v T
	if err := json.Unmarshal([]byte(DecodeBase64URL(text)), &v); err != nil {
		slog.Debug("qrcode: json decode failed", "err", err)
		return nil
	}
	return &v
}
