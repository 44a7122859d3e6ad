package qrcode

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrUnparseable = errors.New("qrcode: payload is not a structurally valid QR payload")

// parser is one decoding strategy. Strategies run in order and the first
// structurally valid result wins.
type parser interface {
	name() string
	parse(raw string) (Payload, error)
}

// plainJSON accepts the unencoded JSON object.
type plainJSON struct{}

func (plainJSON) name() string { return "json" }

func (plainJSON) parse(raw string) (Payload, error) {
	var w wirePayload
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Payload{}, err
	}
	p, ok := w.payload()
	if !ok {
		return Payload{}, ErrUnparseable
	}
	return p, nil
}

// base64JSON accepts base64url-wrapped JSON, the format Serialize emits.
type base64JSON struct{}

func (base64JSON) name() string { return "base64url" }

func (base64JSON) parse(raw string) (Payload, error) {
	p, ok := DecodeJSON[wirePayload](raw).payload()
	if !ok {
		return Payload{}, ErrUnparseable
	}
	return p, nil
}

var defaultParsers = []parser{plainJSON{}, base64JSON{}}

// Parse recovers a structurally valid payload from scanned text, trying
// plain JSON first and base64url JSON second.
func Parse(raw string) (Payload, bool) {
	return parseWith(defaultParsers, raw)
}

func parseWith(parsers []parser, raw string) (Payload, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Payload{}, false
	}
	for _, p := range parsers {
		if out, err := p.parse(raw); err == nil {
			return out, true
		}
	}
	return Payload{}, false
}
