package qrcode

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrRemoteSigner = errors.New("qrcode: remote signer failed")

// SignRequest is the body accepted by the signing endpoint.
type SignRequest = Fields

type SignResponse struct {
	Signature string `json:"signature"`
}

// HTTPSigner asks a trusted server for signatures so the secret never has to
// live on the calling device.
type HTTPSigner struct {
	url    string
	token  string
	client *http.Client
}

func NewHTTPSigner(url, token string, client *http.Client) *HTTPSigner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSigner{url: url, token: token, client: client}
}

func (s *HTTPSigner) Signature(ctx context.Context, f Fields) (string, error) {
	body, err := json.Marshal(SignRequest(f))
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemoteSigner, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: status %d: %s", ErrRemoteSigner, resp.StatusCode, bytes.TrimSpace(msg))
	}
	var out SignResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrRemoteSigner, err)
	}
	if !isHexDigest(out.Signature) {
		return "", fmt.Errorf("%w: malformed signature", ErrRemoteSigner)
	}
	return out.Signature, nil
}

// isHexDigest accepts exactly the Sign output shape: 64 lowercase hex chars.
func isHexDigest(s string) bool {
	if len(s) != hex.EncodedLen(32) {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
