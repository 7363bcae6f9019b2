package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignBody computes the hex HMAC-SHA256 signature of a payload.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body) //nolint:errcheck // hash writes never fail
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a provider signature header against the raw
// request body in constant time. Accepts the signature with or without the
// "sha256=" prefix.
func VerifySignature(secret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body) //nolint:errcheck
	expected := hex.EncodeToString(mac.Sum(nil))

	provided := strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	return hmac.Equal([]byte(expected), []byte(provided))
}
