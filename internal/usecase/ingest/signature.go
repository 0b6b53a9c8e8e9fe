package ingest

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

// VerifySignature checks a webhook's X-Hub-Signature-256 header against
// the raw, unparsed request body. Re-serialized JSON must never be used
// here: whitespace or key order changes would break the digest.
//
// The comparison is constant-time, and buffers of unequal length are
// rejected before any comparison happens.
func VerifySignature(secret string, body []byte, signatureHeader string) bool {
	signature := strings.TrimSpace(signatureHeader)
	if signature == "" {
		return false
	}
	if len(signature) <= len(signaturePrefix) || !strings.EqualFold(signature[:len(signaturePrefix)], signaturePrefix) {
		return false
	}

	candidate, err := hex.DecodeString(signature[len(signaturePrefix):])
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	if len(candidate) != len(expected) {
		return false
	}
	return hmac.Equal(candidate, expected)
}
