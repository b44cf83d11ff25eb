package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// SignatureHeader carries the base64 HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "x-line-signature"

// Sign returns the base64-encoded HMAC-SHA256 of body keyed by the channel secret.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature matches the HMAC of the exact received bytes.
// The body must not be re-serialized before calling.
func Verify(signature string, body []byte, secret string) bool {
	if strings.TrimSpace(signature) == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
