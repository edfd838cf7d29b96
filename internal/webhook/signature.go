package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// VerifySignature validates the HMAC-SHA256 signature of a webhook request.
// Expected header format: sha256=<hex-encoded-signature>
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}

	providedSig, ok := strings.CutPrefix(signature, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	// Length mismatch fails before comparison; hmac.Equal is constant
	// time for equal-length inputs
	if len(providedSig) != len(expectedSig) {
		return false
	}
	return hmac.Equal([]byte(expectedSig), []byte(providedSig))
}
