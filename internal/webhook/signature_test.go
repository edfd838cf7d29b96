package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	secret := "test-secret"

	if !VerifySignature(body, sign(body, secret), secret) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifySignature_FlippedByte(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	secret := "test-secret"
	sig := sign(body, secret)

	// Flip every hex character in turn; all must fail
	for i := len("sha256="); i < len(sig); i++ {
		mutated := []byte(sig)
		if mutated[i] == 'a' {
			mutated[i] = 'b'
		} else {
			mutated[i] = 'a'
		}
		if VerifySignature(body, string(mutated), secret) {
			t.Errorf("mutated signature at index %d verified", i)
		}
	}
}

func TestVerifySignature_Rejections(t *testing.T) {
	body := []byte(`{}`)
	secret := "s"

	tests := []struct {
		name      string
		signature string
	}{
		{"empty", ""},
		{"no prefix", "deadbeef"},
		{"wrong algorithm", "sha1=deadbeef"},
		{"too short", "sha256=dead"},
		{"too long", sign(body, secret) + "00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(body, tt.signature, secret) {
				t.Errorf("signature %q verified", tt.signature)
			}
		})
	}
}

func TestVerifySignature_EmptySecret(t *testing.T) {
	body := []byte(`{}`)
	if VerifySignature(body, sign(body, ""), "") {
		t.Error("empty secret must never verify")
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	body := []byte(`{"x":1}`)
	if VerifySignature(body, sign(body, "secret-a"), "secret-b") {
		t.Error("signature from different secret verified")
	}
}
