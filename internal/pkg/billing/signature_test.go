package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func signPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"charge.success"}`)
	secret := "whsec_top-secret"
	validSig := signPayload(payload, secret)

	if !VerifyWebhookSignature(payload, validSig, secret) {
		t.Fatalf("expected signature to validate")
	}
	if !VerifyWebhookSignature(payload, "sha256="+validSig, secret) {
		t.Fatalf("expected scheme-prefixed signature to validate")
	}
	if VerifyWebhookSignature(payload, validSig, "whsec_other-secret") {
		t.Fatalf("expected signature from another secret to fail")
	}
	if VerifyWebhookSignature([]byte(`{"id":"evt_1","type":"charge.failed"}`), validSig, secret) {
		t.Fatalf("expected tampered body to fail")
	}
}

func TestVerifyWebhookSignature_FailsClosed(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_top-secret"

	if VerifyWebhookSignature(payload, "", secret) {
		t.Fatalf("expected missing signature header to fail")
	}
	if VerifyWebhookSignature(payload, "not-hex-at-all!!", secret) {
		t.Fatalf("expected malformed signature encoding to fail")
	}
	if VerifyWebhookSignature(payload, signPayload(payload, secret), "") {
		t.Fatalf("expected missing secret to fail")
	}
	if VerifyWebhookSignature(payload, "deadbeef", secret) {
		t.Fatalf("expected truncated signature to fail")
	}
}
