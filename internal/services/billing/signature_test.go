package billing

import (
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"id":"evt_1","type":"invoice.paid"}`)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("valid signature passes", func(t *testing.T) {
		header := Sign(body, secret, now)
		if err := VerifySignature(body, header, secret, 5*time.Minute, now); err != nil {
			t.Fatalf("VerifySignature: %v", err)
		}
	})

	t.Run("tampered body fails", func(t *testing.T) {
		header := Sign(body, secret, now)
		tampered := []byte(`{"id":"evt_1","type":"invoice.payment_failed"}`)
		if err := VerifySignature(tampered, header, secret, 5*time.Minute, now); err == nil {
			t.Fatal("expected signature mismatch")
		}
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		header := Sign(body, "whsec_other", now)
		if err := VerifySignature(body, header, secret, 5*time.Minute, now); err == nil {
			t.Fatal("expected signature mismatch")
		}
	})

	t.Run("stale timestamp fails", func(t *testing.T) {
		header := Sign(body, secret, now.Add(-time.Hour))
		if err := VerifySignature(body, header, secret, 5*time.Minute, now); err == nil {
			t.Fatal("expected tolerance rejection")
		}
	})

	t.Run("garbage header fails", func(t *testing.T) {
		if err := VerifySignature(body, "not-a-header", secret, 5*time.Minute, now); err == nil {
			t.Fatal("expected parse rejection")
		}
	})

	t.Run("missing secret is an internal error", func(t *testing.T) {
		header := Sign(body, secret, now)
		if err := VerifySignature(body, header, "", 5*time.Minute, now); err == nil {
			t.Fatal("expected configuration error")
		}
	})
}
