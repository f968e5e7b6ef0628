package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/juicebox/backoffice/domain"
)

// VerifySignature checks a provider webhook signature of the form
// "t=<unix>,v1=<hex hmac>". The HMAC covers "<unix>.<body>" with the shared
// secret; timestamps outside the tolerance window are rejected to limit
// replay.
func VerifySignature(body []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	if secret == "" {
		return domain.NewError(domain.ErrCodeInternal, "webhook secret not configured")
	}
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	issued := time.Unix(ts, 0)
	if tolerance > 0 {
		age := now.Sub(issued)
		if age < -tolerance || age > tolerance {
			return domain.NewError(domain.ErrCodeUnauthorized, "webhook timestamp outside tolerance")
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return domain.NewError(domain.ErrCodeUnauthorized, "webhook signature mismatch")
	}
	return nil
}

// Sign produces a signature header for a body. Used by tests and local
// tooling that replays events against a dev server.
func Sign(body []byte, secret string, now time.Time) string {
	ts := strconv.FormatInt(now.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(body)
	return "t=" + ts + ",v1=" + hex.EncodeToString(mac.Sum(nil))
}

func parseSignatureHeader(header string) (int64, string, error) {
	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", domain.NewError(domain.ErrCodeUnauthorized, "malformed webhook timestamp")
			}
			ts = parsed
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", domain.NewError(domain.ErrCodeUnauthorized, "malformed webhook signature header")
	}
	return ts, sig, nil
}
