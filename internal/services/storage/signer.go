// Package storage issues short-lived signed upload URLs for project assets.
// The files themselves never pass through the back office; clients PUT
// directly against the storage host, which re-checks the signature.
package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/juicebox/backoffice/domain"
)

// UploadGrant is a signed, expiring permission to upload one object.
type UploadGrant struct {
	URL         string    `json:"url"`
	Key         string    `json:"key"`
	ContentType string    `json:"content_type,omitempty"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Signer struct {
	secret  string
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewSigner(secret, baseURL string, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Signer{secret: secret, baseURL: baseURL, ttl: ttl, now: time.Now}
}

// WithClock overrides the time source.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	if now != nil {
		s.now = now
	}
	return s
}

// IssueUploadURL creates a grant for one object under the project's prefix.
// The content type travels with the grant so the storage host can enforce it.
func (s *Signer) IssueUploadURL(projectID, filename, contentType string) (*UploadGrant, error) {
	if s.secret == "" {
		return nil, domain.NewError(domain.ErrCodeInternal, "storage signing secret not configured")
	}
	if projectID == "" || filename == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "project id and filename are required")
	}

	key := fmt.Sprintf("projects/%s/%s-%s", projectID, uuid.NewString(), filename)
	expires := s.now().Add(s.ttl)
	sig := s.sign(key, expires.Unix())

	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	q.Set("signature", sig)
	if contentType != "" {
		q.Set("content-type", contentType)
	}

	return &UploadGrant{
		URL:         fmt.Sprintf("%s/%s?%s", s.baseURL, key, q.Encode()),
		Key:         key,
		ContentType: contentType,
		ExpiresAt:   expires,
	}, nil
}

// Verify checks a key/expiry/signature triple presented back by the storage
// host's upload callback.
func (s *Signer) Verify(key string, expires int64, signature string) error {
	if time.Unix(expires, 0).Before(s.now()) {
		return domain.NewError(domain.ErrCodeUnauthorized, "upload grant expired")
	}
	expected := s.sign(key, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return domain.NewError(domain.ErrCodeUnauthorized, "upload signature mismatch")
	}
	return nil
}

func (s *Signer) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	fmt.Fprintf(mac, "%s:%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}
