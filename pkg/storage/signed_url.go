package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrTokenMalformed means the token could not be decoded.
	ErrTokenMalformed = errors.New("malformed download token")
	// ErrTokenSignature means the token was not issued with this secret.
	ErrTokenSignature = errors.New("download token signature mismatch")
	// ErrTokenExpired means the token is past its expiry.
	ErrTokenExpired = errors.New("download token expired")
)

// Grant is what a download token authorizes.
type Grant struct {
	ExportID  string
	Path      string
	ExpiresAt time.Time
}

// SignedURLSigner issues HMAC-SHA256 download tokens. A token is
// base64url(exportID \n expiry \n path) "." base64url(mac).
type SignedURLSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSignedURLSigner builds a signer. A non-positive ttl means 30 minutes.
func NewSignedURLSigner(secret string, ttl time.Duration) *SignedURLSigner {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &SignedURLSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a grant for path that expires after the signer's ttl.
func (s *SignedURLSigner) Issue(exportID, path string) (string, Grant, error) {
	if exportID == "" || path == "" {
		return "", Grant{}, errors.New("export id and path are required")
	}
	if len(s.secret) == 0 {
		return "", Grant{}, errors.New("signing secret is empty")
	}
	grant := Grant{ExportID: exportID, Path: path, ExpiresAt: s.now().Add(s.ttl).Truncate(time.Second)}
	payload := strings.Join([]string{exportID, strconv.FormatInt(grant.ExpiresAt.Unix(), 10), path}, "\n")
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return body + "." + base64.RawURLEncoding.EncodeToString(s.mac(body)), grant, nil
}

// Verify checks the signature and expiry and returns the grant.
func (s *SignedURLSigner) Verify(token string) (Grant, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		return Grant{}, ErrTokenMalformed
	}
	mac, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return Grant{}, ErrTokenMalformed
	}
	if !hmac.Equal(mac, s.mac(body)) {
		return Grant{}, ErrTokenSignature
	}
	raw, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Grant{}, ErrTokenMalformed
	}
	parts := strings.SplitN(string(raw), "\n", 3)
	if len(parts) != 3 {
		return Grant{}, ErrTokenMalformed
	}
	expiry, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Grant{}, ErrTokenMalformed
	}
	grant := Grant{ExportID: parts[0], Path: parts[2], ExpiresAt: time.Unix(expiry, 0)}
	if !s.now().Before(grant.ExpiresAt) {
		return grant, ErrTokenExpired
	}
	return grant, nil
}

func (s *SignedURLSigner) mac(body string) []byte {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(body))
	return h.Sum(nil)
}
