package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ClientInfo identifies the device behind an auth request for the audit trail.
type ClientInfo struct {
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginRequest holds credentials posted to the login endpoint.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	ClientInfo `json:"-"`
}

// LoginResponse carries the issued token pair.
type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	User         UserInfo  `json:"user"`
	IssuedAt     time.Time `json:"issued_at"`
}

// RefreshTokenRequest exchanges a refresh token; also used to log out.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	ClientInfo   `json:"-"`
}

// RefreshTokenResponse carries the rotated token pair.
type RefreshTokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int64     `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
}

// UserInfo is the caller profile returned at login.
type UserInfo struct {
	ID          string   `json:"id"`
	FullName    string   `json:"full_name"`
	Role        UserRole `json:"role"`
	CounselorID *string  `json:"counselor_id,omitempty"`
}

// JWTClaims is the access token payload. It carries no contact details.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// RefreshSession is a persisted refresh token. Only the SHA-256 of the token
// is stored.
type RefreshSession struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedAt time.Time  `db:"created_at"`
	Revoked   bool       `db:"revoked"`
	RevokedAt *time.Time `db:"revoked_at"`
	IPAddress string     `db:"ip_address"`
	UserAgent string     `db:"user_agent"`
}

// Usable reports whether the session can still mint tokens at now.
func (s *RefreshSession) Usable(now time.Time) bool {
	return s != nil && !s.Revoked && now.Before(s.ExpiresAt)
}
