package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-wellness-api/internal/models"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error
	FindRefreshSession(ctx context.Context, tokenHash string) (*models.RefreshSession, error)
	RevokeRefreshSession(ctx context.Context, id string, at time.Time) (bool, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// AuthConfig holds token signing settings.
type AuthConfig struct {
	AccessTokenSecret  string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	Issuer             string
	Audience           []string
}

// AuthService authenticates students and staff. Refresh tokens are single use;
// a rotated token cannot be replayed.
type AuthService struct {
	repo      authUserRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config, now: func() time.Time { return time.Now().UTC() }}
}

var errBadCredentials = appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid email or password")

// Login checks the password and issues a token pair.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid login payload")
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to fetch user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.audit(ctx, user.ID, models.AuditActionLoginFailed, "bad_password", req.ClientInfo)
		return nil, errBadCredentials
	}
	if !user.Active {
		s.audit(ctx, user.ID, models.AuditActionLoginFailed, "inactive", req.ClientInfo)
		return nil, appErrors.ErrInactiveAccount
	}

	access, refresh, err := s.issue(ctx, user, req.ClientInfo)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		s.logger.Warn("failed to update last login", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.audit(ctx, user.ID, models.AuditActionLogin, "ok", req.ClientInfo)

	return &models.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     s.now(),
		User:         models.UserInfo{ID: user.ID, FullName: user.FullName, Role: user.Role, CounselorID: user.CounselorID},
	}, nil
}

// RefreshToken consumes a refresh token and issues a new pair.
func (s *AuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid refresh payload")
	}

	session, err := s.session(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !session.Usable(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token is expired or revoked")
	}

	user, err := s.repo.FindByID(ctx, session.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load user")
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}

	claimed, err := s.repo.RevokeRefreshSession(ctx, session.ID, s.now())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to rotate refresh token")
	}
	if !claimed {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token already used")
	}

	access, refresh, err := s.issue(ctx, user, req.ClientInfo)
	if err != nil {
		return nil, err
	}
	return &models.RefreshTokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.config.AccessTokenExpiry.Seconds()),
		IssuedAt:     s.now(),
	}, nil
}

// Logout revokes the caller's refresh token. Revoking twice is not an error.
func (s *AuthService) Logout(ctx context.Context, actor Actor, refreshToken string) error {
	session, err := s.session(ctx, refreshToken)
	if err != nil {
		return err
	}
	if session.UserID != actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "token does not belong to user")
	}
	if _, err := s.repo.RevokeRefreshSession(ctx, session.ID, s.now()); err != nil {
		return appErrors.Internal(err, "failed to revoke refresh token")
	}
	s.audit(ctx, actor.UserID, models.AuditActionLogout, "ok", models.ClientInfo{IP: actor.IP, UserAgent: actor.UserAgent})
	return nil
}

// ValidateToken verifies an HS256 access token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	if !token.Valid || claims.UserID == "" || claims.Role == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

func (s *AuthService) session(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	session, err := s.repo.FindRefreshSession(ctx, hashToken(refreshToken))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "refresh token not found")
	}
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load refresh token")
	}
	return session, nil
}

func (s *AuthService) issue(ctx context.Context, user *models.User, client models.ClientInfo) (string, string, error) {
	access, err := s.signAccessToken(user)
	if err != nil {
		return "", "", appErrors.Internal(err, "failed to sign access token")
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", appErrors.Internal(err, "failed to generate refresh token")
	}
	refresh := base64.RawURLEncoding.EncodeToString(buf)
	now := s.now()
	if err := s.repo.CreateRefreshSession(ctx, &models.RefreshSession{
		UserID:    user.ID,
		TokenHash: hashToken(refresh),
		ExpiresAt: now.Add(s.config.RefreshTokenExpiry),
		CreatedAt: now,
		IPAddress: client.IP,
		UserAgent: client.UserAgent,
	}); err != nil {
		return "", "", appErrors.Internal(err, "failed to persist refresh token")
	}
	return access, refresh, nil
}

func (s *AuthService) signAccessToken(user *models.User) (string, error) {
	issuedAt := s.now()
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			Audience:  s.config.Audience,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

func (s *AuthService) audit(ctx context.Context, userID, action, outcome string, client models.ClientInfo) {
	payload := []byte(fmt.Sprintf(`{"outcome":%q}`, outcome))
	if err := s.repo.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: &userID,
		NewValues:  payload,
		IPAddress:  client.IP,
		UserAgent:  client.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record auth audit log", zap.String("action", action), zap.Error(err))
	}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
