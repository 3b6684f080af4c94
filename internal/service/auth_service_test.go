package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-wellness-api/internal/models"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type memoryAccounts struct {
	user      *models.User
	sessions  map[string]*models.RefreshSession
	audits    []*models.AuditLog
	lastLogin bool
	seq       int
}

func (m *memoryAccounts) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.user == nil || m.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *memoryAccounts) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *memoryAccounts) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLogin = true
	return nil
}

func (m *memoryAccounts) CreateRefreshSession(ctx context.Context, session *models.RefreshSession) error {
	if m.sessions == nil {
		m.sessions = map[string]*models.RefreshSession{}
	}
	m.seq++
	session.ID = fmt.Sprintf("rt-%d", m.seq)
	m.sessions[session.TokenHash] = session
	return nil
}

func (m *memoryAccounts) FindRefreshSession(ctx context.Context, tokenHash string) (*models.RefreshSession, error) {
	session, ok := m.sessions[tokenHash]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (m *memoryAccounts) RevokeRefreshSession(ctx context.Context, id string, at time.Time) (bool, error) {
	for _, session := range m.sessions {
		if session.ID == id && !session.Revoked {
			session.Revoked = true
			session.RevokedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryAccounts) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

func newTestAuthService(repo *memoryAccounts) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
}

func counselorAccount(t *testing.T) *models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{ID: "c1", Email: "counselor@school.test", FullName: "Ms. Cruz", PasswordHash: string(hash), Active: true, Role: models.RoleCounselor}
}

func TestAuthServiceLoginIssuesHashedRefreshToken(t *testing.T) {
	repo := &memoryAccounts{user: counselorAccount(t)}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "counselor@school.test", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, models.RoleCounselor, res.User.Role)
	assert.EqualValues(t, 3600, res.ExpiresIn)
	assert.True(t, repo.lastLogin)

	require.Len(t, repo.sessions, 1)
	_, storedRaw := repo.sessions[res.RefreshToken]
	assert.False(t, storedRaw, "raw refresh token must not be stored")
	_, storedHash := repo.sessions[hashToken(res.RefreshToken)]
	assert.True(t, storedHash)

	require.Len(t, repo.audits, 1)
	assert.Equal(t, models.AuditActionLogin, repo.audits[0].Action)
}

func TestAuthServiceLoginFailures(t *testing.T) {
	inactive := counselorAccount(t)
	inactive.Active = false

	tests := []struct {
		name      string
		repo      *memoryAccounts
		req       models.LoginRequest
		code      string
		auditRows int
	}{
		{"invalid payload", &memoryAccounts{}, models.LoginRequest{Email: "nope"}, appErrors.ErrValidation.Code, 0},
		{"unknown email", &memoryAccounts{user: counselorAccount(t)}, models.LoginRequest{Email: "x@school.test", Password: "password"}, appErrors.ErrInvalidCredentials.Code, 0},
		{"wrong password", &memoryAccounts{user: counselorAccount(t)}, models.LoginRequest{Email: "counselor@school.test", Password: "wrong"}, appErrors.ErrInvalidCredentials.Code, 1},
		{"inactive", &memoryAccounts{user: inactive}, models.LoginRequest{Email: "counselor@school.test", Password: "password"}, appErrors.ErrInactiveAccount.Code, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newTestAuthService(tc.repo).Login(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			assert.Len(t, tc.repo.audits, tc.auditRows)
			assert.Empty(t, tc.repo.sessions)
		})
	}
}

func TestAuthServiceRefreshTokenIsSingleUse(t *testing.T) {
	repo := &memoryAccounts{user: counselorAccount(t)}
	svc := newTestAuthService(repo)
	ctx := context.Background()

	login, err := svc.Login(ctx, models.LoginRequest{Email: "counselor@school.test", Password: "password"})
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	_, err = svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.RefreshToken(ctx, models.RefreshTokenRequest{RefreshToken: rotated.RefreshToken})
	assert.NoError(t, err)
}

func TestAuthServiceRefreshRejectsExpired(t *testing.T) {
	repo := &memoryAccounts{user: counselorAccount(t), sessions: map[string]*models.RefreshSession{
		hashToken("old"): {ID: "rt-old", UserID: "c1", TokenHash: hashToken("old"), ExpiresAt: time.Now().Add(-time.Minute)},
	}}
	_, err := newTestAuthService(repo).RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old"})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	repo := &memoryAccounts{sessions: map[string]*models.RefreshSession{
		hashToken("token"): {ID: "rt1", UserID: "someone-else", TokenHash: hashToken("token"), ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newTestAuthService(repo)

	err := svc.Logout(context.Background(), Actor{UserID: "c1"}, "token")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.False(t, repo.sessions[hashToken("token")].Revoked)

	require.NoError(t, svc.Logout(context.Background(), Actor{UserID: "someone-else"}, "token"))
	assert.True(t, repo.sessions[hashToken("token")].Revoked)
}

func TestValidateToken(t *testing.T) {
	svc := newTestAuthService(&memoryAccounts{})
	user := &models.User{ID: "u1", Email: "student@school.test", Role: models.RoleStudent}
	token, err := svc.signAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)

	other := NewAuthService(&memoryAccounts{}, nil, nil, AuthConfig{AccessTokenSecret: "other", AccessTokenExpiry: time.Hour})
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
