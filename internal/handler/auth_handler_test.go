package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/service"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
)

type fakeAuthService struct {
	login      models.LoginRequest
	loggedOut  string
	loginErr   error
	refreshErr error
}

func (f *fakeAuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	f.login = req
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &models.LoginResponse{AccessToken: "access", RefreshToken: "refresh", User: models.UserInfo{ID: "s1"}}, nil
}

func (f *fakeAuthService) RefreshToken(ctx context.Context, req models.RefreshTokenRequest) (*models.RefreshTokenResponse, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &models.RefreshTokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, actor service.Actor, refreshToken string) error {
	f.loggedOut = actor.UserID + ":" + refreshToken
	return nil
}

func TestAuthHandlerLoginRecordsClient(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)
	c, rec := newTestContext(http.MethodPost, "/auth/login", map[string]string{"email": "s1@school.test", "password": "pw"}, nil)
	c.Request.Header.Set("User-Agent", "kiosk")

	h.Login(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s1@school.test", svc.login.Email)
	assert.Equal(t, "kiosk", svc.login.UserAgent)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{loginErr: appErrors.ErrInvalidCredentials})
	c, rec := newTestContext(http.MethodPost, "/auth/login", map[string]string{"email": "s1@school.test", "password": "bad"}, nil)

	h.Login(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", decodeEnvelope(t, rec).Error.Code)
}

func TestAuthHandlerRefresh(t *testing.T) {
	h := NewAuthHandler(&fakeAuthService{})
	c, rec := newTestContext(http.MethodPost, "/auth/refresh", map[string]string{"refresh_token": "refresh"}, nil)

	h.Refresh(c)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthHandlerLogoutRequiresToken(t *testing.T) {
	svc := &fakeAuthService{}
	h := NewAuthHandler(svc)

	c, rec := newTestContext(http.MethodPost, "/auth/logout", map[string]string{}, studentClaims)
	h.Logout(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.loggedOut)

	c, rec = newTestContext(http.MethodPost, "/auth/logout", map[string]string{"refresh_token": "refresh"}, studentClaims)
	h.Logout(c)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "s1:refresh", svc.loggedOut)
}
