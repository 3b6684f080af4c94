package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-wellness-api/internal/middleware"
	"github.com/noah-isme/sma-wellness-api/internal/models"
	"github.com/noah-isme/sma-wellness-api/internal/service"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
	"github.com/noah-isme/sma-wellness-api/pkg/response"
)

// actorFromContext resolves the authenticated caller, writing a 401 when the
// JWT middleware did not run.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Actor{}, false
	}
	client := clientInfo(c)
	return service.Actor{
		UserID:    claims.UserID,
		Role:      claims.Role,
		IP:        client.IP,
		UserAgent: client.UserAgent,
	}, true
}

func clientInfo(c *gin.Context) models.ClientInfo {
	return models.ClientInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

func bindError(err error, message string) error {
	return appErrors.Invalid(err, message)
}
