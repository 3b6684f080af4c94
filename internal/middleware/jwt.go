package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-wellness-api/internal/models"
	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
	"github.com/noah-isme/sma-wellness-api/pkg/logger"
	"github.com/noah-isme/sma-wellness-api/pkg/response"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// TokenValidator verifies access tokens.
type TokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

// JWT requires a bearer access token. Rejections carry a WWW-Authenticate
// challenge.
func JWT(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			challenge(c, "invalid_request")
			response.Abort(c, appErrors.Clone(appErrors.ErrUnauthorized, "bearer token required"))
			return
		}
		claims, err := validator.ValidateToken(token)
		if err != nil {
			challenge(c, "invalid_token")
			response.Abort(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(logger.UserIDKey, claims.UserID)
		c.Next()
	}
}

// Claims returns the authenticated caller, if any.
func Claims(c *gin.Context) (*models.JWTClaims, bool) {
	value, _ := c.Get(ContextUserKey)
	claims, ok := value.(*models.JWTClaims)
	return claims, ok && claims != nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func challenge(c *gin.Context, code string) {
	c.Header("WWW-Authenticate", `Bearer realm="wellness", error="`+code+`"`)
}
