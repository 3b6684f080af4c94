package middleware

import (
	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-wellness-api/pkg/errors"
	"github.com/noah-isme/sma-wellness-api/pkg/response"
)

// RequireAlertReviewer admits counselors and admins. It must run after JWT.
func RequireAlertReviewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		switch {
		case !ok:
			response.Abort(c, appErrors.ErrUnauthorized)
		case !claims.Role.ReviewsAlerts():
			response.Abort(c, appErrors.Clone(appErrors.ErrForbidden, "counselor access required"))
		default:
			c.Next()
		}
	}
}
