package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

// RequireRoles gates a route on the actor's role. It assumes JWT ran earlier
// in the chain; a missing actor is an authentication failure, a known actor
// with the wrong role is a forbidden one.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := c.Value(ContextUserKey).(*models.JWTClaims)
		if claims == nil {
			abortWith(c, appErrors.ErrUnauthorized)
			return
		}
		for _, role := range roles {
			if claims.Role == role {
				c.Next()
				return
			}
		}
		abortWith(c, appErrors.Clone(appErrors.ErrForbidden, "role not permitted for this operation"))
	}
}
