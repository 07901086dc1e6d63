package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zoro24a/bonafide-api/internal/service"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
	"github.com/zoro24a/bonafide-api/pkg/response"
)

// ContextUserKey is where the JWT middleware puts the validated claims.
// Handlers read it to pass an explicit actor into the services.
const ContextUserKey = "currentUser"

// JWT rejects requests without a valid Bearer access token and stores the
// token's claims on the context for the route chain.
func JWT(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortWith(c, appErrors.Clone(appErrors.ErrUnauthorized, "missing or malformed authorization header"))
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			abortWith(c, err)
			return
		}

		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func abortWith(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
