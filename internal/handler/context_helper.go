package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/zoro24a/bonafide-api/internal/middleware"
	"github.com/zoro24a/bonafide-api/internal/models"
)

// claimsFromContext pulls the authenticated actor set by the JWT middleware.
// Nil means the route ran without authentication; services treat that as
// unauthorized rather than trusting the handler to have checked.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := c.Value(middleware.ContextUserKey).(*models.JWTClaims)
	return claims
}
