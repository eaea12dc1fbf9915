package middleware

import (
	"net/http"
	"strings"

	"homeserve/utils"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuthMiddleware.
const (
	ActorIDKey   = "actorID"
	ActorRoleKey = "actorRole"
)

// JWTAuthMiddleware verifies the bearer token and, when roles are given,
// admits only those roles. Admins pass every role check.
func JWTAuthMiddleware(secret []byte, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header"})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := utils.ParseClaims(secret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token"})
			return
		}

		if len(roles) > 0 && claims.Role != utils.RoleAdmin && !contains(roles, claims.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{
				Message: "This action is not available to your account",
				Code:    utils.CodeForbidden,
			})
			return
		}

		c.Set(ActorIDKey, claims.Subject)
		c.Set(ActorRoleKey, claims.Role)
		c.Next()
	}
}

// ActorID returns the authenticated subject.
func ActorID(c *gin.Context) string {
	return c.GetString(ActorIDKey)
}

func ActorRole(c *gin.Context) string {
	return c.GetString(ActorRoleKey)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
