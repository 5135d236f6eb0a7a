package security

import (
	"net/http"
	"strconv"
	"strings"

	"helpdesk/pkg/response"
	"helpdesk/pkg/roles"

	"github.com/gin-gonic/gin"
)

// JWTMiddleware validates the bearer token and stores its claims.
func JWTMiddleware(issuer *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Fail(c, http.StatusUnauthorized, "Authorization header missing", nil)
			return
		}

		claims, err := issuer.Parse(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "Invalid token", nil)
			return
		}

		c.Set("userID", strconv.Itoa(claims.UserID))
		c.Set("role", claims.Role)
		c.Set("username", claims.Username)
		c.Next()
	}
}

// Authorize ensures the user has the required role.
func Authorize(requiredRole roles.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAllowed(c, requiredRole) {
			response.Fail(c, http.StatusForbidden, "Forbidden: insufficient permissions", nil)
			return
		}

		c.Next()
	}
}

func IsAllowed(c *gin.Context, requiredRole roles.Role) bool {
	return roles.Role(GetRole(c)).HasPermission(requiredRole)
}
