package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lastmanfc/lastman-backend/pkg/token"
)

const (
	AuthUserIDKey = "auth_user_id"
	AuthRoleKey   = "auth_role"
)

// AuthMiddleware validates the bearer token issued by the identity provider
// and stores the opaque user id (the token subject) on the context. There is
// no local user table: the provider is the source of truth for identity.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		bearerToken := strings.Split(authHeader, " ")
		if len(bearerToken) != 2 || strings.ToLower(bearerToken[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format. Expected: Bearer <token>"})
			return
		}

		claims, err := token.ValidateJWT(bearerToken[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token: " + err.Error()})
			return
		}

		c.Set(AuthUserIDKey, claims.Subject)
		c.Set(AuthRoleKey, claims.Role)
		c.Next()
	}
}

// AdminMiddleware restricts a route group to tokens carrying the admin role.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(AuthRoleKey)
		role, ok := roleVal.(string)
		if !exists || !ok || !strings.EqualFold(role, "admin") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You don't have permission to access this resource"})
			return
		}
		c.Next()
	}
}

// GetUserIDFromContext extracts the authenticated user id from the context.
func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get(AuthUserIDKey)
	if !exists {
		return "", errors.New("user ID not found in context")
	}

	uid, ok := userID.(string)
	if !ok {
		return "", fmt.Errorf("user ID has unexpected type: %T", userID)
	}

	return uid, nil
}
