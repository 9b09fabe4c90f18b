package middleware

import (
	"strings"

	"medbot-server/internal/config"
	"medbot-server/internal/models"
	"medbot-server/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	usernameKey = "username"
	roleKey     = "userRole"
)

// AuthMiddleware creates a middleware for JWT authentication.
// Browsers cannot set headers on websocket upgrades, so the token may also
// arrive as the access_token query parameter.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, cfg.JWTSecret)
		if err != nil {
			utils.Unauthorized(c, "Invalid token: "+err.Error())
			c.Abort()
			return
		}

		// Set user information in context for downstream handlers
		c.Set(usernameKey, claims.Username)
		c.Set(roleKey, claims.Role)

		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if token := c.Query("access_token"); token != "" {
			return token, true
		}
		utils.Unauthorized(c, "Authorization header required")
		return "", false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		utils.Unauthorized(c, "Invalid authorization header format")
		return "", false
	}
	return parts[1], true
}

// RoleAuthMiddleware creates a middleware for role-based authorization.
// It should be used *after* AuthMiddleware.
func RoleAuthMiddleware(allowedRoles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetUserRoleFromContext(c)
		if !ok {
			utils.InternalServerError(c, "User role not found in context. AuthMiddleware might be missing.")
			c.Abort()
			return
		}

		for _, allowedRole := range allowedRoles {
			if role == allowedRole {
				c.Next()
				return
			}
		}

		utils.Forbidden(c, "You do not have permission to access this resource.")
		c.Abort()
	}
}

// GetUsernameFromContext returns the authenticated username.
func GetUsernameFromContext(c *gin.Context) (string, bool) {
	username, exists := c.Get(usernameKey)
	if !exists {
		return "", false
	}
	name, ok := username.(string)
	return name, ok && name != ""
}

// GetUserRoleFromContext returns the authenticated role.
func GetUserRoleFromContext(c *gin.Context) (models.Role, bool) {
	userRole, exists := c.Get(roleKey)
	if !exists {
		return "", false
	}
	role, ok := userRole.(models.Role)
	return role, ok
}
