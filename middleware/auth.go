package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ayasaki/udpchat/cache"
	"github.com/ayasaki/udpchat/config"
	"github.com/gin-gonic/gin"
)

const RoleKey = "role"

// SessionKeyPrefix namespaces operator session tokens in the cache.
const SessionKeyPrefix = "admin_session:"

// Auth validates the Bearer JWT token and checks the session cache.
func Auth(cfg config.AdminConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		tokenStr := strings.TrimPrefix(header, "Bearer ")

		claims, err := ParseToken(tokenStr, cfg.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// Check session still valid in cache.
		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKeyPrefix+tokenStr)
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(RoleKey, claims.Role)
		ctx.Next()
	}
}

// GetRole retrieves the authenticated role from the Gin context.
func GetRole(c *gin.Context) string {
	if v, exists := c.Get(RoleKey); exists {
		return v.(string)
	}
	return ""
}
