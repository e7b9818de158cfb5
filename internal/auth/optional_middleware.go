package auth

import (
	"aimtrainer/backend/internal/config"
	"aimtrainer/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// OptionalAuthMiddleware inspects for a token and sets the userID if present and valid,
// but does not fail if the token is missing or invalid.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := bearerToken(c.GetHeader("Authorization")); tokenString != "" {
			if claims, err := jwt.ParseToken(config.AppConfig.JWTSecret, tokenString); err == nil {
				c.Set("userID", claims.UserID)
			}
		}
		c.Next()
	}
}
