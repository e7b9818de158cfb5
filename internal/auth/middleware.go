package auth

import (
	"net/http"

	"aimtrainer/backend/internal/config"
	"aimtrainer/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware creates a gin middleware that requires a valid bearer token
// and stores the token subject under "userID".
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		claims, err := jwt.ParseToken(config.AppConfig.JWTSecret, tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set("userID", claims.UserID)
		c.Next()
	}
}
