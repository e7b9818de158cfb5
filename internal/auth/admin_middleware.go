package auth

import (
	"errors"
	"net/http"

	"aimtrainer/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
)

var (
	// ErrUserNotFound is returned by a RoleLookup for an unknown user id.
	ErrUserNotFound = eris.New("user not found")
	// ErrUserStoreUnavailable is returned by a RoleLookup when the server runs
	// without a user store.
	ErrUserStoreUnavailable = eris.New("user store unavailable")
)

// RoleLookup returns the role of a registered user.
type RoleLookup func(userID uint) (string, error)

// AdminMiddleware lets only admins through and stores the caller's role
// under "userRole". It must be used AFTER AuthMiddleware.
func AdminMiddleware(lookup RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		if lookup == nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
			return
		}

		role, err := lookup(userID.(uint))
		switch {
		case errors.Is(err, ErrUserStoreUnavailable):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Database unavailable"})
			return
		case errors.Is(err, ErrUserNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Authenticated user not found"})
			return
		case err != nil:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to load user"})
			return
		}

		c.Set("userRole", role)
		if role != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		c.Next()
	}
}
