package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aimtrainer/backend/internal/config"
	"aimtrainer/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	config.AppConfig = &config.Config{JWTSecret: "middleware-secret"}

	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		userID, ok := c.Get("userID")
		if !ok {
			c.JSON(http.StatusOK, gin.H{"userID": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userID": userID})
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(AuthMiddleware())
	token, err := jwt.GenerateTokenWithSecret("middleware-secret", 5, "aim", time.Hour)
	require.NoError(t, err)

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userID":5}`, w.Body.String())
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := newRouter(OptionalAuthMiddleware())
	token, err := jwt.GenerateTokenWithSecret("middleware-secret", 9, "aim", time.Hour)
	require.NoError(t, err)

	w := get(r, "Bearer nope")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userID":null}`, w.Body.String())

	w = get(r, "Bearer "+token)
	assert.JSONEq(t, `{"userID":9}`, w.Body.String())
}

func TestAdminMiddleware_RequiresAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/", AdminMiddleware(func(uint) (string, error) { return "admin", nil }), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := get(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminMiddleware_Roles(t *testing.T) {
	token, err := jwt.GenerateTokenWithSecret("middleware-secret", 4, "ops", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		lookup RoleLookup
		want   int
	}{
		{"admin", func(uint) (string, error) { return "admin", nil }, http.StatusOK},
		{"plain user", func(uint) (string, error) { return "user", nil }, http.StatusForbidden},
		{"unknown user", func(uint) (string, error) { return "", eris.Wrap(ErrUserNotFound, "lookup") }, http.StatusNotFound},
		{"no user store", func(uint) (string, error) { return "", ErrUserStoreUnavailable }, http.StatusServiceUnavailable},
		{"nil lookup", nil, http.StatusServiceUnavailable},
		{"lookup failure", func(uint) (string, error) { return "", eris.New("connection reset") }, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID uint
			lookup := tt.lookup
			if lookup != nil {
				inner := lookup
				lookup = func(id uint) (string, error) {
					gotID = id
					return inner(id)
				}
			}

			r := newRouter(AuthMiddleware())
			r.GET("/admin", AuthMiddleware(), AdminMiddleware(lookup), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"role": c.GetString("userRole")})
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.lookup != nil {
				assert.Equal(t, uint(4), gotID)
			}
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"role":"admin"}`, w.Body.String())
			}
		})
	}
}
