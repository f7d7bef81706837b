package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"chatwave/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthRouter(opts security.Options) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", Auth(opts), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c))
	})
	return r
}

func TestAuthAcceptsValidToken(t *testing.T) {
	opts := security.DefaultOptions([]byte("test-secret"))
	token, _, err := security.Generate(opts, "user1")
	require.NoError(t, err)

	r := newAuthRouter(opts)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user1", w.Body.String())
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	r := newAuthRouter(security.DefaultOptions([]byte("test-secret")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRejectsBadToken(t *testing.T) {
	r := newAuthRouter(security.DefaultOptions([]byte("test-secret")))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
