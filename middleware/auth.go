package middleware

import (
	"net/http"
	"strings"

	"chatwave/tools/errs"
	"chatwave/tools/security"

	"github.com/gin-gonic/gin"
)

// CtxUserKey is where the authenticated user ID lands in the gin context.
const CtxUserKey = "userId"

// Auth validates `Authorization: Bearer <token>` and injects the subject
// into the request context. Requests without a valid token get 401.
func Auth(opts security.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid.WithDetail("missing bearer token"))
			return
		}
		userID, err := security.Parse(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrTokenInvalid)
			return
		}
		c.Set(CtxUserKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated user from the gin context.
func UserID(c *gin.Context) string {
	v, _ := c.Get(CtxUserKey)
	s, _ := v.(string)
	return s
}

func bearerToken(c *gin.Context) string {
	authz := strings.TrimSpace(c.GetHeader("Authorization"))
	if authz == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}
