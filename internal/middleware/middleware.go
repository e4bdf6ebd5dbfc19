package middleware

import (
	"net/http"
	"strings"

	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

// Authenticate validates the Bearer token of the request and stores the
// resulting auth.Principal in the gin context. Every failure, including a
// malformed Authorization header, answers with the same 400 token error.
func Authenticate(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		scheme, tokenString, found := strings.Cut(authHeader, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tokenString) == "" {
			abortWithTokenError(c, "missing or malformed Authorization header")
			return
		}

		principal, err := tokens.Parse(strings.TrimSpace(tokenString))
		if err != nil {
			abortWithTokenError(c, err.Error())
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by Authenticate
func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func abortWithTokenError(c *gin.Context, reason string) {
	logrus.WithFields(logrus.Fields{
		"path":   c.Request.URL.Path,
		"reason": reason,
	}).Debug("Rejected request token")
	c.AbortWithStatusJSON(models.ErrTokenInvalid.Status, gin.H{
		"success": false,
		"message": models.ErrTokenInvalid.Message,
	})
}

// CORS allows browser clients from allowedOrigin and answers preflight requests
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")
		if allowedOrigin != "*" {
			c.Header("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
