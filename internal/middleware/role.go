package middleware

import (
	"github.com/franciscosanchezn/gin-food-delivery-api/internal/auth"
	"github.com/gin-gonic/gin"
)

// RequireRole rejects principals of any other role. It must run after Authenticate.
// A token of the wrong role gets the same answer as an invalid one.
func RequireRole(requiredRole auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, exists := PrincipalFrom(c)
		if !exists {
			abortWithTokenError(c, "no authenticated principal")
			return
		}

		if !principal.Is(requiredRole) {
			abortWithTokenError(c, "token role "+string(principal.Role)+" cannot access "+string(requiredRole)+" routes")
			return
		}

		c.Next()
	}
}
