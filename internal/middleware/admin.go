package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SalehHub/authx-auth/internal/allowlist"
	"github.com/SalehHub/authx-auth/internal/session"
)

// GinRequireAdmin gates routes to allowlisted admin emails. A non-admin
// with a valid session is logged out before the 403 so the stale session
// cannot be replayed against other routes. Must run after GinRequireAuth.
func GinRequireAdmin(allow *allowlist.Allowlist, sessions *session.Gateway) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(ContextUserEmail)

		if allow.Allows(email) {
			c.Next()
			return
		}

		_ = sessions.Invalidate(c.Request.Context(), c.Writer, c.GetString(ContextSessionID))

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": "only admin users can access this application",
		})
	}
}
