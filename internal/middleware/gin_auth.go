package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin context keys populated by GinRequireAuth.
const (
	ContextUserID    = "userID"
	ContextUserEmail = "userEmail"
	ContextSessionID = "sessionID"
)

// GinRequireAuth adapts the net/http AuthMiddleware to Gin. Auth decisions
// stay session-based and provider-agnostic.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r

			if id, ok := UserIDFromContext(r.Context()); ok {
				c.Set(ContextUserID, id)
			}
			if email, ok := UserEmailFromContext(r.Context()); ok {
				c.Set(ContextUserEmail, email)
			}
			if sid, ok := SessionIDFromContext(r.Context()); ok {
				c.Set(ContextSessionID, sid)
			}

			c.Next()
		})

		handler := auth.RequireAuth(next)
		handler.ServeHTTP(c.Writer, c.Request)

		// If auth middleware already handled the response, stop Gin chain
		if c.Writer.Written() {
			c.Abort()
			return
		}
	}
}
