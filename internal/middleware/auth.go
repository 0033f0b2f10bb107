package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/SalehHub/authx-auth/internal/session"
)

// unexported, collision-proof context keys
type userIDContextKeyType struct{}
type userEmailContextKeyType struct{}
type sessionIDContextKeyType struct{}

var (
	userIDKey    = userIDContextKeyType{}
	userEmailKey = userEmailContextKeyType{}
	sessionIDKey = sessionIDContextKeyType{}
)

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// UserEmailFromContext extracts the authenticated user's email from context.
func UserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userEmailKey).(string)
	return email, ok
}

// SessionIDFromContext extracts the current session ID from context.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok
}

type AuthMiddleware struct {
	Store session.Store
}

func NewAuthMiddleware(store session.Store) *AuthMiddleware {
	return &AuthMiddleware{Store: store}
}

func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(session.CookieName)
		if err != nil || cookie.Value == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		sessionID := cookie.Value

		sess, err := a.Store.Get(r.Context(), sessionID)
		if err != nil || sess == nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// Expiry is enforced here as well as by the store TTL.
		if time.Now().After(sess.ExpiresAt) {
			_ = a.Store.Delete(r.Context(), sessionID)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, sess.UserID)
		ctx = context.WithValue(ctx, userEmailKey, sess.Email)
		ctx = context.WithValue(ctx, sessionIDKey, sess.SessionID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
