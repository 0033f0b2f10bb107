package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SalehHub/authx-auth/internal/allowlist"
	"github.com/SalehHub/authx-auth/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newSessionStore(t *testing.T) session.Store {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return session.NewRedisStore(client)
}

func seedSession(t *testing.T, store session.Store, sid, uid, email string) {
	t.Helper()

	require.NoError(t, store.Create(context.Background(), session.Session{
		SessionID: sid,
		UserID:    uid,
		Email:     email,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}))
}

func protectedRouter(store session.Store) *gin.Engine {
	router := gin.New()
	api := router.Group("/api")
	api.Use(GinRequireAuth(NewAuthMiddleware(store)))
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(ContextUserID),
			"email":   c.GetString(ContextUserEmail),
		})
	})
	return router
}

func TestRequireAuth_NoCookie(t *testing.T) {
	router := protectedRouter(newSessionStore(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_UnknownSession(t *testing.T) {
	router := protectedRouter(newSessionStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "nope"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ValidSession(t *testing.T) {
	store := newSessionStore(t)
	seedSession(t, store, "sid-1", "user-1", "user@example.com")
	router := protectedRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")
	assert.Contains(t, rec.Body.String(), "user@example.com")
}

func TestRequireAdmin(t *testing.T) {
	store := newSessionStore(t)
	seedSession(t, store, "sid-admin", "user-1", "admin@example.com")
	seedSession(t, store, "sid-user", "user-2", "user@example.com")

	admins := allowlist.FromStrings(func() []string {
		return []string{"Admin@Example.com"}
	})
	sessions := session.NewGateway(store)

	router := gin.New()
	admin := router.Group("/admin")
	admin.Use(GinRequireAuth(NewAuthMiddleware(store)), GinRequireAdmin(admins, sessions))
	admin.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// allowlisted email passes (case-insensitive)
	req := httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid-admin"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// non-admin is rejected and logged out
	req = httptest.NewRequest(http.MethodGet, "/admin/ping", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid-user"})
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	gone, err := store.Get(context.Background(), "sid-user")
	require.NoError(t, err)
	assert.Nil(t, gone, "non-admin session must be invalidated")
}
