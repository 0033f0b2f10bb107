package handler

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

	"github.com/SalehHub/authx-auth/internal/authx"
	"github.com/SalehHub/authx-auth/internal/config"
	"github.com/SalehHub/authx-auth/internal/reconcile"
	"github.com/SalehHub/authx-auth/internal/session"
	"github.com/SalehHub/authx-auth/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubClient struct {
	authURL  string
	identity *authx.Identity
	err      error
	gotCode  string
}

func (s *stubClient) AuthCodeURL(state string) string {
	return s.authURL + "?state=" + state
}

func (s *stubClient) ExchangeCode(_ context.Context, code string) (*authx.Identity, error) {
	s.gotCode = code
	return s.identity, s.err
}

type stubReconciler struct {
	record *store.Record
	err    error
	calls  int
}

func (s *stubReconciler) Reconcile(context.Context, *authx.Identity, reconcile.Policy) (*store.Record, error) {
	s.calls++
	return s.record, s.err
}

func timeInFuture() time.Time {
	return time.Now().Add(time.Hour)
}

func newFixture(t *testing.T, client *stubClient, rec *stubReconciler, cfg config.Config) (*gin.Engine, session.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	sessionStore := session.NewRedisStore(redisClient)
	gateway := session.NewGateway(sessionStore)

	router := gin.New()
	NewHandler(client, rec, gateway, cfg).RegisterRoutes(router)
	return router, sessionStore
}

func defaultConfig() config.Config {
	return config.Config{
		AuthxURL:          "https://authx.example.com",
		PostLoginRedirect: "/dashboard",
		RememberUser:      true,
		LogoutFromAuthx:   false,
	}
}

func stateCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == stateCookieName {
			return c
		}
	}
	return nil
}

func doCallback(router *gin.Engine, state string, query string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/callback?"+query, nil)
	if state != "" {
		req.AddCookie(&http.Cookie{Name: stateCookieName, Value: state})
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRedirect_SetsStateAndRedirects(t *testing.T) {
	client := &stubClient{authURL: "https://authx.example.com/oauth/authorize"}
	router, _ := newFixture(t, client, &stubReconciler{}, defaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/auth/redirect", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)

	cookie := stateCookieFrom(t, rec)
	require.NotNil(t, cookie, "state cookie must be set")
	require.NotEmpty(t, cookie.Value)

	assert.Equal(t,
		"https://authx.example.com/oauth/authorize?state="+cookie.Value,
		rec.Header().Get("Location"),
	)
}

func TestRedirect_StateIsFreshPerRequest(t *testing.T) {
	client := &stubClient{authURL: "https://authx.example.com/oauth/authorize"}
	router, _ := newFixture(t, client, &stubReconciler{}, defaultConfig())

	states := make(map[string]bool)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/redirect", nil))
		cookie := stateCookieFrom(t, rec)
		require.NotNil(t, cookie)
		states[cookie.Value] = true
	}

	assert.Len(t, states, 3)
}

func TestCallback_InvalidState(t *testing.T) {
	router, _ := newFixture(t, &stubClient{}, &stubReconciler{}, defaultConfig())

	// no cookie at all
	rec := doCallback(router, "", "code=abc&state=xyz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// cookie mismatch
	rec = doCallback(router, "other", "code=abc&state=xyz")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// missing state param
	rec = doCallback(router, "xyz", "code=abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCallback_ProviderErrorRestartsFlow(t *testing.T) {
	reconciler := &stubReconciler{}
	router, _ := newFixture(t, &stubClient{}, reconciler, defaultConfig())

	rec := doCallback(router, "s1", "state=s1&error=access_denied")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
	assert.Zero(t, reconciler.calls)
}

func TestCallback_MissingCode(t *testing.T) {
	router, _ := newFixture(t, &stubClient{}, &stubReconciler{}, defaultConfig())

	rec := doCallback(router, "s1", "state=s1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallback_FetchFailure(t *testing.T) {
	client := &stubClient{err: authx.ErrRemoteIdentityFetch}
	router, _ := newFixture(t, client, &stubReconciler{}, defaultConfig())

	rec := doCallback(router, "s1", "state=s1&code=abc")

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "abc", client.gotCode)
}

func TestCallback_ReconcileStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid identity", reconcile.ErrInvalidIdentity, http.StatusUnprocessableEntity},
		{"forbidden creation", reconcile.ErrForbidden, http.StatusForbidden},
		{"record type unavailable", store.ErrRecordTypeUnavailable, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := &stubClient{identity: &authx.Identity{Email: "user@example.com"}}
			router, _ := newFixture(t, client, &stubReconciler{err: tc.err}, defaultConfig())

			rec := doCallback(router, "s1", "state=s1&code=abc")
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCallback_SuccessEstablishesSession(t *testing.T) {
	client := &stubClient{identity: &authx.Identity{Email: "user@example.com"}}
	reconciler := &stubReconciler{
		record: &store.Record{ID: "user-1", Email: "user@example.com"},
	}
	router, sessionStore := newFixture(t, client, reconciler, defaultConfig())

	rec := doCallback(router, "s1", "state=s1&code=abc")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, 1, reconciler.calls)

	// The cookie on the response is the post-rotation session ID and it
	// must resolve to a live session.
	var sid string
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			sid = c.Value
		}
	}
	require.NotEmpty(t, sid)

	sess, err := sessionStore.Get(context.Background(), sid)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "user@example.com", sess.Email)
}

func TestLogout_LocalOnly(t *testing.T) {
	cfg := defaultConfig()
	router, sessionStore := newFixture(t, &stubClient{}, &stubReconciler{}, cfg)

	require.NoError(t, sessionStore.Create(context.Background(), session.Session{
		SessionID: "sid-1",
		UserID:    "user-1",
		ExpiresAt: timeInFuture(),
	}))

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid-1"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	sess, err := sessionStore.Get(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.Nil(t, sess, "session must be invalidated before redirecting")
}

func TestLogout_RedirectsToProvider(t *testing.T) {
	cfg := defaultConfig()
	cfg.LogoutFromAuthx = true
	router, _ := newFixture(t, &stubClient{}, &stubReconciler{}, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://authx.example.com/logout", rec.Header().Get("Location"))
}

func TestLogout_ExplicitLogoutURLOverride(t *testing.T) {
	cfg := defaultConfig()
	cfg.LogoutFromAuthx = true
	cfg.AuthxLogoutURL = "https://sso.example.com/bye"
	router, _ := newFixture(t, &stubClient{}, &stubReconciler{}, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	assert.Equal(t, "https://sso.example.com/bye", rec.Header().Get("Location"))
}

func TestLegacyRoutesRedirectIntoFlow(t *testing.T) {
	router, _ := newFixture(t, &stubClient{}, &stubReconciler{}, defaultConfig())

	for _, route := range []string{"/login", "/register", "/forgot-password"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, route, nil))

		assert.Equal(t, http.StatusFound, rec.Code, route)
		assert.Equal(t, "/auth/redirect", rec.Header().Get("Location"), route)
	}
}
