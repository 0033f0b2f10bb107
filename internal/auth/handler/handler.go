package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SalehHub/authx-auth/internal/authx"
	"github.com/SalehHub/authx-auth/internal/config"
	"github.com/SalehHub/authx-auth/internal/logger"
	"github.com/SalehHub/authx-auth/internal/reconcile"
	"github.com/SalehHub/authx-auth/internal/session"
	"github.com/SalehHub/authx-auth/internal/store"
)

// OAuthClient is the AuthX protocol surface the handler depends on.
type OAuthClient interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*authx.Identity, error)
}

// Reconciler merges an external identity into the local user record.
type Reconciler interface {
	Reconcile(ctx context.Context, identity *authx.Identity, policy reconcile.Policy) (*store.Record, error)
}

type Handler struct {
	client     OAuthClient
	reconciler Reconciler
	sessions   *session.Gateway
	cfg        config.Config
}

func NewHandler(
	client OAuthClient,
	reconciler Reconciler,
	sessions *session.Gateway,
	cfg config.Config,
) *Handler {
	return &Handler{
		client:     client,
		reconciler: reconciler,
		sessions:   sessions,
		cfg:        cfg,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/auth/redirect", h.Redirect)
	r.GET("/auth/callback", h.Callback)
	r.POST("/logout", h.Logout)

	// Password-era entry points all funnel into the OAuth flow.
	for _, route := range []string{"/login", "/register", "/forgot-password"} {
		r.GET(route, func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/auth/redirect")
		})
	}
}

func (h *Handler) policy() reconcile.Policy {
	return reconcile.Policy{
		PreventNonAdminCreation: h.cfg.PreventNonAdminUserCreation,
		RememberUser:            h.cfg.RememberUser,
		PostLoginRedirect:       h.cfg.PostLoginRedirect,
	}
}

// Redirect sends the user to the AuthX authorize endpoint with a fresh
// state token.
func (h *Handler) Redirect(c *gin.Context) {
	state := generateState(c)
	c.Redirect(http.StatusFound, h.client.AuthCodeURL(state))
}

// Callback handles the AuthX OAuth callback and signs the user in.
func (h *Handler) Callback(c *gin.Context) {
	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}

	// Provider-side errors (denied consent, expired request) restart the
	// flow rather than failing it.
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("authx callback returned error", map[string]any{
			"error": errParam,
			"desc":  c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, "/login")
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("authx callback missing code and error", nil)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	identity, err := h.client.ExchangeCode(c.Request.Context(), code)
	if err != nil {
		logger.Error("authx identity fetch failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "authentication failed",
		})
		return
	}

	policy := h.policy()

	record, err := h.reconciler.Reconcile(c.Request.Context(), identity, policy)
	if err != nil {
		h.renderReconcileError(c, err)
		return
	}

	sess, err := h.sessions.Login(
		c.Request.Context(),
		c.Writer,
		record.ID,
		record.Email,
		policy.RememberUser,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	// Rotate immediately after establishing identity so a pre-login session
	// ID can never be replayed.
	if _, err := h.sessions.Regenerate(c.Request.Context(), c.Writer, sess); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to regenerate session",
		})
		return
	}

	logger.Info("login success", map[string]any{
		"user_id": record.ID,
		"ip":      c.ClientIP(),
	})

	c.Redirect(http.StatusFound, policy.PostLoginRedirect)
}

func (h *Handler) renderReconcileError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, reconcile.ErrInvalidIdentity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "authx did not return a valid email address",
		})
	case errors.Is(err, reconcile.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{
			"error": "only admin users can access this application",
		})
	case errors.Is(err, store.ErrRecordTypeUnavailable):
		logger.Error("user record type unavailable", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "the users auth provider model is not configured correctly",
		})
	default:
		logger.Error("reconciliation failed", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to resolve user",
		})
	}
}

// Logout invalidates the local session first, then redirects either home or
// to the AuthX logout endpoint depending on policy.
func (h *Handler) Logout(c *gin.Context) {
	sessionID := ""
	if cookie, err := c.Request.Cookie(session.CookieName); err == nil {
		sessionID = cookie.Value
	}

	if err := h.sessions.Invalidate(c.Request.Context(), c.Writer, sessionID); err != nil {
		logger.Warn("session invalidation failed", map[string]any{
			"error": err.Error(),
		})
	}
	clearStateCookie(c)

	if !h.cfg.LogoutFromAuthx {
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.Redirect(http.StatusFound, h.cfg.LogoutURL())
}
