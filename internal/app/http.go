package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/SalehHub/authx-auth/internal/allowlist"
	"github.com/SalehHub/authx-auth/internal/auth/handler"
	"github.com/SalehHub/authx-auth/internal/authx"
	"github.com/SalehHub/authx-auth/internal/config"
	"github.com/SalehHub/authx-auth/internal/middleware"
	"github.com/SalehHub/authx-auth/internal/reconcile"
	"github.com/SalehHub/authx-auth/internal/session"
	"github.com/SalehHub/authx-auth/internal/store"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	userStore := store.NewPostgres(infra.DB, cfg.UsersTable)
	if err := userStore.Check(ctx); err != nil {
		// Misconfigured record type is fatal at startup, not per request.
		return nil, nil, err
	}

	sessionStore := session.NewRedisStore(infra.Redis.Client)
	sessions := session.NewGateway(sessionStore)

	admins := allowlist.FromStrings(func() []string { return cfg.AdminEmails })
	reconciler := reconcile.New(userStore, admins)

	authxClient, err := authx.New(
		cfg.IssuerBaseURL(),
		cfg.AuthxClientID,
		cfg.AuthxClientSecret,
		cfg.AuthxRedirectURI,
		cfg.AuthxVerifySSL,
	)
	if err != nil {
		return nil, nil, err
	}

	authHandler := handler.NewHandler(authxClient, reconciler, sessions, cfg)
	authMiddleware := middleware.NewAuthMiddleware(sessionStore)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	authHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Protected API Routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"user_id": c.GetString(middleware.ContextUserID),
			"email":   c.GetString(middleware.ContextUserEmail),
		})
	})

	admin := router.Group("/admin")
	admin.Use(
		middleware.GinRequireAuth(authMiddleware),
		middleware.GinRequireAdmin(admins, sessions),
	)

	admin.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		return infra.DB.Close()
	}, nil
}
