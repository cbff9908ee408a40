package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"e-transfer-auth/config"
	_ "e-transfer-auth/docs"
	"e-transfer-auth/internal/handler"
	"e-transfer-auth/internal/model"
	"e-transfer-auth/internal/ports"
	"e-transfer-auth/internal/repository"
	"e-transfer-auth/internal/security"
	"e-transfer-auth/internal/service"
	"e-transfer-auth/internal/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title E-Transfer Auth
// @version 1.0
// @description Authentication core of the e-transfer record service

// @host localhost:8080

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		configPath = v
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		util.Logger.WithError(err).Fatal("failed to load configuration")
	}
	util.InitLogger(cfg.Log.Level)

	db, err := config.SetupDatabase(cfg.DatabaseConfig.DSN)
	if err != nil {
		util.Logger.WithError(err).Fatal("failed to connect to database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			util.Logger.WithError(err).Warn("failed to close database")
		}
	}()

	if err := db.Migrate(ctx); err != nil {
		util.Logger.WithError(err).Fatal("failed to apply migrations")
	}

	var refreshStore ports.RefreshTokenStore
	switch cfg.RefreshStore.Backend {
	case config.RefreshStoreRedis:
		redisClient, err := config.SetupRedis(&cfg.RedisConfig)
		if err != nil {
			util.Logger.WithError(err).Fatal("failed to connect to redis")
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				util.Logger.WithError(err).Warn("failed to close redis")
			}
		}()
		refreshStore = repository.NewRefreshTokenCacheRepository(redisClient)
	default:
		refreshStore = repository.NewRefreshTokenRepository(db)
	}

	codec, err := security.NewTokenCodec([]byte(cfg.JWT.SecretKey), security.WithIssuer(cfg.JWT.Issuer))
	if err != nil {
		util.Logger.WithError(err).Fatal("failed to create token codec")
	}
	issuer := security.NewTokenIssuer(codec, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL())

	policy := service.RotationReuse
	if cfg.JWT.Rotate() {
		policy = service.RotationRotate
	}

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthenticationService(refreshStore, userRepo, security.BcryptVerifier{}, issuer, codec, policy)
	userService := service.NewUserService(userRepo, authService)

	authHandler := handler.NewAuthenticationHandler(authService)
	userHandler := handler.NewUserHandler(userService)

	srv, router := config.SetupServer(cfg.ServerAddr)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(security.Authenticate(codec))

	router.Get("/swagger/*", httpSwagger.WrapHandler)
	setupAuthRoutes(router, authHandler, userHandler)

	util.Logger.WithField("refresh_store", cfg.RefreshStore.Backend).
		WithField("rotation", policy.String()).
		Info("authentication core configured")

	runServer(ctx, srv)
}

func setupAuthRoutes(r chi.Router, authHandler *handler.AuthenticationHandler, userHandler *handler.UserHandler) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.RefreshToken)
		r.Post("/logout", authHandler.Logout)
		r.Post("/register", userHandler.RegisterUser)

		r.Group(func(r chi.Router) {
			r.Use(security.RequireAuthenticated)
			r.Get("/me", authHandler.GetCurrentUser)
			r.Head("/me", authHandler.GetCurrentUser)
			r.Post("/logout-all", authHandler.LogoutEverywhere)

			r.With(security.RequireRole(model.RoleAdmin)).Get("/users", userHandler.ListUsers)
			r.Get("/users/{id}", userHandler.GetUser)
			r.Put("/users/{id}", userHandler.UpdateUser)
			r.With(security.RequireRole(model.RoleAdmin)).Delete("/users/{id}", userHandler.DeleteUser)
		})
	})
}

func runServer(ctx context.Context, server *http.Server) {
	serverErrors := make(chan error, 1)
	go func() {
		util.Logger.WithField("addr", server.Addr).Info("server started")
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.Logger.WithError(err).Fatal("server failed")
		}
	case sig := <-signalChannel:
		util.Logger.WithField("signal", sig.String()).Info("shutdown signal received")
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		util.Logger.WithError(err).Warn("server shutdown failed")
	} else {
		util.Logger.Info("server stopped")
	}
}
