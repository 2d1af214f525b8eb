package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sysverax/somerville-mobile-sub000/config"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/cache"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/database"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/logger"
	"github.com/sysverax/somerville-mobile-sub000/internal/pkg/token"

	"github.com/sysverax/somerville-mobile-sub000/internal/api/catalog"
	"github.com/sysverax/somerville-mobile-sub000/internal/api/repair"
	"github.com/sysverax/somerville-mobile-sub000/internal/api/resolution"
	"github.com/sysverax/somerville-mobile-sub000/internal/api/router"
	"github.com/sysverax/somerville-mobile-sub000/internal/api/user"
	"github.com/sysverax/somerville-mobile-sub000/internal/repository/catalogrepo"
	"github.com/sysverax/somerville-mobile-sub000/internal/repository/overriderepo"
	"github.com/sysverax/somerville-mobile-sub000/internal/repository/repairrepo"
	"github.com/sysverax/somerville-mobile-sub000/internal/repository/userrepo"
	"github.com/sysverax/somerville-mobile-sub000/internal/service/catalogservice"
	"github.com/sysverax/somerville-mobile-sub000/internal/service/overrideservice"
	"github.com/sysverax/somerville-mobile-sub000/internal/service/repairservice"
	"github.com/sysverax/somerville-mobile-sub000/internal/service/resolverservice"
	"github.com/sysverax/somerville-mobile-sub000/internal/service/userservice"
)

func main() {
	// The .env file is optional; the process environment wins in containers.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger("info").Fatal("Invalid configuration.", err)
	}
	log := logger.NewLogger(cfg.LogLevel)
	defer func() {
		if s, ok := log.(interface{ Sync() error }); ok {
			_ = s.Sync()
		}
	}()

	if envErr != nil {
		log.Debug("No .env file loaded, using the process environment.", map[string]interface{}{"error": envErr.Error()})
	}
	for _, w := range cfg.Warnings {
		log.Warn("Configuration value ignored.", map[string]interface{}{"detail": w})
	}
	log.Info("Configuration loaded.", map[string]interface{}{"env": cfg.Environment, "port": cfg.Port})

	// Infrastructure
	db, err := database.NewPostgresDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to the database.", err)
	}
	defer db.Close()
	log.Info("PostgreSQL connection established.", nil)

	// Redis is optional: without it lineages are read from the database every
	// time and rate limiting is off.
	var cacheClient cache.Client
	redisClient, err := cache.NewRedisClient(cfg.RedisAddr)
	if err != nil {
		log.Warn("Redis unavailable, running without cache.", map[string]interface{}{"addr": cfg.RedisAddr, "error": err.Error()})
		_ = redisClient.Close()
	} else {
		cacheClient = redisClient
		defer redisClient.Close()
		log.Info("Redis connection established.", nil)
	}

	tokenSvc := token.NewService(cfg.JWTSecretKey, cfg.TokenExpiry)

	// Repositories
	catalogRepo := catalogrepo.NewCatalogRepository(db, cacheClient, cfg.DBTimeout, cfg.CacheTTL, log)
	serviceRepo := repairrepo.NewServiceRepository(db, cfg.DBTimeout, log)
	overrideRepo := overriderepo.NewOverrideRepository(db, cfg.DBTimeout, log)
	userRepo := userrepo.NewUserRepository(db, cfg.DBTimeout, log)

	// Services
	catalogSvc := catalogservice.NewService(catalogRepo, log)
	repairSvc := repairservice.NewService(serviceRepo, catalogRepo, log)
	overrideSvc := overrideservice.NewService(overrideRepo, serviceRepo, catalogRepo, log)
	resolverSvc := resolverservice.NewService(catalogRepo, serviceRepo, overrideRepo, log)
	userSvc := userservice.NewService(userRepo, tokenSvc, cfg.AdminEmails, log)
	log.Debug("Services initialized.", nil)

	handler := router.NewRouter(router.Handlers{
		Catalog:    catalog.NewHandler(catalogSvc, log),
		Repair:     repair.NewHandler(repairSvc, log),
		Resolution: resolution.NewHandler(resolverSvc, overrideSvc, log),
		User:       user.NewHandler(userSvc, log),
	}, router.Options{
		Tokens:          tokenSvc,
		Cache:           cacheClient,
		RateLimit:       cfg.RateLimitMaxRequests,
		RateLimitWindow: cfg.RateLimitPeriod,
		Logger:          log,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server listening.", map[string]interface{}{"port": cfg.Port})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed.", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received, stopping server.", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Forced server shutdown.", err)
	}
	log.Info("Server stopped.", nil)
}
