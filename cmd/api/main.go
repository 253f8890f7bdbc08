package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/userkit/user-service/internal/api/http"
	"github.com/userkit/user-service/internal/api/http/handlers"
	"github.com/userkit/user-service/internal/auth"
	"github.com/userkit/user-service/internal/config"
	"github.com/userkit/user-service/internal/events"
	"github.com/userkit/user-service/internal/observability"
	"github.com/userkit/user-service/internal/persistence"
	"github.com/userkit/user-service/internal/repository"
	"github.com/userkit/user-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.Auth.WeakSecret() {
		logger.Warn("AUTH_JWT_SECRET is shorter than recommended", zap.Int("min_bytes", config.MinSecretBytes))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	checks := map[string]handlers.Pinger{}
	var userRepo repository.UserRepository
	if pool := pg.PoolHandle(); pool != nil {
		if userRepo, err = repository.NewUserRepository(pool); err != nil {
			logger.Fatal("failed to init user repository", zap.Error(err))
		}
		checks["postgres"] = pg
	} else {
		logger.Warn("using in-memory user store; data is lost on restart")
		userRepo = repository.NewMemoryUserRepository()
	}

	if ttl := cfg.Redis.UserCacheTTL(); ttl > 0 {
		redis := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		userRepo = repository.NewCachedUserRepository(userRepo, redis.Client, ttl, logger)
		checks["redis"] = redis
	}

	dispatcher := events.NewInMemoryDispatcher()
	service.NewAuditService(dispatcher, logger).RegisterHandlers()

	authService, err := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		logger.Fatal("failed to init auth service", zap.Error(err))
	}
	userService := service.NewUserService(userRepo, dispatcher, logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	routes := httptransport.RouteConfig{
		Health:    handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks, logger),
		Auth:      handlers.NewAuthHandler(authService, metrics),
		Users:     handlers.NewUsersHandler(userService),
		Gate:      auth.NewGate(authService.TokenManager(), logger, metrics),
		Policy:    auth.DefaultPolicy(),
		Challenge: auth.Challenge{Scheme: cfg.Auth.ChallengeScheme, Realm: cfg.Auth.Realm},
	}
	if cfg.Metrics.Enabled {
		routes.Gatherer = registry
	}
	httptransport.RegisterRoutes(app, routes)

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
