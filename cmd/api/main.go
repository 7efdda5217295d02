package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/procurement-auth/internal/api/http"
	"github.com/spec-kit/procurement-auth/internal/api/http/handlers"
	"github.com/spec-kit/procurement-auth/internal/auth"
	"github.com/spec-kit/procurement-auth/internal/cache"
	"github.com/spec-kit/procurement-auth/internal/config"
	"github.com/spec-kit/procurement-auth/internal/events"
	"github.com/spec-kit/procurement-auth/internal/observability"
	"github.com/spec-kit/procurement-auth/internal/persistence"
	"github.com/spec-kit/procurement-auth/internal/repository"
	"github.com/spec-kit/procurement-auth/internal/service"
	"github.com/spec-kit/procurement-auth/internal/worker"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	accountRepo := repository.NewAccountRepository(pool)
	refreshRepo := repository.NewRefreshRecordRepository(pool)

	authorityCache := cache.NewRedisAuthorityCache(
		redis.Client,
		cfg.Auth.AuthorityCacheTTL(),
		cfg.Auth.CacheTimeout(),
		logger,
	)
	codec := auth.NewTokenCodec(
		cfg.Auth.JWTSecret,
		cfg.Auth.Issuer,
		cfg.Auth.AccessTokenTTL(),
		cfg.Auth.RefreshTokenTTL(),
	)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(dispatcher, logger)

	loginService := service.NewLoginService(*cfg, service.LoginDependencies{
		AccountRepo: accountRepo,
		RefreshRepo: refreshRepo,
		Authorities: authorityCache,
		Codec:       codec,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	refreshService := service.NewRefreshService(*cfg, service.RefreshDependencies{
		RefreshRepo: refreshRepo,
		Authorities: authorityCache,
		Codec:       codec,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	guard := auth.NewGuard(codec, authorityCache, cfg.Auth.AccessCookieName, cfg.Auth.BypassPrefixes, logger)

	metrics := observability.NewMetrics()
	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	authHandler := handlers.NewAuthHandler(loginService, refreshService, cfg.Auth)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: healthHandler,
		Auth:   authHandler,
		Guard:  guard,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
