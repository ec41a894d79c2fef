package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/fleet-auth/internal/api/http"
	"github.com/spec-kit/fleet-auth/internal/api/http/handlers"
	"github.com/spec-kit/fleet-auth/internal/auth"
	"github.com/spec-kit/fleet-auth/internal/config"
	"github.com/spec-kit/fleet-auth/internal/events"
	"github.com/spec-kit/fleet-auth/internal/observability"
	"github.com/spec-kit/fleet-auth/internal/persistence"
	"github.com/spec-kit/fleet-auth/internal/repository"
	"github.com/spec-kit/fleet-auth/internal/service"
	"github.com/spec-kit/fleet-auth/internal/worker"
	"github.com/spec-kit/fleet-auth/migrations"
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

	policy, err := loadPolicy(cfg.Auth)
	if err != nil {
		logger.Fatal("failed to load policy table", zap.Error(err))
	}
	if !policy.Knows(cfg.App.Name) {
		logger.Warn("service name not referenced by any role; every request will be rejected",
			zap.String("service", cfg.App.Name))
	}

	settings := auth.Settings{
		Secret:        []byte(cfg.Auth.JWTSecret),
		TokenLifetime: cfg.Auth.TokenLifetime,
	}
	verifier, err := auth.NewVerifier(settings)
	if err != nil {
		logger.Fatal("failed to init verifier", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics(cfg.App.Name)
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	isIssuer := strings.EqualFold(cfg.App.Name, policy.Issuer())
	dependencies := map[string]handlers.Pinger{}
	var authenticator handlers.Authenticator

	if isIssuer {
		issuer, err := auth.NewIssuer(settings, policy)
		if err != nil {
			logger.Fatal("failed to init issuer", zap.Error(err))
		}
		hasher, err := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
		if err != nil {
			logger.Fatal("failed to init password hasher", zap.Error(err))
		}

		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()

		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.Files, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}

		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()

		dependencies["postgres"] = pg
		dependencies["redis"] = redis

		authenticator = service.NewAuthService(service.AuthDependencies{
			Principals:  repository.NewPrincipalRepository(pg.PoolHandle()),
			Minter:      issuer,
			Passwords:   hasher,
			Limiter:     service.NewLoginLimiter(redis.Client, cfg.Auth.LoginMaxAttempts, cfg.Auth.LoginWindow()),
			Dispatcher:  dispatcher,
			Metrics:     metrics,
			Logger:      logger,
			ServiceName: cfg.App.Name,
		})
	}

	interceptor := auth.NewInterceptor(verifier, cfg.App.Name, auth.InterceptorDependencies{
		Logger:     logger,
		Metrics:    metrics,
		Dispatcher: dispatcher,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Auth:        handlers.NewAuthHandler(authenticator, cfg.App.Name),
		Interceptor: interceptor,
		Metrics:     metrics,
		Issuer:      isIssuer,
	})

	logger.Info("starting",
		zap.String("service", cfg.App.Name),
		zap.Bool("issuer", isIssuer),
		zap.Duration("token_lifetime", cfg.Auth.TokenLifetime),
		zap.String("addr", cfg.App.Addr()))

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func loadPolicy(cfg config.AuthConfig) (*auth.PolicyTable, error) {
	if cfg.PolicyFile == "" {
		return auth.DefaultPolicyTable(), nil
	}
	return auth.LoadPolicyFile(cfg.PolicyFile)
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
