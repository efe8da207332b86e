package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jkcsoftwaresllp/indiabills-client-sub002/config"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting session service",
		"store_backend", cfg.Store.Backend,
		"gateway", cfg.Gateway.BaseURL,
		"addr", cfg.HTTP.Addr)

	redisClient, pgPool, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}
	if pgPool != nil {
		defer pgPool.Close()
	}

	repos, err := bootstrap.BuildStore(ctx, bootstrap.StoreDeps{
		Config:      &cfg,
		RedisClient: redisClient,
		PgPool:      pgPool,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	auth, err := bootstrap.BuildAuthServices(&cfg, logger)
	if err != nil {
		return err
	}

	server := bootstrap.StartHTTPServer(&bootstrap.HTTPServerConfig{
		Config: &cfg,
		Auth:   auth,
		Repos:  repos,
		Logger: logger,
	})

	// Block until interrupted, then drain in-flight requests.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	return bootstrap.ShutdownHTTPServer(bootstrap.ShutdownConfig{
		Context: ctx,
		Server:  server,
		Timeout: cfg.HTTP.ShutdownTimeout,
		Logger:  logger,
	})
}

// initInfrastructure connects only the backing store the configuration asks
// for.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (redis.UniversalClient, *pgxpool.Pool, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
			RedisConfig: cfg.Redis,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		return redisClient, nil, nil

	case config.StoreBackendPostgres:
		pgPool, err := bootstrap.ConnectPostgres(ctx, bootstrap.DatabaseConfig{
			DBConfig: cfg.Postgres,
			Logger:   logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return nil, pgPool, nil

	default:
		return nil, nil, nil
	}
}
