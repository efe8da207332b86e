package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/jkcsoftwaresllp/indiabills-client-sub002/config"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/adapters/gateway"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/adapters/memstore"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/adapters/pgstore"
	redisadapter "github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/adapters/redis"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/ports"
	"github.com/jkcsoftwaresllp/indiabills-client-sub002/internal/service"
)

// StoreDeps carries the connections a store backend may need. Only the
// connection matching the configured backend has to be non-nil.
type StoreDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient
	PgPool      *pgxpool.Pool
	Logger      *slog.Logger
}

// BuildStore selects the configured state store backend.
//
//nolint:ireturn // the factory interface is the point: callers must not care which backend serves them.
func BuildStore(ctx context.Context, deps StoreDeps) (ports.RepositoryFactory, error) {
	switch deps.Config.Store.Backend {
	case config.StoreBackendRedis:
		if deps.RedisClient == nil {
			return nil, fmt.Errorf("store backend %q requires a redis connection", deps.Config.Store.Backend)
		}
		return redisadapter.NewStoreWithPrefix(deps.RedisClient, deps.Config.Store.KeyPrefix), nil

	case config.StoreBackendPostgres:
		if deps.PgPool == nil {
			return nil, fmt.Errorf("store backend %q requires a postgres connection", deps.Config.Store.Backend)
		}
		store := pgstore.NewStore(deps.PgPool)
		if deps.Config.Postgres.EnsureSchemaOnStart {
			if err := store.EnsureSchema(ctx); err != nil {
				return nil, fmt.Errorf("ensure auth state schema: %w", err)
			}
		}
		return store, nil

	case config.StoreBackendMemory:
		if deps.Logger != nil {
			deps.Logger.Warn("using in-memory auth state store; state is not shared across replicas")
		}
		return memstore.NewStore(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", deps.Config.Store.Backend)
	}
}

// AuthServices bundles the constructed auth flows for the HTTP layer.
type AuthServices struct {
	Login     *service.LoginFlow
	Switcher  *service.SwitchFlow
	Logout    *service.LogoutFlow
	OrgCreate *service.OrgCreateFlow
	Validator *service.SessionValidator
}

// BuildAuthServices wires the backend gateway client and the auth flows.
func BuildAuthServices(cfg *config.AppConfig, logger *slog.Logger) (*AuthServices, error) {
	baseURL, err := url.Parse(cfg.Gateway.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway base url: %w", err)
	}

	gw := gateway.NewClient(*baseURL,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.Gateway.Timeout}),
		gateway.WithLogger(logger),
		gateway.WithRetries(cfg.Gateway.ReadRetries),
	)

	return &AuthServices{
		Login:     service.NewLoginFlow(service.LoginFlowOptions{Gateway: gw, Logger: logger}),
		Switcher:  service.NewSwitchFlow(service.SwitchFlowOptions{Gateway: gw, Logger: logger}),
		Logout:    service.NewLogoutFlow(service.LogoutFlowOptions{Gateway: gw, Logger: logger}),
		OrgCreate: service.NewOrgCreateFlow(service.OrgCreateFlowOptions{Gateway: gw, Logger: logger}),
		Validator: service.NewSessionValidator(service.SessionValidatorOptions{Gateway: gw, Logger: logger}),
	}, nil
}
