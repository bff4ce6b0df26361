package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/internal/config"
	"github.com/Siddarth2230/qrlinks/internal/repository"
	"github.com/Siddarth2230/qrlinks/internal/service"
	"github.com/Siddarth2230/qrlinks/pkg/cache"
	"github.com/Siddarth2230/qrlinks/pkg/idgen"
)

// App holds the components shared by the HTTP server and the CLI.
type App struct {
	Config   *config.Config
	Store    repository.LinkStore
	Redis    *redis.Client
	Registry *service.Registry
}

// New connects to the configured backends and builds the registry.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.NeedsRedis() {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			a.Redis.Close()
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
	}

	store, err := openStore(ctx, cfg.Database, a.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	a.Registry = service.NewRegistry(store, newGenerator(cfg.Codes, a.Redis),
		service.WithMaxCreateAttempts(cfg.Codes.MaxAttempts),
		service.WithTargetCache(newCache(cfg.Cache, a.Redis)),
	)

	log.Info().
		Str("driver", cfg.Database.Driver).
		Str("generator", cfg.Codes.Generator).
		Str("cache", cfg.Cache.Kind).
		Msg("registry ready")
	return a, nil
}

// Close releases the store and the redis client. The redis store owns the
// shared client, so it is closed only once.
func (a *App) Close() error {
	var errs []error
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	if a.Redis != nil && a.Config.Database.Driver != "redis" {
		errs = append(errs, a.Redis.Close())
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig, rdb *redis.Client) (repository.LinkStore, error) {
	switch cfg.Driver {
	case "postgres":
		return repository.NewPostgresStore(ctx, cfg.DSN)
	case "sqlite":
		return repository.NewSQLiteStore(ctx, cfg.DSN)
	case "redis":
		return repository.NewRedisStore(rdb), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func newGenerator(cfg config.CodesConfig, rdb *redis.Client) idgen.Generator {
	if cfg.Generator == "counter" {
		return idgen.NewCounterGenerator(rdb, "")
	}
	return idgen.NewRandomGenerator(cfg.Length)
}

func newCache(cfg config.CacheConfig, rdb *redis.Client) cache.TargetCache {
	switch cfg.Kind {
	case "memory":
		return cache.NewLRUCache(cfg.Size, cfg.TTL)
	case "redis":
		return cache.NewRedisCache(rdb, cfg.TTL)
	default:
		return cache.Noop{}
	}
}
