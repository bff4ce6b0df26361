package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/Siddarth2230/qrlinks/internal/config"
	"github.com/Siddarth2230/qrlinks/internal/repository"
	"github.com/Siddarth2230/qrlinks/internal/service"
	"github.com/Siddarth2230/qrlinks/pkg/cache"
)

func baseConfig() *config.Config {
	return &config.Config{
		Codes: config.CodesConfig{Length: 8, MaxAttempts: 5, Generator: "random"},
		Cache: config.CacheConfig{Kind: "memory", Size: 16, TTL: time.Minute},
	}
}

func TestNew_SQLite(t *testing.T) {
	cfg := baseConfig()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "links.db")}

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*repository.SQLStore); !ok {
		t.Errorf("store = %T, want *repository.SQLStore", a.Store)
	}
	if a.Redis != nil {
		t.Error("redis client should not be created")
	}
	link, err := a.Registry.Create(context.Background(), service.CreateParams{Target: "https://a.example"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(link.Code) != 8 {
		t.Errorf("code length = %d", len(link.Code))
	}
}

func TestNew_RedisEverything(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := baseConfig()
	cfg.Database = config.DatabaseConfig{Driver: "redis"}
	cfg.Redis = config.RedisConfig{Addr: mr.Addr()}
	cfg.Codes.Generator = "counter"
	cfg.Cache.Kind = "redis"

	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	if _, ok := a.Store.(*repository.RedisStore); !ok {
		t.Errorf("store = %T, want *repository.RedisStore", a.Store)
	}
	link, err := a.Registry.Create(context.Background(), service.CreateParams{Target: "https://a.example"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if link.Code != "0001" {
		t.Errorf("first counter code = %q, want 0001", link.Code)
	}
	target, err := a.Registry.LookupTarget(context.Background(), link.Code)
	if err != nil || target != "https://a.example" {
		t.Errorf("LookupTarget = %q, %v", target, err)
	}
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := baseConfig()
	cfg.Database = config.DatabaseConfig{Driver: "redis"}
	cfg.Redis = config.RedisConfig{Addr: addr}
	if _, err := New(context.Background(), cfg); err == nil {
		t.Error("expected error when redis is unreachable")
	}
}

func TestNewCache(t *testing.T) {
	if _, ok := newCache(config.CacheConfig{Kind: "none"}, nil).(cache.Noop); !ok {
		t.Error("kind none should be Noop")
	}
	if _, ok := newCache(config.CacheConfig{Kind: "memory", Size: 4}, nil).(*cache.LRUCache); !ok {
		t.Error("kind memory should be LRUCache")
	}
}
