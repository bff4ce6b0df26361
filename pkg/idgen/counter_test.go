package idgen

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestCounterGenerator(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	gen := NewCounterGenerator(client, "")
	ctx := context.Background()

	first, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if first != "0001" {
		t.Errorf("first code = %q; want %q", first, "0001")
	}

	second, err := gen.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if second == first {
		t.Errorf("counter returned the same code twice: %q", second)
	}

	// 62^10 no longer fits in ten characters.
	mr.Set(DefaultCounterKey, "839299365868340223")
	if _, err := gen.Generate(ctx); err != ErrCounterExhausted {
		t.Errorf("Generate() past the code space error = %v; want ErrCounterExhausted", err)
	}
}

func TestCounterGenerator_RedisDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	if _, err := NewCounterGenerator(client, "").Generate(context.Background()); err == nil {
		t.Error("expected an error when Redis is unreachable")
	}
}
