package idgen

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultCounterKey is the Redis key holding the sequence.
const DefaultCounterKey = "qrlink:code_counter"

// ErrCounterExhausted is returned once the sequence no longer fits in MaxLength characters.
var ErrCounterExhausted = errors.New("code counter exhausted")

// CounterGenerator maps a Redis sequence onto base62 codes. Codes are
// unique as long as nothing else writes into the code space, but the
// registry still inserts them against its unique constraint.
type CounterGenerator struct {
	redis *redis.Client
	key   string
}

func NewCounterGenerator(redisClient *redis.Client, key string) *CounterGenerator {
	if key == "" {
		key = DefaultCounterKey
	}
	return &CounterGenerator{redis: redisClient, key: key}
}

// Generate returns the next code using Redis INCR (atomic counter).
func (g *CounterGenerator) Generate(ctx context.Context) (string, error) {
	val, err := g.redis.Incr(ctx, g.key).Result()
	if err != nil {
		return "", fmt.Errorf("failed to increment counter: %w", err)
	}

	code := EncodePadded(uint64(val), MinLength)
	if len(code) > MaxLength {
		return "", ErrCounterExhausted
	}
	return code, nil
}
