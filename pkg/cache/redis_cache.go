package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/pkg/metrics"
)

const (
	layerRedis = "redis"

	// versionTTL only has to outlive a single store read.
	versionTTL = 24 * time.Hour

	// noFill is handed out when the version cannot be read; it never
	// matches a stored version.
	noFill = ^uint64(0)
)

// The code is wrapped in a hash tag so both keys land in the same slot.
func targetKey(code string) string  { return "qrlink:target:{" + code + "}" }
func versionKey(code string) string { return "qrlink:target_version:{" + code + "}" }

var (
	// KEYS[1] target, KEYS[2] version. ARGV: target, expected version, ttl ms.
	fillScript = redis.NewScript(`
local v = redis.call('GET', KEYS[2])
if not v then v = '0' end
if v ~= ARGV[2] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

	// KEYS[1] target, KEYS[2] version. ARGV: version ttl ms.
	invalidateScript = redis.NewScript(`
redis.call('DEL', KEYS[1])
redis.call('INCR', KEYS[2])
redis.call('PEXPIRE', KEYS[2], ARGV[1])
return 1
`)
)

// RedisCache shares resolved targets between replicas.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, code string) (string, bool) {
	target, err := r.client.Get(ctx, targetKey(code)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("short_code", code).Msg("redis cache get failed")
		}
		metrics.CacheMisses.WithLabelValues(layerRedis).Inc()
		return "", false
	}
	metrics.CacheHits.WithLabelValues(layerRedis).Inc()
	return target, true
}

func (r *RedisCache) Version(ctx context.Context, code string) uint64 {
	v, err := r.client.Get(ctx, versionKey(code)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0
		}
		log.Warn().Err(err).Str("short_code", code).Msg("redis cache version failed")
		return noFill
	}
	return v
}

func (r *RedisCache) Set(ctx context.Context, code, target string, version uint64) {
	keys := []string{targetKey(code), versionKey(code)}
	stored, err := fillScript.Run(ctx, r.client, keys,
		target, strconv.FormatUint(version, 10), r.ttl.Milliseconds()).Int()
	if err != nil {
		log.Warn().Err(err).Str("short_code", code).Msg("redis cache set failed")
		return
	}
	if stored == 0 {
		metrics.CacheStaleFills.WithLabelValues(layerRedis).Inc()
	}
}

func (r *RedisCache) Delete(ctx context.Context, code string) {
	keys := []string{targetKey(code), versionKey(code)}
	if err := invalidateScript.Run(ctx, r.client, keys, versionTTL.Milliseconds()).Err(); err != nil {
		log.Warn().Err(err).Str("short_code", code).Msg("redis cache delete failed")
	}
}
