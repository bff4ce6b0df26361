package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"

	"github.com/Siddarth2230/qrlinks/internal/models"
)

const (
	redisLinkPrefix  = "qrlink:link:"
	redisEventPrefix = "qrlink:event:"
	redisIDKey       = "qrlink:link_id"
)

// Every link is a hash at qrlink:link:{code}. Event-bound links are also
// members of the sorted set qrlink:event:{ref}, scored by creation time.
// Scripts only touch keys passed in KEYS. The event scripts span several
// link keys, so the store expects a single Redis node rather than a cluster.
var (
	insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
local id = redis.call('INCR', KEYS[2])
redis.call('HSET', KEYS[1], 'id', id, unpack(ARGV, 3))
if #KEYS > 2 then
	redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
end
return id
`)

	incrementScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HINCRBY', KEYS[1], 'visits', 1)
redis.call('HSET', KEYS[1], 'last_resolved_at', ARGV[1])
return redis.call('HGETALL', KEYS[1])
`)

	updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HSET', KEYS[1], 'target', ARGV[1], 'updated_at', ARGV[2])
return redis.call('HGETALL', KEYS[1])
`)

	// KEYS[1] link, KEYS[2] event set when the link is event-bound.
	// ARGV: code, expected event_ref. Returns -1 when event_ref differs
	// from what the caller read.
	deleteScript = redis.NewScript(`
local ref = redis.call('HGET', KEYS[1], 'event_ref')
if not ref then
	return 0
end
if ref ~= ARGV[2] then
	return -1
end
redis.call('DEL', KEYS[1])
if #KEYS > 1 then
	redis.call('ZREM', KEYS[2], ARGV[1])
end
return 1
`)

	// KEYS[1] event set, KEYS[2..n] link hashes. ARGV[i] is the code for
	// KEYS[i+1]. Only codes still in the set are removed.
	deleteEventScript = redis.NewScript(`
local deleted = {}
for i, code in ipairs(ARGV) do
	if redis.call('ZREM', KEYS[1], code) == 1 and redis.call('DEL', KEYS[i + 1]) == 1 then
		table.insert(deleted, code)
	end
end
return deleted
`)
)

// RedisStore keeps links in Redis. All mutations run as Lua scripts so
// each one is applied atomically.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func linkKey(code string) string      { return redisLinkPrefix + code }
func eventKey(eventRef string) string { return redisEventPrefix + eventRef }

func (s *RedisStore) Insert(ctx context.Context, link *models.ShortLink) error {
	keys := []string{linkKey(link.Code), redisIDKey}
	eventRef := ""
	if link.EventRef != nil {
		eventRef = *link.EventRef
		keys = append(keys, eventKey(eventRef))
	}
	createdBy := ""
	if link.CreatedBy != nil {
		createdBy = *link.CreatedBy
	}

	args := []interface{}{
		link.Code, link.CreatedAt.UnixMicro(),
		"code", link.Code,
		"target", link.Target,
		"visits", 0,
		"created_by", createdBy,
		"category", string(link.Category),
		"event_ref", eventRef,
		"created_at", formatTime(link.CreatedAt),
		"updated_at", formatTime(link.UpdatedAt),
		"last_resolved_at", "",
	}

	id, err := insertScript.Run(ctx, s.client, keys, args...).Int64()
	if err != nil {
		log.Error().Err(err).Str("short_code", link.Code).Msg("redis insert failed")
		return fmt.Errorf("insert short link: %w", err)
	}
	if id == 0 {
		return ErrCodeTaken
	}
	link.ID = id
	link.Visits = 0
	return nil
}

func (s *RedisStore) FindByCode(ctx context.Context, code string) (*models.ShortLink, error) {
	fields, err := s.client.HGetAll(ctx, linkKey(code)).Result()
	if err != nil {
		return nil, fmt.Errorf("find by code: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	return linkFromHash(fields)
}

func (s *RedisStore) FindByEvent(ctx context.Context, eventRef string) (*models.ShortLink, error) {
	codes, err := s.client.ZRange(ctx, eventKey(eventRef), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("find by event: %w", err)
	}
	if len(codes) == 0 {
		return nil, ErrNotFound
	}
	return s.FindByCode(ctx, codes[0])
}

func (s *RedisStore) UpdateTarget(ctx context.Context, code, target string, at time.Time) (*models.ShortLink, error) {
	res, err := updateScript.Run(ctx, s.client, []string{linkKey(code)}, target, formatTime(at)).Result()
	return linkFromScript("update target", res, err)
}

func (s *RedisStore) IncrementVisits(ctx context.Context, code string, at time.Time) (*models.ShortLink, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{linkKey(code)}, formatTime(at)).Result()
	return linkFromScript("increment visits", res, err)
}

// maxScriptRetries bounds the read-then-script loops below when the data
// they read changes before the script runs.
const maxScriptRetries = 5

func (s *RedisStore) Delete(ctx context.Context, code string) error {
	for attempt := 0; attempt < maxScriptRetries; attempt++ {
		ref, err := s.client.HGet(ctx, linkKey(code), "event_ref").Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("delete short link: %w", err)
		}

		keys := []string{linkKey(code)}
		if ref != "" {
			keys = append(keys, eventKey(ref))
		}
		n, err := deleteScript.Run(ctx, s.client, keys, code, ref).Int64()
		if err != nil {
			log.Error().Err(err).Str("short_code", code).Msg("redis delete failed")
			return fmt.Errorf("delete short link: %w", err)
		}
		switch n {
		case 0:
			return ErrNotFound
		case 1:
			return nil
		}
	}
	return fmt.Errorf("delete short link %s: event binding kept changing", code)
}

// DeleteByEvent removes the links in the event set in rounds until the set
// is empty, so links added while a round runs are removed by the next one.
func (s *RedisStore) DeleteByEvent(ctx context.Context, eventRef string) ([]string, error) {
	setKey := eventKey(eventRef)
	deleted := []string{}
	for attempt := 0; attempt < maxScriptRetries; attempt++ {
		codes, err := s.client.ZRange(ctx, setKey, 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("delete event links: %w", err)
		}
		if len(codes) == 0 {
			return deleted, nil
		}

		keys := make([]string, 0, len(codes)+1)
		args := make([]interface{}, 0, len(codes))
		keys = append(keys, setKey)
		for _, code := range codes {
			keys = append(keys, linkKey(code))
			args = append(args, code)
		}
		removed, err := deleteEventScript.Run(ctx, s.client, keys, args...).StringSlice()
		if err != nil && !errors.Is(err, redis.Nil) {
			log.Error().Err(err).Str("event_ref", eventRef).Msg("redis delete event links failed")
			return nil, fmt.Errorf("delete event links: %w", err)
		}
		deleted = append(deleted, removed...)
	}
	return deleted, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func linkFromScript(op string, res interface{}, err error) (*models.ShortLink, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("op", op).Msg("redis script failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	flat, ok := res.([]interface{})
	if !ok || len(flat)%2 != 0 {
		return nil, fmt.Errorf("%s: unexpected reply %T", op, res)
	}
	fields := make(map[string]string, len(flat)/2)
	for i := 0; i < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}
	return linkFromHash(fields)
}

func linkFromHash(fields map[string]string) (*models.ShortLink, error) {
	link := &models.ShortLink{
		Code:     fields["code"],
		Target:   fields["target"],
		Category: models.Category(fields["category"]),
	}

	var err error
	if link.ID, err = strconv.ParseInt(fields["id"], 10, 64); err != nil {
		return nil, fmt.Errorf("decode id: %w", err)
	}
	if link.Visits, err = strconv.ParseInt(fields["visits"], 10, 64); err != nil {
		return nil, fmt.Errorf("decode visits: %w", err)
	}
	if v := fields["created_by"]; v != "" {
		link.CreatedBy = &v
	}
	if v := fields["event_ref"]; v != "" {
		link.EventRef = &v
	}
	if link.CreatedAt, err = parseTime(fields["created_at"]); err != nil {
		return nil, err
	}
	if link.UpdatedAt, err = parseTime(fields["updated_at"]); err != nil {
		return nil, err
	}
	if v := fields["last_resolved_at"]; v != "" {
		t, err := parseTime(v)
		if err != nil {
			return nil, err
		}
		link.LastResolvedAt = &t
	}
	return link, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode time %q: %w", s, err)
	}
	return t, nil
}
