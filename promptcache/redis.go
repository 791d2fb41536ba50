package promptcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"thumbgen/logging"
)

const defaultKeyPrefix = "thumbgen:prompt:"

// Redis is a Cache shared between processes. Entry expiry is delegated to
// Redis TTLs; insertion order lives in a list so the oldest entry can be
// evicted once MaxEntries is reached.
//
// Redis errors never fail a generation run: reads degrade to a miss and
// writes are logged and dropped.
type Redis struct {
	client     redis.UniversalClient
	prefix     string
	maxEntries int
	ttl        time.Duration
	logger     *logging.Logger
}

// NewRedis wraps an existing client. Non-positive limits fall back to the defaults.
func NewRedis(client redis.UniversalClient, maxEntries int, ttl time.Duration, logger *logging.Logger) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("promptcache: redis client cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client:     client,
		prefix:     defaultKeyPrefix,
		maxEntries: maxEntries,
		ttl:        ttl,
		logger:     logger.Named("promptcache"),
	}, nil
}

// NewRedisClient builds a client from a redis:// URL, falling back to
// treating the value as a bare host:port.
func NewRedisClient(url string) *redis.Client {
	opts, err := redis.ParseURL(url)
	if err != nil {
		opts = &redis.Options{Addr: url}
	}
	return redis.NewClient(opts)
}

// Ping verifies connectivity with a short timeout.
func Ping(ctx context.Context, client redis.UniversalClient) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := client.Ping(timeoutCtx).Err(); err != nil {
		return fmt.Errorf("promptcache: ping redis: %w", err)
	}
	return nil
}

// Lookup implements Cache. Keys whose values have expired are pruned from the
// order list first.
func (r *Redis) Lookup(ctx context.Context, prompt string) (string, bool) {
	r.prune(ctx)

	value, err := r.client.Get(ctx, r.entryKey(Key(prompt))).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("prompt cache read failed", zap.Error(err))
		}
		return "", false
	}
	return value, true
}

// storeScript refreshes an existing entry in place, or evicts from the head
// of the order list until there is room and appends the new key. Running it
// as one script keeps the size bound under concurrent writers.
//
// KEYS: order list, entry. ARGV: hashed key, value, ttl ms, max entries,
// entry key prefix.
var storeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
	redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
	return 0
end
redis.call('LREM', KEYS[1], 0, ARGV[1])
local max = tonumber(ARGV[4])
while redis.call('LLEN', KEYS[1]) >= max do
	local oldest = redis.call('LPOP', KEYS[1])
	if not oldest then
		break
	end
	redis.call('DEL', ARGV[5] .. oldest)
end
redis.call('RPUSH', KEYS[1], ARGV[1])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// Store implements Cache.
func (r *Redis) Store(ctx context.Context, prompt, value string) {
	key := Key(prompt)
	err := storeScript.Run(ctx, r.client,
		[]string{r.orderKey(), r.entryKey(key)},
		key, value, r.ttl.Milliseconds(), r.maxEntries, r.prefix,
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("prompt cache write failed", zap.Error(err))
	}
}

// Clear implements Cache.
func (r *Redis) Clear(ctx context.Context) error {
	keys, err := r.client.LRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("promptcache: clear: %w", err)
	}
	toDelete := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		toDelete = append(toDelete, r.entryKey(k))
	}
	toDelete = append(toDelete, r.orderKey())
	if err := r.client.Del(ctx, toDelete...).Err(); err != nil {
		return fmt.Errorf("promptcache: clear: %w", err)
	}
	return nil
}

// Stats implements Cache.
func (r *Redis) Stats(ctx context.Context) Stats {
	r.prune(ctx)

	size, err := r.client.LLen(ctx, r.orderKey()).Result()
	if err != nil {
		r.logger.Warn("prompt cache stats failed", zap.Error(err))
		size = 0
	}
	return Stats{
		Size:       int(size),
		MaxSize:    r.maxEntries,
		TTLMinutes: int(r.ttl / time.Minute),
	}
}

func (r *Redis) prune(ctx context.Context) {
	keys, err := r.client.LRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil || len(keys) == 0 {
		return
	}

	cmds := make([]*redis.IntCmd, len(keys))
	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, k := range keys {
			cmds[i] = pipe.Exists(ctx, r.entryKey(k))
		}
		return nil
	})
	if err != nil {
		return
	}

	for i, cmd := range cmds {
		if cmd.Val() == 0 {
			r.client.LRem(ctx, r.orderKey(), 0, keys[i])
		}
	}
}

func (r *Redis) entryKey(key string) string { return r.prefix + key }

func (r *Redis) orderKey() string { return r.prefix + "order" }
