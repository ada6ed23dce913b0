package irradiance

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/solar-engine/internal/model"
)

// RedisCache shares profiles between engine instances. Redis expires keys on
// its own, so an expired entry is simply a miss.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache wraps an existing client.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

// DialRedis parses a redis:// URL and verifies connectivity.
func DialRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "irradiance: parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "irradiance: ping redis")
	}
	return client, nil
}

// Get implements Cache. Redis errors are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (model.IrradianceProfile, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			zap.L().Warn("irradiance: redis get failed", zap.String("key", key), zap.Error(err))
		}
		return model.IrradianceProfile{}, false
	}

	var p model.IrradianceProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		zap.L().Warn("irradiance: corrupt cache entry", zap.String("key", key), zap.Error(err))
		return model.IrradianceProfile{}, false
	}
	return p, true
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, p model.IrradianceProfile) {
	raw, err := json.Marshal(p)
	if err != nil {
		zap.L().Warn("irradiance: encode cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err(); err != nil {
		zap.L().Warn("irradiance: redis set failed", zap.String("key", key), zap.Error(err))
	}
}
