package doctors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is a Redis read-through cache for doctor profiles.
// A nil *Cache is a valid no-op cache.
type Cache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewCache returns nil when redisClient is nil.
func NewCache(redisClient *redis.Client, ttl time.Duration) *Cache {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{redis: redisClient, ttl: ttl}
}

// generationTTL outlives any read that could still be holding a generation.
const generationTTL = 24 * time.Hour

// setIfGeneration stores the profile only if no invalidation happened since
// the caller read the generation.
var setIfGeneration = redis.NewScript(`
if (redis.call("GET", KEYS[2]) or "0") ~= ARGV[2] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[3])
return 1
`)

func (c *Cache) key(id uuid.UUID) string {
	return fmt.Sprintf("doctor:%s", id)
}

func (c *Cache) generationKey(id uuid.UUID) string {
	return fmt.Sprintf("doctor:gen:%s", id)
}

// Get returns the cached doctor, or nil on a miss.
func (c *Cache) Get(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	if c == nil {
		return nil, nil
	}
	data, err := c.redis.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("doctors: cache get: %w", err)
	}
	var d Doctor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("doctors: cache unmarshal: %w", err)
	}
	return &d, nil
}

// Generation is bumped by every Invalidate. Read it before loading a doctor
// from postgres and hand it to Set.
func (c *Cache) Generation(ctx context.Context, id uuid.UUID) (int64, error) {
	if c == nil {
		return 0, nil
	}
	gen, err := c.redis.Get(ctx, c.generationKey(id)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("doctors: cache generation: %w", err)
	}
	return gen, nil
}

// Set stores d unless the doctor was invalidated after gen was read, in which
// case d may predate the write and is dropped. It reports whether d was stored.
func (c *Cache) Set(ctx context.Context, d *Doctor, gen int64) (bool, error) {
	if c == nil || d == nil {
		return false, nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return false, fmt.Errorf("doctors: cache marshal: %w", err)
	}
	keys := []string{c.key(d.ID), c.generationKey(d.ID)}
	stored, err := setIfGeneration.Run(ctx, c.redis, keys, data, gen, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("doctors: cache set: %w", err)
	}
	return stored == 1, nil
}

// Invalidate drops the cached doctor and bumps its generation so in-flight
// reads cannot put the old profile back.
func (c *Cache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if c == nil {
		return nil
	}
	_, err := c.redis.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, c.key(id))
		p.Incr(ctx, c.generationKey(id))
		p.Expire(ctx, c.generationKey(id), generationTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("doctors: cache invalidate: %w", err)
	}
	return nil
}
