// Package kv wraps a Redis connection with the module's non-durable state:
// pending registrations, sessions, rate counters, 2FA-setup temporaries, and
// the meal/feed caches. Everything here is typed and scoped behind small
// methods rather than handing callers a raw *redis.Client, the same shape as
// the teacher's internal/cache package.
package kv

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mrjackwills/mealpedant/internal/logger"
)

// Config mirrors the teacher's cache.Config connection fields; it has no
// switch to disable the KV layer, since sessions and rate limiting are
// load-bearing, not optional.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Client wraps *redis.Client with the connection-pool tuning the teacher
// uses (internal/cache/cache.go), since Redis here is in the critical path
// of every authenticated request (session lookup, rate limiting).
type Client struct {
	rdb *redis.Client
}

func NewClient(cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:        cfg.Password,
		DB:              cfg.DB,
		PoolSize:        25,
		MinIdleConns:    5,
		MaxIdleConns:    10,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 1 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("kv: connect: %w", err)
	}

	logger.KV().Info().Str("addr", rdb.Options().Addr).Msg("kv client connected")
	return &Client{rdb: rdb}, nil
}

// NewClientForTesting wraps an already-constructed *redis.Client (e.g.
// pointed at a miniredis instance), mirroring db.NewDatabaseForTesting.
func NewClientForTesting(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// Raw exposes the underlying client for the one or two call sites (meal
// cache multi-key delete, admin rate-limit deletion) that need primitives
// this wrapper does not name individually.
func (c *Client) Raw() *redis.Client { return c.rdb }

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("kv: get %s: %w", key, err)
	}
	return v, nil
}

func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv: set %s: %w", key, err)
	}
	return nil
}

func (c *Client) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("kv: del %v: %w", keys, err)
	}
	return nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("kv: exists %s: %w", key, err)
	}
	return n > 0, nil
}

func (c *Client) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("kv: expire %s: %w", key, err)
	}
	return nil
}

func (c *Client) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.rdb.TTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: ttl %s: %w", key, err)
	}
	return d, nil
}

// Incr increments key by one, creating it at 1 with no TTL if absent, and
// reports whether the key did not exist prior to this call (the rate
// limiter uses that to decide whether to stamp a fresh 60s TTL).
func (c *Client) Incr(ctx context.Context, key string) (val int64, created bool, err error) {
	existedBefore, err := c.Exists(ctx, key)
	if err != nil {
		return 0, false, err
	}
	v, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, false, fmt.Errorf("kv: incr %s: %w", key, err)
	}
	return v, !existedBefore, nil
}

// SAdd adds members to a Redis set, used for the per-user session index.
func (c *Client) SAdd(ctx context.Context, key string, members ...string) error {
	if err := c.rdb.SAdd(ctx, key, toAny(members)...).Err(); err != nil {
		return fmt.Errorf("kv: sadd %s: %w", key, err)
	}
	return nil
}

func (c *Client) SRem(ctx context.Context, key string, members ...string) error {
	if err := c.rdb.SRem(ctx, key, toAny(members)...).Err(); err != nil {
		return fmt.Errorf("kv: srem %s: %w", key, err)
	}
	return nil
}

func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	v, err := c.rdb.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("kv: smembers %s: %w", key, err)
	}
	return v, nil
}

func (c *Client) SCard(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.SCard(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("kv: scard %s: %w", key, err)
	}
	return n, nil
}

// Keys performs a non-blocking SCAN for the given pattern, used only by the
// registration-secret lookup scenario and admin diagnostics, never on a hot
// request path.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	var out []string
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("kv: scan %s: %w", pattern, err)
	}
	return out, nil
}

func toAny(s []string) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
