package kv

import (
	"context"
	"errors"
)

// GetMealsCache returns the raw JSON payload stored for audience, if present.
func (c *Client) GetMealsCache(ctx context.Context, audience CacheAudience) (string, bool, error) {
	v, err := c.Get(ctx, cacheMealsKey(audience))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SetMealsCache stores the raw JSON payload and its BLAKE3 hash for
// audience. Neither key carries a TTL: the cache lives until the next
// mutation invalidates it.
func (c *Client) SetMealsCache(ctx context.Context, audience CacheAudience, payload, hash string) error {
	if err := c.Set(ctx, cacheMealsKey(audience), payload, 0); err != nil {
		return err
	}
	return c.Set(ctx, cacheMealsHashKey(audience), hash, 0)
}

// GetMealsCacheHash returns just the stored hash, letting GET /hash avoid
// deserialising the full payload.
func (c *Client) GetMealsCacheHash(ctx context.Context, audience CacheAudience) (string, bool, error) {
	v, err := c.Get(ctx, cacheMealsHashKey(audience))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// InvalidateMealsCache deletes all four cache keys in a single multi-key
// call, per spec §4.G's invalidation rule.
func (c *Client) InvalidateMealsCache(ctx context.Context) error {
	return c.Del(ctx, AllCacheKeys()...)
}
