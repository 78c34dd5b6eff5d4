package kv

import (
	"context"
	"time"
)

// Rate limit thresholds. The source (original_source/src/database/redis/
// redis_rate_limit.rs) applies the same 90/180 thresholds to both IP- and
// email-scoped counters; spec.md explicitly describes identity-scoped
// limits as ~5.5x more generous (500/1000) and calls out that the gap is
// intentional rather than a porting mistake, so this implementation keeps
// the two threshold sets distinct rather than silently unifying them (see
// DESIGN.md Open Question 4).
const (
	ipThresholdWarn  = 90
	ipThresholdBlock = 180

	identityThresholdWarn  = 500
	identityThresholdBlock = 1000
)

// RateLimitResult is returned by Check: either Ok, or Blocked with the
// number of seconds the caller must wait.
type RateLimitResult struct {
	Blocked bool
	Seconds int
}

// CheckIP applies the escalation algorithm (spec §4.D) to the IP-scoped
// counter, used when no live session resolves the caller's identity.
func (c *Client) CheckIP(ctx context.Context, ip string) (RateLimitResult, error) {
	return c.checkCounter(ctx, rateLimitIPKey(ip), ipThresholdWarn, ipThresholdBlock)
}

// CheckEmail applies the escalation algorithm to the identity-scoped
// counter, used once a live session resolves the caller's email.
func (c *Client) CheckEmail(ctx context.Context, email string) (RateLimitResult, error) {
	return c.checkCounter(ctx, rateLimitEmailKey(email), identityThresholdWarn, identityThresholdBlock)
}

// checkCounter implements spec §4.D's four-step algorithm against key,
// parameterised over the warn (n==threshold) and block (n>=threshold*2)
// thresholds for the caller's scope.
func (c *Client) checkCounter(ctx context.Context, key string, warn, block int64) (RateLimitResult, error) {
	n, created, err := c.Incr(ctx, key)
	if err != nil {
		return RateLimitResult{}, err
	}

	switch {
	case n >= block:
		if err := c.Expire(ctx, key, 300*time.Second); err != nil {
			return RateLimitResult{}, err
		}
		return RateLimitResult{Blocked: true, Seconds: 300}, nil

	case n >= warn && n < block:
		ttl, err := c.TTL(ctx, key)
		if err != nil {
			return RateLimitResult{}, err
		}
		if n == warn {
			if err := c.Expire(ctx, key, 60*time.Second); err != nil {
				return RateLimitResult{}, err
			}
			return RateLimitResult{Blocked: true, Seconds: 60}, nil
		}
		return RateLimitResult{Blocked: true, Seconds: int(ttl.Seconds())}, nil

	default:
		if created {
			if err := c.Expire(ctx, key, 60*time.Second); err != nil {
				return RateLimitResult{}, err
			}
		}
		return RateLimitResult{Blocked: false}, nil
	}
}

// DeleteIPCounter and DeleteEmailCounter back the admin "drop a rate
// counter" operation (spec §4.D, "admins may drop a counter by either IP or
// email").
func (c *Client) DeleteIPCounter(ctx context.Context, ip string) error {
	return c.Del(ctx, rateLimitIPKey(ip))
}

func (c *Client) DeleteEmailCounter(ctx context.Context, email string) error {
	return c.Del(ctx, rateLimitEmailKey(email))
}
