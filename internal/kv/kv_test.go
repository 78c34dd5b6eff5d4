package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return &Client{rdb: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
}

func TestSessionLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	sess := Session{UserID: 42, Email: "jack@example.com"}
	require.NoError(t, c.CreateSession(ctx, "01jcx0000000000000000000", sess, SessionTTLDefault))

	got, err := c.GetSession(ctx, "01jcx0000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, sess, got)

	members, err := c.SMembers(ctx, sessionSetKey(42))
	require.NoError(t, err)
	assert.Contains(t, members, "01jcx0000000000000000000")

	require.NoError(t, c.DeleteSession(ctx, "01jcx0000000000000000000"))
	_, err = c.GetSession(ctx, "01jcx0000000000000000000")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := c.Exists(ctx, sessionSetKey(42))
	require.NoError(t, err)
	assert.False(t, exists, "empty session set should be deleted")
}

func TestDeleteAllSessions(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	sess := Session{UserID: 7, Email: "a@b.com"}
	require.NoError(t, c.CreateSession(ctx, "ulid-one", sess, SessionTTLDefault))
	require.NoError(t, c.CreateSession(ctx, "ulid-two", sess, SessionTTLDefault))

	require.NoError(t, c.DeleteAllSessions(ctx, 7))

	for _, u := range []string{"ulid-one", "ulid-two"} {
		_, err := c.GetSession(ctx, u)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	exists, err := c.Exists(ctx, sessionSetKey(7))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPendingRegistrationIdempotent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	reg := PendingRegistration{Email: "new@example.com", FullName: "New User", PasswordHash: "hash"}
	require.NoError(t, c.InsertPendingRegistration(ctx, "secret-1", reg))

	secret, ok, err := c.SecretForEmail(ctx, "new@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "secret-1", secret)

	got, ok, err := c.GetPendingRegistration(ctx, "secret-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, reg, got)

	require.NoError(t, c.DeletePendingRegistration(ctx, reg.Email, "secret-1"))
	_, ok, err = c.GetPendingRegistration(ctx, "secret-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRateLimitIPEscalation(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := int64(1); i < ipThresholdWarn; i++ {
		res, err := c.CheckIP(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.False(t, res.Blocked, "expected ok below warn threshold at n=%d", i)
	}

	res, err := c.CheckIP(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.Equal(t, 60, res.Seconds, "crossing the warn threshold sets a fresh 60s window")

	res, err = c.CheckIP(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.LessOrEqual(t, res.Seconds, 60)

	for i := ipThresholdWarn + 2; i < ipThresholdBlock; i++ {
		_, err := c.CheckIP(ctx, "1.2.3.4")
		require.NoError(t, err)
	}
	res, err = c.CheckIP(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, res.Blocked)
	assert.Equal(t, 300, res.Seconds)
}

func TestRateLimitIPAndEmailIndependent(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	for i := 0; i < ipThresholdWarn-1; i++ {
		_, err := c.CheckIP(ctx, "9.9.9.9")
		require.NoError(t, err)
	}
	res, err := c.CheckEmail(ctx, "jack@example.com")
	require.NoError(t, err)
	assert.False(t, res.Blocked, "email counter must be independent of the IP counter")
}

func TestRateLimitDelete(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CheckIP(ctx, "5.5.5.5")
	require.NoError(t, err)
	require.NoError(t, c.DeleteIPCounter(ctx, "5.5.5.5"))

	exists, err := c.Exists(ctx, rateLimitIPKey("5.5.5.5"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestTwoFASetupRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.InsertTwoFASetup(ctx, 1, "deadbeef"))
	secret, ok, err := c.GetTwoFASetup(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "deadbeef", secret)

	require.NoError(t, c.DeleteTwoFASetup(ctx, 1))
	_, ok, err = c.GetTwoFASetup(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMealsCacheInvalidation(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SetMealsCache(ctx, AudienceBoth, `{"date_meals":[]}`, "hash-both"))
	require.NoError(t, c.SetMealsCache(ctx, AudienceJack, `{"date_meals":[]}`, "hash-jack"))

	hash, ok, err := c.GetMealsCacheHash(ctx, AudienceBoth)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hash-both", hash)

	require.NoError(t, c.InvalidateMealsCache(ctx))

	for _, key := range AllCacheKeys() {
		exists, err := c.Exists(ctx, key)
		require.NoError(t, err)
		assert.False(t, exists, "key %s should be gone after invalidation", key)
	}
}

func TestIncrCreatesKeyWithoutTTLUntilCallerExpires(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	v, created, err := c.Incr(ctx, "counter:x")
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
	assert.True(t, created)

	v, created, err = c.Incr(ctx, "counter:x")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.False(t, created)
}

func TestExpireAndTTL(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Expire(ctx, "k", 5*time.Second))
	ttl, err := c.TTL(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ttl > 0 && ttl <= 5*time.Second)
}
