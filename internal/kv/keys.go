package kv

import "fmt"

// Key namespaces, matching spec.md's literal formats exactly (scenario 1's
// scan depends on the verify_secret prefix being stable).

func sessionKey(ulid string) string {
	return fmt.Sprintf("session:%s", ulid)
}

func sessionSetKey(userID int64) string {
	return fmt.Sprintf("session_set:user:%d", userID)
}

func rateLimitIPKey(ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s", ip)
}

func rateLimitEmailKey(email string) string {
	return fmt.Sprintf("ratelimit:email:%s", email)
}

func verifyEmailKey(email string) string {
	return fmt.Sprintf("verify_email:%s", email)
}

func verifySecretKey(secret string) string {
	return fmt.Sprintf("verify_secret:%s", secret)
}

func twoFASetupKey(userID int64) string {
	return fmt.Sprintf("two_fa_setup:%d", userID)
}

// CacheAudience selects which denormalised meal view a cache entry holds.
type CacheAudience string

const (
	AudienceBoth CacheAudience = "both"
	AudienceJack CacheAudience = "jack"
)

func cacheMealsKey(audience CacheAudience) string {
	return fmt.Sprintf("cache:%s_meals", audience)
}

func cacheMealsHashKey(audience CacheAudience) string {
	return fmt.Sprintf("cache:%s_meals_hash", audience)
}

// AllCacheKeys returns every key the meal cache ever writes, for the
// invalidation path that deletes all four in one multi-key call.
func AllCacheKeys() []string {
	return []string{
		cacheMealsKey(AudienceBoth),
		cacheMealsHashKey(AudienceBoth),
		cacheMealsKey(AudienceJack),
		cacheMealsHashKey(AudienceJack),
	}
}
