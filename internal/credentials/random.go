package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// RandomHex returns n random bytes hex-encoded (2n characters): used for the
// 128-hex verification/reset secrets (n=64), the 16-hex backup codes (n=8),
// and the 8-hex backup-archive suffix (n=4).
func RandomHex(n int) string {
	b := make([]byte, n)
	// crypto/rand.Read only fails on an exhausted/broken entropy source,
	// which is a fatal condition for the whole process; panic rather than
	// thread an error through every call site that generates a secret.
	if _, err := rand.Read(b); err != nil {
		panic("credentials: system entropy source failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// ConstantTimeEqual compares two strings in constant time, used to compare
// the supplied invite code against the configured one without leaking
// timing information about where the mismatch occurs.
func ConstantTimeEqual(a, b string) bool {
	if len(a) != len(b) {
		// Still run a comparison so the responses for "wrong length" and
		// "wrong content" take a similar amount of time.
		subtle.ConstantTimeCompare([]byte(a), []byte(a))
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
