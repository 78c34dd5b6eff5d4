package credentials

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2 tuning per spec §4.C. The source's "t" parameter is the number of
// Argon2 passes; spec mandates distinct values for test vs release builds
// since t=190 would make the test suite glacially slow.
const (
	argonMemoryKiB = 4096
	argonThreads   = 1
	argonKeyLen    = 32
	argonSaltLen   = 16

	ArgonPassesTest    = 1
	ArgonPassesRelease = 190
)

// Hasher wraps the Argon2id tuning so callers don't have to thread the pass
// count through every call site; production wiring picks ArgonPassesRelease,
// tests pick ArgonPassesTest.
type Hasher struct {
	passes uint32
}

func NewHasher(passes uint32) *Hasher {
	return &Hasher{passes: passes}
}

// Hash produces a self-describing Argon2id hash string of the form
// `$argon2id$v=19$m=...,t=...,p=...$salt$hash`, the conventional PHC format.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("credentials: generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.passes, argonMemoryKiB, argonThreads, argonKeyLen)
	encoded := fmt.Sprintf(
		"$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemoryKiB, h.passes, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

// Verify reports whether password matches the given encoded hash. Per spec
// §4.C it returns (false, nil) on mismatch and only errors for a malformed
// hash string — never for "wrong password".
func Verify(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("credentials: malformed hash")
	}
	var memory, passes uint32
	var threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &passes, &threads); err != nil {
		return false, fmt.Errorf("credentials: malformed hash params: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("credentials: malformed hash salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("credentials: malformed hash digest: %w", err)
	}
	got := argon2.IDKey([]byte(password), salt, passes, memory, uint8(threads), uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
