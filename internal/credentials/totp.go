package credentials

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/pquerna/otp/totp"
)

// GenerateTOTPSecret creates a new 16-byte (32-hex-character) raw secret and
// its RFC 6238 base32 form — the value the client renders as a manual-entry
// code during 2FA setup. Both encode the same underlying bytes so a client
// that types the base32 form back in verifies against the stored hex form.
func GenerateTOTPSecret() (rawHex string, base32Secret string, err error) {
	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("credentials: generate totp secret: %w", err)
	}
	return hex.EncodeToString(raw), base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// hexSecretToBase32 converts the raw-hex form stored in the two_fa_secret
// row back into the base32 form the otp library's SHA-1/30s/6-digit
// implementation expects.
func hexSecretToBase32(rawHex string) (string, error) {
	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return "", fmt.Errorf("credentials: malformed totp secret: %w", err)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw), nil
}

// VerifyCurrentTOTP checks a 6-digit token against the current 30-second
// window for the given raw-hex secret.
func VerifyCurrentTOTP(token, rawHexSecret string) bool {
	b32, err := hexSecretToBase32(rawHexSecret)
	if err != nil {
		return false
	}
	return totp.Validate(token, b32)
}

// GenerateCurrentTOTP produces the token for the current window; used only
// by tests that need to compute what a genuine authenticator app would show.
func GenerateCurrentTOTP(rawHexSecret string) (string, error) {
	b32, err := hexSecretToBase32(rawHexSecret)
	if err != nil {
		return "", err
	}
	return totp.GenerateCode(b32, time.Now())
}
