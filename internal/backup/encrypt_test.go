package backup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintext := []byte("a combined tar archive, pretend contents")

	sealed, err := encrypt("correct horse battery staple", plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, sealed)

	opened, err := decrypt("correct horse battery staple", sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestDecryptWrongPassphraseFails(t *testing.T) {
	sealed, err := encrypt("right passphrase", []byte("secret data"))
	require.NoError(t, err)

	_, err = decrypt("wrong passphrase", sealed)
	assert.Error(t, err)
}

func TestDecryptTruncatedInputFails(t *testing.T) {
	_, err := decrypt("whatever", []byte("too short"))
	assert.Error(t, err)
}

func TestEncryptProducesDistinctSaltPerCall(t *testing.T) {
	a, err := encrypt("same passphrase", []byte("same plaintext"))
	require.NoError(t, err)
	b, err := encrypt("same passphrase", []byte("same plaintext"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "salt and nonce must be freshly random each call")
}
