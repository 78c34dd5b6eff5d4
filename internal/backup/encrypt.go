// Package backup implements spec §4.J's scheduler: minute-aligned cron
// triggers, tar/gzip archive assembly, scrypt+chacha20poly1305 symmetric
// encryption, and the retention sweep. Grounded on the teacher's
// internal/plugins/scheduler.go for the cron wiring; encryption and archive
// assembly have no teacher analogue and are built fresh from the pack's
// x/crypto dependency.
package backup

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	saltLen      = 16
	scryptKeyLen = chacha20poly1305.KeySize
)

// encrypt derives a key from passphrase with scrypt and seals plaintext
// with ChaCha20-Poly1305, returning salt || nonce || ciphertext, the layout
// decrypt expects.
func encrypt(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("backup: generate salt: %w", err)
	}
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("backup: derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("backup: build aead: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("backup: generate nonce: %w", err)
	}

	out := make([]byte, 0, saltLen+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return out, nil
}

// decrypt reverses encrypt; used only by tests, never by the scheduler
// itself.
func decrypt(passphrase string, sealed []byte) ([]byte, error) {
	if len(sealed) < saltLen {
		return nil, io.ErrUnexpectedEOF
	}
	salt, rest := sealed[:saltLen], sealed[saltLen:]
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("backup: derive key: %w", err)
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("backup: build aead: %w", err)
	}
	if len(rest) < aead.NonceSize() {
		return nil, io.ErrUnexpectedEOF
	}
	nonce, ciphertext := rest[:aead.NonceSize()], rest[aead.NonceSize():]
	return aead.Open(nil, nonce, ciphertext, nil)
}
