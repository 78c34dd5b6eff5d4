package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const pendingRegistrationTTL = 1 * time.Hour

// PendingRegistration is the record stored under verify_secret:<secret>
// while an account awaits email verification, mirroring the original
// redis_new_user.rs two-key scheme exactly.
type PendingRegistration struct {
	Email        string `json:"email"`
	FullName     string `json:"full_name"`
	PasswordHash string `json:"password_hash"`
	IPID         int64  `json:"ip_id"`
	UserAgentID  int64  `json:"user_agent_id"`
}

// InsertPendingRegistration writes both keys (verify_email:<email> and
// verify_secret:<secret>) with a one-hour TTL. Callers are responsible for
// the idempotency check (look up verify_email:<email> first) described in
// spec §4.F Register step 4 — this method always writes unconditionally.
func (c *Client) InsertPendingRegistration(ctx context.Context, secret string, reg PendingRegistration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("kv: marshal pending registration: %w", err)
	}
	if err := c.Set(ctx, verifyEmailKey(reg.Email), secret, pendingRegistrationTTL); err != nil {
		return err
	}
	if err := c.Set(ctx, verifySecretKey(secret), string(payload), pendingRegistrationTTL); err != nil {
		return err
	}
	return nil
}

// SecretForEmail returns the existing pending secret for email, if any —
// used to make a second Register call for the same address idempotent.
func (c *Client) SecretForEmail(ctx context.Context, email string) (string, bool, error) {
	secret, err := c.Get(ctx, verifyEmailKey(email))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return secret, true, nil
}

// GetPendingRegistration fetches the record stored under verify_secret:<secret>.
func (c *Client) GetPendingRegistration(ctx context.Context, secret string) (PendingRegistration, bool, error) {
	raw, err := c.Get(ctx, verifySecretKey(secret))
	if errors.Is(err, ErrNotFound) {
		return PendingRegistration{}, false, nil
	}
	if err != nil {
		return PendingRegistration{}, false, err
	}
	var reg PendingRegistration
	if err := json.Unmarshal([]byte(raw), &reg); err != nil {
		return PendingRegistration{}, false, fmt.Errorf("kv: unmarshal pending registration: %w", err)
	}
	return reg, true, nil
}

// DeletePendingRegistration removes both keys once verification completes.
func (c *Client) DeletePendingRegistration(ctx context.Context, email, secret string) error {
	return c.Del(ctx, verifyEmailKey(email), verifySecretKey(secret))
}

// ScanPendingSecrets lists every verify_secret:* key (spec scenario 1's
// "pull the secret from the KV scan"); no request handler or test in this
// module calls it.
func (c *Client) ScanPendingSecrets(ctx context.Context) ([]string, error) {
	keys, err := c.Keys(ctx, "verify_secret:*")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k[len("verify_secret:"):])
	}
	return out, nil
}
