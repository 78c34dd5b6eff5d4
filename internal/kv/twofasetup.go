package kv

import (
	"context"
	"errors"
	"time"
)

// twoFASetupTTL matches original_source's RedisTwoFASetup (120 seconds):
// the client has two minutes between receiving the base32 secret from
// GET /setup/twofa and confirming it with a token.
const twoFASetupTTL = 120 * time.Second

// InsertTwoFASetup stashes a pending 2FA secret (raw hex) for userID while
// the client confirms it with a token.
func (c *Client) InsertTwoFASetup(ctx context.Context, userID int64, rawHexSecret string) error {
	return c.Set(ctx, twoFASetupKey(userID), rawHexSecret, twoFASetupTTL)
}

// GetTwoFASetup returns the pending secret, if any.
func (c *Client) GetTwoFASetup(ctx context.Context, userID int64) (string, bool, error) {
	v, err := c.Get(ctx, twoFASetupKey(userID))
	if errors.Is(err, ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// DeleteTwoFASetup removes the pending secret once confirmed (or abandoned).
func (c *Client) DeleteTwoFASetup(ctx context.Context, userID int64) error {
	return c.Del(ctx, twoFASetupKey(userID))
}
