package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	SessionTTLDefault  = 6 * time.Hour
	SessionTTLRemember = 6 * 4 * 7 * 24 * time.Hour
)

// Session is the value stored under session:<ulid>, per spec §4.E.
type Session struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// CreateSession writes session:<ulid> -> {user_id, email}, adds the ulid to
// the per-user session set, and applies ttl to both keys.
func (c *Client) CreateSession(ctx context.Context, ulid string, sess Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("kv: marshal session: %w", err)
	}
	if err := c.Set(ctx, sessionKey(ulid), string(payload), ttl); err != nil {
		return err
	}
	setKey := sessionSetKey(sess.UserID)
	if err := c.SAdd(ctx, setKey, ulid); err != nil {
		return err
	}
	if err := c.Expire(ctx, setKey, ttl); err != nil {
		return err
	}
	return nil
}

// GetSession looks up session:<ulid>. Returning ErrNotFound signals the
// caller (the session middleware in internal/httpapi and
// internal/staticserve) to treat this as "no session". The case the spec
// calls out, where the session exists in KV but the user backing it has
// since been removed, is detected by httpapi's isAdmin via its own DB
// lookup, which then calls DeleteSession to self-heal.
func (c *Client) GetSession(ctx context.Context, ulid string) (Session, error) {
	raw, err := c.Get(ctx, sessionKey(ulid))
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return Session{}, fmt.Errorf("kv: unmarshal session: %w", err)
	}
	return sess, nil
}

// DeleteSession removes the session and its per-user set membership,
// deleting the set itself if it becomes empty.
func (c *Client) DeleteSession(ctx context.Context, ulid string) error {
	sess, err := c.GetSession(ctx, ulid)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	setKey := sessionSetKey(sess.UserID)
	if err := c.SRem(ctx, setKey, ulid); err != nil {
		return err
	}
	if err := c.Del(ctx, sessionKey(ulid)); err != nil {
		return err
	}
	n, err := c.SCard(ctx, setKey)
	if err != nil {
		return err
	}
	if n == 0 {
		return c.Del(ctx, setKey)
	}
	return nil
}

// SessionInfo is one live session as the admin session report exposes it.
type SessionInfo struct {
	ULID      string
	UserID    int64
	Email     string
	SecondsLeft int64
}

// ListSessions scans every session:* key, for the supplemented GET
// /admin/sessions report; an admin-only, infrequent call so the scan cost
// (O(n) over live sessions) is acceptable.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	keys, err := c.Keys(ctx, "session:*")
	if err != nil {
		return nil, err
	}
	out := make([]SessionInfo, 0, len(keys))
	for _, key := range keys {
		ulid := key[len("session:"):]
		sess, err := c.GetSession(ctx, ulid)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ttl, err := c.TTL(ctx, key)
		if err != nil {
			return nil, err
		}
		out = append(out, SessionInfo{ULID: ulid, UserID: sess.UserID, Email: sess.Email, SecondsLeft: int64(ttl.Seconds())})
	}
	return out, nil
}

// DeleteAllSessions iterates the per-user session set, deleting every
// member session plus the set itself.
func (c *Client) DeleteAllSessions(ctx context.Context, userID int64) error {
	setKey := sessionSetKey(userID)
	members, err := c.SMembers(ctx, setKey)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(members)+1)
	for _, ulid := range members {
		keys = append(keys, sessionKey(ulid))
	}
	keys = append(keys, setKey)
	return c.Del(ctx, keys...)
}
