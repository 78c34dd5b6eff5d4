package db

import (
	"context"
	"database/sql"
	"fmt"
)

// UserAgentIP is the resolved (ip_id, user_agent_id) pair every request-
// scoped DB write needs attached, matching the source's ModelUserAgentIp.
type UserAgentIP struct {
	IPID        int64
	UserAgentID int64
}

// GetOrInsertIP resolves ip_address.ip_id for ip, inserting the row if
// absent, within the given transaction.
func GetOrInsertIP(ctx context.Context, tx *sql.Tx, ip string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT ip_id FROM ip_address WHERE ip = $1::inet`, ip).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("db: get ip: %w", err)
	}
	err = tx.QueryRowContext(ctx, `INSERT INTO ip_address (ip) VALUES ($1::inet) RETURNING ip_id`, ip).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db: insert ip: %w", err)
	}
	return id, nil
}

// GetOrInsertUserAgent resolves user_agent.user_agent_id for ua, inserting
// the row if absent, within the given transaction.
func GetOrInsertUserAgent(ctx context.Context, tx *sql.Tx, ua string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT user_agent_id FROM user_agent WHERE user_agent_string = $1`, ua).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("db: get user agent: %w", err)
	}
	err = tx.QueryRowContext(ctx, `INSERT INTO user_agent (user_agent_string) VALUES ($1) RETURNING user_agent_id`, ua).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db: insert user agent: %w", err)
	}
	return id, nil
}

// ResolveUserAgentIP resolves both ids in a single transaction. Callers
// that want the KV get_cache/insert_cache shortcut the source implements
// should check internal/kv's generic hash-field cache first (key_ip /
// key_useragent) before calling this.
func (d *Database) ResolveUserAgentIP(ctx context.Context, ip, userAgent string) (UserAgentIP, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return UserAgentIP{}, fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	ipID, err := GetOrInsertIP(ctx, tx, ip)
	if err != nil {
		return UserAgentIP{}, err
	}
	uaID, err := GetOrInsertUserAgent(ctx, tx, userAgent)
	if err != nil {
		return UserAgentIP{}, err
	}
	if err := tx.Commit(); err != nil {
		return UserAgentIP{}, fmt.Errorf("db: commit: %w", err)
	}
	return UserAgentIP{IPID: ipID, UserAgentID: uaID}, nil
}
