package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// User is the fully joined view ModelUser::get assembles in the source:
// the registered_user row plus its 2FA state and admin flag, fetched in a
// single query rather than N+1 round trips.
type User struct {
	RegisteredUserID    int64
	FullName            string
	Email               string
	Active              bool
	LoginAttemptNumber  int64
	TwoFASecret         sql.NullString
	TwoFAAlwaysRequired bool
	TwoFABackupCount    int64
	Admin               bool
	PasswordHash        string
}

// HasTwoFA reports whether the user has a 2FA secret configured.
func (u User) HasTwoFA() bool { return u.TwoFASecret.Valid }

// NewRegistration carries the fields needed to insert a verified user,
// matching the source's RedisNewUser payload.
type NewRegistration struct {
	Email        string
	FullName     string
	PasswordHash string
	IPID         int64
	UserAgentID  int64
}

// GetUserByEmail returns the active user for email (case-folded), or a nil
// user with a nil error if none exists — mirroring ModelUser::get's
// "AND active = true" filter.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	const query = `
SELECT
	ru.registered_user_id,
	ru.full_name,
	ru.email,
	ru.active,
	ru.password_hash,
	tfs.two_fa_secret,
	COALESCE(tfs.always_required, false),
	COALESCE(au.admin, false),
	COALESCE(la.login_attempt_number, 0),
	COALESCE((SELECT COUNT(*) FROM two_fa_backup WHERE registered_user_id = ru.registered_user_id), 0)
FROM registered_user ru
LEFT JOIN two_fa_secret tfs USING (registered_user_id)
LEFT JOIN login_attempt la USING (registered_user_id)
LEFT JOIN admin_user au USING (registered_user_id)
WHERE ru.email = $1 AND ru.active = true`

	var u User
	err := d.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&u.RegisteredUserID, &u.FullName, &u.Email, &u.Active, &u.PasswordHash,
		&u.TwoFASecret, &u.TwoFAAlwaysRequired, &u.Admin, &u.LoginAttemptNumber, &u.TwoFABackupCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: get user by email: %w", err)
	}
	return &u, nil
}

// GetAllUsers returns every active user's admin-surface row, ordered by
// name, for the supplemented GET /admin/users report.
func (d *Database) GetAllUsers(ctx context.Context) ([]User, error) {
	const query = `
SELECT
	ru.registered_user_id,
	ru.full_name,
	ru.email,
	ru.active,
	ru.password_hash,
	tfs.two_fa_secret,
	COALESCE(tfs.always_required, false),
	COALESCE(au.admin, false),
	COALESCE(la.login_attempt_number, 0),
	COALESCE((SELECT COUNT(*) FROM two_fa_backup WHERE registered_user_id = ru.registered_user_id), 0)
FROM registered_user ru
LEFT JOIN two_fa_secret tfs USING (registered_user_id)
LEFT JOIN login_attempt la USING (registered_user_id)
LEFT JOIN admin_user au USING (registered_user_id)
WHERE ru.active = true
ORDER BY ru.full_name`

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db: get all users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.RegisteredUserID, &u.FullName, &u.Email, &u.Active, &u.PasswordHash,
			&u.TwoFASecret, &u.TwoFAAlwaysRequired, &u.Admin, &u.LoginAttemptNumber, &u.TwoFABackupCount,
		); err != nil {
			return nil, fmt.Errorf("db: scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// InsertUser creates an active user directly (used by Verify, once a
// pending registration's secret has been confirmed).
func (d *Database) InsertUser(ctx context.Context, reg NewRegistration) error {
	const query = `
INSERT INTO registered_user (full_name, email, password_hash, ip_id, user_agent_id, active)
VALUES ($1, $2, $3, $4, $5, TRUE)`
	_, err := d.db.ExecContext(ctx, query, reg.FullName, strings.ToLower(reg.Email), reg.PasswordHash, reg.IPID, reg.UserAgentID)
	if err != nil {
		return fmt.Errorf("db: insert user: %w", err)
	}
	return nil
}

// UpdatePassword overwrites the stored Argon2id hash; spec Open Question
// Decision 2 leaves any live sessions untouched.
func (d *Database) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	const query = `UPDATE registered_user SET password_hash = $1 WHERE registered_user_id = $2`
	_, err := d.db.ExecContext(ctx, query, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("db: update password: %w", err)
	}
	return nil
}
