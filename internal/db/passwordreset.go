package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PasswordReset is the joined view ModelPasswordReset assembles: the reset
// row plus enough of the user to decide whether a 2FA token is required to
// complete the reset.
type PasswordReset struct {
	RegisteredUserID int64
	Email            string
	FullName         string
	PasswordResetID  int64
	ResetString      string
	TwoFABackupCount int64
	TwoFASecret      sql.NullString
}

func (p PasswordReset) HasTwoFA() bool { return p.TwoFASecret.Valid }

const passwordResetSelect = `
SELECT
	ru.registered_user_id,
	ru.email,
	ru.full_name,
	pr.password_reset_id,
	pr.reset_string,
	tfs.two_fa_secret,
	COALESCE((SELECT COUNT(*) FROM two_fa_backup WHERE registered_user_id = ru.registered_user_id), 0)
FROM password_reset pr
LEFT JOIN registered_user ru USING (registered_user_id)
LEFT JOIN two_fa_secret tfs USING (registered_user_id)
WHERE %s
AND pr.timestamp >= NOW() - INTERVAL '1 hour'
AND pr.consumed IS NOT TRUE`

func scanPasswordReset(row *sql.Row) (*PasswordReset, error) {
	var p PasswordReset
	err := row.Scan(&p.RegisteredUserID, &p.Email, &p.FullName, &p.PasswordResetID, &p.ResetString, &p.TwoFASecret, &p.TwoFABackupCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: scan password reset: %w", err)
	}
	return &p, nil
}

// GetPasswordResetByEmail finds a live (unconsumed, <1h old) reset row for
// email, used when a new reset request should reuse the live one instead of
// creating a duplicate.
func (d *Database) GetPasswordResetByEmail(ctx context.Context, email string) (*PasswordReset, error) {
	query := fmt.Sprintf(passwordResetSelect, "ru.email = $1")
	return scanPasswordReset(d.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// GetPasswordResetBySecret finds a live reset row by its 128-hex secret.
func (d *Database) GetPasswordResetBySecret(ctx context.Context, secret string) (*PasswordReset, error) {
	query := fmt.Sprintf(passwordResetSelect, "pr.reset_string = $1")
	return scanPasswordReset(d.db.QueryRowContext(ctx, query, secret))
}

func (d *Database) InsertPasswordReset(ctx context.Context, userID int64, secret string, useragentIP UserAgentIP) error {
	const query = `
INSERT INTO password_reset (registered_user_id, reset_string, ip_id, user_agent_id)
VALUES ($1, $2, $3, $4)`
	_, err := d.db.ExecContext(ctx, query, userID, secret, useragentIP.IPID, useragentIP.UserAgentID)
	if err != nil {
		return fmt.Errorf("db: insert password reset: %w", err)
	}
	return nil
}

// ConsumePasswordReset marks a reset row as used; one-shot per spec §3.
func (d *Database) ConsumePasswordReset(ctx context.Context, passwordResetID int64) error {
	const query = `UPDATE password_reset SET consumed = TRUE WHERE password_reset_id = $1`
	_, err := d.db.ExecContext(ctx, query, passwordResetID)
	if err != nil {
		return fmt.Errorf("db: consume password reset: %w", err)
	}
	return nil
}
