package db

import (
	"context"
	"fmt"
)

// InsertTwoFASecret writes the confirmed 2FA secret for a user.
func (d *Database) InsertTwoFASecret(ctx context.Context, userID int64, secret string, useragentIP UserAgentIP) error {
	const query = `INSERT INTO two_fa_secret (registered_user_id, ip_id, user_agent_id, two_fa_secret) VALUES ($1, $2, $3, $4)`
	_, err := d.db.ExecContext(ctx, query, userID, useragentIP.IPID, useragentIP.UserAgentID, secret)
	if err != nil {
		return fmt.Errorf("db: insert two fa secret: %w", err)
	}
	return nil
}

func (d *Database) UpdateTwoFAAlwaysRequired(ctx context.Context, userID int64, alwaysRequired bool) error {
	const query = `UPDATE two_fa_secret SET always_required = $1 WHERE registered_user_id = $2`
	_, err := d.db.ExecContext(ctx, query, alwaysRequired, userID)
	if err != nil {
		return fmt.Errorf("db: update two fa always required: %w", err)
	}
	return nil
}

// DeleteTwoFA removes the secret and all backup codes in one transaction,
// per spec §4.B's "Disable 2FA: delete all backup codes and the secret in
// one transaction" contract.
func (d *Database) DeleteTwoFA(ctx context.Context, userID int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM two_fa_backup WHERE registered_user_id = $1`, userID); err != nil {
		return fmt.Errorf("db: delete backup codes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM two_fa_secret WHERE registered_user_id = $1`, userID); err != nil {
		return fmt.Errorf("db: delete two fa secret: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// TwoFABackupCode is a stored, hashed single-use backup code.
type TwoFABackupCode struct {
	ID       int64
	CodeHash string
}

func (d *Database) GetTwoFABackupCodes(ctx context.Context, userID int64) ([]TwoFABackupCode, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT two_fa_backup_id, two_fa_backup_code FROM two_fa_backup WHERE registered_user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("db: get backup codes: %w", err)
	}
	defer rows.Close()

	var out []TwoFABackupCode
	for rows.Next() {
		var c TwoFABackupCode
		if err := rows.Scan(&c.ID, &c.CodeHash); err != nil {
			return nil, fmt.Errorf("db: scan backup code: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertTwoFABackupCodes replaces a user's backup codes: delete-then-insert-N
// under one transaction (spec §4.B).
func (d *Database) InsertTwoFABackupCodes(ctx context.Context, userID int64, codeHashes []string, useragentIP UserAgentIP) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM two_fa_backup WHERE registered_user_id = $1`, userID); err != nil {
		return fmt.Errorf("db: delete existing backup codes: %w", err)
	}

	const insert = `INSERT INTO two_fa_backup (registered_user_id, user_agent_id, ip_id, two_fa_backup_code) VALUES ($1, $2, $3, $4)`
	for _, hash := range codeHashes {
		if _, err := tx.ExecContext(ctx, insert, userID, useragentIP.UserAgentID, useragentIP.IPID, hash); err != nil {
			return fmt.Errorf("db: insert backup code: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// DeleteTwoFABackupCode removes a single backup code by id, used once a
// backup code has been consumed during signin.
func (d *Database) DeleteTwoFABackupCode(ctx context.Context, id int64) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM two_fa_backup WHERE two_fa_backup_id = $1`, id)
	if err != nil {
		return fmt.Errorf("db: delete backup code: %w", err)
	}
	return nil
}

func (d *Database) DeleteAllTwoFABackupCodes(ctx context.Context, userID int64) error {
	_, err := d.db.ExecContext(ctx, `DELETE FROM two_fa_backup WHERE registered_user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("db: delete all backup codes: %w", err)
	}
	return nil
}
