package db

import (
	"context"
	"fmt"
)

// LockoutThreshold is the login_attempt_number value at and above which
// signin is soft-locked regardless of credentials (spec §4.F Signin step 2).
const LockoutThreshold = 19

// RecordLoginAttempt appends a login_history row and then either resets or
// increments login_attempt, exactly as ModelLogin::insert does: one write
// for the audit trail, one for the counter, no transaction wrapping both
// (the source does not wrap these either).
func (d *Database) RecordLoginAttempt(ctx context.Context, userID int64, useragentIP UserAgentIP, success bool, sessionName string) error {
	const historyQuery = `
INSERT INTO login_history (ip_id, success, session_name, user_agent_id, registered_user_id)
VALUES ($1, $2, $3, $4, $5)`
	var sessionNameArg any
	if sessionName != "" {
		sessionNameArg = sessionName
	}
	if _, err := d.db.ExecContext(ctx, historyQuery, useragentIP.IPID, success, sessionNameArg, useragentIP.UserAgentID, userID); err != nil {
		return fmt.Errorf("db: insert login history: %w", err)
	}

	if success {
		return d.resetLoginAttempts(ctx, userID)
	}
	return d.increaseLoginAttempts(ctx, userID)
}

func (d *Database) resetLoginAttempts(ctx context.Context, userID int64) error {
	const query = `UPDATE login_attempt SET login_attempt_number = 0 WHERE registered_user_id = $1`
	if _, err := d.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db: reset login attempts: %w", err)
	}
	return nil
}

func (d *Database) increaseLoginAttempts(ctx context.Context, userID int64) error {
	const query = `
INSERT INTO login_attempt (login_attempt_number, registered_user_id)
VALUES (1, $1)
ON CONFLICT (registered_user_id) DO UPDATE SET login_attempt_number = login_attempt.login_attempt_number + 1`
	if _, err := d.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("db: increase login attempts: %w", err)
	}
	return nil
}

// LoginAttemptNumber fetches the current counter value; no request path or
// test in this module calls it.
func (d *Database) LoginAttemptNumber(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := d.db.QueryRowContext(ctx, `SELECT login_attempt_number FROM login_attempt WHERE registered_user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db: get login attempt number: %w", err)
	}
	return n, nil
}
