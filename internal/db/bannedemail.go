package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// IsBannedDomain checks whether email's domain appears in the banned-domain
// table (spec §4.F Register step 2).
func (d *Database) IsBannedDomain(ctx context.Context, email string) (bool, error) {
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return false, nil
	}
	var exists bool
	err := d.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM banned_email_domain WHERE domain = $1)`,
		strings.ToLower(domain),
	).Scan(&exists)
	if err != nil && err != sql.ErrNoRows {
		return false, fmt.Errorf("db: check banned domain: %w", err)
	}
	return exists, nil
}
