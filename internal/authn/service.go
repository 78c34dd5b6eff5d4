// Package authn implements the authentication state machine: registration,
// email verification, signin, password reset, change-password, and the 2FA
// setup/backup-code lifecycle. It is the single place that decides whether
// a credential check succeeds; handlers never touch a password hash or TOTP
// secret directly.
package authn

import (
	"github.com/mrjackwills/mealpedant/internal/credentials"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/email"
	"github.com/mrjackwills/mealpedant/internal/kv"
)

// Service bundles every collaborator the state machine needs. It holds no
// per-request state, so a single instance is shared across the whole
// process (spec §9's "shared read-only state" design note).
type Service struct {
	DB     *db.Database
	KV     *kv.Client
	Hasher *credentials.Hasher
	HIBP   *credentials.HIBPClient
	Mailer *email.Mailer
	Invite string
}

func New(database *db.Database, kvClient *kv.Client, hasher *credentials.Hasher, hibp *credentials.HIBPClient, mailer *email.Mailer, invite string) *Service {
	return &Service{DB: database, KV: kvClient, Hasher: hasher, HIBP: hibp, Mailer: mailer, Invite: invite}
}
