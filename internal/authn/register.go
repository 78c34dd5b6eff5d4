package authn

import (
	"context"
	"fmt"
	"strings"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/credentials"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/email"
	"github.com/mrjackwills/mealpedant/internal/kv"
)

// Register runs spec §4.F's Register steps 1-5: invite check, banned-domain
// check, HIBP check, pending-dedup check, then the actual KV write + email.
// It always returns the same nil-or-error shape regardless of whether the
// email is already known, so the generic success response never leaks that
// fact to the caller.
func (s *Service) Register(ctx context.Context, email_, fullName, password, invite string, useragentIP db.UserAgentIP) error {
	if !credentials.ConstantTimeEqual(invite, s.Invite) {
		return apierror.InvalidValue("invite invalid")
	}

	banned, err := s.DB.IsBannedDomain(ctx, email_)
	if err != nil {
		return apierror.SQL(err)
	}
	if banned {
		return apierror.InvalidValue("domain banned")
	}

	unsafe, err := s.HIBP.Unsafe(password)
	if err != nil {
		return apierror.Reqwest(err)
	}
	if unsafe {
		return apierror.InvalidValue("unsafe password")
	}

	_, pendingExists, err := s.KV.SecretForEmail(ctx, email_)
	if err != nil {
		return apierror.IO(err)
	}
	existingUser, err := s.DB.GetUserByEmail(ctx, email_)
	if err != nil {
		return apierror.SQL(err)
	}
	if pendingExists || existingUser != nil {
		return nil
	}

	passwordHash, err := s.Hasher.Hash(password)
	if err != nil {
		return apierror.Internal(fmt.Sprintf("hash password: %v", err))
	}
	secret := credentials.RandomHex(64)

	if err := s.KV.InsertPendingRegistration(ctx, secret, kv.PendingRegistration{
		Email:        strings.ToLower(email_),
		FullName:     fullName,
		PasswordHash: passwordHash,
		IPID:         useragentIP.IPID,
		UserAgentID:  useragentIP.UserAgentID,
	}); err != nil {
		return apierror.IO(err)
	}

	s.Mailer.Send(fullName, email_, email.TemplateVerify, secret)
	return nil
}

// Verify implements spec §4.F's Verify(secret): reject malformed secrets,
// look up the pending registration, insert the active user, and remove both
// KV keys the registration occupied.
func (s *Service) Verify(ctx context.Context, secret string) error {
	if !credentials.Is128Hex(secret) {
		return apierror.InvalidValue("Incorrect verification data")
	}

	pending, ok, err := s.KV.GetPendingRegistration(ctx, secret)
	if err != nil {
		return apierror.IO(err)
	}
	if !ok {
		return apierror.InvalidValue("Incorrect verification data")
	}

	if err := s.DB.InsertUser(ctx, db.NewRegistration{
		Email:        pending.Email,
		FullName:     pending.FullName,
		PasswordHash: pending.PasswordHash,
		IPID:         pending.IPID,
		UserAgentID:  pending.UserAgentID,
	}); err != nil {
		return apierror.SQL(err)
	}

	if err := s.KV.DeletePendingRegistration(ctx, pending.Email, secret); err != nil {
		return apierror.IO(err)
	}
	return nil
}
