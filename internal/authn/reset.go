package authn

import (
	"context"
	"strings"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/credentials"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/email"
)

// RequestReset implements spec §4.F's Reset-request: only creates a reset
// row when a user exists and no reset is already live within the window;
// always returns nil so the generic success body never discloses whether
// the email was known.
func (s *Service) RequestReset(ctx context.Context, email_ string, useragentIP db.UserAgentIP) error {
	existingReset, err := s.DB.GetPasswordResetByEmail(ctx, email_)
	if err != nil {
		return apierror.SQL(err)
	}
	user, err := s.DB.GetUserByEmail(ctx, email_)
	if err != nil {
		return apierror.SQL(err)
	}
	if user == nil || existingReset != nil {
		return nil
	}

	secret := credentials.RandomHex(64)
	if err := s.DB.InsertPasswordReset(ctx, user.RegisteredUserID, secret, useragentIP); err != nil {
		return apierror.SQL(err)
	}

	s.Mailer.Send(user.FullName, user.Email, email.TemplatePasswordResetRequested, secret)
	return nil
}

// InspectReset implements spec §4.F's Reset-inspect: returns the 2FA state
// of the account behind secret without disclosing its identity.
func (s *Service) InspectReset(ctx context.Context, secret string) (twoFAActive, twoFABackup bool, err error) {
	if !credentials.Is128Hex(secret) {
		return false, false, apierror.InvalidValue("Incorrect verification data")
	}
	reset, dbErr := s.DB.GetPasswordResetBySecret(ctx, secret)
	if dbErr != nil {
		return false, false, apierror.SQL(dbErr)
	}
	if reset == nil {
		return false, false, apierror.InvalidValue("Incorrect verification data")
	}
	return reset.HasTwoFA(), reset.TwoFABackupCount > 0, nil
}

// ConsumeReset implements spec §4.F's Reset-consume: validates the token
// (if the user has 2FA), rejects unsafe new passwords, then updates the
// password and marks the reset row consumed.
func (s *Service) ConsumeReset(ctx context.Context, secret, newPassword, rawToken string) error {
	if !credentials.Is128Hex(secret) {
		return apierror.InvalidValue("Incorrect verification data")
	}
	reset, err := s.DB.GetPasswordResetBySecret(ctx, secret)
	if err != nil {
		return apierror.SQL(err)
	}
	if reset == nil {
		return apierror.InvalidValue("Incorrect verification data")
	}

	if reset.HasTwoFA() {
		token, hasToken := credentials.ParseToken(rawToken)
		ok, err := s.authenticateToken(ctx, token, hasToken, reset.RegisteredUserID, reset.TwoFASecret.String, reset.TwoFABackupCount)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.Authorization()
		}
	}

	unsafe, err := s.HIBP.Unsafe(newPassword)
	if err != nil {
		return apierror.Reqwest(err)
	}
	if unsafe || strings.Contains(strings.ToLower(newPassword), strings.ToLower(reset.Email)) {
		return apierror.InvalidValue("unsafe password")
	}

	passwordHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return apierror.Internal("hash password")
	}

	if err := s.DB.UpdatePassword(ctx, reset.RegisteredUserID, passwordHash); err != nil {
		return apierror.SQL(err)
	}
	if err := s.DB.ConsumePasswordReset(ctx, reset.PasswordResetID); err != nil {
		return apierror.SQL(err)
	}

	s.Mailer.Send(reset.FullName, reset.Email, email.TemplatePasswordChanged, "")
	return nil
}
