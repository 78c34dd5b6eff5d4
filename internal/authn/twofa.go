package authn

import (
	"context"
	"strings"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/credentials"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/email"
)

// StartTwoFASetup implements spec §4.F's `GET setup/twofa`: 409 if a setup
// is already pending or the user already has a secret, otherwise generates
// a fresh 32-hex secret, stores it in KV for 120 seconds, and returns its
// base32 form for the client to render as a manual-entry code.
func (s *Service) StartTwoFASetup(ctx context.Context, sessionEmail string) (base32Secret string, err error) {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return "", err
	}
	if user.HasTwoFA() {
		return "", apierror.Conflict("two-factor authentication already configured")
	}
	if _, pending, kvErr := s.KV.GetTwoFASetup(ctx, user.RegisteredUserID); kvErr != nil {
		return "", apierror.IO(kvErr)
	} else if pending {
		return "", apierror.Conflict("two-factor setup already pending")
	}

	rawHex, base32, err := credentials.GenerateTOTPSecret()
	if err != nil {
		return "", apierror.Internal("generate totp secret")
	}
	if err := s.KV.InsertTwoFASetup(ctx, user.RegisteredUserID, rawHex); err != nil {
		return "", apierror.IO(err)
	}
	return base32, nil
}

// ConfirmTwoFASetup implements `POST setup/twofa {token}`: verifies the
// submitted token against the pending secret and, on success, persists the
// secret to DB and drops the pending KV key.
func (s *Service) ConfirmTwoFASetup(ctx context.Context, sessionEmail, rawToken string, useragentIP db.UserAgentIP) error {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return err
	}
	rawHex, ok, err := s.KV.GetTwoFASetup(ctx, user.RegisteredUserID)
	if err != nil {
		return apierror.IO(err)
	}
	if !ok {
		return apierror.InvalidValue("no two-factor setup pending")
	}
	if !credentials.VerifyCurrentTOTP(rawToken, rawHex) {
		return apierror.Authorization()
	}

	if err := s.DB.InsertTwoFASecret(ctx, user.RegisteredUserID, rawHex, useragentIP); err != nil {
		return apierror.SQL(err)
	}
	if err := s.KV.DeleteTwoFASetup(ctx, user.RegisteredUserID); err != nil {
		return apierror.IO(err)
	}

	s.Mailer.Send(user.FullName, user.Email, email.TemplateTwoFAEnabled, "")
	return nil
}

// CancelTwoFASetup implements `DELETE setup/twofa`: drops any pending key.
func (s *Service) CancelTwoFASetup(ctx context.Context, sessionEmail string) error {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return err
	}
	if err := s.KV.DeleteTwoFASetup(ctx, user.RegisteredUserID); err != nil {
		return apierror.IO(err)
	}
	return nil
}

// SetAlwaysRequired implements `PATCH setup/twofa {always_required, password?, token?}`:
// false→true needs only the flag; true→false additionally requires the
// password+token check (subject to the always-required rule itself).
func (s *Service) SetAlwaysRequired(ctx context.Context, sessionEmail string, alwaysRequired bool, password, rawToken string) error {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return err
	}
	if !user.HasTwoFA() {
		return apierror.InvalidValue("two-factor authentication not configured")
	}

	if alwaysRequired && !user.TwoFAAlwaysRequired {
		return s.DB.UpdateTwoFAAlwaysRequired(ctx, user.RegisteredUserID, true)
	}
	if !alwaysRequired && user.TwoFAAlwaysRequired {
		token, hasToken := credentials.ParseToken(rawToken)
		ok, err := s.authenticatePasswordToken(ctx, user, password, token, hasToken)
		if err != nil {
			return err
		}
		if !ok {
			return apierror.Authorization()
		}
		return s.DB.UpdateTwoFAAlwaysRequired(ctx, user.RegisteredUserID, false)
	}
	return nil // no transition requested
}

// DisableTwoFA implements `DELETE twofa`: requires password+token (subject
// to the always-required rule), then atomically removes the backup codes
// and the secret.
func (s *Service) DisableTwoFA(ctx context.Context, sessionEmail, password, rawToken string) error {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return err
	}
	if !user.HasTwoFA() {
		return apierror.InvalidValue("two-factor authentication not configured")
	}
	token, hasToken := credentials.ParseToken(rawToken)
	ok, err := s.authenticatePasswordToken(ctx, user, password, token, hasToken)
	if err != nil {
		return err
	}
	if !ok {
		return apierror.Authorization()
	}

	if err := s.DB.DeleteTwoFA(ctx, user.RegisteredUserID); err != nil {
		return apierror.SQL(err)
	}
	s.Mailer.Send(user.FullName, user.Email, email.TemplateTwoFADisabled, "")
	return nil
}

const backupCodeCount = 10

// GenerateBackupCodes implements `POST twofa`: only when 2FA is enabled and
// the current backup count is zero. Returns the plaintext codes exactly
// once; only their hashes are stored.
func (s *Service) GenerateBackupCodes(ctx context.Context, sessionEmail string, useragentIP db.UserAgentIP) ([]string, error) {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return nil, err
	}
	if !user.HasTwoFA() {
		return nil, apierror.InvalidValue("two-factor authentication not configured")
	}
	if user.TwoFABackupCount > 0 {
		return nil, apierror.Conflict("backup codes already exist")
	}
	return s.writeBackupCodes(ctx, user, useragentIP)
}

// RotateBackupCodes implements `PATCH twofa`: no password required, since
// the caller is already authenticated by cookie. Replaces every code.
func (s *Service) RotateBackupCodes(ctx context.Context, sessionEmail string, useragentIP db.UserAgentIP) ([]string, error) {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return nil, err
	}
	if !user.HasTwoFA() {
		return nil, apierror.InvalidValue("two-factor authentication not configured")
	}
	return s.writeBackupCodes(ctx, user, useragentIP)
}

func (s *Service) writeBackupCodes(ctx context.Context, user *db.User, useragentIP db.UserAgentIP) ([]string, error) {
	plaintext := make([]string, backupCodeCount)
	hashes := make([]string, backupCodeCount)
	for i := range plaintext {
		// Uppercased to match ParseToken's normalisation of submitted backup
		// codes, so generation and verification agree on case.
		code := strings.ToUpper(credentials.RandomHex(8))
		hash, err := s.Hasher.Hash(code)
		if err != nil {
			return nil, apierror.Internal("hash backup code")
		}
		plaintext[i] = code
		hashes[i] = hash
	}
	if err := s.DB.InsertTwoFABackupCodes(ctx, user.RegisteredUserID, hashes, useragentIP); err != nil {
		return nil, apierror.SQL(err)
	}
	return plaintext, nil
}

// ClearBackupCodes implements `PUT twofa`: requires password+token (subject
// to the always-required rule), then deletes every code.
func (s *Service) ClearBackupCodes(ctx context.Context, sessionEmail, password, rawToken string) error {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return err
	}
	if !user.HasTwoFA() {
		return apierror.InvalidValue("two-factor authentication not configured")
	}
	token, hasToken := credentials.ParseToken(rawToken)
	ok, err := s.authenticatePasswordToken(ctx, user, password, token, hasToken)
	if err != nil {
		return err
	}
	if !ok {
		return apierror.Authorization()
	}

	if err := s.DB.DeleteAllTwoFABackupCodes(ctx, user.RegisteredUserID); err != nil {
		return apierror.SQL(err)
	}
	s.Mailer.Send(user.FullName, user.Email, email.TemplateTwoFABackupDisabled, "")
	return nil
}
