package authn

import (
	"context"
	"strings"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/credentials"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/email"
)

// ChangePassword implements spec §4.F's Change-password: current password
// (plus token, subject to the always-required rule) authorises the change;
// the new password must not contain the current password or the user's
// email, and must not be in HIBP. Existing sessions are deliberately left
// untouched (Open Question Decision 2).
//
// sessionEmail identifies the authenticated user; every session carries its
// owner's email (kv.Session.Email), so callers never need a separate
// user-id lookup before calling into the state machine.
func (s *Service) ChangePassword(ctx context.Context, sessionEmail, currentPassword, newPassword, rawToken string) error {
	user, err := s.userByEmail(ctx, sessionEmail)
	if err != nil {
		return err
	}

	token, hasToken := credentials.ParseToken(rawToken)
	ok, err := s.authenticatePasswordToken(ctx, user, currentPassword, token, hasToken)
	if err != nil {
		return err
	}
	if !ok {
		return apierror.Authorization()
	}

	lowerNew := strings.ToLower(newPassword)
	if strings.Contains(lowerNew, strings.ToLower(currentPassword)) || strings.Contains(lowerNew, strings.ToLower(user.Email)) {
		return apierror.InvalidValue("unsafe password")
	}
	unsafe, err := s.HIBP.Unsafe(newPassword)
	if err != nil {
		return apierror.Reqwest(err)
	}
	if unsafe {
		return apierror.InvalidValue("unsafe password")
	}

	passwordHash, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return apierror.Internal("hash password")
	}
	if err := s.DB.UpdatePassword(ctx, user.RegisteredUserID, passwordHash); err != nil {
		return apierror.SQL(err)
	}

	s.Mailer.Send(user.FullName, user.Email, email.TemplatePasswordChanged, "")
	return nil
}

// userByEmail resolves the full joined user row, returning apierror.Authentication
// if the session's email no longer maps to an active account (e.g. deactivated
// elsewhere since the session was issued).
func (s *Service) userByEmail(ctx context.Context, email_ string) (*db.User, error) {
	user, err := s.DB.GetUserByEmail(ctx, email_)
	if err != nil {
		return nil, apierror.SQL(err)
	}
	if user == nil {
		return nil, apierror.Authentication()
	}
	return user, nil
}
