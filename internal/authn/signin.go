package authn

import (
	"context"
	"time"

	"github.com/mrjackwills/mealpedant/internal/apierror"
	"github.com/mrjackwills/mealpedant/internal/credentials"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/email"
	"github.com/mrjackwills/mealpedant/internal/kv"
)

// lockoutThreshold mirrors db.LockoutThreshold; signin has its own check on
// the boundary value (== vs >=) per spec §4.F steps 1-2.
const lockoutThreshold = db.LockoutThreshold

// SigninResult is what the handler needs to finish the request: either a
// fresh session to cookie, or a 202 "need second factor" signal.
type SigninResult struct {
	NeedsTwoFA     bool
	TwoFABackup    bool
	SessionULID    string
	SessionTTL     time.Duration
	UserID         int64
	Email          string
}

// Signin implements spec §4.F's Signin operation end to end, including the
// pre-step that deletes any stale session already attached to the request.
func (s *Service) Signin(ctx context.Context, existingSessionULID, email_, password, rawToken string, remember bool, useragentIP db.UserAgentIP) (SigninResult, error) {
	if existingSessionULID != "" {
		if err := s.KV.DeleteSession(ctx, existingSessionULID); err != nil {
			return SigninResult{}, apierror.IO(err)
		}
	}

	user, err := s.DB.GetUserByEmail(ctx, email_)
	if err != nil {
		return SigninResult{}, apierror.SQL(err)
	}
	if user == nil {
		return SigninResult{}, apierror.Authorization()
	}

	token, hasToken := credentials.ParseToken(rawToken)

	if user.LoginAttemptNumber == lockoutThreshold {
		s.Mailer.Send(user.FullName, user.Email, email.TemplateAccountLocked, "")
	}
	if user.LoginAttemptNumber >= lockoutThreshold {
		return SigninResult{}, s.recordFailureAndAuthorize(ctx, user.RegisteredUserID, useragentIP)
	}

	if user.HasTwoFA() && !hasToken {
		if err := s.DB.RecordLoginAttempt(ctx, user.RegisteredUserID, useragentIP, false, ""); err != nil {
			return SigninResult{}, apierror.SQL(err)
		}
		return SigninResult{NeedsTwoFA: true, TwoFABackup: user.TwoFABackupCount > 0}, nil
	}

	ok, err := s.authenticateSignin(ctx, user, password, token, hasToken)
	if err != nil {
		return SigninResult{}, err
	}
	if !ok {
		return SigninResult{}, s.recordFailureAndAuthorize(ctx, user.RegisteredUserID, useragentIP)
	}

	ulid, err := credentials.NewULID()
	if err != nil {
		return SigninResult{}, apierror.Internal("generate session ulid")
	}
	sessionName := ulid.String()

	if err := s.DB.RecordLoginAttempt(ctx, user.RegisteredUserID, useragentIP, true, sessionName); err != nil {
		return SigninResult{}, apierror.SQL(err)
	}

	ttl := kv.SessionTTLDefault
	if remember {
		ttl = kv.SessionTTLRemember
	}
	if err := s.KV.CreateSession(ctx, sessionName, kv.Session{UserID: user.RegisteredUserID, Email: user.Email}, ttl); err != nil {
		return SigninResult{}, apierror.IO(err)
	}

	return SigninResult{
		SessionULID: sessionName,
		SessionTTL:  ttl,
		UserID:      user.RegisteredUserID,
		Email:       user.Email,
	}, nil
}

func (s *Service) recordFailureAndAuthorize(ctx context.Context, userID int64, useragentIP db.UserAgentIP) error {
	if err := s.DB.RecordLoginAttempt(ctx, userID, useragentIP, false, ""); err != nil {
		return apierror.SQL(err)
	}
	return apierror.Authorization()
}
