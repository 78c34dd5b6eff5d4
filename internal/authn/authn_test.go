package authn

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/mrjackwills/mealpedant/internal/credentials"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/email"
	"github.com/mrjackwills/mealpedant/internal/kv"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	mr := miniredis.RunT(t)
	kvClient := kv.NewClientForTesting(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	database := db.NewDatabaseForTesting(mockDB)
	hasher := credentials.NewHasher(credentials.ArgonPassesTest)
	mailer := email.NewMailer(email.Config{Host: "localhost", Port: 2525, Name: "Test", Address: "test@example.com"})

	return New(database, kvClient, hasher, credentials.NewHIBPClient(), mailer, "correct-invite"), mock
}

func TestVerifyRejectsNonHexSecret(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Verify(context.Background(), "not-hex")
	require.Error(t, err)
}

func TestVerifyUnknownSecret(t *testing.T) {
	svc, _ := newTestService(t)
	secret := credentials.RandomHex(64)
	err := svc.Verify(context.Background(), secret)
	require.Error(t, err)
}

func TestVerifyInsertsUserAndClearsPending(t *testing.T) {
	svc, mock := newTestService(t)
	secret := credentials.RandomHex(64)

	require.NoError(t, svc.KV.InsertPendingRegistration(context.Background(), secret, kv.PendingRegistration{
		Email:        "jack@example.com",
		FullName:     "Jack",
		PasswordHash: "hash",
		IPID:         1,
		UserAgentID:  2,
	}))

	mock.ExpectExec(`INSERT INTO registered_user`).WillReturnResult(sqlmock.NewResult(1, 1))

	err := svc.Verify(context.Background(), secret)
	require.NoError(t, err)

	_, ok, err := svc.KV.GetPendingRegistration(context.Background(), secret)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInspectResetUnknownSecret(t *testing.T) {
	svc, mock := newTestService(t)
	secret := credentials.RandomHex(64)
	mock.ExpectQuery(`SELECT(.|\n)*FROM password_reset`).WillReturnError(sql.ErrNoRows)

	_, _, err := svc.InspectReset(context.Background(), secret)
	require.Error(t, err)
}

func TestAuthenticateTokenTOTP(t *testing.T) {
	svc, _ := newTestService(t)
	_, base32, err := credentials.GenerateTOTPSecret()
	require.NoError(t, err)
	rawHex, _, err := credentials.GenerateTOTPSecret()
	require.NoError(t, err)
	_ = base32

	code, err := credentials.GenerateCurrentTOTP(rawHex)
	require.NoError(t, err)

	token, ok := credentials.ParseToken(code)
	require.True(t, ok)

	valid, err := svc.authenticateToken(context.Background(), token, true, 1, rawHex, 0)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestAuthenticateTokenBackupNoCodesAvailable(t *testing.T) {
	svc, _ := newTestService(t)
	token, ok := credentials.ParseToken("ABCDEF0123456789")
	require.True(t, ok)

	valid, err := svc.authenticateToken(context.Background(), token, true, 1, "", 0)
	require.NoError(t, err)
	assert.False(t, valid)
}

// TestBackupCodeRoundTripThroughAuthenticateToken generates a fresh batch of
// backup codes and submits one of them back through authenticateToken's
// TokenBackup branch exactly as a client would: unmodified, whatever case
// GenerateBackupCodes happened to return. Catches the generation/verification
// case mismatch a lowercase RandomHex output would reintroduce.
func TestBackupCodeRoundTripThroughAuthenticateToken(t *testing.T) {
	svc, mock := newTestService(t)

	userRows := sqlmock.NewRows([]string{
		"registered_user_id", "full_name", "email", "active", "password_hash",
		"two_fa_secret", "always_required", "admin", "login_attempt_number", "two_fa_backup_count",
	}).AddRow(1, "Jack", "jack@example.com", true, "hash", "deadbeef", false, false, 0, 0)
	mock.ExpectQuery(`SELECT(.|\n)*FROM registered_user ru`).WillReturnRows(userRows)
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM two_fa_backup`).WillReturnResult(sqlmock.NewResult(0, 0))
	for i := 0; i < backupCodeCount; i++ {
		mock.ExpectExec(`INSERT INTO two_fa_backup`).WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	useragentIP := db.UserAgentIP{UserAgentID: 1, IPID: 1}
	codes, err := svc.GenerateBackupCodes(context.Background(), "jack@example.com", useragentIP)
	require.NoError(t, err)
	require.Len(t, codes, backupCodeCount)

	submitted := codes[0]
	hash, err := svc.Hasher.Hash(submitted)
	require.NoError(t, err)

	token, ok := credentials.ParseToken(submitted)
	require.True(t, ok)
	assert.Equal(t, credentials.TokenBackup, token.Kind)

	backupRows := sqlmock.NewRows([]string{"two_fa_backup_id", "two_fa_backup_code"}).
		AddRow(int64(1), hash)
	mock.ExpectQuery(`SELECT(.|\n)*FROM two_fa_backup WHERE`).WillReturnRows(backupRows)
	mock.ExpectExec(`DELETE FROM two_fa_backup WHERE two_fa_backup_id`).WillReturnResult(sqlmock.NewResult(0, 1))

	valid, err := svc.authenticateToken(context.Background(), token, true, 1, "", 1)
	require.NoError(t, err)
	assert.True(t, valid, "submitted backup code must verify against its own stored hash")
}

func TestStartTwoFASetupConflictWhenAlreadyConfigured(t *testing.T) {
	svc, mock := newTestService(t)
	rows := sqlmock.NewRows([]string{
		"registered_user_id", "full_name", "email", "active", "password_hash",
		"two_fa_secret", "always_required", "admin", "login_attempt_number", "two_fa_backup_count",
	}).AddRow(1, "Jack", "jack@example.com", true, "hash", "deadbeef", false, false, 0, 0)
	mock.ExpectQuery(`SELECT(.|\n)*FROM registered_user ru`).WillReturnRows(rows)

	_, err := svc.StartTwoFASetup(context.Background(), "jack@example.com")
	require.Error(t, err)
}
