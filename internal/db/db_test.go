package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock, func()) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	database := NewDatabaseForTesting(mockDB)
	return database, mock, func() { mockDB.Close() }
}

func TestGetUserByEmailFound(t *testing.T) {
	database, mock, cleanup := newMockDatabase(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{
		"registered_user_id", "full_name", "email", "active", "password_hash",
		"two_fa_secret", "always_required", "admin", "login_attempt_number", "two_fa_backup_count",
	}).AddRow(1, "Jack", "jack@example.com", true, "argon2-hash", nil, false, false, 0, 0)

	mock.ExpectQuery(`SELECT(.|\n)*FROM registered_user ru`).
		WithArgs("jack@example.com").
		WillReturnRows(rows)

	u, err := database.GetUserByEmail(context.Background(), "jack@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(1), u.RegisteredUserID)
	assert.False(t, u.HasTwoFA())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserByEmailNotFound(t *testing.T) {
	database, mock, cleanup := newMockDatabase(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT(.|\n)*FROM registered_user ru`).
		WithArgs("missing@example.com").
		WillReturnError(sql.ErrNoRows)

	u, err := database.GetUserByEmail(context.Background(), "missing@example.com")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueViolation(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(sql.ErrNoRows))
}

func TestRecordLoginAttemptSuccessResetsCounter(t *testing.T) {
	database, mock, cleanup := newMockDatabase(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO login_history`).
		WithArgs(int64(1), true, nil, int64(2), int64(10)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`UPDATE login_attempt SET login_attempt_number = 0`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := database.RecordLoginAttempt(context.Background(), 10, UserAgentIP{IPID: 1, UserAgentID: 2}, true, "")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordLoginAttemptFailureIncrementsCounter(t *testing.T) {
	database, mock, cleanup := newMockDatabase(t)
	defer cleanup()

	mock.ExpectExec(`INSERT INTO login_history`).
		WithArgs(int64(1), false, "web", int64(2), int64(10)).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO login_attempt`).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := database.RecordLoginAttempt(context.Background(), 10, UserAgentIP{IPID: 1, UserAgentID: 2}, false, "web")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMealTransactionCommits(t *testing.T) {
	database, mock, cleanup := newMockDatabase(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT meal_description_id`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO meal_description`).WillReturnRows(sqlmock.NewRows([]string{"meal_description_id"}).AddRow(1))
	mock.ExpectQuery(`SELECT meal_category_id`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO meal_category`).WillReturnRows(sqlmock.NewRows([]string{"meal_category_id"}).AddRow(2))
	mock.ExpectQuery(`SELECT meal_date_id`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO meal_date`).WillReturnRows(sqlmock.NewRows([]string{"meal_date_id"}).AddRow(3))
	mock.ExpectQuery(`SELECT meal_person_id`).WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(`INSERT INTO meal_person`).WillReturnRows(sqlmock.NewRows([]string{"meal_person_id"}).AddRow(4))
	mock.ExpectExec(`INSERT INTO individual_meal`).WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectCommit()

	err := database.InsertMeal(context.Background(), 1, MealInput{
		Date:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Person:      PersonJack,
		Category:    "breakfast",
		Description: "eggs",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsBannedDomainNoAt(t *testing.T) {
	database, _, cleanup := newMockDatabase(t)
	defer cleanup()

	banned, err := database.IsBannedDomain(context.Background(), "not-an-email")
	require.NoError(t, err)
	assert.False(t, banned)
}
