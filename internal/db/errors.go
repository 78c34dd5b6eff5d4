package db

import (
	"errors"

	"github.com/lib/pq"
)

// ErrBeforeGenesis is returned by InsertMeal/UpdateMeal when the meal's
// date predates GenesisDate.
var ErrBeforeGenesis = errors.New("db: meal date predates genesis date")

// uniqueViolationCode is Postgres SQLSTATE 23505, raised by the
// individual_meal (meal_date_id, meal_person_id) unique constraint when two
// concurrent requests insert the same (date, person) pair — surfaced by
// callers as apierror.Conflict per Open Question Decision 3.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
