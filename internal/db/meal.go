package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Person is the two-valued person enum the spec's data model fixes.
type Person string

const (
	PersonDave Person = "Dave"
	PersonJack Person = "Jack"
)

// MealInput is the caller-supplied shape for an insert or update, matching
// the source's ij::Meal.
type MealInput struct {
	Date            time.Time
	Person          Person
	Category        string
	Description     string
	Restaurant      bool
	Takeaway        bool
	Vegetarian      bool
	PhotoOriginal   string
	PhotoConverted  string
}

func (m MealInput) hasPhoto() bool {
	return m.PhotoOriginal != "" && m.PhotoConverted != ""
}

// Meal is the fully joined row ModelMeal::get returns.
type Meal struct {
	IndividualMealID  int64
	MealCategoryID    int64
	MealDateID        int64
	MealDescriptionID int64
	MealPhotoID       sql.NullInt64
	MealDate          time.Time
	Category          string
	Person            Person
	Restaurant        bool
	Takeaway          bool
	Vegetarian        bool
	Description       string
	PhotoOriginal     sql.NullString
	PhotoConverted    sql.NullString
}

const getMealQuery = `
SELECT
	im.individual_meal_id,
	md.date_of_meal, md.meal_date_id,
	p.person,
	mc.category, mc.meal_category_id,
	mde.description, mde.meal_description_id,
	im.restaurant, im.takeaway, im.vegetarian,
	im.meal_photo_id,
	mp.photo_original, mp.photo_converted
FROM individual_meal im
JOIN meal_person p ON im.meal_person_id = p.meal_person_id
JOIN meal_date md ON im.meal_date_id = md.meal_date_id
JOIN meal_category mc ON im.meal_category_id = mc.meal_category_id
JOIN meal_description mde ON im.meal_description_id = mde.meal_description_id
LEFT JOIN meal_photo mp ON im.meal_photo_id = mp.meal_photo_id
WHERE md.date_of_meal = $1 AND p.person = $2`

// GetMeal fetches the joined meal for (date, person), or nil if none exists.
func (d *Database) GetMeal(ctx context.Context, person Person, date time.Time) (*Meal, error) {
	return scanMealRow(d.db.QueryRowContext(ctx, getMealQuery, date, string(person)))
}

func scanMealRow(row *sql.Row) (*Meal, error) {
	var m Meal
	var person string
	err := row.Scan(
		&m.IndividualMealID, &m.MealDate, &m.MealDateID, &person,
		&m.Category, &m.MealCategoryID, &m.Description, &m.MealDescriptionID,
		&m.Restaurant, &m.Takeaway, &m.Vegetarian, &m.MealPhotoID,
		&m.PhotoOriginal, &m.PhotoConverted,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("db: scan meal: %w", err)
	}
	m.Person = Person(person)
	return &m, nil
}

func insertOrGetID(ctx context.Context, tx *sql.Tx, selectQuery, insertQuery string, args ...any) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, selectQuery, args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("db: select for insert-or-get: %w", err)
	}
	if err := tx.QueryRowContext(ctx, insertQuery, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("db: insert-or-get: %w", err)
	}
	return id, nil
}

func insertDate(ctx context.Context, tx *sql.Tx, date time.Time, userID int64) (int64, error) {
	return insertOrGetID(ctx, tx,
		`SELECT meal_date_id FROM meal_date WHERE date_of_meal = $1`,
		`INSERT INTO meal_date (date_of_meal, registered_user_id) VALUES ($1, $2) RETURNING meal_date_id`,
		date, userID,
	)
}

func insertCategory(ctx context.Context, tx *sql.Tx, category string, userID int64) (int64, error) {
	return insertOrGetID(ctx, tx,
		`SELECT meal_category_id FROM meal_category WHERE category = upper($1)`,
		`INSERT INTO meal_category (category, registered_user_id) VALUES (upper($1), $2) RETURNING meal_category_id`,
		category, userID,
	)
}

func insertDescription(ctx context.Context, tx *sql.Tx, description string, userID int64) (int64, error) {
	return insertOrGetID(ctx, tx,
		`SELECT meal_description_id FROM meal_description WHERE description = $1`,
		`INSERT INTO meal_description (description, registered_user_id) VALUES ($1, $2) RETURNING meal_description_id`,
		description, userID,
	)
}

func insertPerson(ctx context.Context, tx *sql.Tx, person Person, userID int64) (int64, error) {
	return insertOrGetID(ctx, tx,
		`SELECT meal_person_id FROM meal_person WHERE person = $1`,
		`INSERT INTO meal_person (person, registered_user_id) VALUES ($1, $2) RETURNING meal_person_id`,
		string(person), userID,
	)
}

func insertPhoto(ctx context.Context, tx *sql.Tx, original, converted string, userID int64) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT meal_photo_id FROM meal_photo WHERE photo_original = $1 AND photo_converted = $2`,
		original, converted,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("db: select photo: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO meal_photo (photo_original, photo_converted, registered_user_id) VALUES ($1, $2, $3) RETURNING meal_photo_id`,
		original, converted, userID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("db: insert photo: %w", err)
	}
	return id, nil
}

// deleteEmpty sweeps orphan category/date/description/photo rows left
// behind after a meal's foreign keys change or it is deleted, matching
// ModelMeal::delete_empty exactly.
func deleteEmpty(ctx context.Context, tx *sql.Tx, meal *Meal) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM meal_category WHERE meal_category_id = $1 AND (SELECT count(*) FROM individual_meal WHERE meal_category_id = $1) = 0`,
		meal.MealCategoryID); err != nil {
		return fmt.Errorf("db: sweep category: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM meal_date WHERE meal_date_id = $1 AND (SELECT count(*) FROM individual_meal WHERE meal_date_id = $1) = 0`,
		meal.MealDateID); err != nil {
		return fmt.Errorf("db: sweep date: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM meal_description WHERE meal_description_id = $1 AND (SELECT count(*) FROM individual_meal WHERE meal_description_id = $1) = 0`,
		meal.MealDescriptionID); err != nil {
		return fmt.Errorf("db: sweep description: %w", err)
	}
	if meal.MealPhotoID.Valid {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM meal_photo WHERE meal_photo_id = $1 AND (SELECT count(*) FROM individual_meal WHERE meal_photo_id = $1) = 0`,
			meal.MealPhotoID.Int64); err != nil {
			return fmt.Errorf("db: sweep photo: %w", err)
		}
	}
	return nil
}

// InsertMeal upserts category/description/date/person/photo then inserts
// the joining row, all within one transaction (spec §4.B "Insert meal").
// Cache invalidation is the caller's responsibility (internal/mealcache),
// kept out of this package so db has no dependency on kv.
func (d *Database) InsertMeal(ctx context.Context, userID int64, meal MealInput) error {
	if BeforeGenesis(meal.Date) {
		return ErrBeforeGenesis
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	descID, err := insertDescription(ctx, tx, meal.Description, userID)
	if err != nil {
		return err
	}
	catID, err := insertCategory(ctx, tx, meal.Category, userID)
	if err != nil {
		return err
	}
	dateID, err := insertDate(ctx, tx, meal.Date, userID)
	if err != nil {
		return err
	}
	personID, err := insertPerson(ctx, tx, meal.Person, userID)
	if err != nil {
		return err
	}

	var photoID sql.NullInt64
	if meal.hasPhoto() {
		id, err := insertPhoto(ctx, tx, meal.PhotoOriginal, meal.PhotoConverted, userID)
		if err != nil {
			return err
		}
		photoID = sql.NullInt64{Int64: id, Valid: true}
	}

	const insert = `
INSERT INTO individual_meal
	(registered_user_id, meal_category_id, meal_date_id, meal_description_id, meal_person_id, meal_photo_id, restaurant, takeaway, vegetarian)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = tx.ExecContext(ctx, insert, userID, catID, dateID, descID, personID, photoID, meal.Restaurant, meal.Takeaway, meal.Vegetarian)
	if err != nil {
		return fmt.Errorf("db: insert individual meal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// UpdateMeal re-resolves every foreign key and overwrites the joining row,
// then sweeps whatever the original row referenced that is now orphaned.
func (d *Database) UpdateMeal(ctx context.Context, userID int64, meal MealInput, original *Meal) error {
	if BeforeGenesis(meal.Date) {
		return ErrBeforeGenesis
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	descID, err := insertDescription(ctx, tx, meal.Description, userID)
	if err != nil {
		return err
	}
	catID, err := insertCategory(ctx, tx, meal.Category, userID)
	if err != nil {
		return err
	}
	dateID, err := insertDate(ctx, tx, meal.Date, userID)
	if err != nil {
		return err
	}
	personID, err := insertPerson(ctx, tx, meal.Person, userID)
	if err != nil {
		return err
	}

	var photoID sql.NullInt64
	if meal.hasPhoto() {
		id, err := insertPhoto(ctx, tx, meal.PhotoOriginal, meal.PhotoConverted, userID)
		if err != nil {
			return err
		}
		photoID = sql.NullInt64{Int64: id, Valid: true}
	}

	const update = `
UPDATE individual_meal SET
	meal_category_id = $1, meal_date_id = $2, meal_description_id = $3,
	meal_person_id = $4, meal_photo_id = $5, restaurant = $6, takeaway = $7, vegetarian = $8
WHERE individual_meal_id = $9`
	_, err = tx.ExecContext(ctx, update, catID, dateID, descID, personID, photoID, meal.Restaurant, meal.Takeaway, meal.Vegetarian, original.IndividualMealID)
	if err != nil {
		return fmt.Errorf("db: update individual meal: %w", err)
	}

	if err := deleteEmpty(ctx, tx, original); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

// DeleteMeal deletes the joining row then sweeps now-orphaned rows,
// returning the (original, converted) photo filenames if the meal had one
// so the caller can remove the files from disk.
func (d *Database) DeleteMeal(ctx context.Context, person Person, date time.Time) (original, converted string, err error) {
	meal, err := d.GetMeal(ctx, person, date)
	if err != nil {
		return "", "", err
	}
	if meal == nil {
		return "", "", fmt.Errorf("db: delete meal: %w", sql.ErrNoRows)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("db: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM individual_meal WHERE individual_meal_id = $1`, meal.IndividualMealID); err != nil {
		return "", "", fmt.Errorf("db: delete individual meal: %w", err)
	}
	if err := deleteEmpty(ctx, tx, meal); err != nil {
		return "", "", err
	}
	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("db: commit: %w", err)
	}

	if meal.PhotoOriginal.Valid && meal.PhotoConverted.Valid {
		return meal.PhotoOriginal.String, meal.PhotoConverted.String, nil
	}
	return "", "", nil
}
