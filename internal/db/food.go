package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DateMealRow is one row of the per-person meal feed, grounded on
// ModelDateMeal::get_all; internal/mealcache folds consecutive rows sharing
// a date into a single DateMeal entry.
type DateMealRow struct {
	DateOfMeal        time.Time
	MealCategoryID    int64
	Person            Person
	Restaurant        bool
	Takeaway          bool
	Vegetarian        bool
	MealDescriptionID int64
	PhotoOriginal     sql.NullString
	PhotoConverted    sql.NullString
}

const dateMealBothQuery = `
SELECT
	md.date_of_meal, im.meal_category_id, mpe.person,
	im.restaurant, im.takeaway, im.vegetarian,
	mde.meal_description_id, mp.photo_original, mp.photo_converted
FROM individual_meal im
JOIN meal_date md USING (meal_date_id)
JOIN meal_description mde USING (meal_description_id)
JOIN meal_person mpe USING (meal_person_id)
LEFT JOIN meal_photo mp USING (meal_photo_id)
ORDER BY md.date_of_meal DESC, mpe.person`

const dateMealJackQuery = `
SELECT
	md.date_of_meal, im.meal_category_id, mpe.person,
	im.restaurant, im.takeaway, im.vegetarian,
	mde.meal_description_id, mp.photo_converted, NULL
FROM individual_meal im
JOIN meal_date md USING (meal_date_id)
JOIN meal_description mde USING (meal_description_id)
JOIN meal_person mpe USING (meal_person_id)
LEFT JOIN meal_photo mp USING (meal_photo_id)
WHERE mpe.person = 'Jack'
ORDER BY md.date_of_meal DESC`

// GetDateMeals returns the raw per-person feed rows for the given audience.
// both=true joins Dave and Jack rows with both photo filenames present;
// both=false restricts to Jack and omits photo_original, matching the
// anonymous variant's privacy rule (spec §4.G).
func (d *Database) GetDateMeals(ctx context.Context, both bool) ([]DateMealRow, error) {
	query := dateMealJackQuery
	if both {
		query = dateMealBothQuery
	}
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db: get date meals: %w", err)
	}
	defer rows.Close()

	var out []DateMealRow
	for rows.Next() {
		var r DateMealRow
		var person string
		if !both {
			var photoConverted sql.NullString
			if err := rows.Scan(&r.DateOfMeal, &r.MealCategoryID, &person, &r.Restaurant, &r.Takeaway, &r.Vegetarian, &r.MealDescriptionID, &photoConverted, new(sql.NullString)); err != nil {
				return nil, fmt.Errorf("db: scan date meal: %w", err)
			}
			r.PhotoConverted = photoConverted
		} else {
			if err := rows.Scan(&r.DateOfMeal, &r.MealCategoryID, &person, &r.Restaurant, &r.Takeaway, &r.Vegetarian, &r.MealDescriptionID, &r.PhotoOriginal, &r.PhotoConverted); err != nil {
				return nil, fmt.Errorf("db: scan date meal: %w", err)
			}
		}
		r.Person = Person(person)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MealDescriptionRow is one (id, text) pair from meal_description.
type MealDescriptionRow struct {
	ID   int64
	Text string
}

const mealDescriptionsBothQuery = `
SELECT DISTINCT md.meal_description_id, md.description
FROM meal_description md
JOIN individual_meal im USING (meal_description_id)
JOIN meal_person mpe USING (meal_person_id)
ORDER BY md.meal_description_id DESC`

const mealDescriptionsJackQuery = `
SELECT DISTINCT md.meal_description_id, md.description
FROM meal_description md
JOIN individual_meal im USING (meal_description_id)
JOIN meal_person mpe USING (meal_person_id)
WHERE mpe.person = 'Jack'
ORDER BY md.meal_description_id DESC`

// GetMealDescriptions returns every description reachable from at least one
// meal, scoped to the given audience, as id→text pairs.
func (d *Database) GetMealDescriptions(ctx context.Context, both bool) ([]MealDescriptionRow, error) {
	query := mealDescriptionsJackQuery
	if both {
		query = mealDescriptionsBothQuery
	}
	return queryIDTextRows(ctx, d.db, query)
}

const mealCategoriesBothQuery = `
SELECT DISTINCT im.meal_category_id, mc.category
FROM individual_meal im
JOIN meal_category mc USING (meal_category_id)
JOIN meal_person mpe USING (meal_person_id)
ORDER BY mc.category DESC`

const mealCategoriesJackQuery = `
SELECT DISTINCT im.meal_category_id, mc.category
FROM individual_meal im
JOIN meal_category mc USING (meal_category_id)
JOIN meal_person mpe USING (meal_person_id)
WHERE mpe.person = 'Jack'
ORDER BY mc.category DESC`

// GetMealCategories returns every category reachable from at least one
// meal, scoped to the given audience, as id→text pairs.
func (d *Database) GetMealCategories(ctx context.Context, both bool) ([]MealDescriptionRow, error) {
	query := mealCategoriesJackQuery
	if both {
		query = mealCategoriesBothQuery
	}
	return queryIDTextRows(ctx, d.db, query)
}

func queryIDTextRows(ctx context.Context, q interface {
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
}, query string) ([]MealDescriptionRow, error) {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db: query id/text rows: %w", err)
	}
	defer rows.Close()

	var out []MealDescriptionRow
	for rows.Next() {
		var r MealDescriptionRow
		if err := rows.Scan(&r.ID, &r.Text); err != nil {
			return nil, fmt.Errorf("db: scan id/text row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GenesisDate is day one of the meal diary: no meal predates it, so the
// missing-food sweep never needs to look further back, and InsertMeal/
// UpdateMeal reject anything earlier.
var GenesisDate = time.Date(2015, time.May, 9, 0, 0, 0, 0, time.UTC)

// BeforeGenesis reports whether date predates GenesisDate: meals before it
// are rejected outright.
func BeforeGenesis(date time.Time) bool {
	return date.Before(GenesisDate)
}

// MissingFoodRow is one date on which a given person logged no meal.
type MissingFoodRow struct {
	Date   time.Time
	Person Person
}

const missingFoodQuery = `
WITH all_dates AS (
	SELECT missing_date::date FROM generate_series($1::date, current_date - INTERVAL '1 day', interval '1 day') AS missing_date
)
SELECT missing_date, 'Jack' AS person
FROM all_dates
WHERE missing_date NOT IN (
	SELECT date_of_meal FROM individual_meal im
	JOIN meal_date md USING (meal_date_id)
	JOIN meal_person mp USING (meal_person_id)
	WHERE mp.person = 'Jack'
)
UNION ALL
SELECT missing_date, 'Dave' AS person
FROM all_dates
WHERE missing_date NOT IN (
	SELECT date_of_meal FROM individual_meal im
	JOIN meal_date md USING (meal_date_id)
	JOIN meal_person mp USING (meal_person_id)
	WHERE mp.person = 'Dave'
)
ORDER BY missing_date DESC, person ASC`

// GetMissingFood lists every (date, person) pair since the genesis date for
// which that person has no logged meal; an admin-surface supplement beyond
// spec.md's explicit route table, grounded on ModelMissingFood::get.
func (d *Database) GetMissingFood(ctx context.Context) ([]MissingFoodRow, error) {
	rows, err := d.db.QueryContext(ctx, missingFoodQuery, GenesisDate)
	if err != nil {
		return nil, fmt.Errorf("db: get missing food: %w", err)
	}
	defer rows.Close()

	var out []MissingFoodRow
	for rows.Next() {
		var r MissingFoodRow
		var person string
		if err := rows.Scan(&r.Date, &person); err != nil {
			return nil, fmt.Errorf("db: scan missing food: %w", err)
		}
		r.Person = Person(person)
		out = append(out, r)
	}
	return out, rows.Err()
}
