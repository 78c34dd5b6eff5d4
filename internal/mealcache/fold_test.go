package mealcache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFoldDateMealsMergesSameDateBothPersons(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []db.DateMealRow{
		{DateOfMeal: date, MealCategoryID: 1, Person: db.PersonDave, MealDescriptionID: 10},
		{DateOfMeal: date, MealCategoryID: 2, Person: db.PersonJack, MealDescriptionID: 11},
	}

	folded := foldDateMeals(rows)
	require.Len(t, folded, 1)
	assert.Equal(t, "2024-03-01", folded[0].Date)
	require.NotNil(t, folded[0].Dave)
	require.NotNil(t, folded[0].Jack)
	assert.Equal(t, int64(1), folded[0].Dave.CategoryID)
	assert.Equal(t, int64(2), folded[0].Jack.CategoryID)
}

func TestFoldDateMealsDistinctDatesStaySeparate(t *testing.T) {
	d1 := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []db.DateMealRow{
		{DateOfMeal: d1, Person: db.PersonJack, MealDescriptionID: 1},
		{DateOfMeal: d2, Person: db.PersonJack, MealDescriptionID: 2},
	}

	folded := foldDateMeals(rows)
	require.Len(t, folded, 2)
	assert.Equal(t, "2024-03-02", folded[0].Date)
	assert.Equal(t, "2024-03-01", folded[1].Date)
}

func TestFoldDateMealsJackOnlyOmitsPhotoOriginal(t *testing.T) {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := []db.DateMealRow{
		{
			DateOfMeal:     date,
			Person:         db.PersonJack,
			PhotoConverted: sql.NullString{String: "abc.jpg", Valid: true},
		},
	}

	folded := foldDateMeals(rows)
	require.Len(t, folded, 1)
	require.NotNil(t, folded[0].Jack)
	assert.Equal(t, "abc.jpg", folded[0].Jack.PhotoConverted)
	assert.Empty(t, folded[0].Jack.PhotoOriginal)
}

func TestHashDateMealsDeterministic(t *testing.T) {
	dm := []DateMeal{{Date: "2024-03-01", Jack: &PersonMeal{CategoryID: 1, DescriptionID: 2}}}
	h1, err := hashDateMeals(dm)
	require.NoError(t, err)
	h2, err := hashDateMeals(dm)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestHashDateMealsEmptyVsNil(t *testing.T) {
	hNil, err := hashDateMeals(nil)
	require.NoError(t, err)
	hEmpty, err := hashDateMeals([]DateMeal{})
	require.NoError(t, err)
	assert.Equal(t, hNil, hEmpty)
}

func TestFoldIDTextMap(t *testing.T) {
	rows := []db.MealDescriptionRow{{ID: 1, Text: "eggs"}, {ID: 2, Text: "toast"}}
	m := foldIDTextMap(rows)
	assert.Equal(t, "eggs", m[1])
	assert.Equal(t, "toast", m[2])
}
