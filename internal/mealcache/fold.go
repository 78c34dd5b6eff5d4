package mealcache

import (
	"github.com/mrjackwills/mealpedant/internal/db"
)

const dateLayout = "2006-01-02"

// foldDateMeals groups consecutive same-date rows from GetDateMeals into
// DateMeal entries, preserving row order (DATE DESC, person) exactly as
// ModelDateMeal::get_all returns it; consecutive rows sharing a date are
// merged rather than re-sorted, since the query already guarantees adjacency.
func foldDateMeals(rows []db.DateMealRow) []DateMeal {
	out := make([]DateMeal, 0, len(rows))
	for _, r := range rows {
		dateStr := r.DateOfMeal.Format(dateLayout)
		pm := &PersonMeal{
			CategoryID:    r.MealCategoryID,
			DescriptionID: r.MealDescriptionID,
			Restaurant:    r.Restaurant,
			Takeaway:      r.Takeaway,
			Vegetarian:    r.Vegetarian,
		}
		if r.PhotoOriginal.Valid {
			pm.PhotoOriginal = r.PhotoOriginal.String
		}
		if r.PhotoConverted.Valid {
			pm.PhotoConverted = r.PhotoConverted.String
		}

		var existing *DateMeal
		if n := len(out); n > 0 && out[n-1].Date == dateStr {
			existing = &out[n-1]
		}
		if existing == nil {
			out = append(out, DateMeal{Date: dateStr})
			existing = &out[len(out)-1]
		}
		switch r.Person {
		case db.PersonJack:
			existing.Jack = pm
		case db.PersonDave:
			existing.Dave = pm
		}
	}
	return out
}

func foldIDTextMap(rows []db.MealDescriptionRow) map[int64]string {
	out := make(map[int64]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Text
	}
	return out
}
