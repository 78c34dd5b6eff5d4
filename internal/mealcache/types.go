// Package mealcache materialises the per-person meal feed into the grouped
// shape clients consume, caching the result and a content hash in Redis so
// repeat reads avoid the database entirely until the next mutation.
package mealcache

import "github.com/mrjackwills/mealpedant/internal/db"

// PersonMeal is one person's entry for a given date within a DateMeal.
type PersonMeal struct {
	CategoryID      int64  `json:"c"`
	DescriptionID   int64  `json:"e"`
	Restaurant      bool   `json:"r,omitempty"`
	Takeaway        bool   `json:"t,omitempty"`
	Vegetarian      bool   `json:"v,omitempty"`
	PhotoOriginal   string `json:"o,omitempty"`
	PhotoConverted  string `json:"n,omitempty"`
}

// DateMeal groups by date and carries one or both persons' entries. Jack is
// always eligible; Dave is present only in the "both" audience.
type DateMeal struct {
	Date string      `json:"d"`
	Jack *PersonMeal `json:"J,omitempty"`
	Dave *PersonMeal `json:"D,omitempty"`
}

// MealInfo is the full cached payload for one audience.
type MealInfo struct {
	Descriptions map[int64]string `json:"d"`
	Categories   map[int64]string `json:"c"`
	DateMeals    []DateMeal       `json:"m"`
}

// MissingFood is one (date, person) pair lacking a logged meal.
type MissingFood struct {
	Date   string    `json:"d"`
	Person db.Person `json:"p"`
}
