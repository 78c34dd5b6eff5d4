package mealcache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/kv"
	"github.com/zeebo/blake3"
)

// Store wires the raw database queries to the Redis-backed cache, giving
// callers a single get_all/get_hash/invalidate surface per spec §4.G.
type Store struct {
	db *db.Database
	kv *kv.Client
}

func New(database *db.Database, kvClient *kv.Client) *Store {
	return &Store{db: database, kv: kvClient}
}

func audienceOf(both bool) kv.CacheAudience {
	if both {
		return kv.AudienceBoth
	}
	return kv.AudienceJack
}

// GetAll returns the cached MealInfo for the given audience, populating the
// cache from the database on a miss.
func (s *Store) GetAll(ctx context.Context, both bool) (MealInfo, error) {
	audience := audienceOf(both)

	if raw, ok, err := s.kv.GetMealsCache(ctx, audience); err != nil {
		return MealInfo{}, err
	} else if ok {
		var info MealInfo
		if err := json.Unmarshal([]byte(raw), &info); err != nil {
			return MealInfo{}, fmt.Errorf("mealcache: unmarshal cached meals: %w", err)
		}
		return info, nil
	}

	return s.rebuild(ctx, both)
}

// GetHash returns the stored content hash, computing and caching it (via a
// full rebuild if necessary) on a miss.
func (s *Store) GetHash(ctx context.Context, both bool) (string, error) {
	audience := audienceOf(both)

	if hash, ok, err := s.kv.GetMealsCacheHash(ctx, audience); err != nil {
		return "", err
	} else if ok {
		return hash, nil
	}

	if _, err := s.rebuild(ctx, both); err != nil {
		return "", err
	}
	hash, ok, err := s.kv.GetMealsCacheHash(ctx, audience)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("mealcache: hash missing immediately after rebuild")
	}
	return hash, nil
}

// rebuild queries the database, folds the rows, and writes both the cache
// entry and its hash, matching MealResponse::get_all's fallback path.
func (s *Store) rebuild(ctx context.Context, both bool) (MealInfo, error) {
	descRows, err := s.db.GetMealDescriptions(ctx, both)
	if err != nil {
		return MealInfo{}, err
	}
	catRows, err := s.db.GetMealCategories(ctx, both)
	if err != nil {
		return MealInfo{}, err
	}
	dateRows, err := s.db.GetDateMeals(ctx, both)
	if err != nil {
		return MealInfo{}, err
	}

	info := MealInfo{
		Descriptions: foldIDTextMap(descRows),
		Categories:   foldIDTextMap(catRows),
		DateMeals:    foldDateMeals(dateRows),
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return MealInfo{}, fmt.Errorf("mealcache: marshal meal info: %w", err)
	}
	hash, err := hashDateMeals(info.DateMeals)
	if err != nil {
		return MealInfo{}, err
	}

	if err := s.kv.SetMealsCache(ctx, audienceOf(both), string(payload), hash); err != nil {
		return MealInfo{}, err
	}
	return info, nil
}

// hashDateMeals computes the BLAKE3 hash of the JSON serialisation of
// date_meals alone (spec §4.G): the maps are unordered so only the ordered
// list is hashed.
func hashDateMeals(dateMeals []DateMeal) (string, error) {
	if dateMeals == nil {
		dateMeals = []DateMeal{}
	}
	b, err := json.Marshal(dateMeals)
	if err != nil {
		return "", fmt.Errorf("mealcache: marshal date meals for hashing: %w", err)
	}
	h := blake3.Sum256(b)
	return fmt.Sprintf("%x", h[:]), nil
}

// Invalidate drops all four cache keys (both audiences' data and hash),
// called after any meal mutation commits and by the admin "flush" endpoint.
func (s *Store) Invalidate(ctx context.Context) error {
	return s.kv.InvalidateMealsCache(ctx)
}

// MissingFood lists every (date, person) pair since the genesis date
// lacking a logged meal; bypasses the cache since it is an admin-only,
// infrequently-called report rather than a hot read path.
func (s *Store) MissingFood(ctx context.Context) ([]MissingFood, error) {
	rows, err := s.db.GetMissingFood(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]MissingFood, 0, len(rows))
	for _, r := range rows {
		out = append(out, MissingFood{Date: r.Date.Format(dateLayout), Person: r.Person})
	}
	return out, nil
}
