// Package appstate bundles every collaborator both HTTP servers need into a
// single read-only value, the same shape as the teacher's ApiState: built
// once at startup, cloned by reference into Gin's context on every request,
// never mutated afterwards.
package appstate

import (
	"github.com/mrjackwills/mealpedant/internal/authn"
	"github.com/mrjackwills/mealpedant/internal/config"
	"github.com/mrjackwills/mealpedant/internal/credentials"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/email"
	"github.com/mrjackwills/mealpedant/internal/kv"
	"github.com/mrjackwills/mealpedant/internal/mealcache"
	"github.com/mrjackwills/mealpedant/internal/photo"
)

// State is the single dependency-injection root for cmd/api and cmd/static.
type State struct {
	Env       *config.AppEnv
	DB        *db.Database
	KV        *kv.Client
	Auth      *authn.Service
	MealCache *mealcache.Store
	Photo     *photo.Store
	CookieMAC *credentials.CookieMAC
}

// New wires every collaborator from env, matching the teacher's ApiState::init
// sequence: DB pool, then Redis, then the services layered on top of both.
func New(env *config.AppEnv, database *db.Database, kvClient *kv.Client) *State {
	passes := credentials.ArgonPassesRelease
	if !env.Production {
		passes = credentials.ArgonPassesTest
	}
	hasher := credentials.NewHasher(uint32(passes))
	mailer := email.NewMailer(email.Config{
		Host:    env.EmailHost,
		Port:    env.EmailPort,
		Name:    env.EmailName,
		Address: env.EmailAddress,
		Pass:    env.EmailPass,
	})

	return &State{
		Env:       env,
		DB:        database,
		KV:        kvClient,
		Auth:      authn.New(database, kvClient, hasher, credentials.NewHIBPClient(), mailer, env.Invite),
		MealCache: mealcache.New(database, kvClient),
		Photo: photo.New(photo.Config{
			OriginalDir:   env.LocationPhotoOriginal,
			ConvertedDir:  env.LocationPhotoConverted,
			WatermarkPath: env.LocationWatermark,
		}),
		CookieMAC: credentials.NewCookieMAC(env.CookieSecret),
	}
}
