// Package config parses the mealpedant environment into one immutable
// struct, in the teacher's getEnv/getEnvInt idiom, but failing fast (rather
// than defaulting) when a mandatory variable is absent — the source treats
// essentially every one of these as required.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// AppEnv is the single immutable configuration value threaded through the
// whole application, equivalent to the source's AppEnv / parse_env.rs.
type AppEnv struct {
	APIHost    string
	APIPort    int
	StaticHost string
	StaticPort int
	Domain     string
	Invite     string
	Production bool

	CookieName   string
	CookieSecret []byte // exactly 64 bytes, HMAC key for the session cookie

	PgHost     string
	PgPort     int
	PgUser     string
	PgPass     string
	PgDatabase string

	RedisHost string
	RedisPort int
	RedisPass string
	RedisDB   int

	EmailHost    string
	EmailPort    int
	EmailName    string
	EmailAddress string
	EmailPass    string

	LocationLogs            string
	LocationPublic          string
	LocationPhotoOriginal   string
	LocationPhotoConverted  string
	LocationWatermark       string
	LocationBackup          string
	LocationRedis           string
	LocationStatic          string
	LocationTemp            string

	BackupPassphrase string
}

// Load reads and validates every §6 environment variable. Unlike the
// teacher's getEnv(key, default), every one of these is mandatory: a missing
// var is a startup-time fatal condition, not a silently-applied default.
func Load() (*AppEnv, error) {
	var errs []string
	str := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			errs = append(errs, key)
		}
		return v
	}
	num := func(key string) int {
		v := os.Getenv(key)
		if v == "" {
			errs = append(errs, key)
			return 0
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, key+" (not an integer)")
		}
		return n
	}

	env := &AppEnv{
		APIHost:    str("API_HOST"),
		APIPort:    num("API_PORT"),
		StaticHost: str("STATIC_HOST"),
		StaticPort: num("STATIC_PORT"),
		Domain:     str("DOMAIN"),
		Invite:     str("INVITE"),
		Production: str("PRODUCTION") == "true",

		CookieName: str("COOKIE_NAME"),

		PgHost:     str("PG_HOST"),
		PgPort:     num("PG_PORT"),
		PgUser:     str("PG_USER"),
		PgPass:     str("PG_PASS"),
		PgDatabase: str("PG_DATABASE"),

		RedisHost: str("REDIS_HOST"),
		RedisPort: num("REDIS_PORT"),
		RedisPass: str("REDIS_PASS"),
		RedisDB:   num("REDIS_DB"),

		EmailHost:    str("EMAIL_HOST"),
		EmailPort:    num("EMAIL_PORT"),
		EmailName:    str("EMAIL_NAME"),
		EmailAddress: str("EMAIL_ADDRESS"),
		EmailPass:    str("EMAIL_PASS"),

		LocationLogs:           str("LOCATION_LOGS"),
		LocationPublic:         str("LOCATION_PUBLIC"),
		LocationPhotoOriginal:  str("LOCATION_PHOTO_ORIGINAL"),
		LocationPhotoConverted: str("LOCATION_PHOTO_CONVERTED"),
		LocationWatermark:      str("LOCATION_WATERMARK"),
		LocationBackup:         str("LOCATION_BACKUP"),
		LocationRedis:          str("LOCATION_REDIS"),
		LocationStatic:         str("LOCATION_STATIC"),
		LocationTemp:           str("LOCATION_TEMP"),

		BackupPassphrase: str("BACKUP_GPG"),
	}

	secret := os.Getenv("COOKIE_SECRET")
	if len(secret) != 64 {
		errs = append(errs, "COOKIE_SECRET (must be exactly 64 bytes)")
	} else {
		env.CookieSecret = []byte(secret)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("config: missing or invalid environment variables: %v", errs)
	}
	return env, nil
}
