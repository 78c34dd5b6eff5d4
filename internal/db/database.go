// Package db provides the durable relational store: users, 2FA secrets and
// backup codes, login history/attempts, password resets, the IP/user-agent
// registry, the banned-domain table, and the meal/photo schema. It issues
// parameterised statements and transactions directly over database/sql, the
// same approach the teacher's internal/db package takes.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/mrjackwills/mealpedant/internal/logger"
)

// Config mirrors the teacher's db.Config, with SSLMode defaulting to
// "disable" for local/dev the same way.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// Database wraps *sql.DB, exposing only the operations this module's models
// need rather than the raw pool, mirroring teacher's internal/db/database.go.
type Database struct {
	db *sql.DB
}

func NewDatabase(cfg Config) (*Database, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	sqlDB, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	// Cap matches spec §9's "DB connections pooled (cap ≈ 20)".
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	sqlDB.SetConnMaxIdleTime(1 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	logger.Database().Info().Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("connected")
	return &Database{db: sqlDB}, nil
}

// NewDatabaseForTesting wraps an existing *sql.DB (typically a sqlmock
// connection), matching the teacher's test-only constructor.
func NewDatabaseForTesting(sqlDB *sql.DB) *Database {
	return &Database{db: sqlDB}
}

func (d *Database) Close() error { return d.db.Close() }

func (d *Database) DB() *sql.DB { return d.db }

// Migrate creates every table this module owns if absent. Schema migration
// tooling proper is explicitly out of scope (spec §1's Non-goals list);
// this mirrors the teacher's own CREATE TABLE IF NOT EXISTS approach for
// bootstrapping a fresh environment.
func (d *Database) Migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ip_address (
			ip_id BIGSERIAL PRIMARY KEY,
			ip INET NOT NULL UNIQUE,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS user_agent (
			user_agent_id BIGSERIAL PRIMARY KEY,
			user_agent_string TEXT NOT NULL UNIQUE,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS banned_email_domain (
			banned_email_domain_id BIGSERIAL PRIMARY KEY,
			domain TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS registered_user (
			registered_user_id BIGSERIAL PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			ip_id BIGINT REFERENCES ip_address(ip_id),
			user_agent_id BIGINT REFERENCES user_agent(user_agent_id),
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS admin_user (
			registered_user_id BIGINT PRIMARY KEY REFERENCES registered_user(registered_user_id) ON DELETE CASCADE,
			admin BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS two_fa_secret (
			two_fa_secret_id BIGSERIAL PRIMARY KEY,
			registered_user_id BIGINT NOT NULL UNIQUE REFERENCES registered_user(registered_user_id) ON DELETE CASCADE,
			two_fa_secret TEXT NOT NULL,
			always_required BOOLEAN NOT NULL DEFAULT FALSE,
			ip_id BIGINT REFERENCES ip_address(ip_id),
			user_agent_id BIGINT REFERENCES user_agent(user_agent_id),
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS two_fa_backup (
			two_fa_backup_id BIGSERIAL PRIMARY KEY,
			registered_user_id BIGINT NOT NULL REFERENCES registered_user(registered_user_id) ON DELETE CASCADE,
			two_fa_backup_code TEXT NOT NULL,
			ip_id BIGINT REFERENCES ip_address(ip_id),
			user_agent_id BIGINT REFERENCES user_agent(user_agent_id),
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS login_attempt (
			registered_user_id BIGINT PRIMARY KEY REFERENCES registered_user(registered_user_id) ON DELETE CASCADE,
			login_attempt_number BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS login_history (
			login_history_id BIGSERIAL PRIMARY KEY,
			registered_user_id BIGINT NOT NULL REFERENCES registered_user(registered_user_id) ON DELETE CASCADE,
			ip_id BIGINT REFERENCES ip_address(ip_id),
			user_agent_id BIGINT REFERENCES user_agent(user_agent_id),
			success BOOLEAN NOT NULL,
			session_name TEXT,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS password_reset (
			password_reset_id BIGSERIAL PRIMARY KEY,
			registered_user_id BIGINT NOT NULL REFERENCES registered_user(registered_user_id) ON DELETE CASCADE,
			reset_string TEXT NOT NULL UNIQUE,
			ip_id BIGINT REFERENCES ip_address(ip_id),
			user_agent_id BIGINT REFERENCES user_agent(user_agent_id),
			consumed BOOLEAN NOT NULL DEFAULT FALSE,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS meal_date (
			meal_date_id BIGSERIAL PRIMARY KEY,
			date_of_meal DATE NOT NULL UNIQUE,
			registered_user_id BIGINT REFERENCES registered_user(registered_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS meal_category (
			meal_category_id BIGSERIAL PRIMARY KEY,
			category TEXT NOT NULL UNIQUE,
			registered_user_id BIGINT REFERENCES registered_user(registered_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS meal_description (
			meal_description_id BIGSERIAL PRIMARY KEY,
			description TEXT NOT NULL UNIQUE,
			registered_user_id BIGINT REFERENCES registered_user(registered_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS meal_person (
			meal_person_id BIGSERIAL PRIMARY KEY,
			person TEXT NOT NULL UNIQUE,
			registered_user_id BIGINT REFERENCES registered_user(registered_user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS meal_photo (
			meal_photo_id BIGSERIAL PRIMARY KEY,
			photo_original TEXT NOT NULL,
			photo_converted TEXT NOT NULL,
			registered_user_id BIGINT REFERENCES registered_user(registered_user_id),
			UNIQUE (photo_original, photo_converted)
		)`,
		`CREATE TABLE IF NOT EXISTS individual_meal (
			individual_meal_id BIGSERIAL PRIMARY KEY,
			registered_user_id BIGINT REFERENCES registered_user(registered_user_id),
			meal_category_id BIGINT NOT NULL REFERENCES meal_category(meal_category_id),
			meal_date_id BIGINT NOT NULL REFERENCES meal_date(meal_date_id),
			meal_description_id BIGINT NOT NULL REFERENCES meal_description(meal_description_id),
			meal_person_id BIGINT NOT NULL REFERENCES meal_person(meal_person_id),
			meal_photo_id BIGINT REFERENCES meal_photo(meal_photo_id),
			restaurant BOOLEAN NOT NULL DEFAULT FALSE,
			takeaway BOOLEAN NOT NULL DEFAULT FALSE,
			vegetarian BOOLEAN NOT NULL DEFAULT FALSE,
			UNIQUE (meal_date_id, meal_person_id)
		)`,
	}

	for _, stmt := range statements {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("db: migrate: %w", err)
		}
	}
	return nil
}
