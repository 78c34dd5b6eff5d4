package backup

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrjackwills/mealpedant/internal/config"
	"github.com/mrjackwills/mealpedant/internal/logger"
)

// Scheduler owns the single minute-aligned cron instance spec §4.J
// describes, wired to the two wall-clock triggers.
type Scheduler struct {
	env *config.AppEnv
	cr  *cron.Cron
}

func New(env *config.AppEnv) *Scheduler {
	return &Scheduler{env: env, cr: cron.New(cron.WithLocation(time.UTC))}
}

// Start registers the 04:00 full-backup and 04:05 SQL-only triggers and
// starts the cron background goroutine. Each trigger fires its own run in
// a new goroutine, per spec §4.J ("spawns an independent task so one slow
// run cannot delay the next").
func (s *Scheduler) Start() error {
	if _, err := s.cr.AddFunc("0 4 * * *", func() {
		go s.runGuarded(KindFull)
	}); err != nil {
		return fmt.Errorf("backup: schedule full trigger: %w", err)
	}
	if _, err := s.cr.AddFunc("5 4 * * *", func() {
		go s.runGuarded(KindSQLOnly)
	}); err != nil {
		return fmt.Errorf("backup: schedule sql-only trigger: %w", err)
	}
	s.cr.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cr.Stop()
}

func (s *Scheduler) runGuarded(kind Kind) {
	defer func() {
		if r := recover(); r != nil {
			logger.Backup().Error().Interface("panic", r).Msg("backup run panicked")
		}
	}()
	if err := s.Run(context.Background(), kind); err != nil {
		logger.Backup().Error().Err(err).Str("kind", string(kind)).Msg("backup run failed")
	}
}

// Run executes one full backup cycle: temp dir, per-part archives,
// combine, encrypt, place in LocationBackup, clean up, sweep retention
// (spec §4.J steps 1-9).
func (s *Scheduler) Run(ctx context.Context, kind Kind) error {
	tempDir, err := os.MkdirTemp(s.env.LocationTemp, "mealpedant-backup-*")
	if err != nil {
		return fmt.Errorf("backup: make temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	var parts []string

	if kind == KindFull {
		staticTar := filepath.Join(tempDir, "static.tar")
		if err := tarDirectory(s.env.LocationStatic, staticTar); err != nil {
			return err
		}
		parts = append(parts, staticTar)
	}

	redisTarGz := filepath.Join(tempDir, "redis.tar.gz")
	if err := tarGzipFile(s.env.LocationRedis, redisTarGz); err != nil {
		return err
	}
	parts = append(parts, redisTarGz)

	logsTarGz := filepath.Join(tempDir, "logs.tar.gz")
	if err := tarGzipFile(s.env.LocationLogs, logsTarGz); err != nil {
		return err
	}
	parts = append(parts, logsTarGz)

	sqlGz := filepath.Join(tempDir, "sql.dump.gz")
	if err := runPgDump(ctx, s.env.PgHost, s.env.PgPort, s.env.PgUser, s.env.PgPass, s.env.PgDatabase, sqlGz); err != nil {
		return err
	}
	parts = append(parts, sqlGz)

	combined := filepath.Join(tempDir, "combined.tar")
	if err := combineArchives(parts, combined); err != nil {
		return err
	}

	plaintext, err := os.ReadFile(combined)
	if err != nil {
		return fmt.Errorf("backup: read combined archive: %w", err)
	}
	sealed, err := encrypt(s.env.BackupPassphrase, plaintext)
	if err != nil {
		return err
	}

	suffix, err := randomHexSuffix()
	if err != nil {
		return err
	}
	name := filename(time.Now(), kind, suffix)
	finalPath := filepath.Join(s.env.LocationBackup, name)
	if err := os.WriteFile(finalPath, sealed, 0o600); err != nil {
		return fmt.Errorf("backup: write final archive: %w", err)
	}

	logger.Backup().Info().Str("file", name).Msg("backup written")
	return s.sweepRetention()
}

const retentionDays = 6

// sweepRetention deletes any backup file (.age, plus .gpg for archives the
// system migrated from) older than retentionDays (spec §4.J step 9).
func (s *Scheduler) sweepRetention() error {
	entries, err := os.ReadDir(s.env.LocationBackup)
	if err != nil {
		return fmt.Errorf("backup: read backup dir: %w", err)
	}
	cutoff := time.Now().Add(-retentionDays * 24 * time.Hour)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".age" && ext != ".gpg" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			path := filepath.Join(s.env.LocationBackup, entry.Name())
			if err := os.Remove(path); err != nil {
				logger.Backup().Error().Err(err).Str("file", entry.Name()).Msg("failed to sweep old backup")
			}
		}
	}
	return nil
}

func randomHexSuffix() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("backup: generate suffix: %w", err)
	}
	return hex.EncodeToString(b), nil
}
