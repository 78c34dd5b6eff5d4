package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjackwills/mealpedant/internal/config"
)

func TestSweepRetentionRemovesOnlyStaleArchives(t *testing.T) {
	dir := t.TempDir()

	fresh := filepath.Join(dir, "mealpedant_2024-03-07_04.00.00_LOGS_REDIS_SQL_deadbeef.tar.age")
	stale := filepath.Join(dir, "mealpedant_2024-02-01_04.00.00_LOGS_REDIS_SQL_cafebabe.tar.age")
	unrelated := filepath.Join(dir, "notes.txt")

	for _, p := range []string{fresh, stale, unrelated} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}

	staleTime := time.Now().Add(-(retentionDays + 1) * 24 * time.Hour)
	require.NoError(t, os.Chtimes(stale, staleTime, staleTime))

	s := &Scheduler{env: &config.AppEnv{LocationBackup: dir}}
	require.NoError(t, s.sweepRetention())

	assert.FileExists(t, fresh)
	assert.FileExists(t, unrelated)
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale archive should have been swept")
}
