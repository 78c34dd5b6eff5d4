package staticserve

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrjackwills/mealpedant/internal/appstate"
	"github.com/mrjackwills/mealpedant/internal/config"
	"github.com/mrjackwills/mealpedant/internal/db"
	"github.com/mrjackwills/mealpedant/internal/kv"
)

func newTestState(t *testing.T) *appstate.State {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	mr := miniredis.RunT(t)
	kvClient := kv.NewClientForTesting(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	database := db.NewDatabaseForTesting(mockDB)

	public := t.TempDir()
	originalDir := t.TempDir()
	convertedDir := t.TempDir()

	env := &config.AppEnv{
		CookieName:             "mealpedant_id",
		CookieSecret:           []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"),
		Domain:                 "example.com",
		Production:             false,
		LocationPublic:         public,
		LocationPhotoOriginal:  originalDir,
		LocationPhotoConverted: convertedDir,
	}
	return appstate.New(env, database, kvClient)
}

func TestAssetHandlerPrefersGzipVariant(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, os.WriteFile(filepath.Join(state.Env.LocationPublic, "app.js"), []byte("plain"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(state.Env.LocationPublic, "app.js.gz"), []byte("gzipped"), 0o644))

	router := NewRouter(state)

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestAssetHandlerFallsBackWithoutGzipSupport(t *testing.T) {
	state := newTestState(t)
	require.NoError(t, os.WriteFile(filepath.Join(state.Env.LocationPublic, "app.js"), []byte("plain"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(state.Env.LocationPublic, "app.js.gz"), []byte("gzipped"), 0o644))

	router := NewRouter(state)

	req := httptest.NewRequest(http.MethodGet, "/app.js", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestAssetHandlerMissingFileIsNotFound(t *testing.T) {
	state := newTestState(t)
	router := NewRouter(state)

	req := httptest.NewRequest(http.MethodGet, "/missing.js", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, noCacheControl, w.Header().Get("Cache-Control"))
}

func TestPhotoHandlerUnparseableNameIsNotFound(t *testing.T) {
	state := newTestState(t)
	router := NewRouter(state)

	req := httptest.NewRequest(http.MethodGet, "/photo/not-a-real-name", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
