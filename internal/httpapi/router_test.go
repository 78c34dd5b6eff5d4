package httpapi

import (
	"net/http"
	"net/http/httptest"
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

func newTestState(t *testing.T) (*appstate.State, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	mr := miniredis.RunT(t)
	kvClient := kv.NewClientForTesting(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	database := db.NewDatabaseForTesting(mockDB)

	env := &config.AppEnv{
		CookieName:   "mealpedant_id",
		CookieSecret: []byte("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcd"),
		Domain:       "example.com",
		Production:   false,
	}
	return appstate.New(env, database, kvClient), mock
}

func TestOnlineRouteIsUngated(t *testing.T) {
	state, _ := newTestState(t)
	router := NewRouter(state)

	req := httptest.NewRequest(http.MethodGet, "/v1/incognito/online", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticatedRouteRejectsMissingSession(t *testing.T) {
	state, _ := newTestState(t)
	router := NewRouter(state)

	req := httptest.NewRequest(http.MethodGet, "/v1/user", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCORSPreflightAllowsConfiguredOrigin(t *testing.T) {
	state, _ := newTestState(t)
	router := NewRouter(state)

	req := httptest.NewRequest(http.MethodOptions, "/v1/user", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
