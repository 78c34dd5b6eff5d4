package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBindTestContext(t *testing.T, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestBindJSONRejectsUnknownField(t *testing.T) {
	type target struct {
		Name string `json:"name" binding:"required"`
	}
	c, _ := newBindTestContext(t, `{"name":"jack","extra":"nope"}`)
	var dst target
	err := bindJSON(c, &dst)
	require.Error(t, err)
}

func TestBindJSONRejectsMissingRequiredField(t *testing.T) {
	type target struct {
		Name string `json:"name" binding:"required"`
	}
	c, _ := newBindTestContext(t, `{}`)
	var dst target
	err := bindJSON(c, &dst)
	require.Error(t, err)
}

func TestBindJSONAcceptsValidBody(t *testing.T) {
	type target struct {
		Name string `json:"name" binding:"required"`
	}
	c, _ := newBindTestContext(t, `{"name":"jack"}`)
	var dst target
	err := bindJSON(c, &dst)
	require.NoError(t, err)
	assert.Equal(t, "jack", dst.Name)
}
