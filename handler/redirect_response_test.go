package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/backdrop/handler"
)

func TestRedirect(t *testing.T) {
	t.Parallel()

	t.Run("regular request", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Redirect("/login").Render(rec, req))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("custom code", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/old", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.RedirectWithCode("/new", http.StatusFound).Render(rec, req))
		assert.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("datastar request", func(t *testing.T) {
		t.Parallel()
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req.Header.Set("Accept", "text/event-stream")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Redirect("/login").Render(rec, req))
		assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")
		assert.Empty(t, rec.Header().Get("Location"))
		assert.Contains(t, rec.Body.String(), "/login")
	})
}

func TestIsDataStar(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, handler.IsDataStar(req))

	req = httptest.NewRequest(http.MethodGet, "/?datastar=%7B%7D", nil)
	assert.True(t, handler.IsDataStar(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "text/event-stream")
	assert.True(t, handler.IsDataStar(req))
}
