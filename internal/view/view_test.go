package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New()
	require.NoError(t, err)
	return r
}

func TestPagesRender(t *testing.T) {
	r := newRenderer(t)

	for _, p := range []string{"signup", "login", "task"} {
		rec := httptest.NewRecorder()
		require.NoError(t, r.Page(rec, http.StatusOK, p, nil), p)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Body.String(), "AVreX")
	}
}

func TestPageEscapesData(t *testing.T) {
	r := newRenderer(t)
	rec := httptest.NewRecorder()
	data := map[string]any{"Ads": []map[string]any{{"ID": 1, "Description": "<script>x</script>"}}}
	require.NoError(t, r.Page(rec, http.StatusOK, "view_ads", data))
	assert.NotContains(t, rec.Body.String(), "<script>x</script>")
	assert.Contains(t, rec.Body.String(), "&lt;script&gt;")
}

func TestUnknownPage(t *testing.T) {
	rec := httptest.NewRecorder()
	require.Error(t, newRenderer(t).Page(rec, http.StatusOK, "missing", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgInternal, rec.Body.String())
}

func TestText(t *testing.T) {
	rec := httptest.NewRecorder()
	Text(rec, http.StatusForbidden, MsgAccessDenied)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "❌ Access Denied. Admins Only.", rec.Body.String())
}
