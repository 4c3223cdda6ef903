package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRendersPage(t *testing.T) {
	h, err := NewHandler("gemini-test-image")
	require.NoError(t, err)

	r := mux.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "Illustration Variation Generator")
	assert.Contains(t, body, "Upload a PNG, JPG, or WEBP file. Max size: 4MB.")
	assert.Contains(t, body, "Generate Variations")
	assert.Contains(t, body, "Model: gemini-test-image")
}

func TestIndexOnlyServesGet(t *testing.T) {
	h, err := NewHandler("m")
	require.NoError(t, err)

	r := mux.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
