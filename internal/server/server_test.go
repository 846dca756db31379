package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go-job-acquisition/internal/filter"
	"go-job-acquisition/internal/listing"
	"go-job-acquisition/internal/logger"
	"go-job-acquisition/internal/models"
	"go-job-acquisition/internal/session"
	"go-job-acquisition/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeListings struct{}

func (fakeListings) Recent(_ context.Context, p listing.Platform, limit int) ([]models.StoredListing, error) {
	return []models.StoredListing{{ID: 1, Source: p, ListingID: "42", Title: "Go Dev"}}, nil
}

func newTestServer(t *testing.T) (*Server, *store.PreferenceFile, *session.SignalResolver) {
	prefs := store.NewPreferenceFile(filepath.Join(t.TempDir(), "titles.json"))
	resolver := session.NewSignalResolver()
	return New(prefs, resolver, fakeListings{}, logger.Nop()), prefs, resolver
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	w := do(s.Router(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestPreferences_GetAndPut(t *testing.T) {
	s, prefs, _ := newTestServer(t)
	require.NoError(t, prefs.Save(listing.LinkedIn, filter.Preferences{"Go": true, "Sales Manager": false}))
	r := s.Router()

	w := do(r, http.MethodPut, "/preferences/linkedin", `{"titles": {"Sales Manager": true, "Rust": false}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodGet, "/preferences/LINKEDIN", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Titles  map[string]bool `json:"titles"`
		Enabled []string        `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]bool{"Go": true, "Sales Manager": true, "Rust": false}, body.Titles)
	assert.Equal(t, []string{"Go", "Sales Manager"}, body.Enabled)
}

func TestPreferences_Validation(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.Router()

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/preferences/monster", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/preferences/naukri", `{"titles": {}}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/preferences/naukri", `not json`).Code)
}

func TestChallenges_Resolve(t *testing.T) {
	s, _, resolver := newTestServer(t)
	r := s.Router()

	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPost, "/challenges/naukri/resolve", "").Code)

	done := make(chan error, 1)
	go func() {
		done <- resolver.Await(context.Background(), listing.Naukri, "https://www.naukri.com/captcha")
	}()
	require.Eventually(t, func() bool { return len(resolver.Pending()) == 1 }, time.Second, 5*time.Millisecond)

	w := do(r, http.MethodGet, "/challenges", "")
	assert.Contains(t, w.Body.String(), "https://www.naukri.com/captcha")

	w = do(r, http.MethodPost, "/challenges/naukri/resolve", "")
	assert.Equal(t, http.StatusOK, w.Code)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run was not released")
	}
}

func TestRecentListings(t *testing.T) {
	s, _, _ := newTestServer(t)
	r := s.Router()

	w := do(r, http.MethodGet, "/listings/indeed?limit=5", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"listing_id":"42"`)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/listings/indeed?limit=0", "").Code)

	noDB := New(store.NewPreferenceFile(filepath.Join(t.TempDir(), "t.json")), nil, nil, logger.Nop())
	assert.Equal(t, http.StatusNotImplemented, do(noDB.Router(), http.MethodGet, "/listings/indeed", "").Code)
}
