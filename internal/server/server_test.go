package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-parks/internal/api"
	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/service"
)

type staticParks []service.ParkData

func (s staticParks) Parks(context.Context) ([]service.ParkData, error) {
	return append([]service.ParkData(nil), s...), nil
}

func newTestServer(t *testing.T, store string) *Server {
	t.Helper()
	srv, err := New(Config{
		Host:  "localhost",
		Port:  "8087",
		Store: store,
		Parks: staticParks{
			{ID: "crla", Name: "Crater Lake", ParkType: "National Park", LatLng: service.LatLng{Lat: 42.94, Lng: -122.1}},
		},
		Log: &logging.Nop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { srv.Close() })
	return srv
}

func get(srv *Server, path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestPage_StartsSession(t *testing.T) {
	srv := newTestServer(t, StoreMemory)

	rec := get(srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "data-session=")
	assert.Contains(t, rec.Body.String(), "/api/v1/ui/events")
	assert.Equal(t, 1, srv.Sessions().Len())

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)

	rec = get(srv, "/", cookies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies(), "existing browser keeps its cookie")
	assert.Equal(t, 2, srv.Sessions().Len())

	assert.Equal(t, http.StatusNotFound, get(srv, "/nope").Code)
}

func TestStatic(t *testing.T) {
	srv := newTestServer(t, StoreMemory)

	rec := get(srv, "/static/parks.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "parksMapLoad")
}

func TestInfo(t *testing.T) {
	srv := newTestServer(t, "")

	rec := get(srv, "/api/v1/info")
	require.Equal(t, http.StatusOK, rec.Code)

	var info api.InfoBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, "plat-parks", info.Name)
	assert.Equal(t, StoreDuckDB, info.Store)
	assert.True(t, info.DB)
	assert.Contains(t, info.Features, "duckdb")
}

func TestParks_ArchivedAndLinked(t *testing.T) {
	srv := newTestServer(t, StoreMemory)

	rec := get(srv, "/api/v1/parks")
	require.Equal(t, http.StatusOK, rec.Code)
	links := strings.Join(rec.Header().Values("Link"), ",")
	assert.Contains(t, links, `</api/v1/parks/{id}>; rel="item"`)

	// Archiving runs after the fetch is handed out.
	var archived struct {
		Parks []service.ParkData `json:"parks"`
	}
	require.Eventually(t, func() bool {
		rec := get(srv, "/api/v1/archive/parks")
		return rec.Code == http.StatusOK &&
			json.Unmarshal(rec.Body.Bytes(), &archived) == nil &&
			len(archived.Parks) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "crla", archived.Parks[0].ID)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/query",
		strings.NewReader(`{"query":"SELECT count(*) AS n FROM parks"}`))
	req.Header.Set("Content-Type", "application/json")
	out := httptest.NewRecorder()
	srv.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)
	assert.Contains(t, out.Body.String(), `"count":1`)
}

func TestOpenAPI(t *testing.T) {
	srv := newTestServer(t, StoreMemory)

	oapi := srv.OpenAPI()
	for _, p := range []string{"/health", "/api/v1/parks", "/api/v1/features/parks", "/api/v1/ui/events", "/api/v1/ui/filter"} {
		assert.Contains(t, oapi.Paths, p)
	}
}
