package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"LA28Sync/internal/config"
	"LA28Sync/internal/database"
	"LA28Sync/internal/model"
	"LA28Sync/internal/repository"
	"LA28Sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	rows := []model.RawScheduleRow{
		{
			Sport: "Athletics", Venue: "LA Memorial Coliseum", Zone: "Exposition Park",
			SessionCode: "ATH02", Date: "Saturday, July 15", GamesDay: "2",
			SessionType: "Final", StartTime: "18:00", EndTime: "21:00",
			Description: "Women's 100m Final B\nWomen's 100m Final\nMen's 4x100m Relay Semifinal",
		},
		{
			Sport: "Athletics", Venue: "LA Memorial Coliseum", Zone: "Exposition Park",
			SessionCode: "ATH01", Date: "Friday, July 14", GamesDay: "1",
			SessionType: "Preliminary", StartTime: "09:00", EndTime: "12:00",
			Description: "Not Ticketed\nMen's 100m Heats",
		},
		{
			Sport: "Softball", Venue: "OKC Softball Park", Zone: "Oklahoma City",
			SessionCode: "SBL01", Date: "Saturday, July 15", GamesDay: "2",
			SessionType: "Bronze Medal", StartTime: "11:00\n(CT)", EndTime: "14:00\n(CT)",
			Description: "Women's Bronze Medal Game\nWomen's Gold Medal Game",
		},
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "schedule.json")
	data, err := json.Marshal(rows)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg := config.Default()
	cfg.Server.Mode = gin.TestMode
	cfg.Database = config.DatabaseConfig{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(dir, "la28.db"),
		LogLevel: "silent",
	}
	cfg.Schedule.Source = "file"
	cfg.Schedule.Path = path
	cfg.Geocode.Output = filepath.Join(dir, "venues_osm.json")
	return cfg
}

func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB, *config.Config) {
	t.Helper()
	cfg := testConfig(t)
	db, err := database.Open(&cfg.Database, quietLogger())
	require.NoError(t, err)
	require.NoError(t, database.Init(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	r, err := NewRouter(db, quietLogger(), cfg)
	require.NoError(t, err)
	return r, db, cfg
}

func do(r http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	r.ServeHTTP(w, req)
	return w
}

type listResponse struct {
	Items    []model.ScheduleView `json:"items"`
	Total    int64                `json:"total"`
	Page     int                  `json:"page"`
	PageSize int                  `json:"page_size"`
}

func syncSchedule(t *testing.T, r http.Handler) {
	t.Helper()
	w := do(r, http.MethodPost, "/sync/schedule")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestSyncScheduleThenConflict(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := do(r, http.MethodPost, "/sync/schedule")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats service.IngestStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 3, stats.Sessions)
	assert.Equal(t, 6, stats.Events)

	w = do(r, http.MethodPost, "/sync/schedule")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(r, http.MethodPost, "/sync/schedule?reset=true")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestListScheduleFilters(t *testing.T) {
	r, _, _ := newTestServer(t)
	syncSchedule(t, r)

	tests := []struct {
		name  string
		query string
		total int64
	}{
		{"all", "", 6},
		{"sport", "?sport=Athletics", 4},
		{"multiple sports", "?sport=Athletics,Softball", 6},
		{"date", "?date=2028-07-15", 5},
		{"range", "?from=2028-07-14&to=2028-07-14", 1},
		{"open range", "?from=2028-07-15", 5},
		{"finals", "?finals=true", 2},
		{"medals", "?medals=true", 3},
		{"okc", "?in_okc=1", 2},
		{"ticketed", "?ticketed=true", 5},
		{"day", "?day=1", 1},
		{"search", "?q=Relay", 1},
		{"session", "?session=SBL01", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodGet, "/api/schedule"+tt.query)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var resp listResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.total, resp.Total)
			assert.Len(t, resp.Items, int(tt.total))
		})
	}
}

func TestListSchedulePaging(t *testing.T) {
	r, _, _ := newTestServer(t)
	syncSchedule(t, r)

	w := do(r, http.MethodGet, "/api/schedule?page=2&page_size=4")
	require.Equal(t, http.StatusOK, w.Code)
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 6, resp.Total)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 4, resp.PageSize)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "ATH02", resp.Items[0].SessionCode)

	w = do(r, http.MethodGet, "/api/schedule?order=type&page_size=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	require.NotNil(t, resp.Items[0].EventType)
	assert.Equal(t, model.TypeFinal, *resp.Items[0].EventType)
}

func TestListScheduleBadParams(t *testing.T) {
	r, _, _ := newTestServer(t)
	for _, q := range []string{"?date=07/15/2028", "?day=two", "?finals=maybe", "?order=random"} {
		w := do(r, http.MethodGet, "/api/schedule"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestGetSession(t *testing.T) {
	r, _, _ := newTestServer(t)
	syncSchedule(t, r)

	w := do(r, http.MethodGet, "/api/sessions/ATH02")
	require.Equal(t, http.StatusOK, w.Code)
	var s model.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, "ATH02", s.Code)
	assert.Len(t, s.Events, 3)
	require.NotNil(t, s.Venue)
	assert.Equal(t, "Exposition Park", s.Venue.ZoneName)

	w = do(r, http.MethodGet, "/api/sessions/NOPE")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	r, _, _ := newTestServer(t)
	syncSchedule(t, r)

	w := do(r, http.MethodGet, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var st repository.ScheduleStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.EqualValues(t, 3, st.Sessions)
	assert.EqualValues(t, 2, st.Venues)
	assert.Zero(t, st.Geocoded)
}

type stubGeocoder struct{}

func (stubGeocoder) Geocode(_ context.Context, hint config.VenueHint) (*model.GeocodeResult, error) {
	lat, lng := 35.52, -97.47
	return &model.GeocodeResult{Name: hint.Name, Status: model.GeoStatusOK, LatLng: model.LatLng{Lat: &lat, Lng: &lng}}, nil
}

func TestSyncGeocode(t *testing.T) {
	r, db, cfg := newTestServer(t)
	syncSchedule(t, r)

	cfg.Geocode.Hints = []config.VenueHint{{Name: "OKC Softball Park", Query: "Devon Park"}}
	repo := repository.NewScheduleRepository(db)
	h := &SyncHandler{
		db:             db,
		geocodeService: service.NewGeocodeService(&cfg.Geocode, stubGeocoder{}, service.NewEnrichmentService(repo, quietLogger()), quietLogger()),
		logger:         quietLogger(),
	}
	engine := gin.New()
	engine.POST("/sync/geocode", h.SyncGeocodeHandler)

	w := do(engine, http.MethodPost, "/sync/geocode")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report service.GeocodeReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, 1, report.ByStatus[model.GeoStatusOK])
	require.NotNil(t, report.Enriched)
	assert.Equal(t, 1, report.Enriched.Updated)
	assert.FileExists(t, cfg.Geocode.Output)

	w = do(r, http.MethodGet, "/api/schedule?in_okc=true&page_size=1")
	var resp listResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.NotNil(t, resp.Items[0].OSMURL)
}
