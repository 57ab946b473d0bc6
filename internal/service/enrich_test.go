package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"LA28Sync/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrichUpdatesKnownVenues(t *testing.T) {
	repo := seedService(t)
	svc := NewEnrichmentService(repo, quietLogger())

	results := []model.GeocodeResult{
		{
			Name: "LA Memorial Coliseum", Status: model.GeoStatusOK,
			Address: strPtr("3911 S Figueroa St, Los Angeles"),
			LatLng:  model.LatLng{Lat: floatPtr(34.0141), Lng: floatPtr(-118.2879)},
		},
		{Name: "Lake Perris", Status: model.GeoStatusOK, LatLng: model.LatLng{Lat: floatPtr(33.85), Lng: floatPtr(-117.18)}},
		{Name: "OKC Softball Park", Status: model.GeoStatusNotFound},
		{Name: "Venue TBD", Status: model.GeoStatusUnlocatable},
		{Name: "", Status: model.GeoStatusOK},
	}
	stats, err := svc.Enrich(testContext(t), results)
	require.NoError(t, err)
	assert.Equal(t, &EnrichStats{Updated: 1, Skipped: 3, NotFound: 1}, stats)

	v, err := repo.GetVenue(testContext(t), "LA Memorial Coliseum")
	require.NoError(t, err)
	require.NotNil(t, v.Latitude)
	assert.InDelta(t, 34.0141, *v.Latitude, 1e-9)
	require.NotNil(t, v.Geohash)
	assert.Equal(t, "9q5c", (*v.Geohash)[:4])
	assert.Equal(t, "3911 S Figueroa St, Los Angeles", *v.Address)

	// 不会新建场馆
	missing, err := repo.GetVenue(testContext(t), "Lake Perris")
	require.NoError(t, err)
	assert.Nil(t, missing)

	okc, err := repo.GetVenue(testContext(t), "OKC Softball Park")
	require.NoError(t, err)
	assert.Nil(t, okc.Latitude)
}

func TestEnrichNeedsReviewStillApplied(t *testing.T) {
	repo := seedService(t)
	stats, err := NewEnrichmentService(repo, quietLogger()).Enrich(testContext(t), []model.GeocodeResult{
		{Name: "OKC Softball Park", Status: model.GeoStatusNeedsReview, LatLng: model.LatLng{Lat: floatPtr(35.52), Lng: floatPtr(-97.47)}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	row, err := repo.Query().BySession("SBL01").First(testContext(t))
	require.NoError(t, err)
	require.NotNil(t, row.GoogleMapsURL)
	assert.Contains(t, *row.GoogleMapsURL, "35.52,-97.47")
}

func TestEnrichLoadFile(t *testing.T) {
	repo := seedService(t)
	path := filepath.Join(t.TempDir(), "venues_osm.json")
	data, err := json.Marshal([]model.GeocodeResult{
		{Name: "OKC Softball Park", LatLng: model.LatLng{Lat: floatPtr(35.52), Lng: floatPtr(-97.47)}},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	stats, err := NewEnrichmentService(repo, quietLogger()).LoadFile(testContext(t), path)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Updated)

	_, err = NewEnrichmentService(repo, quietLogger()).LoadFile(testContext(t), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
