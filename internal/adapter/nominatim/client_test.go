package nominatim

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"LA28Sync/internal/config"
	"LA28Sync/internal/model"

	"github.com/jarcoal/httpmock"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchURL = "https://nominatim.test/search"

const coliseumJSON = `[
  {"display_name": "Los Angeles Memorial Coliseum, 3911 South Figueroa Street, Los Angeles, CA, USA",
   "lat": "34.0141", "lon": "-118.2879", "category": "leisure", "type": "stadium", "importance": 0.62,
   "osm_type": "way", "osm_id": 1234,
   "address": {"road": "South Figueroa Street", "house_number": "3911", "country_code": "us"}},
  {"display_name": "Exposition Park, Los Angeles, CA, USA",
   "lat": "34.0165", "lon": "-118.2870", "category": "boundary", "type": "administrative", "importance": 0.55,
   "address": {"country_code": "us"}}
]`

func newTestClient(t *testing.T) (*Client, *httpmock.MockTransport) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.GeocodeConfig{
		BaseURL:        "https://nominatim.test/",
		UserAgent:      "LA28VenueGeocoder/1.2",
		Email:          "ops@example.test",
		Timeout:        5,
		RetryCount:     3,
		DelayMS:        0,
		CacheTTL:       time.Hour,
		ResultLimit:    5,
		CountryCode:    "us",
		ReviewRadiusKM: 150,
		DefaultContext: "Los Angeles, California, USA",
		Regions: []config.RegionCenter{
			{Name: "Los Angeles", Lat: 34.0522, Lng: -118.2437},
			{Name: "Oklahoma City", Lat: 35.4676, Lng: -97.5164},
		},
	}
	c := NewClient(cfg, log)
	c.backoffBase = time.Millisecond
	mock := httpmock.NewMockTransport()
	c.HTTPClient().Transport = mock
	return c, mock
}

func TestGeocodeOK(t *testing.T) {
	c, mock := newTestClient(t)

	var gotQuery, gotUA, gotFormat, gotEmail string
	mock.RegisterResponder(http.MethodGet, searchURL, func(req *http.Request) (*http.Response, error) {
		gotQuery = req.URL.Query().Get("q")
		gotFormat = req.URL.Query().Get("format")
		gotEmail = req.URL.Query().Get("email")
		gotUA = req.Header.Get("User-Agent")
		return httpmock.NewStringResponse(http.StatusOK, coliseumJSON), nil
	})

	res, err := c.Geocode(context.Background(), config.VenueHint{Name: "LA Memorial Coliseum", Query: "Los Angeles Memorial Coliseum"})
	require.NoError(t, err)

	assert.Equal(t, "Los Angeles Memorial Coliseum, Los Angeles, California, USA", gotQuery)
	assert.Equal(t, "jsonv2", gotFormat)
	assert.Equal(t, "ops@example.test", gotEmail)
	assert.Equal(t, "LA28VenueGeocoder/1.2 (ops@example.test)", gotUA)

	assert.Equal(t, model.GeoStatusOK, res.Status)
	require.NotNil(t, res.Address)
	assert.Contains(t, *res.Address, "Memorial Coliseum")
	require.NotNil(t, res.LatLng.Lat)
	assert.InDelta(t, 34.0141, *res.LatLng.Lat, 1e-9)
	assert.InDelta(t, -118.2879, *res.LatLng.Lng, 1e-9)
	require.NotNil(t, res.Debug)
	assert.Equal(t, 2, res.Debug.Candidates)
	require.NotNil(t, res.Debug.DistanceKM)
	assert.Less(t, *res.Debug.DistanceKM, 10.0)
}

func TestGeocodeUsesCache(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewStringResponder(http.StatusOK, coliseumJSON))

	hint := config.VenueHint{Name: "LA Convention Center Hall 1", Query: "Los Angeles Convention Center"}
	_, err := c.Geocode(context.Background(), hint)
	require.NoError(t, err)
	hint.Name = "LA Convention Center Hall 2"
	_, err = c.Geocode(context.Background(), hint)
	require.NoError(t, err)

	assert.Equal(t, 1, mock.GetTotalCallCount())
}

func TestGeocodeUnlocatableSkipsNetwork(t *testing.T) {
	c, mock := newTestClient(t)

	res, err := c.Geocode(context.Background(), config.VenueHint{Name: "TBD"})
	require.NoError(t, err)
	assert.Equal(t, model.GeoStatusUnlocatable, res.Status)
	assert.Nil(t, res.LatLng.Lat)
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestGeocodeNotFound(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewStringResponder(http.StatusOK, `[]`))

	res, err := c.Geocode(context.Background(), config.VenueHint{Name: "Nowhere", Query: "Nowhere Arena"})
	require.NoError(t, err)
	assert.Equal(t, model.GeoStatusNotFound, res.Status)
	assert.Nil(t, res.Address)
}

func TestGeocodeNeedsReview(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"ambiguous", `[
			{"display_name": "A", "lat": "34.05", "lon": "-118.24", "category": "leisure", "importance": 0.50, "address": {"country_code": "us"}},
			{"display_name": "B", "lat": "34.06", "lon": "-118.25", "category": "leisure", "importance": 0.49, "address": {"country_code": "us"}}]`},
		{"wrong country", `[
			{"display_name": "Venice Beach, Italy", "lat": "45.43", "lon": "12.33", "category": "natural", "importance": 0.7, "address": {"country_code": "it"}}]`},
		{"far from regions", `[
			{"display_name": "Some Stadium, New York", "lat": "40.75", "lon": "-73.99", "category": "leisure", "importance": 0.7, "address": {"country_code": "us"}}]`},
		{"zero coordinates", `[
			{"display_name": "Null Island", "lat": "0", "lon": "0", "category": "place", "importance": 0.7}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, mock := newTestClient(t)
			mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewStringResponder(http.StatusOK, tt.body))

			res, err := c.Geocode(context.Background(), config.VenueHint{Name: "X", Query: "Venue, Pasadena"})
			require.NoError(t, err)
			assert.Equal(t, model.GeoStatusNeedsReview, res.Status)
		})
	}
}

func TestSearchRetriesOnRateLimit(t *testing.T) {
	c, mock := newTestClient(t)

	calls := 0
	mock.RegisterResponder(http.MethodGet, searchURL, func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			resp := httpmock.NewStringResponse(http.StatusTooManyRequests, "slow down")
			resp.Header.Set("Retry-After", "0")
			return resp, nil
		}
		if calls == 2 {
			return httpmock.NewStringResponse(http.StatusOK, `<html>not json</html>`), nil
		}
		return httpmock.NewStringResponse(http.StatusOK, coliseumJSON), nil
	})

	places, err := c.Search(context.Background(), "Los Angeles Memorial Coliseum, Los Angeles")
	require.NoError(t, err)
	assert.Len(t, places, 2)
	assert.Equal(t, 3, calls)
}

func TestSearchGivesUpAfterRetries(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	_, err := c.Search(context.Background(), "Dodger Stadium")
	require.Error(t, err)
	assert.Equal(t, 3, mock.GetTotalCallCount())
}

func TestSearchHonorsContext(t *testing.T) {
	c, mock := newTestClient(t)
	mock.RegisterResponder(http.MethodGet, searchURL, httpmock.NewStringResponder(http.StatusServiceUnavailable, "down"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Search(ctx, "Dodger Stadium")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildQuery(t *testing.T) {
	c, _ := newTestClient(t)

	assert.Equal(t, "Dodger Stadium, Los Angeles, California, USA", c.BuildQuery("Dodger Stadium"))
	assert.Equal(t, "Rose Bowl Aquatics Center, Pasadena, CA", c.BuildQuery("Rose Bowl Aquatics Center, Pasadena, CA"))
	assert.Equal(t, "Riversport Rapids", c.BuildQuery("Riversport Rapids"))
	assert.Equal(t, "Long Beach Arena", c.BuildQuery("Long Beach Arena"))
}

func TestChooseBestPrefersVenue(t *testing.T) {
	places := []Place{
		{DisplayName: "City boundary", Category: "boundary", Importance: 0.70},
		{DisplayName: "Stadium", Category: "leisure", Type: "stadium", Importance: 0.55,
			Address: map[string]string{"road": "Main St", "house_number": "1"}},
	}
	best, ok := ChooseBest(places)
	require.True(t, ok)
	assert.Equal(t, "Stadium", best.DisplayName)
	assert.InDelta(t, 0.55+0.15+0.08+0.06+0.05, Score(places[1]), 1e-9)
	assert.InDelta(t, 0.60, Score(places[0]), 1e-9)

	_, ok = ChooseBest(nil)
	assert.False(t, ok)
}
