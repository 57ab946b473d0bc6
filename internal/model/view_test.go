package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapLinks(t *testing.T) {
	lat, lng := 34.0141, -118.2879

	google, waze, apple, osm := MapLinks("LA Memorial Coliseum", &lat, &lng)
	require.NotNil(t, google)
	assert.Equal(t, "https://www.google.com/maps/search/?api=1&query=34.0141,-118.2879", *google)
	assert.Equal(t, "https://waze.com/ul?ll=34.0141,-118.2879&navigate=yes", *waze)
	assert.Equal(t, "https://maps.apple.com/?ll=34.0141,-118.2879&q=LA+Memorial+Coliseum", *apple)
	assert.Equal(t, "https://www.openstreetmap.org/?mlat=34.0141&mlon=-118.2879&zoom=17", *osm)

	_, _, apple, _ = MapLinks("Arena #2 & Pool?", &lat, &lng)
	assert.Equal(t, "https://maps.apple.com/?ll=34.0141,-118.2879&q=Arena+%232+%26+Pool%3F", *apple)

	google, waze, apple, osm = MapLinks("Carson Stadium", nil, &lng)
	assert.Nil(t, google)
	assert.Nil(t, waze)
	assert.Nil(t, apple)
	assert.Nil(t, osm)
}
