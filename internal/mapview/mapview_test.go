package mapview

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/evroute/internal/models"
)

func ptr(f float64) *float64 { return &f }

var mumbai = models.Location{Lat: 19.0760, Lng: 72.8777}

func TestResolveCenter(t *testing.T) {
	c := NewComposer(mumbai)

	tests := []struct {
		name     string
		geo      *Geolocation
		want     models.Location
		fallback bool
	}{
		{"missing", nil, mumbai, true},
		{"denied", &Geolocation{Status: GeoDenied, Lat: ptr(1), Lng: ptr(2)}, mumbai, true},
		{"no coordinates", &Geolocation{Status: GeoGranted}, mumbai, true},
		{"out of range", &Geolocation{Status: GeoGranted, Lat: ptr(95), Lng: ptr(2)}, mumbai, true},
		{"granted", &Geolocation{Status: GeoGranted, Lat: ptr(18.52), Lng: ptr(73.85)}, models.Location{Lat: 18.52, Lng: 73.85}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, fallback := c.ResolveCenter(tt.geo)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.fallback, fallback)
		})
	}
}

func TestNewComposer_InvalidDefault(t *testing.T) {
	c := NewComposer(models.Location{Lat: math.NaN()})
	assert.Equal(t, mumbai, c.DefaultCenter())
}

func TestCompose(t *testing.T) {
	route, stations := models.FallbackRoute()
	route.Polyline = "abc"
	stations = append(stations, models.StationRecord{ID: "other", Location: models.Location{Lat: 37.5, Lng: -122.1}})

	state := NewComposer(mumbai).Compose(ViewRequest{
		Geolocation:       &Geolocation{Status: GeoGranted, Lat: ptr(37.77), Lng: ptr(-122.41)},
		Route:             route,
		Stations:          stations,
		SelectedStationID: "station-1",
	})

	assert.Equal(t, models.Location{Lat: 37.77, Lng: -122.41}, state.Center)
	require.NotNil(t, state.CurrentLocation)
	assert.False(t, state.GeolocationFallback)
	assert.Equal(t, DefaultZoom, state.Zoom)
	assert.Equal(t, "abc", state.RoutePolyline)

	require.Len(t, state.Markers, 2)
	assert.True(t, state.Markers[0].Selected)
	assert.Equal(t, models.AvailabilityGood, state.Markers[0].Availability)
	assert.Equal(t, models.AvailabilityLimited, state.Markers[1].Availability)
	assert.Contains(t, state.Markers[0].DirectionsURL, "destination=37.7849%2C-122.4094")

	require.NotNil(t, state.SelectedStation)
	assert.Equal(t, "Tesla Supercharger", state.SelectedStation.Name)
	assert.Equal(t, models.PlanSummary{SelectedCount: 1, OtherCount: 1, TotalChargingTime: 20}, state.Summary)
}

func TestCompose_DeniedGeolocation(t *testing.T) {
	state := NewComposer(mumbai).Compose(ViewRequest{Geolocation: &Geolocation{Status: GeoDenied}})

	assert.Equal(t, mumbai, state.Center)
	assert.True(t, state.GeolocationFallback)
	assert.Nil(t, state.CurrentLocation)
	assert.NotNil(t, state.Markers)
	assert.Empty(t, state.Markers)
}

func TestClick(t *testing.T) {
	c := NewComposer(mumbai)
	stations := models.FallbackStations()

	res, err := c.Click(stations, stations[1].ID)
	require.NoError(t, err)
	assert.Equal(t, stations[1], res.Station)
	assert.Equal(t, stations[1].Availability(), res.Availability)
	assert.Equal(t, models.Summarize(stations), res.Summary)

	_, err = c.Click(stations, "missing")
	assert.ErrorIs(t, err, ErrStationNotFound)
}
