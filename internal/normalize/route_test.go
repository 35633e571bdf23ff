package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/langchou/evroute/internal/models"
)

func TestNormalizeRoute_Empty(t *testing.T) {
	for _, raw := range []string{"", "   ", `""`, `"  "`, "null"} {
		out, err := NormalizeRoute([]byte(raw))
		assert.ErrorIs(t, err, ErrEmptyResponse, "input %q", raw)
		assert.Nil(t, out)
	}
}

func TestNormalizeRoute_Unrecognized(t *testing.T) {
	for _, raw := range []string{`{"foo": 1}`, `[1,2]`, `{not json`, `{"route": "abc"}`} {
		_, err := NormalizeRoute([]byte(raw))
		assert.ErrorIs(t, err, ErrUnrecognizedShape, "input %q", raw)
	}
}

func TestDecode_VariantOrder(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Kind
	}{
		{"route", `{"route": {"distance_km": 1}, "data": {"route": {}}}`, KindRoute},
		{"data.route", `{"data": {"route": {"distance_km": 1}}}`, KindDataRoute},
		{"segments", `{"segments": [{}], "data": {}}`, KindSegments},
		{"data", `{"data": {"distance_km": 3}}`, KindData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Kind)
		})
	}
}

func TestNormalizeRoute_RouteFields(t *testing.T) {
	raw := `{"route": {
		"distance_km": "120.5",
		"polyline": "abc",
		"origin": "19.07,72.87",
		"route": {"duration_minutes": 95, "destination": "18.52,73.85", "polyline": "ignored"}
	}}`
	out, err := NormalizeRoute([]byte(raw))
	require.NoError(t, err)

	require.NotNil(t, out.Route.DistanceKm)
	assert.Equal(t, 120.5, *out.Route.DistanceKm)
	require.NotNil(t, out.Route.DurationMinutes)
	assert.Equal(t, 95.0, *out.Route.DurationMinutes)
	assert.Equal(t, "abc", out.Route.Polyline)
	assert.Equal(t, "19.07,72.87", out.Route.Origin)
	assert.Equal(t, "18.52,73.85", out.Route.Destination)
	assert.Empty(t, out.Stations)
}

func TestNormalizeRoute_MergeScenario(t *testing.T) {
	raw := `{"route": {"charging_plan": {
		"all_stations": [{"lat": 37.7, "lng": -122.4, "name": "A"}],
		"selected_stations": [{"lat": 37.7, "lng": -122.4, "name": "A-best"}]
	}}}`
	out, err := NormalizeRoute([]byte(raw))
	require.NoError(t, err)

	require.Len(t, out.Stations, 1)
	assert.Equal(t, "A-best", out.Stations[0].Name)
	assert.True(t, out.Stations[0].IsSelected)
}

func TestFromPayload_ChargingPlanAtTop(t *testing.T) {
	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"charging_plan": {
		"all_stations": [{"lat": 37.7, "lng": -122.4, "name": "A"}],
		"selected_stations": [{"lat": 37.7, "lng": -122.4, "name": "A-best"}]
	}}`), &body))

	out := FromPayload(&Payload{Kind: KindData, Body: body})
	require.Len(t, out.Stations, 1)
	assert.Equal(t, "A-best", out.Stations[0].Name)
	assert.True(t, out.Stations[0].IsSelected)
}

func TestNormalizeRoute_OrderAndAppend(t *testing.T) {
	raw := `{"segments": [], "charging_plan": {
		"all_stations": [
			{"id": "s1", "lat": 1, "lng": 1, "name": "One"},
			{"id": "s2", "lat": 2, "lng": 2, "name": "Two"},
			{"id": "s3", "lat": 3, "lng": 3, "name": "Three"}
		],
		"selected_stations": [
			{"lat": 9, "lng": 9, "name": "New"},
			{"lat": 2, "lng": 2, "charging_time_minutes": 25}
		]
	}}`
	out, err := NormalizeRoute([]byte(raw))
	require.NoError(t, err)

	names := make([]string, 0, len(out.Stations))
	for _, s := range out.Stations {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"One", "Selected Station 2", "Three", "New"}, names)

	// 推荐站整条替换原记录，缺省字段取推荐站默认值
	two := out.Stations[1]
	assert.Equal(t, "selected_1", two.ID)
	assert.Equal(t, "Selected Station 2", two.Name)
	assert.True(t, two.IsSelected)
	require.NotNil(t, two.ChargingTime)
	assert.Equal(t, 25.0, *two.ChargingTime)

	assert.False(t, out.Stations[0].IsSelected)
	assert.Equal(t, "selected_0", out.Stations[3].ID)
	assert.True(t, out.Stations[3].IsSelected)
}

func TestNormalizeRoute_Defaults(t *testing.T) {
	raw := `{"route": {"charging_plan": {
		"all_stations": [{"latitude": "12.5", "location": {"longitude": 77.1}, "charging_speed_kw": 60, "connector_count": "4"}],
		"selected_stations": [{"location": {"latitude": 13, "longitude": 78}}]
	}}}`
	out, err := NormalizeRoute([]byte(raw))
	require.NoError(t, err)
	require.Len(t, out.Stations, 2)

	first := out.Stations[0]
	assert.Equal(t, "all_0", first.ID)
	assert.Equal(t, "Station 1", first.Name)
	assert.Equal(t, models.Location{Lat: 12.5, Lng: 77.1}, first.Location)
	assert.Equal(t, defaultAddress, first.Address)
	assert.Equal(t, []models.Charger{{Type: "DC Fast", Power: 60, Count: 4, Available: 1}}, first.Chargers)
	assert.Equal(t, []string{}, first.Amenities)

	second := out.Stations[1]
	assert.Equal(t, "selected_0", second.ID)
	assert.Equal(t, "Selected Station 1", second.Name)
	assert.Equal(t, 50.0, second.Chargers[0].Power)
}

func TestNormalizeRoute_StringAndNumberCoordinatesAgree(t *testing.T) {
	asString := `{"route": {"charging_plan": {"all_stations": [{"lat": "37.77", "lng": "-122.41"}]}}}`
	asNumber := `{"route": {"charging_plan": {"all_stations": [{"lat": 37.77, "lng": -122.41}]}}}`

	a, err := NormalizeRoute([]byte(asString))
	require.NoError(t, err)
	b, err := NormalizeRoute([]byte(asNumber))
	require.NoError(t, err)

	require.Len(t, a.Stations, 1)
	require.Len(t, b.Stations, 1)
	assert.Equal(t, b.Stations[0].Location, a.Stations[0].Location)
}

func TestNormalizeRoute_DropsInvalidCoordinates(t *testing.T) {
	valid := `{"route": {"charging_plan": {"all_stations": [
		{"lat": 1, "lng": 1}, {"lat": 2.5, "lng": 2}, {"lat": 3, "lng": 3}
	]}}}`
	invalid := `{"route": {"charging_plan": {"all_stations": [
		{"lat": 1, "lng": 1}, {"lat": "not-a-number", "lng": 2}, {"lat": 3, "lng": 3}
	]}}}`

	okOut, err := NormalizeRoute([]byte(valid))
	require.NoError(t, err)
	badOut, err := NormalizeRoute([]byte(invalid))
	require.NoError(t, err)

	assert.Len(t, badOut.Stations, len(okOut.Stations)-1)
	require.Len(t, badOut.Diagnostics, 1)
	assert.Equal(t, "all_stations", badOut.Diagnostics[0].List)
	assert.Equal(t, 1, badOut.Diagnostics[0].Index)
}

func TestNormalizeRoute_SkipsMalformedRecords(t *testing.T) {
	raw := `{"route": {"charging_plan": {
		"all_stations": ["junk", {"lat": 1, "lng": 1}, {"name": "no coords"}],
		"selected_stations": [{"lat": 1, "lng": "Infinity"}]
	}}}`
	out, err := NormalizeRoute([]byte(raw))
	require.NoError(t, err)

	assert.Len(t, out.Stations, 1)
	assert.Len(t, out.Diagnostics, 3)
}

func TestNormalizeRoute_Idempotent(t *testing.T) {
	raw := []byte(`{"data": {"route": {"distance_km": 10, "charging_plan": {
		"all_stations": [{"lat": 1, "lng": 2}, {"lat": 3, "lng": 4, "chargers": [{"type": "CCS", "power": "150", "count": 2, "available": 1}]}],
		"selected_stations": [{"lat": 3, "lng": 4, "name": "Pick"}, {"lat": 5, "lng": 6}]
	}}}}`)

	a, err := NormalizeRoute(raw)
	require.NoError(t, err)
	b, err := NormalizeRoute(raw)
	require.NoError(t, err)

	ja, err := json.Marshal(a.Stations)
	require.NoError(t, err)
	jb, err := json.Marshal(b.Stations)
	require.NoError(t, err)
	assert.Equal(t, string(ja), string(jb))

	assert.Equal(t, []models.Charger{{Type: "CCS", Power: 150, Count: 2, Available: 1}}, a.Stations[1].Chargers)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty([]byte(" \n")))
	assert.True(t, IsEmpty([]byte(`""`)))
	assert.False(t, IsEmpty([]byte(`"x"`)))
	assert.False(t, IsEmpty([]byte(`{}`)))
}

func TestNormalizeRoute_SelectedReplacesExisting(t *testing.T) {
	raw := `{"route": {"charging_plan": {
		"all_stations": [{"id": "s2", "lat": 2, "lng": 2, "name": "Two", "address": "Old St", "rating": 4.5}],
		"selected_stations": [{"lat": 2, "lng": 2}]
	}}}`
	out, err := NormalizeRoute([]byte(raw))
	require.NoError(t, err)

	require.Len(t, out.Stations, 1)
	got := out.Stations[0]
	assert.Equal(t, "selected_0", got.ID)
	assert.Equal(t, "Selected Station 1", got.Name)
	assert.Equal(t, "Address not available", got.Address)
	assert.Zero(t, got.Rating)
	assert.True(t, got.IsSelected)
}

func TestDecode_SegmentsAtTop(t *testing.T) {
	p, err := Decode([]byte(`{"segments": [{"from": "a", "to": "b"}], "total_distance_km": 12}`))
	require.NoError(t, err)
	assert.Equal(t, KindSegments, p.Kind)
	assert.Contains(t, p.Body, "total_distance_km")

	_, err = Decode([]byte(`{"other": 1}`))
	assert.ErrorIs(t, err, ErrUnrecognizedShape)
}
