package models

import "strings"

// 上游不可用时使用的示例数据

// FallbackRoute 示例路线：San Francisco → San Jose，途经一个充电站
func FallbackRoute() (*RouteResult, []StationRecord) {
	distance := 45.2
	duration := 60.0
	chargingTime := 20.0

	route := &RouteResult{
		DistanceKm:      &distance,
		DurationMinutes: &duration,
		Origin:          Location{Lat: 37.7749, Lng: -122.4194},
		Destination:     Location{Lat: 37.3382, Lng: -121.8863},
	}

	stations := []StationRecord{
		{
			ID:           "station-1",
			Name:         "Tesla Supercharger",
			Location:     Location{Lat: 37.7849, Lng: -122.4094},
			Address:      "123 Market St, San Francisco, CA",
			Chargers:     []Charger{{Type: "Tesla Supercharger", Power: 150, Count: 8, Available: 6}},
			Amenities:    []string{"Restrooms", "Food", "WiFi"},
			IsSelected:   true,
			ChargingTime: &chargingTime,
		},
	}
	return route, stations
}

// FallbackStations 示例附近充电站
func FallbackStations() []StationRecord {
	d1, d2, d3 := 0.5, 1.2, 2.1
	return []StationRecord{
		{
			ID:       "1",
			Name:     "Tesla Supercharger - San Francisco",
			Location: Location{Lat: 37.7849, Lng: -122.4094},
			Address:  "123 Market St, San Francisco, CA",
			Chargers: []Charger{
				{Type: "Tesla Supercharger", Power: 250, Count: 8, Available: 6},
				{Type: "Tesla Destination", Power: 11, Count: 4, Available: 4},
			},
			Amenities: []string{"Restrooms", "Food", "WiFi"},
			Distance:  &d1,
		},
		{
			ID:       "2",
			Name:     "Electrify America - Downtown",
			Location: Location{Lat: 37.7849, Lng: -122.4194},
			Address:  "456 Mission St, San Francisco, CA",
			Chargers: []Charger{
				{Type: "CCS", Power: 350, Count: 4, Available: 3},
				{Type: "CHAdeMO", Power: 50, Count: 2, Available: 2},
			},
			Amenities: []string{"Restrooms", "Coffee Shop"},
			Distance:  &d2,
		},
		{
			ID:       "3",
			Name:     "ChargePoint - Marina District",
			Location: Location{Lat: 37.8049, Lng: -122.4394},
			Address:  "789 Beach St, San Francisco, CA",
			Chargers: []Charger{
				{Type: "J1772", Power: 7.2, Count: 6, Available: 5},
				{Type: "CCS", Power: 50, Count: 2, Available: 1},
			},
			Amenities: []string{"Restrooms", "Shopping"},
			Distance:  &d3,
		},
	}
}

var fallbackCities = []struct {
	suffix string
	lat    float64
	lon    float64
}{
	{"Mumbai, Maharashtra, India", 19.0760, 72.8777},
	{"Delhi, India", 28.7041, 77.1025},
	{"Bangalore, Karnataka, India", 12.9716, 77.5946},
	{"Chennai, Tamil Nadu, India", 13.0827, 80.2707},
	{"Kolkata, West Bengal, India", 22.5726, 88.3639},
}

// FallbackSuggestions 地理编码服务全部失败时的候选地点
func FallbackSuggestions(query string) []LocationSuggestion {
	lower := strings.ToLower(query)
	out := make([]LocationSuggestion, 0, len(fallbackCities))
	for i, c := range fallbackCities {
		display := query + ", " + c.suffix
		if !strings.Contains(strings.ToLower(display), lower) {
			continue
		}
		out = append(out, LocationSuggestion{
			DisplayName:      display,
			Name:             query,
			Lat:              c.lat,
			Lon:              c.lon,
			PlaceID:          "mock" + string(rune('1'+i)),
			Types:            []string{"locality"},
			FormattedAddress: display,
			Provider:         "mock",
		})
	}
	return out
}
