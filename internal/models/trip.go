package models

// 可选的便利设施标签
var AmenityTags = []string{"Restrooms", "Food", "WiFi", "Shopping", "Parking", "Coffee"}

// TripRequest 行程规划请求，字段名与 webhook 请求体一致
type TripRequest struct {
	Origin             string   `json:"origin" validate:"required,latlng"`
	Destination        string   `json:"destination" validate:"required,latlng"`
	CurrentSOC         float64  `json:"current_soc" validate:"gte=0,lte=100"`
	BatteryCapacityKWh float64  `json:"battery_capacity_kwh" validate:"gt=0,lte=200"`
	MinSOC             float64  `json:"min_soc" validate:"gte=0,lte=100,ltfield=TargetSOC"`
	TargetSOC          float64  `json:"target_soc" validate:"gte=0,lte=100"`
	AmenityPreferences []string `json:"amenity_preferences" validate:"dive,oneof=Restrooms Food WiFi Shopping Parking Coffee"`
}

// DefaultTripRequest 表单默认值
func DefaultTripRequest() TripRequest {
	return TripRequest{
		CurrentSOC:         80,
		BatteryCapacityKWh: 75,
		MinSOC:             20,
		TargetSOC:          80,
		AmenityPreferences: []string{},
	}
}

// ChargingPlan 上游返回的充电计划（原始记录，未归一化）
type ChargingPlan struct {
	AllStations      []map[string]any `json:"all_stations,omitempty"`
	SelectedStations []map[string]any `json:"selected_stations,omitempty"`
}

// RouteResult 归一化后的路线
type RouteResult struct {
	DistanceKm      *float64       `json:"distance_km,omitempty"`
	DurationMinutes *float64       `json:"duration_minutes,omitempty"`
	Polyline        string         `json:"polyline,omitempty"`
	Origin          any            `json:"origin,omitempty"`
	Destination     any            `json:"destination,omitempty"`
	ChargingPlan    *ChargingPlan  `json:"charging_plan,omitempty"`
	Raw             map[string]any `json:"-"`
}

// PlanSummary 路线摘要
type PlanSummary struct {
	SelectedCount     int     `json:"selected_count"`
	OtherCount        int     `json:"other_count"`
	TotalChargingTime float64 `json:"total_charging_time"` // 分钟
}

// Summarize 统计推荐/其他充电站数量及推荐站总充电时间
func Summarize(stations []StationRecord) PlanSummary {
	var s PlanSummary
	for i := range stations {
		if stations[i].IsSelected {
			s.SelectedCount++
			if stations[i].ChargingTime != nil {
				s.TotalChargingTime += *stations[i].ChargingTime
			}
		} else {
			s.OtherCount++
		}
	}
	return s
}
