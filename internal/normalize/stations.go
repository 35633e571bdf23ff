package normalize

import (
	"encoding/json"
	"strconv"

	"github.com/langchou/evroute/internal/models"
)

// Shape 附近充电站响应的结构
type Shape int

const (
	ShapeUnrecognized Shape = iota
	ShapeEmpty
	ShapeStations // {stations: [...]} 或 {data: {stations: [...]}}
	ShapeArray    // [...]
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeStations:
		return "stations"
	case ShapeArray:
		return "array"
	default:
		return "unrecognized"
	}
}

// StationsOutput 附近充电站归一化结果
type StationsOutput struct {
	Shape       Shape
	Stations    []models.StationRecord
	Diagnostics []Diagnostic
}

// Recognized 是否识别出充电站列表
func (o *StationsOutput) Recognized() bool {
	return o.Shape == ShapeStations || o.Shape == ShapeArray
}

// NormalizeStations 归一化附近充电站响应。
// 无法识别的结构返回空列表，由调用方决定是否使用示例数据
func NormalizeStations(raw []byte) *StationsOutput {
	out := &StationsOutput{Stations: []models.StationRecord{}}
	if IsEmpty(raw) {
		out.Shape = ShapeEmpty
		return out
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return out
	}

	var list []any
	switch v := decoded.(type) {
	case []any:
		out.Shape = ShapeArray
		list = v
	case map[string]any:
		arr, ok := discoveryList.list(v)
		if !ok {
			return out
		}
		out.Shape = ShapeStations
		list = arr
	default:
		return out
	}

	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{List: "stations", Index: i, Reason: "not an object"})
			continue
		}
		st, err := discoveryStation(rec, i)
		if err != nil {
			out.Diagnostics = append(out.Diagnostics, Diagnostic{List: "stations", Index: i, Reason: err.Error()})
			continue
		}
		out.Stations = append(out.Stations, st)
	}
	return out
}

// discoveryStation 映射一条附近充电站记录，并合成唯一的充电桩描述
func discoveryStation(rec map[string]any, i int) (models.StationRecord, error) {
	loc, err := resolveLocation(rec, discoveryLat, discoveryLng)
	if err != nil {
		return models.StationRecord{}, err
	}

	connectors := discoveryConnectors.strings(rec)
	charger := models.Charger{
		Type:      defaultDiscoveryType,
		Power:     discoverySpeed.floatOr(rec, 0),
		Count:     discoveryCount.intOr(rec, len(connectors)),
		Available: discoveryAvailable.intOr(rec, 0),
	}
	if len(connectors) > 0 {
		charger.Type = connectors[0]
	}
	if charger.Count <= 0 {
		charger.Count = 1
	}

	st := models.StationRecord{
		ID:         discoveryID.strOr(rec, "station-"+strconv.Itoa(i)),
		Name:       discoveryName.strOr(rec, defaultDiscoveryName),
		Location:   loc,
		Address:    stationAddress.strOr(rec, defaultAddress),
		Chargers:   []models.Charger{charger},
		Amenities:  stationAmenities.strings(rec),
		IsSelected: stationSelected.boolOr(rec, false),
		Rating:     stationRating.floatOr(rec, 0),
		Distance:   discoveryDistance.floatPtr(rec),
	}
	if st.Amenities == nil {
		st.Amenities = []string{}
	}
	return st, nil
}
