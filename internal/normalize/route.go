package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/langchou/evroute/internal/models"
)

var (
	// ErrEmptyResponse 上游返回空响应
	ErrEmptyResponse = errors.New("empty upstream response")
	// ErrUnrecognizedShape 上游响应结构无法识别
	ErrUnrecognizedShape = errors.New("unrecognized response shape")
)

// Kind 路线响应的已知结构
type Kind int

const (
	KindUnrecognized Kind = iota
	KindRoute             // {route: {...}}
	KindDataRoute         // {data: {route: {...}}}
	KindSegments          // {segments: [...], ...}
	KindData              // {data: {...}}
)

func (k Kind) String() string {
	switch k {
	case KindRoute:
		return "route"
	case KindDataRoute:
		return "data.route"
	case KindSegments:
		return "segments"
	case KindData:
		return "data"
	default:
		return "unrecognized"
	}
}

// Payload 解码后的路线响应
type Payload struct {
	Kind Kind
	Body map[string]any // 路线本体
}

// variant 依次尝试的响应结构
type variant struct {
	kind   Kind
	locate func(resp map[string]any) (map[string]any, bool)
}

var routeVariants = []variant{
	{KindRoute, func(resp map[string]any) (map[string]any, bool) {
		return fields("route").object(resp)
	}},
	{KindDataRoute, func(resp map[string]any) (map[string]any, bool) {
		return fields("data.route").object(resp)
	}},
	{KindSegments, func(resp map[string]any) (map[string]any, bool) {
		if _, _, ok := fields("segments").first(resp); ok {
			return resp, true
		}
		return nil, false
	}},
	{KindData, func(resp map[string]any) (map[string]any, bool) {
		return fields("data").object(resp)
	}},
}

// Diagnostic 被丢弃的充电站记录
type Diagnostic struct {
	List   string `json:"list"`
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

func (d Diagnostic) String() string {
	return d.List + "[" + strconv.Itoa(d.Index) + "]: " + d.Reason
}

// RouteOutput 路线归一化结果
type RouteOutput struct {
	Kind        Kind
	Route       *models.RouteResult
	Stations    []models.StationRecord
	Diagnostics []Diagnostic
}

// IsEmpty 判断原始响应是否为空：空 body、空白、JSON null 或空字符串
func IsEmpty(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return len(bytes.TrimSpace([]byte(s))) == 0
		}
	}
	return false
}

// Decode 识别路线响应结构，第一个匹配的结构生效
func Decode(raw []byte) (*Payload, error) {
	if IsEmpty(raw) {
		return nil, ErrEmptyResponse
	}

	var resp map[string]any
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnrecognizedShape, err)
	}

	for _, v := range routeVariants {
		if body, ok := v.locate(resp); ok {
			return &Payload{Kind: v.kind, Body: body}, nil
		}
	}
	return nil, ErrUnrecognizedShape
}

// NormalizeRoute 将行程规划 webhook 的响应归一化为路线和去重后的充电站列表
func NormalizeRoute(raw []byte) (*RouteOutput, error) {
	payload, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return FromPayload(payload), nil
}

// FromPayload 从已识别的响应中提取路线和充电站
func FromPayload(p *Payload) *RouteOutput {
	out := &RouteOutput{Kind: p.Kind, Route: buildRoute(p.Body)}

	plan := &models.ChargingPlan{}
	var allRaw, selectedRaw []any
	if obj, ok := routePlan.object(p.Body); ok {
		allRaw, _ = fields("all_stations").list(obj)
		selectedRaw, _ = fields("selected_stations").list(obj)
		plan.AllStations = objects(allRaw)
		plan.SelectedStations = objects(selectedRaw)
		out.Route.ChargingPlan = plan
	}

	merged := newStationSet()
	out.Diagnostics = append(out.Diagnostics, eachStation(allRaw, "all_stations", func(rec map[string]any, i int) error {
		st, err := planStation(rec, i, "all_", "Station ", false)
		if err != nil {
			return err
		}
		merged.add(st)
		return nil
	})...)
	out.Diagnostics = append(out.Diagnostics, eachStation(selectedRaw, "selected_stations", func(rec map[string]any, i int) error {
		st, err := planStation(rec, i, "selected_", "Selected Station ", true)
		if err != nil {
			return err
		}
		merged.mergeSelected(st)
		return nil
	})...)
	out.Stations = merged.list()
	return out
}

// eachStation 遍历原始数组，单条记录失败只产生诊断，不影响其余记录
func eachStation(arr []any, list string, fn func(rec map[string]any, i int) error) []Diagnostic {
	var diags []Diagnostic
	for i, v := range arr {
		rec, ok := v.(map[string]any)
		if !ok {
			diags = append(diags, Diagnostic{List: list, Index: i, Reason: fmt.Sprintf("not an object (%T)", v)})
			continue
		}
		if err := fn(rec, i); err != nil {
			diags = append(diags, Diagnostic{List: list, Index: i, Reason: err.Error()})
		}
	}
	return diags
}

func buildRoute(body map[string]any) *models.RouteResult {
	r := &models.RouteResult{
		DistanceKm:      routeDistance.floatPtr(body),
		DurationMinutes: routeDuration.floatPtr(body),
		Polyline:        routePolyline.strOr(body, ""),
		Raw:             body,
	}
	if v, _, ok := routeOrigin.first(body); ok {
		r.Origin = v
	}
	if v, _, ok := routeDest.first(body); ok {
		r.Destination = v
	}
	return r
}

// objects 取数组中的对象元素
func objects(arr []any) []map[string]any {
	if arr == nil {
		return nil
	}
	out := make([]map[string]any, 0, len(arr))
	for _, v := range arr {
		if obj, ok := v.(map[string]any); ok {
			out = append(out, obj)
		}
	}
	return out
}

// planStation 映射充电计划中的一条记录
func planStation(rec map[string]any, i int, idPrefix, namePrefix string, selected bool) (*models.StationRecord, error) {
	loc, err := resolveLocation(rec, stationLat, stationLng)
	if err != nil {
		return nil, err
	}

	st := &models.StationRecord{Location: loc}

	if id, ok := planStationID.str(rec); ok {
		st.ID = id
	} else {
		st.ID = idPrefix + strconv.Itoa(i)
	}
	if name, ok := planStationName.str(rec); ok {
		st.Name = name
	} else {
		st.Name = namePrefix + strconv.Itoa(i+1)
	}
	if addr, ok := stationAddress.str(rec); ok {
		st.Address = addr
	} else {
		st.Address = defaultAddress
	}

	if chargers, ok := chargerList(rec); ok {
		st.Chargers = chargers
	} else {
		st.Chargers = []models.Charger{{
			Type:      defaultPlanChargerType,
			Power:     planChargerPower.floatOr(rec, defaultPlanChargerPower),
			Count:     planChargerCount.intOr(rec, 1),
			Available: planChargerAvailable.intOr(rec, 1),
		}}
	}

	st.Amenities = stationAmenities.strings(rec)
	if st.Amenities == nil {
		st.Amenities = []string{}
	}

	if r := stationRating.floatPtr(rec); r != nil {
		st.Rating = *r
	}
	st.Distance = planStationDistance.floatPtr(rec)
	st.WaitTime = planStationWait.floatPtr(rec)
	st.ChargingTime = planStationCharging.floatPtr(rec)

	st.IsSelected = selected || stationSelected.boolOr(rec, false)
	return st, nil
}

// chargerList 映射显式给出的 chargers 列表
func chargerList(rec map[string]any) ([]models.Charger, bool) {
	arr, ok := stationChargers.list(rec)
	if !ok {
		return nil, false
	}
	out := make([]models.Charger, 0, len(arr))
	for _, v := range arr {
		obj, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, models.Charger{
			Type:      chargerType.strOr(obj, defaultDiscoveryType),
			Power:     chargerPower.floatOr(obj, 0),
			Count:     chargerCount.intOr(obj, 1),
			Available: chargerAvailable.intOr(obj, 0),
		})
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// resolveLocation 解析经纬度，缺失或非有限数值返回错误
func resolveLocation(rec map[string]any, latChain, lngChain chain) (models.Location, error) {
	lat, present, err := latChain.float(rec)
	if err != nil {
		return models.Location{}, fmt.Errorf("latitude %v", err)
	}
	if !present {
		return models.Location{}, errors.New("latitude missing")
	}
	lng, present, err := lngChain.float(rec)
	if err != nil {
		return models.Location{}, fmt.Errorf("longitude %v", err)
	}
	if !present {
		return models.Location{}, errors.New("longitude missing")
	}
	return models.Location{Lat: lat, Lng: lng}, nil
}

// stationSet 按插入顺序保存充电站，并按坐标精确匹配去重
type stationSet struct {
	items []models.StationRecord
	index map[models.Location]int
}

func newStationSet() *stationSet {
	return &stationSet{index: make(map[models.Location]int)}
}

func (s *stationSet) add(st *models.StationRecord) {
	if _, ok := s.index[st.Location]; !ok {
		s.index[st.Location] = len(s.items)
	}
	s.items = append(s.items, *st)
}

// mergeSelected 坐标相同则用推荐站整条替换已有记录，否则追加
func (s *stationSet) mergeSelected(sel *models.StationRecord) {
	idx, ok := s.index[sel.Location]
	if !ok {
		s.add(sel)
		return
	}
	merged := *sel
	merged.IsSelected = true
	s.items[idx] = merged
}

func (s *stationSet) list() []models.StationRecord {
	out := make([]models.StationRecord, len(s.items))
	copy(out, s.items)
	return out
}
