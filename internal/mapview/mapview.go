// Package mapview 组合地图视图状态：中心点、路线、充电站标记和选中站点
package mapview

import (
	"errors"

	"github.com/langchou/evroute/internal/models"
)

// DefaultZoom 默认缩放级别
const DefaultZoom = 13

// 浏览器定位状态
const (
	GeoGranted     = "granted"
	GeoDenied      = "denied"
	GeoUnavailable = "unavailable"
)

// ErrStationNotFound 点击的充电站不在当前列表中
var ErrStationNotFound = errors.New("station not found")

// Geolocation 客户端上报的定位结果
type Geolocation struct {
	Status string   `json:"status"`
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
}

// Marker 地图标记
type Marker struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Address       string           `json:"address"`
	Location      models.Location  `json:"location"`
	Selected      bool             `json:"selected"`
	Availability  string           `json:"availability"`
	Chargers      []models.Charger `json:"chargers"`
	DirectionsURL string           `json:"directions_url"`
}

// MapState 地图视图状态
type MapState struct {
	Center              models.Location       `json:"center"`
	Zoom                int                   `json:"zoom"`
	CurrentLocation     *models.Location      `json:"current_location,omitempty"`
	GeolocationFallback bool                  `json:"geolocation_fallback"` // 使用默认中心点
	RoutePolyline       string                `json:"route_polyline,omitempty"`
	Markers             []Marker              `json:"markers"`
	SelectedStation     *models.StationRecord `json:"selected_station,omitempty"`
	Summary             models.PlanSummary    `json:"summary"`
}

// ViewRequest 组合地图视图的输入
type ViewRequest struct {
	Geolocation       *Geolocation           `json:"geolocation"`
	Route             *models.RouteResult    `json:"route,omitempty"`
	Stations          []models.StationRecord `json:"stations"`
	SelectedStationID string                 `json:"selected_station_id,omitempty"`
	Zoom              int                    `json:"zoom,omitempty"`
}

// ClickResult 点击充电站标记的结果
type ClickResult struct {
	Station       models.StationRecord `json:"station"`
	Availability  string               `json:"availability"`
	DirectionsURL string               `json:"directions_url"`
	Summary       models.PlanSummary   `json:"summary"`
}

// Composer 地图视图组合器
type Composer struct {
	defaultCenter models.Location
}

// NewComposer 创建组合器，defaultCenter 为定位不可用时的中心点
func NewComposer(defaultCenter models.Location) *Composer {
	if !defaultCenter.InRange() {
		defaultCenter = models.Location{Lat: 19.0760, Lng: 72.8777}
	}
	return &Composer{defaultCenter: defaultCenter}
}

// DefaultCenter 返回默认中心点
func (c *Composer) DefaultCenter() models.Location {
	return c.defaultCenter
}

// ResolveCenter 校验客户端定位；拒绝、缺失或非法坐标时返回默认中心点，fallback 为 true
func (c *Composer) ResolveCenter(g *Geolocation) (center models.Location, fallback bool) {
	if g == nil || g.Status == GeoDenied || g.Status == GeoUnavailable || g.Lat == nil || g.Lng == nil {
		return c.defaultCenter, true
	}
	loc := models.Location{Lat: *g.Lat, Lng: *g.Lng}
	if !loc.InRange() {
		return c.defaultCenter, true
	}
	return loc, false
}

// Compose 生成地图视图状态
func (c *Composer) Compose(req ViewRequest) *MapState {
	center, fallback := c.ResolveCenter(req.Geolocation)

	state := &MapState{
		Center:              center,
		Zoom:                DefaultZoom,
		GeolocationFallback: fallback,
		Markers:             make([]Marker, 0, len(req.Stations)),
		Summary:             models.Summarize(req.Stations),
	}
	if req.Zoom > 0 {
		state.Zoom = req.Zoom
	}
	if !fallback {
		loc := center
		state.CurrentLocation = &loc
	}
	if req.Route != nil {
		state.RoutePolyline = req.Route.Polyline
	}

	for i := range req.Stations {
		st := &req.Stations[i]
		if !st.Location.IsFinite() {
			continue
		}
		state.Markers = append(state.Markers, newMarker(st))
		if req.SelectedStationID != "" && st.ID == req.SelectedStationID {
			selected := *st
			state.SelectedStation = &selected
		}
	}
	return state
}

// Click 返回被点击充电站的详情和路线摘要
func (c *Composer) Click(stations []models.StationRecord, stationID string) (*ClickResult, error) {
	for i := range stations {
		if stations[i].ID != stationID {
			continue
		}
		st := stations[i]
		return &ClickResult{
			Station:       st,
			Availability:  st.Availability(),
			DirectionsURL: st.DirectionsURL(),
			Summary:       models.Summarize(stations),
		}, nil
	}
	return nil, ErrStationNotFound
}

func newMarker(st *models.StationRecord) Marker {
	return Marker{
		ID:            st.ID,
		Name:          st.Name,
		Address:       st.Address,
		Location:      st.Location,
		Selected:      st.IsSelected,
		Availability:  st.Availability(),
		Chargers:      st.Chargers,
		DirectionsURL: st.DirectionsURL(),
	}
}
