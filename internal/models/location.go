package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Location 经纬度坐标
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// IsFinite 坐标是否为有限数值
func (l Location) IsFinite() bool {
	return !math.IsNaN(l.Lat) && !math.IsInf(l.Lat, 0) &&
		!math.IsNaN(l.Lng) && !math.IsInf(l.Lng, 0)
}

// InRange 坐标是否在合法经纬度范围内
func (l Location) InRange() bool {
	return l.IsFinite() && l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// String 转换为 webhook 使用的 "lat,lng" 格式
func (l Location) String() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

// ParseLocation 解析 "lat,lng" 格式的坐标字符串
func ParseLocation(s string) (Location, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return Location{}, fmt.Errorf("coordinates %q: expected \"lat,lng\"", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("parse latitude: %w", err)
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Location{}, fmt.Errorf("parse longitude: %w", err)
	}

	loc := Location{Lat: lat, Lng: lng}
	if !loc.InRange() {
		return Location{}, fmt.Errorf("coordinates %q out of range", s)
	}
	return loc, nil
}

// LocationSuggestion 地点候选（地理编码结果）
type LocationSuggestion struct {
	DisplayName      string   `json:"display_name"`
	Name             string   `json:"name"`
	Lat              float64  `json:"lat"`
	Lon              float64  `json:"lon"`
	PlaceID          string   `json:"place_id"`
	Types            []string `json:"types,omitempty"`
	FormattedAddress string   `json:"formatted_address"`
	Provider         string   `json:"provider"`
}

// Coordinates 返回 "lat,lng" 格式，用于填充行程表单
func (s LocationSuggestion) Coordinates() string {
	return Location{Lat: s.Lat, Lng: s.Lon}.String()
}
