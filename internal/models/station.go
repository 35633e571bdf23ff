package models

import (
	"fmt"
	"net/url"
)

// Charger 充电桩描述
type Charger struct {
	Type      string  `json:"type"`
	Power     float64 `json:"power"` // kW
	Count     int     `json:"count"`
	Available int     `json:"available"`
}

// StationRecord 充电站（行程规划与附近充电站共用）
type StationRecord struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Location     Location  `json:"location"`
	Address      string    `json:"address"`
	Chargers     []Charger `json:"chargers"`
	Amenities    []string  `json:"amenities"`
	IsSelected   bool      `json:"is_selected"` // 是否为推荐充电站
	Rating       float64   `json:"rating"`
	Distance     *float64  `json:"distance,omitempty"`      // km
	WaitTime     *float64  `json:"wait_time,omitempty"`     // 分钟
	ChargingTime *float64  `json:"charging_time,omitempty"` // 分钟
}

// 可用性等级
const (
	AvailabilityGood     = "Good"
	AvailabilityModerate = "Moderate"
	AvailabilityLimited  = "Limited"
)

// ChargerTotals 返回充电桩总数与可用数
func (s *StationRecord) ChargerTotals() (total, available int) {
	for _, c := range s.Chargers {
		total += c.Count
		available += c.Available
	}
	return total, available
}

// Availability 按可用比例划分等级：>=75% Good，>=50% Moderate，否则 Limited
func (s *StationRecord) Availability() string {
	total, available := s.ChargerTotals()
	if total <= 0 {
		return AvailabilityLimited
	}
	ratio := float64(available) / float64(total) * 100
	switch {
	case ratio >= 75:
		return AvailabilityGood
	case ratio >= 50:
		return AvailabilityModerate
	default:
		return AvailabilityLimited
	}
}

// DirectionsURL 生成导航链接
func (s *StationRecord) DirectionsURL() string {
	q := url.Values{}
	q.Set("api", "1")
	q.Set("destination", fmt.Sprintf("%v,%v", s.Location.Lat, s.Location.Lng))
	if s.ID != "" {
		q.Set("destination_place_id", s.ID)
	}
	return "https://www.google.com/maps/dir/?" + q.Encode()
}
