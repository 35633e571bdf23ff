package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/models"
)

// LocationService 地点搜索与校验
type LocationService struct {
	logger   *zap.Logger
	geocoder Geocoder
}

// NewLocationService 创建地点服务
func NewLocationService(logger *zap.Logger, geocoder Geocoder) *LocationService {
	return &LocationService{logger: logger, geocoder: geocoder}
}

// Suggest 返回输入框的候选地点
func (s *LocationService) Suggest(ctx context.Context, query string) ([]models.LocationSuggestion, error) {
	results, err := s.geocoder.Search(ctx, query)
	if err != nil {
		s.logger.Warn("Location search failed", zap.String("query", query), zap.Error(err))
		return models.FallbackSuggestions(strings.TrimSpace(query)), nil
	}
	return results, nil
}

// Reverse 返回坐标对应的地址
func (s *LocationService) Reverse(ctx context.Context, lat, lng float64) (*models.Address, error) {
	if !(models.Location{Lat: lat, Lng: lng}).InRange() {
		return nil, apperr.Validation("Location must be valid coordinates")
	}
	addr, err := s.geocoder.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, "Could not resolve address for this location", err).WithOp("reverse geocode")
	}
	return addr, nil
}

// LocationCheck 地点输入校验结果
type LocationCheck struct {
	Value       string           `json:"value"`
	Valid       bool             `json:"valid"`
	Coordinates *models.Location `json:"coordinates,omitempty"` // 输入为 "lat,lng" 时解析出的坐标
	Message     string           `json:"message,omitempty"`
}

// Validate 校验起点/终点输入：坐标或地点名称
func (s *LocationService) Validate(value string) LocationCheck {
	check := LocationCheck{Value: value}
	if loc, err := models.ParseLocation(value); err == nil {
		check.Valid = true
		check.Coordinates = &loc
		return check
	}
	if ValidLocationName(value) {
		check.Valid = true
		return check
	}
	check.Message = "Please enter a valid location"
	return check
}
