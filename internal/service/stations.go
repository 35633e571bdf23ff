package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/metrics"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/normalize"
	"github.com/langchou/evroute/pkg/ws"
)

// 附近充电站搜索方式
const (
	SearchManual = "manual" // 用户点击搜索
	SearchAuto   = "auto"   // 进入页面后自动搜索，失败时静默回退
)

// NearbyQuery 附近充电站查询
type NearbyQuery struct {
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	RadiusKm float64 `json:"radius_km"`
	Mode     string  `json:"mode"` // manual（默认）或 auto
}

// NearbyResult 附近充电站结果
type NearbyResult struct {
	Stations    []models.StationRecord `json:"stations"`
	Fallback    bool                   `json:"fallback"`
	Notice      *Notice                `json:"notice,omitempty"`
	Shape       string                 `json:"shape"`
	Diagnostics []normalize.Diagnostic `json:"diagnostics,omitempty"`
}

// StationService 附近充电站服务
type StationService struct {
	logger          *zap.Logger
	gateway         StationGateway
	states          ClientStateStore
	notifier        Notifier
	fallbackOnError bool
}

// NewStationService 创建附近充电站服务
func NewStationService(logger *zap.Logger, gateway StationGateway, states ClientStateStore, notifier Notifier, fallbackOnError bool) *StationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &StationService{
		logger:          logger,
		gateway:         gateway,
		states:          states,
		notifier:        notifier,
		fallbackOnError: fallbackOnError,
	}
}

// Nearby 搜索附近充电站
// 自动搜索失败时静默返回示例充电站；手动搜索失败时附带错误提示
func (s *StationService) Nearby(ctx context.Context, userID, token string, q NearbyQuery) (*NearbyResult, error) {
	loc := models.Location{Lat: q.Lat, Lng: q.Lng}
	if !loc.InRange() {
		return nil, apperr.Validation("Location must be valid coordinates")
	}

	raw, err := s.gateway.NearbyStations(ctx, token, q.Lat, q.Lng, q.RadiusKm)
	if err != nil {
		return s.fail(userID, q.Mode, err)
	}

	out := normalize.NormalizeStations(raw)
	switch out.Shape {
	case normalize.ShapeEmpty:
		return s.fail(userID, q.Mode, fmt.Errorf("stations response: %w", normalize.ErrEmptyResponse))
	case normalize.ShapeUnrecognized:
		return s.fail(userID, q.Mode, fmt.Errorf("stations response: %w", normalize.ErrUnrecognizedShape))
	}
	recordDropped(out.Diagnostics)

	s.logger.Info("Nearby stations found",
		zap.String("user_id", userID),
		zap.Float64("lat", q.Lat),
		zap.Float64("lng", q.Lng),
		zap.Int("stations", len(out.Stations)))

	if s.states != nil && userID != "" {
		state := &models.ClientState{UserID: userID, CachedStations: out.Stations, HasSearched: true}
		if err := s.states.Save(ctx, state); err != nil {
			s.logger.Warn("Failed to save client state", zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.notifier.SendToUser(userID, ws.MsgTypeStationsUpdated, map[string]int{"count": len(out.Stations)})

	result := &NearbyResult{
		Stations:    out.Stations,
		Shape:       out.Shape.String(),
		Diagnostics: out.Diagnostics,
	}
	if q.Mode != SearchAuto {
		result.Notice = &Notice{Level: NoticeSuccess, Message: fmt.Sprintf("Found %d charging stations", len(out.Stations))}
	}
	return result, nil
}

func (s *StationService) fail(userID, mode string, err error) (*NearbyResult, error) {
	appErr := classifyGatewayError("nearby stations", stationMessages, err)
	s.logger.Warn("Nearby station search failed",
		zap.String("user_id", userID),
		zap.String("mode", mode),
		zap.Error(err))

	if mode == SearchAuto {
		metrics.Fallback("stations", "auto")
		return &NearbyResult{Stations: models.FallbackStations(), Fallback: true, Shape: normalize.ShapeUnrecognized.String()}, nil
	}
	if !s.fallbackOnError {
		return nil, appErr
	}
	metrics.Fallback("stations", "error")
	return &NearbyResult{
		Stations: models.FallbackStations(),
		Fallback: true,
		Notice:   &Notice{Level: NoticeError, Message: appErr.Message},
		Shape:    normalize.ShapeUnrecognized.String(),
	}, nil
}
