package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/metrics"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/normalize"
	"github.com/langchou/evroute/pkg/ws"
)

const planSuccessMessage = "Route planned successfully!"

// PlanResult 行程规划结果
type PlanResult struct {
	Route       *models.RouteResult    `json:"route"`
	Stations    []models.StationRecord `json:"stations"`
	Summary     models.PlanSummary     `json:"summary"`
	Fallback    bool                   `json:"fallback"` // 是否为示例路线
	Notice      Notice                 `json:"notice"`
	Shape       string                 `json:"shape,omitempty"`
	Diagnostics []normalize.Diagnostic `json:"diagnostics,omitempty"`
}

// TripService 行程规划服务
type TripService struct {
	logger          *zap.Logger
	gateway         TripGateway
	states          ClientStateStore
	notifier        Notifier
	validate        *validator.Validate
	fallbackOnError bool
}

// NewTripService 创建行程规划服务
func NewTripService(logger *zap.Logger, gateway TripGateway, states ClientStateStore, notifier Notifier, fallbackOnError bool) *TripService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &TripService{
		logger:          logger,
		gateway:         gateway,
		states:          states,
		notifier:        notifier,
		validate:        newValidator(),
		fallbackOnError: fallbackOnError,
	}
}

// Validate 校验行程表单
func (s *TripService) Validate(trip models.TripRequest) error {
	if err := s.validate.Struct(trip); err != nil {
		return validationError(err)
	}
	return nil
}

// Plan 校验表单、调用行程规划 webhook 并归一化响应
// 上游失败时按配置返回示例路线或错误
func (s *TripService) Plan(ctx context.Context, userID, token string, trip models.TripRequest) (*PlanResult, error) {
	if err := s.Validate(trip); err != nil {
		return nil, err
	}

	raw, err := s.gateway.PlanTrip(ctx, token, trip)
	if err != nil {
		return s.fail(userID, err)
	}

	out, err := normalize.NormalizeRoute(raw)
	if err != nil {
		return s.fail(userID, err)
	}

	for _, d := range out.Diagnostics {
		s.logger.Warn("Dropped station record",
			zap.String("user_id", userID),
			zap.String("list", d.List),
			zap.Int("index", d.Index),
			zap.String("reason", d.Reason))
	}
	recordDropped(out.Diagnostics)

	result := &PlanResult{
		Route:       out.Route,
		Stations:    out.Stations,
		Summary:     models.Summarize(out.Stations),
		Notice:      Notice{Level: NoticeSuccess, Message: planSuccessMessage},
		Shape:       out.Kind.String(),
		Diagnostics: out.Diagnostics,
	}

	s.logger.Info("Route planned",
		zap.String("user_id", userID),
		zap.String("shape", result.Shape),
		zap.Int("stations", len(result.Stations)),
		zap.Int("selected", result.Summary.SelectedCount))

	s.remember(ctx, userID, result.Stations)
	s.notifier.SendToUser(userID, ws.MsgTypeTripPlanned, result.Summary)
	return result, nil
}

// fail 上游为空时总是返回示例路线；其他错误在开启回退时返回示例路线
func (s *TripService) fail(userID string, err error) (*PlanResult, error) {
	appErr := classifyGatewayError("plan trip", planMessages, err)
	s.logger.Warn("Route planning failed",
		zap.String("user_id", userID),
		zap.Int("status", appErr.Status),
		zap.Error(err))

	empty := errors.Is(err, normalize.ErrEmptyResponse)
	if !empty && !s.fallbackOnError {
		return nil, appErr
	}

	level := NoticeError
	reason := "error"
	if empty {
		level = NoticeWarning
		reason = "empty"
	}
	metrics.Fallback("route", reason)

	route, stations := models.FallbackRoute()
	return &PlanResult{
		Route:    route,
		Stations: stations,
		Summary:  models.Summarize(stations),
		Fallback: true,
		Notice:   Notice{Level: level, Message: appErr.Message},
	}, nil
}

// remember 保存最近一次搜索到的充电站
func (s *TripService) remember(ctx context.Context, userID string, stations []models.StationRecord) {
	if s.states == nil || userID == "" {
		return
	}
	state := &models.ClientState{UserID: userID, CachedStations: stations, HasSearched: true}
	if err := s.states.Save(ctx, state); err != nil {
		s.logger.Warn("Failed to save client state", zap.String("user_id", userID), zap.Error(err))
	}
}

func recordDropped(diags []normalize.Diagnostic) {
	counts := make(map[string]int)
	for _, d := range diags {
		counts[d.List]++
	}
	for list, n := range counts {
		metrics.DroppedStations(list, n)
	}
}
