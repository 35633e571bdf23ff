package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/pkg/ws"
)

// StateService 客户端缓存状态
type StateService struct {
	logger   *zap.Logger
	states   ClientStateStore
	notifier Notifier
}

// NewStateService 创建客户端状态服务
func NewStateService(logger *zap.Logger, states ClientStateStore, notifier Notifier) *StateService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &StateService{logger: logger, states: states, notifier: notifier}
}

// Get 返回用户最近一次搜索的充电站，没有记录时返回空状态
func (s *StateService) Get(ctx context.Context, userID string) (*models.ClientState, error) {
	state, err := s.states.Get(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to load saved state", err)
	}
	if state.CachedStations == nil {
		state.CachedStations = []models.StationRecord{}
	}
	return state, nil
}

// Clear 清空用户缓存并通知其他标签页
func (s *StateService) Clear(ctx context.Context, userID string) error {
	if err := s.states.Clear(ctx, userID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "Failed to clear saved state", err)
	}
	s.logger.Info("Client state cleared", zap.String("user_id", userID))
	s.notifier.SendToUser(userID, ws.MsgTypeStateCleared, nil)
	return nil
}
