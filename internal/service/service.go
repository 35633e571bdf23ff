package service

import (
	"context"

	"github.com/langchou/evroute/internal/models"
)

// TripGateway 行程规划 webhook
type TripGateway interface {
	PlanTrip(ctx context.Context, token string, trip models.TripRequest) ([]byte, error)
}

// StationGateway 附近充电站 webhook
type StationGateway interface {
	NearbyStations(ctx context.Context, token string, lat, lng, radiusKm float64) ([]byte, error)
}

// Geocoder 地点搜索与逆地理编码
type Geocoder interface {
	Search(ctx context.Context, query string) ([]models.LocationSuggestion, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error)
}

// VehicleStore 车辆存储
type VehicleStore interface {
	ListByUser(ctx context.Context, userID string) ([]models.Vehicle, error)
	GetByID(ctx context.Context, userID, id string) (*models.Vehicle, error)
	Create(ctx context.Context, v *models.Vehicle) error
	Update(ctx context.Context, v *models.Vehicle) error
	Delete(ctx context.Context, userID, id string) error
	Select(ctx context.Context, userID, id string) error
	// SeedDefault 仅当用户从未有过车辆时创建 v，返回是否创建
	SeedDefault(ctx context.Context, v *models.Vehicle) (bool, error)
}

// ClientStateStore 客户端缓存状态存储
type ClientStateStore interface {
	Get(ctx context.Context, userID string) (*models.ClientState, error)
	Save(ctx context.Context, state *models.ClientState) error
	Clear(ctx context.Context, userID string) error
}

// Notifier 向用户推送消息（WebSocket）
type Notifier interface {
	SendToUser(userID, msgType string, data any)
}

// 提示级别
const (
	NoticeSuccess = "success"
	NoticeWarning = "warning"
	NoticeError   = "error"
)

// Notice 展示给用户的提示
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type nopNotifier struct{}

func (nopNotifier) SendToUser(string, string, any) {}
