package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/evroute/internal/models"
)

// ClientStateRepository 客户端缓存状态仓库
type ClientStateRepository struct {
	db *DB
}

// NewClientStateRepository 创建客户端状态仓库
func NewClientStateRepository(db *DB) *ClientStateRepository {
	return &ClientStateRepository{db: db}
}

// Get 获取用户状态，不存在时返回空状态
func (r *ClientStateRepository) Get(ctx context.Context, userID string) (*models.ClientState, error) {
	state := &models.ClientState{UserID: userID, CachedStations: []models.StationRecord{}}

	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT cached_stations, has_searched, updated_at FROM client_state WHERE user_id = $1`,
		userID,
	).Scan(&raw, &state.HasSearched, &state.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get client state: %w", err)
	}

	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &state.CachedStations); err != nil {
			return nil, fmt.Errorf("decode cached stations: %w", err)
		}
	}
	return state, nil
}

// Save 保存用户状态（覆盖写入）
func (r *ClientStateRepository) Save(ctx context.Context, state *models.ClientState) error {
	stations := state.CachedStations
	if stations == nil {
		stations = []models.StationRecord{}
	}
	raw, err := json.Marshal(stations)
	if err != nil {
		return fmt.Errorf("encode cached stations: %w", err)
	}

	now := time.Now()
	query := `
		INSERT INTO client_state (user_id, cached_stations, has_searched, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			cached_stations = EXCLUDED.cached_stations,
			has_searched = EXCLUDED.has_searched,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.Pool.Exec(ctx, query, state.UserID, raw, state.HasSearched, now); err != nil {
		return fmt.Errorf("save client state: %w", err)
	}
	state.UpdatedAt = now
	return nil
}

// Clear 清除用户状态
func (r *ClientStateRepository) Clear(ctx context.Context, userID string) error {
	if _, err := r.db.Pool.Exec(ctx, `DELETE FROM client_state WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear client state: %w", err)
	}
	return nil
}
