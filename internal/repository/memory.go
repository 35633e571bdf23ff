package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/langchou/evroute/internal/models"
)

// MemoryVehicleStore 未配置数据库时使用的内存车辆仓库
type MemoryVehicleStore struct {
	mu       sync.RWMutex
	vehicles map[string]map[string]models.Vehicle // user_id -> id -> vehicle
	seeded   map[string]bool
}

// NewMemoryVehicleStore 创建内存车辆仓库
func NewMemoryVehicleStore() *MemoryVehicleStore {
	return &MemoryVehicleStore{
		vehicles: make(map[string]map[string]models.Vehicle),
		seeded:   make(map[string]bool),
	}
}

func (s *MemoryVehicleStore) ListByUser(_ context.Context, userID string) ([]models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Vehicle, 0, len(s.vehicles[userID]))
	for _, v := range s.vehicles[userID] {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryVehicleStore) GetByID(_ context.Context, userID, id string) (*models.Vehicle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vehicles[userID][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (s *MemoryVehicleStore) Create(_ context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insert(v)
	return nil
}

func (s *MemoryVehicleStore) SeedDefault(_ context.Context, v *models.Vehicle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seeded[v.UserID] {
		return false, nil
	}
	s.insert(v)
	return true, nil
}

func (s *MemoryVehicleStore) insert(v *models.Vehicle) {
	s.seeded[v.UserID] = true
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now

	userVehicles, ok := s.vehicles[v.UserID]
	if !ok {
		userVehicles = make(map[string]models.Vehicle)
		s.vehicles[v.UserID] = userVehicles
	}
	if v.IsSelected {
		clearSelection(userVehicles, now)
	}
	userVehicles[v.ID] = *v
}

func (s *MemoryVehicleStore) Update(_ context.Context, v *models.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.vehicles[v.UserID][v.ID]
	if !ok {
		return ErrNotFound
	}
	v.IsSelected = cur.IsSelected
	v.CreatedAt = cur.CreatedAt
	v.UpdatedAt = time.Now()
	s.vehicles[v.UserID][v.ID] = *v
	return nil
}

func (s *MemoryVehicleStore) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.vehicles[userID][id]; !ok {
		return ErrNotFound
	}
	delete(s.vehicles[userID], id)
	return nil
}

func (s *MemoryVehicleStore) Select(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	userVehicles := s.vehicles[userID]
	target, ok := userVehicles[id]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	clearSelection(userVehicles, now)
	target.IsSelected = true
	target.UpdatedAt = now
	userVehicles[id] = target
	return nil
}

func clearSelection(vehicles map[string]models.Vehicle, now time.Time) {
	for id, v := range vehicles {
		if v.IsSelected {
			v.IsSelected = false
			v.UpdatedAt = now
			vehicles[id] = v
		}
	}
}

// MemoryClientStateStore 未配置数据库时使用的内存客户端状态仓库
type MemoryClientStateStore struct {
	mu     sync.RWMutex
	states map[string]models.ClientState
}

// NewMemoryClientStateStore 创建内存客户端状态仓库
func NewMemoryClientStateStore() *MemoryClientStateStore {
	return &MemoryClientStateStore{states: make(map[string]models.ClientState)}
}

func (s *MemoryClientStateStore) Get(_ context.Context, userID string) (*models.ClientState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[userID]
	if !ok {
		return &models.ClientState{UserID: userID, CachedStations: []models.StationRecord{}}, nil
	}
	state.CachedStations = append([]models.StationRecord{}, state.CachedStations...)
	return &state, nil
}

func (s *MemoryClientStateStore) Save(_ context.Context, state *models.ClientState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.UpdatedAt = time.Now()
	stored := *state
	stored.CachedStations = append([]models.StationRecord{}, state.CachedStations...)
	s.states[state.UserID] = stored
	return nil
}

func (s *MemoryClientStateStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}
