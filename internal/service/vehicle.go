package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/apperr"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/repository"
)

// VehicleInput 新建/更新车辆的表单
type VehicleInput struct {
	Make            string `json:"make" validate:"required"`
	Model           string `json:"model" validate:"required"`
	Year            Number `json:"year"`
	BatteryCapacity Number `json:"battery_capacity"`
	Range           Number `json:"range"`
	Efficiency      Number `json:"efficiency"`
	ChargingPower   Number `json:"charging_power"`
}

// Number 表单数值，接受数字或数字字符串，无法解析时为 0
type Number float64

func (n *Number) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		*n = 0
		return nil
	}
	*n = Number(f)
	return nil
}

// VehicleService 车辆管理服务
type VehicleService struct {
	logger   *zap.Logger
	store    VehicleStore
	validate *validator.Validate
}

// NewVehicleService 创建车辆服务
func NewVehicleService(logger *zap.Logger, store VehicleStore) *VehicleService {
	return &VehicleService{logger: logger, store: store, validate: newValidator()}
}

// List 获取车辆列表，首次访问的用户自动创建默认车辆，删光后不再补建
func (s *VehicleService) List(ctx context.Context, userID string) ([]models.Vehicle, error) {
	vehicles, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to load vehicles", err)
	}
	if len(vehicles) > 0 {
		return vehicles, nil
	}

	v := models.DefaultVehicle()
	v.ID = uuid.NewString()
	v.UserID = userID
	created, err := s.store.SeedDefault(ctx, &v)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to create default vehicle", err)
	}
	if !created {
		return []models.Vehicle{}, nil
	}
	s.logger.Info("Created default vehicle", zap.String("user_id", userID), zap.String("vehicle_id", v.ID))
	return []models.Vehicle{v}, nil
}

// Create 新建车辆；用户的第一辆车自动选中
func (s *VehicleService) Create(ctx context.Context, userID string, in VehicleInput) (*models.Vehicle, error) {
	in = trimInput(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	existing, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to load vehicles", err)
	}

	v := applyInput(&models.Vehicle{ID: uuid.NewString(), UserID: userID}, in)
	v.IsSelected = len(existing) == 0
	if err := s.store.Create(ctx, v); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to add vehicle", err)
	}
	return v, nil
}

// Update 更新车辆属性
func (s *VehicleService) Update(ctx context.Context, userID, id string, in VehicleInput) (*models.Vehicle, error) {
	in = trimInput(in)
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	v := applyInput(&models.Vehicle{ID: id, UserID: userID}, in)
	if err := s.store.Update(ctx, v); err != nil {
		return nil, storeError(err, "Failed to update vehicle")
	}
	// 选中状态不随表单更新，重新读取
	updated, err := s.store.GetByID(ctx, userID, id)
	if err != nil {
		return nil, storeError(err, "Failed to update vehicle")
	}
	return updated, nil
}

// Delete 删除车辆；删除选中车辆后不自动选中其他车辆
func (s *VehicleService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Delete(ctx, userID, id); err != nil {
		return storeError(err, "Failed to delete vehicle")
	}
	return nil
}

// Select 选中车辆，其他车辆取消选中
func (s *VehicleService) Select(ctx context.Context, userID, id string) ([]models.Vehicle, error) {
	if err := s.store.Select(ctx, userID, id); err != nil {
		return nil, storeError(err, "Failed to select vehicle")
	}
	vehicles, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to load vehicles", err)
	}
	return vehicles, nil
}

func trimInput(in VehicleInput) VehicleInput {
	in.Make = strings.TrimSpace(in.Make)
	in.Model = strings.TrimSpace(in.Model)
	return in
}

// applyInput 数值字段为负时按 0 处理
func applyInput(v *models.Vehicle, in VehicleInput) *models.Vehicle {
	v.Make = in.Make
	v.Model = in.Model
	v.Year = int(nonNegative(in.Year))
	v.BatteryCapacity = nonNegative(in.BatteryCapacity)
	v.Range = nonNegative(in.Range)
	v.Efficiency = nonNegative(in.Efficiency)
	v.ChargingPower = nonNegative(in.ChargingPower)
	return v
}

func nonNegative(n Number) float64 {
	if n > 0 {
		return float64(n)
	}
	return 0
}

func storeError(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Wrap(apperr.KindNotFound, "Vehicle not found", err)
	}
	return apperr.Wrap(apperr.KindInternal, message, err)
}
