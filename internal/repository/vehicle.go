package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/langchou/evroute/internal/models"
)

// VehicleRepository 车辆数据仓库
type VehicleRepository struct {
	db *DB
}

// NewVehicleRepository 创建车辆仓库
func NewVehicleRepository(db *DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `id, user_id, make, model, year, battery_capacity, range_km, efficiency, charging_power, is_selected, created_at, updated_at`

func scanVehicle(row pgx.Row) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.Make,
		&v.Model,
		&v.Year,
		&v.BatteryCapacity,
		&v.Range,
		&v.Efficiency,
		&v.ChargingPower,
		&v.IsSelected,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return v, err
}

// ListByUser 获取用户的车辆列表
func (r *VehicleRepository) ListByUser(ctx context.Context, userID string) ([]models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE user_id = $1 ORDER BY created_at, id`
	rows, err := r.db.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

// GetByID 获取用户的单个车辆
func (r *VehicleRepository) GetByID(ctx context.Context, userID, id string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE user_id = $1 AND id = $2`
	v, err := scanVehicle(r.db.Pool.QueryRow(ctx, query, userID, id))
	if err != nil {
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return v, nil
}

// Create 创建车辆；选中时先取消该用户其他车辆的选中状态
func (r *VehicleRepository) Create(ctx context.Context, v *models.Vehicle) error {
	now := time.Now()
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		if v.IsSelected {
			if _, err := tx.Exec(ctx, `UPDATE vehicles SET is_selected = FALSE, updated_at = $2 WHERE user_id = $1 AND is_selected`, v.UserID, now); err != nil {
				return fmt.Errorf("clear selection: %w", err)
			}
		}

		query := `
			INSERT INTO vehicles (id, user_id, make, model, year, battery_capacity, range_km, efficiency, charging_power, is_selected, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		_, err := tx.Exec(ctx, query,
			v.ID,
			v.UserID,
			v.Make,
			v.Model,
			v.Year,
			v.BatteryCapacity,
			v.Range,
			v.Efficiency,
			v.ChargingPower,
			v.IsSelected,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert vehicle: %w", err)
		}
		if _, err := tx.Exec(ctx, markSeededQuery, v.UserID, now); err != nil {
			return fmt.Errorf("mark vehicles seeded: %w", err)
		}

		v.CreatedAt = now
		v.UpdatedAt = now
		return nil
	})
}

const markSeededQuery = `INSERT INTO vehicle_seeds (user_id, seeded_at) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`

// SeedDefault 为从未拥有过车辆的用户创建默认车辆，每个用户只执行一次
func (r *VehicleRepository) SeedDefault(ctx context.Context, v *models.Vehicle) (bool, error) {
	seeded := false
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		now := time.Now()
		tag, err := tx.Exec(ctx, markSeededQuery, v.UserID, now)
		if err != nil {
			return fmt.Errorf("mark vehicles seeded: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		query := `
			INSERT INTO vehicles (id, user_id, make, model, year, battery_capacity, range_km, efficiency, charging_power, is_selected, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		_, err = tx.Exec(ctx, query,
			v.ID,
			v.UserID,
			v.Make,
			v.Model,
			v.Year,
			v.BatteryCapacity,
			v.Range,
			v.Efficiency,
			v.ChargingPower,
			v.IsSelected,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert default vehicle: %w", err)
		}
		v.CreatedAt = now
		v.UpdatedAt = now
		seeded = true
		return nil
	})
	return seeded, err
}

// Update 更新车辆属性（不修改选中状态）
func (r *VehicleRepository) Update(ctx context.Context, v *models.Vehicle) error {
	query := `
		UPDATE vehicles SET
			make = $3, model = $4, year = $5,
			battery_capacity = $6, range_km = $7, efficiency = $8, charging_power = $9,
			updated_at = $10
		WHERE user_id = $1 AND id = $2
		RETURNING is_selected, created_at
	`
	now := time.Now()
	err := r.db.Pool.QueryRow(ctx, query,
		v.UserID,
		v.ID,
		v.Make,
		v.Model,
		v.Year,
		v.BatteryCapacity,
		v.Range,
		v.Efficiency,
		v.ChargingPower,
		now,
	).Scan(&v.IsSelected, &v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update vehicle: %w", err)
	}
	v.UpdatedAt = now
	return nil
}

// Delete 删除车辆
func (r *VehicleRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM vehicles WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Select 将指定车辆设为选中，其余车辆取消选中
func (r *VehicleRepository) Select(ctx context.Context, userID, id string) error {
	now := time.Now()
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM vehicles WHERE user_id = $1 AND id = $2)`, userID, id).Scan(&exists); err != nil {
			return fmt.Errorf("check vehicle: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		if _, err := tx.Exec(ctx, `UPDATE vehicles SET is_selected = FALSE, updated_at = $2 WHERE user_id = $1 AND is_selected`, userID, now); err != nil {
			return fmt.Errorf("clear selection: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE vehicles SET is_selected = TRUE, updated_at = $3 WHERE user_id = $1 AND id = $2`, userID, id, now); err != nil {
			return fmt.Errorf("select vehicle: %w", err)
		}
		return nil
	})
}
