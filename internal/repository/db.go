package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("record not found")

// DB 数据库连接池封装
type DB struct {
	Pool *pgxpool.Pool
}

// New 创建数据库连接
func New(ctx context.Context, databaseURL string) (*DB, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	// 连接池配置
	config.MaxConns = 10
	config.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// 测试连接
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close 关闭连接池
func (db *DB) Close() {
	db.Pool.Close()
}

// Migrate 执行数据库迁移
func (db *DB) Migrate(ctx context.Context) error {
	migrations := []string{
		migrationCreateVehicles,
		migrationCreateVehicleSelectedIndex,
		migrationCreateVehicleSeeds,
		migrationCreateClientState,
	}

	for _, m := range migrations {
		if _, err := db.Pool.Exec(ctx, m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}

	return nil
}

// 数据库迁移 SQL
const migrationCreateVehicles = `
CREATE TABLE IF NOT EXISTS vehicles (
    id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    make VARCHAR(100) NOT NULL,
    model VARCHAR(100) NOT NULL,
    year INT NOT NULL DEFAULT 0,

    -- 电池与续航
    battery_capacity DOUBLE PRECISION NOT NULL DEFAULT 0,
    range_km DOUBLE PRECISION NOT NULL DEFAULT 0,
    efficiency DOUBLE PRECISION NOT NULL DEFAULT 0,
    charging_power DOUBLE PRECISION NOT NULL DEFAULT 0,

    is_selected BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_vehicles_user_id ON vehicles(user_id);
`

// 每个用户最多一辆选中车辆
const migrationCreateVehicleSelectedIndex = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_vehicles_user_selected ON vehicles(user_id) WHERE is_selected;
`

// 已创建过默认车辆的用户
const migrationCreateVehicleSeeds = `
CREATE TABLE IF NOT EXISTS vehicle_seeds (
    user_id TEXT PRIMARY KEY,
    seeded_at TIMESTAMPTZ NOT NULL
);
`

// 客户端缓存状态（充电站列表 + 是否已搜索）
const migrationCreateClientState = `
CREATE TABLE IF NOT EXISTS client_state (
    user_id TEXT PRIMARY KEY,
    cached_stations JSONB NOT NULL DEFAULT '[]',
    has_searched BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`
