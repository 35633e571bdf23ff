package models

import "time"

// User 应用内用户信息
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClientState 用户的客户端缓存状态
type ClientState struct {
	UserID         string          `json:"-"`
	CachedStations []StationRecord `json:"cached_stations"`
	HasSearched    bool            `json:"has_searched"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
