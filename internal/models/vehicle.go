package models

import "time"

// Vehicle 用户车辆
type Vehicle struct {
	ID              string    `json:"id"`
	UserID          string    `json:"-"`
	Make            string    `json:"make"`
	Model           string    `json:"model"`
	Year            int       `json:"year"`
	BatteryCapacity float64   `json:"battery_capacity"` // kWh
	Range           float64   `json:"range"`            // km
	Efficiency      float64   `json:"efficiency"`
	ChargingPower   float64   `json:"charging_power"` // kW
	IsSelected      bool      `json:"is_selected"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultVehicle 新用户的默认车辆
func DefaultVehicle() Vehicle {
	return Vehicle{
		Make:            "Tesla",
		Model:           "Model 3",
		Year:            2023,
		BatteryCapacity: 75,
		Range:           358,
		Efficiency:      4.8,
		ChargingPower:   250,
		IsSelected:      true,
	}
}
