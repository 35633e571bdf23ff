// Package normalize 将 webhook 返回的松散 JSON 归一化为路线与充电站列表。
//
// 每个属性的取值顺序在本文件中统一定义，路线规划与附近充电站两种响应
// 共用同一套取值规则；数字既可以是 JSON 数值也可以是数字字符串。
package normalize

// 路线字段：先取顶层，再取嵌套的 route.*
var (
	routeDistance = fields("distance_km", "route.distance_km")
	routeDuration = fields("duration_minutes", "route.duration_minutes")
	routePolyline = fields("polyline", "route.polyline")
	routeOrigin   = fields("origin", "route.origin")
	routeDest     = fields("destination", "route.destination")
	routePlan     = fields("charging_plan", "route.charging_plan")
)

// 充电计划中的充电站字段
var (
	planStationID       = fields("id", "place_id")
	planStationName     = fields("name", "station_name")
	stationLat          = fields("lat", "latitude", "location.latitude", "location.lat")
	stationLng          = fields("lng", "longitude", "location.longitude", "location.lng")
	stationAddress      = fields("address", "formatted_address")
	stationChargers     = fields("chargers")
	stationAmenities    = fields("amenities")
	stationRating       = fields("rating")
	stationSelected     = fields("is_selected", "isSelected")
	planStationDistance = fields("distance_from_origin_km", "distance_km", "distance")
	planStationWait     = fields("time_impact_minutes", "wait_time")
	planStationCharging = fields("charging_time_minutes", "charging_duration_minutes", "charging_time")

	// 无 chargers 列表时合成一个充电桩
	planChargerPower     = fields("power", "charging_speed_kw")
	planChargerCount     = fields("count", "connector_count")
	planChargerAvailable = fields("available")
)

// chargers 列表内的单个充电桩
var (
	chargerType      = fields("type", "connector_type")
	chargerPower     = fields("power", "power_kw")
	chargerCount     = fields("count", "total")
	chargerAvailable = fields("available")
)

// 附近充电站响应
var (
	discoveryList       = fields("stations", "data.stations")
	discoveryID         = fields("place_id", "id")
	discoveryName       = fields("station_name", "name")
	discoveryLat        = fields("location.latitude", "latitude", "lat", "location.lat")
	discoveryLng        = fields("location.longitude", "longitude", "lng", "location.lng")
	discoveryConnectors = fields("connector_types")
	discoverySpeed      = fields("charging_speed_kw")
	discoveryCount      = fields("connector_count")
	discoveryAvailable  = fields("availability")
	discoveryDistance   = fields("distance_km")
)

// 默认值
const (
	defaultAddress          = "Address not available"
	defaultPlanChargerType  = "DC Fast"
	defaultPlanChargerPower = 50
	defaultDiscoveryName    = "Unknown Station"
	defaultDiscoveryType    = "Unknown"
)
