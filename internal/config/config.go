package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	ServerPort  string
	Debug       bool
	CORSOrigins []string
	RateLimit   float64 // 每个 IP 每秒请求数，0 表示不限流

	// Storage（为空时使用内存实现）
	DatabaseURL string
	RedisURL    string

	// 行程规划 / 附近充电站 Webhook
	WebhookBaseURL      string
	WebhookPlanPath     string
	WebhookStationsPath string
	WebhookTimeout      time.Duration
	FallbackOnError     bool // 上游失败时是否返回示例路线/充电站

	// 身份认证服务
	AuthURL       string
	AuthAnonKey   string
	AuthJWTSecret string
	SiteURL       string

	// 地理编码
	AmapAPIKey           string
	GeocoderCountryCodes string
	GeocoderTimeout      time.Duration

	// 定位失败时的默认坐标
	DefaultLat float64
	DefaultLng float64
}

func Load() (*Config, error) {
	// 尝试加载 .env 文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:           getEnv("PORT", "4000"),
		Debug:                getEnvBool("DEBUG", false),
		CORSOrigins:          getEnvList("CORS_ORIGINS", []string{"*"}),
		RateLimit:            getEnvFloat("RATE_LIMIT_RPS", 20),
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		WebhookBaseURL:       getEnv("WEBHOOK_BASE_URL", "https://abhijeetshelke.app.n8n.cloud"),
		WebhookPlanPath:      getEnv("WEBHOOK_PLAN_PATH", "/webhook/5c5cf1c2-edab-404e-8637-8e3c4a572f9d"),
		WebhookStationsPath:  getEnv("WEBHOOK_STATIONS_PATH", "/webhook/545c8277-554b-460d-89c5-5785fb99c782"),
		WebhookTimeout:       getEnvDuration("WEBHOOK_TIMEOUT", 30*time.Second),
		FallbackOnError:      getEnvBool("FALLBACK_ON_ERROR", true),
		AuthURL:              getEnv("AUTH_URL", "http://localhost:9999"),
		AuthAnonKey:          getEnv("AUTH_ANON_KEY", ""),
		AuthJWTSecret:        getEnv("AUTH_JWT_SECRET", ""),
		SiteURL:              getEnv("SITE_URL", "http://localhost:3000"),
		AmapAPIKey:           getEnv("AMAP_API_KEY", ""),
		GeocoderCountryCodes: getEnv("GEOCODER_COUNTRY_CODES", "in"),
		GeocoderTimeout:      getEnvDuration("GEOCODER_TIMEOUT", 10*time.Second),
		DefaultLat:           getEnvFloat("DEFAULT_LAT", 19.0760),
		DefaultLng:           getEnvFloat("DEFAULT_LNG", 72.8777),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvList 解析逗号分隔的列表
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
