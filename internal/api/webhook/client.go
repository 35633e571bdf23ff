package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/langchou/evroute/internal/metrics"
	"github.com/langchou/evroute/internal/models"
)

// 附近充电站搜索半径
const (
	DefaultRadiusKm = 10
	MaxRadiusKm     = 100
)

// maxBodySize 上游响应体上限
var maxBodySize = 8 << 20

// StatusError 上游返回非 2xx
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed: status=%d body=%s", e.Endpoint, e.StatusCode, e.Body)
}

var (
	// ErrTransport 网络或传输失败
	ErrTransport = errors.New("webhook transport failure")
	// ErrBodyTooLarge 响应体超过上限
	ErrBodyTooLarge = errors.New("webhook response too large")
)

// PlanRequest 行程规划 webhook 请求体
type PlanRequest struct {
	Origin             string   `json:"origin"`
	Destination        string   `json:"destination"`
	CurrentSOC         float64  `json:"current_soc"`
	BatteryCapacityKWh float64  `json:"battery_capacity_kwh"`
	MinSOC             float64  `json:"min_soc"`
	TargetSOC          float64  `json:"target_soc"`
	AmenityPreferences []string `json:"amenity_preferences"`
}

// NearbyRequest 附近充电站 webhook 请求体
type NearbyRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

// Client 无代码工作流 webhook 客户端。
// 每次调用只发送一次请求，不重试
type Client struct {
	httpClient   *http.Client
	baseURL      string
	planPath     string
	stationsPath string
}

// NewClient 创建 webhook 客户端
func NewClient(baseURL, planPath, stationsPath string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:      strings.TrimRight(baseURL, "/"),
		planPath:     "/" + strings.TrimLeft(planPath, "/"),
		stationsPath: "/" + strings.TrimLeft(stationsPath, "/"),
	}
}

// PlanTrip 调用行程规划 webhook，返回未经校验的原始响应
func (c *Client) PlanTrip(ctx context.Context, token string, trip models.TripRequest) ([]byte, error) {
	amenities := trip.AmenityPreferences
	if amenities == nil {
		amenities = []string{}
	}
	body := PlanRequest{
		Origin:             trip.Origin,
		Destination:        trip.Destination,
		CurrentSOC:         trip.CurrentSOC,
		BatteryCapacityKWh: trip.BatteryCapacityKWh,
		MinSOC:             trip.MinSOC,
		TargetSOC:          trip.TargetSOC,
		AmenityPreferences: amenities,
	}
	return c.post(ctx, "plan trip", c.planPath, token, body)
}

// NearbyStations 调用附近充电站 webhook
func (c *Client) NearbyStations(ctx context.Context, token string, lat, lng, radiusKm float64) ([]byte, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	if radiusKm > MaxRadiusKm {
		radiusKm = MaxRadiusKm
	}
	body := NearbyRequest{Latitude: lat, Longitude: lng, RadiusKm: radiusKm}
	return c.post(ctx, "nearby stations", c.stationsPath, token, body)
}

// post 发送 JSON 请求，返回原始响应体
func (c *Client) post(ctx context.Context, endpoint, path, token string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveWebhook(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("%s request: %w: %w", endpoint, ErrTransport, err)
	}
	defer resp.Body.Close()
	metrics.ObserveWebhook(endpoint, resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, int64(maxBodySize)+1))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w: %w", endpoint, ErrTransport, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("read %s response: %w (limit %d bytes)", endpoint, ErrBodyTooLarge, maxBodySize)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StatusCode 提取上游状态码，非 StatusError 返回 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}
