package geocoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/langchou/evroute/internal/cache"
	"github.com/langchou/evroute/internal/metrics"
	"github.com/langchou/evroute/internal/models"
)

const (
	// MinQueryLength 少于该长度的查询不请求地理编码服务
	MinQueryLength = 3

	searchLimit = 5
	cacheTTL    = 24 * time.Hour
	userAgent   = "EVRoute/1.0 (EV trip planner)"

	ProviderNominatim = "nominatim"
	ProviderAmap      = "amap"
	ProviderMock      = "mock"
)

// ErrNoResult 服务正常返回但没有结果
var ErrNoResult = errors.New("no geocoding result")

// Options 客户端配置
type Options struct {
	AmapAPIKey    string
	CountryCodes  string
	Timeout       time.Duration
	NominatimURL  string // 默认 https://nominatim.openstreetmap.org
	AmapURL       string // 默认 https://restapi.amap.com
	NominatimRate rate.Limit
}

// Client 地理编码客户端
// 正向搜索以 Nominatim 为主，失败时依次尝试高德输入提示和内置示例地点；
// 逆地理编码在配置了高德 API Key 时优先使用高德
type Client struct {
	amapAPIKey   string
	countryCodes string
	nominatimURL string
	amapURL      string
	httpClient   *http.Client
	logger       *zap.Logger

	// 缓存：避免重复请求相同查询和坐标
	cache cache.Store
	group singleflight.Group

	// Nominatim 请求限流（每秒最多 1 次）
	nominatimLimiter *rate.Limiter
}

// NewClient 创建地理编码客户端，store 为空时使用进程内缓存
func NewClient(opts Options, store cache.Store, logger *zap.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.NominatimURL == "" {
		opts.NominatimURL = "https://nominatim.openstreetmap.org"
	}
	if opts.AmapURL == "" {
		opts.AmapURL = "https://restapi.amap.com"
	}
	if opts.NominatimRate == 0 {
		opts.NominatimRate = rate.Every(time.Second)
	}
	if store == nil {
		store = cache.NewMemory(10000)
	}
	return &Client{
		amapAPIKey:   opts.AmapAPIKey,
		countryCodes: opts.CountryCodes,
		nominatimURL: strings.TrimRight(opts.NominatimURL, "/"),
		amapURL:      strings.TrimRight(opts.AmapURL, "/"),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		logger:           logger,
		cache:            store,
		nominatimLimiter: rate.NewLimiter(opts.NominatimRate, 1),
	}
}

// Search 根据输入文本返回最多 5 个候选地点
// 所有服务均失败时返回示例地点，不返回错误
func (c *Client) Search(ctx context.Context, query string) ([]models.LocationSuggestion, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []models.LocationSuggestion{}, nil
	}

	cacheKey := "search:" + strings.ToLower(query)
	var cached []models.LocationSuggestion
	if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
		return cached, nil
	}

	v, err, _ := c.group.Do(cacheKey, func() (any, error) {
		results, provider := c.search(ctx, query)
		if provider != ProviderMock {
			if err := c.cache.Set(ctx, cacheKey, results, cacheTTL); err != nil {
				c.logger.Warn("Failed to cache suggestions", zap.Error(err))
			}
		}
		return results, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]models.LocationSuggestion), nil
}

func (c *Client) search(ctx context.Context, query string) ([]models.LocationSuggestion, string) {
	results, err := c.searchNominatim(ctx, query)
	if err == nil {
		metrics.GeocoderLookup(ProviderNominatim, "ok")
		return results, ProviderNominatim
	}
	metrics.GeocoderLookup(ProviderNominatim, "error")
	c.logger.Warn("Nominatim search failed", zap.String("query", query), zap.Error(err))

	if c.amapAPIKey != "" {
		results, err = c.searchAmap(ctx, query)
		if err == nil {
			metrics.GeocoderLookup(ProviderAmap, "ok")
			return results, ProviderAmap
		}
		metrics.GeocoderLookup(ProviderAmap, "error")
		c.logger.Warn("Amap input tips failed", zap.String("query", query), zap.Error(err))
	}

	metrics.GeocoderLookup(ProviderMock, "ok")
	return models.FallbackSuggestions(query), ProviderMock
}

// ReverseGeocode 逆地理编码：根据经纬度获取结构化地址
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*models.Address, error) {
	// 生成缓存 key（精确到小数点后4位，约11米精度）
	cacheKey := fmt.Sprintf("reverse:%.4f,%.4f", lat, lng)

	var cached models.Address
	if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
		return &cached, nil
	}

	v, err, _ := c.group.Do(cacheKey, func() (any, error) {
		var address *models.Address
		var err error

		// 优先使用高德，没有配置则使用 Nominatim
		provider := c.GetProvider()
		if provider == ProviderAmap {
			address, err = c.reverseGeocodeAmap(ctx, lat, lng)
		} else {
			address, err = c.reverseGeocodeNominatim(ctx, lat, lng)
		}
		if err != nil {
			metrics.GeocoderLookup(provider, "error")
			return nil, err
		}
		metrics.GeocoderLookup(provider, "ok")

		if err := c.cache.Set(ctx, cacheKey, address, cacheTTL); err != nil {
			c.logger.Warn("Failed to cache address", zap.Error(err))
		}
		return address, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Address), nil
}

// GetProvider 返回逆地理编码使用的服务提供商
func (c *Client) GetProvider() string {
	if c.amapAPIKey != "" {
		return ProviderAmap
	}
	return ProviderNominatim
}

// CacheSize 获取缓存大小
func (c *Client) CacheSize(ctx context.Context) int {
	return c.cache.Len(ctx)
}

// ============ 高德地图实现 ============

// AmapRegeoResponse 高德逆地理编码响应
type AmapRegeoResponse struct {
	Status    string         `json:"status"`
	Info      string         `json:"info"`
	InfoCode  string         `json:"infocode"`
	Regeocode *AmapRegeocode `json:"regeocode"`
}

type AmapRegeocode struct {
	FormattedAddress string               `json:"formatted_address"`
	AddressComponent AmapAddressComponent `json:"addressComponent"`
}

type AmapAddressComponent struct {
	Country      string `json:"country"`
	Province     string `json:"province"`
	City         any    `json:"city"`
	District     any    `json:"district"`
	Township     any    `json:"township"`
	Street       any    `json:"street"`
	StreetNumber any    `json:"streetNumber"`
}

// AmapTipsResponse 高德输入提示响应
type AmapTipsResponse struct {
	Status   string    `json:"status"`
	Info     string    `json:"info"`
	InfoCode string    `json:"infocode"`
	Tips     []AmapTip `json:"tips"`
}

type AmapTip struct {
	ID       any `json:"id"`
	Name     any `json:"name"`
	District any `json:"district"`
	Address  any `json:"address"`
	Location any `json:"location"` // "lng,lat"，无坐标时为空数组
	TypeCode any `json:"typecode"`
}

func (c *Client) searchAmap(ctx context.Context, query string) ([]models.LocationSuggestion, error) {
	params := url.Values{}
	params.Set("key", c.amapAPIKey)
	params.Set("keywords", query)
	params.Set("datatype", "all")
	params.Set("output", "JSON")

	var result AmapTipsResponse
	if err := c.getJSON(ctx, c.amapURL+"/v3/assistant/inputtips?"+params.Encode(), "amap", &result); err != nil {
		return nil, err
	}
	if result.Status != "1" {
		return nil, fmt.Errorf("amap api error: %s (code: %s)", result.Info, result.InfoCode)
	}

	out := make([]models.LocationSuggestion, 0, searchLimit)
	for _, tip := range result.Tips {
		lng, lat, ok := parseAmapLocation(interfaceToString(tip.Location))
		if !ok {
			continue
		}
		name := interfaceToString(tip.Name)
		display := strings.Join(nonEmpty(name, interfaceToString(tip.Address), interfaceToString(tip.District)), ", ")
		s := models.LocationSuggestion{
			DisplayName:      display,
			Name:             name,
			Lat:              lat,
			Lon:              lng,
			PlaceID:          interfaceToString(tip.ID),
			FormattedAddress: display,
			Provider:         ProviderAmap,
		}
		if code := interfaceToString(tip.TypeCode); code != "" {
			s.Types = []string{code}
		}
		out = append(out, s)
		if len(out) == searchLimit {
			break
		}
	}
	if len(out) == 0 {
		return nil, ErrNoResult
	}
	return out, nil
}

func (c *Client) reverseGeocodeAmap(ctx context.Context, lat, lng float64) (*models.Address, error) {
	// 高德 API 要求经度在前，纬度在后
	params := url.Values{}
	params.Set("key", c.amapAPIKey)
	params.Set("location", fmt.Sprintf("%.6f,%.6f", lng, lat))
	params.Set("extensions", "base")
	params.Set("output", "JSON")

	var result AmapRegeoResponse
	if err := c.getJSON(ctx, c.amapURL+"/v3/geocode/regeo?"+params.Encode(), "amap", &result); err != nil {
		return nil, err
	}
	if result.Status != "1" {
		return nil, fmt.Errorf("amap api error: %s (code: %s)", result.Info, result.InfoCode)
	}
	if result.Regeocode == nil {
		return nil, ErrNoResult
	}

	comp := result.Regeocode.AddressComponent
	address := &models.Address{
		FormattedAddress: result.Regeocode.FormattedAddress,
		Country:          comp.Country,
		Province:         comp.Province,
		City:             interfaceToString(comp.City),
		District:         interfaceToString(comp.District),
		Township:         interfaceToString(comp.Township),
		Street:           interfaceToString(comp.Street),
		StreetNumber:     interfaceToString(comp.StreetNumber),
	}

	c.logger.Debug("Geocoded via Amap",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.String("address", address.FormattedAddress))

	return address, nil
}

// ============ Nominatim (OpenStreetMap) 实现 ============

// NominatimPlace Nominatim 搜索/逆地理编码结果
type NominatimPlace struct {
	PlaceID     json.Number      `json:"place_id"`
	Lat         string           `json:"lat"`
	Lon         string           `json:"lon"`
	DisplayName string           `json:"display_name"`
	Name        string           `json:"name"`
	Class       string           `json:"class"`
	Type        string           `json:"type"`
	Address     NominatimAddress `json:"address"`
}

type NominatimAddress struct {
	Road        string `json:"road"`
	Suburb      string `json:"suburb"`
	City        string `json:"city"`
	Town        string `json:"town"`
	Village     string `json:"village"`
	County      string `json:"county"`
	State       string `json:"state"`
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Postcode    string `json:"postcode"`
}

// Locality Nominatim 的城市字段可能在 city/town/village 中
func (a NominatimAddress) Locality() string {
	for _, v := range []string{a.City, a.Town, a.Village} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) searchNominatim(ctx context.Context, query string) ([]models.LocationSuggestion, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(searchLimit))
	params.Set("addressdetails", "1")
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	var places []NominatimPlace
	if err := c.nominatimGet(ctx, c.nominatimURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, err
	}

	out := make([]models.LocationSuggestion, 0, len(places))
	for _, p := range places {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lon, errLon := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLon != nil {
			continue
		}
		name := p.Name
		if name == "" {
			name, _, _ = strings.Cut(p.DisplayName, ",")
		}
		s := models.LocationSuggestion{
			DisplayName:      p.DisplayName,
			Name:             name,
			Lat:              lat,
			Lon:              lon,
			PlaceID:          p.PlaceID.String(),
			FormattedAddress: p.DisplayName,
			Provider:         ProviderNominatim,
		}
		s.Types = nonEmpty(p.Type, p.Class)
		out = append(out, s)
	}
	return out, nil
}

func (c *Client) reverseGeocodeNominatim(ctx context.Context, lat, lng float64) (*models.Address, error) {
	apiURL := fmt.Sprintf("%s/reverse?lat=%.6f&lon=%.6f&format=json&addressdetails=1", c.nominatimURL, lat, lng)

	var result NominatimPlace
	if err := c.nominatimGet(ctx, apiURL, &result); err != nil {
		return nil, err
	}
	if result.DisplayName == "" {
		return nil, ErrNoResult
	}

	address := &models.Address{
		FormattedAddress: result.DisplayName,
		Country:          result.Address.Country,
		Province:         result.Address.State,
		City:             result.Address.Locality(),
		District:         result.Address.County,
		Township:         result.Address.Suburb,
		Street:           result.Address.Road,
		Postcode:         result.Address.Postcode,
	}

	c.logger.Debug("Geocoded via Nominatim",
		zap.Float64("lat", lat),
		zap.Float64("lng", lng),
		zap.String("address", address.FormattedAddress))

	return address, nil
}

// nominatimGet Nominatim 限流：每秒最多 1 次请求
func (c *Client) nominatimGet(ctx context.Context, apiURL string, dst any) error {
	if err := c.nominatimLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("nominatim rate limit: %w", err)
	}
	return c.getJSON(ctx, apiURL, "nominatim", dst)
}

// ============ 工具函数 ============

func (c *Client) getJSON(ctx context.Context, apiURL, provider string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	// Nominatim 要求设置 User-Agent
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%s api returned status %d", provider, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseAmapLocation 解析高德 "lng,lat" 坐标
func parseAmapLocation(s string) (lng, lat float64, ok bool) {
	lngStr, latStr, found := strings.Cut(s, ",")
	if !found {
		return 0, 0, false
	}
	loc, err := models.ParseLocation(latStr + "," + lngStr)
	if err != nil {
		return 0, 0, false
	}
	return loc.Lng, loc.Lat, true
}

func interfaceToString(v any) string {
	if v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	default:
		return ""
	}
}

func nonEmpty(values ...string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
