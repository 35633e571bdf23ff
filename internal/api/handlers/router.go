package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/langchou/evroute/internal/mapview"
	"github.com/langchou/evroute/internal/service"
	"github.com/langchou/evroute/pkg/ws"
)

// CacheSizer 地理编码缓存大小，用于健康检查
type CacheSizer interface {
	CacheSize(ctx context.Context) int
}

// Services 处理器依赖的服务
type Services struct {
	Auth      *service.AuthService
	Trips     *service.TripService
	Stations  *service.StationService
	Locations *service.LocationService
	Vehicles  *service.VehicleService
	State     *service.StateService
	Map       *mapview.Composer
	Geocoder  CacheSizer
}

// Handler HTTP 处理器
type Handler struct {
	logger   *zap.Logger
	svc      Services
	wsHub    *ws.Hub
	siteURL  string
	upgrader websocket.Upgrader
}

// NewHandler 创建处理器，allowedOrigins 同时用于 WebSocket 来源检查
func NewHandler(logger *zap.Logger, svc Services, wsHub *ws.Hub, siteURL string, allowedOrigins []string) *Handler {
	return &Handler{
		logger:  logger,
		svc:     svc,
		wsHub:   wsHub,
		siteURL: strings.TrimRight(siteURL, "/"),
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine, limiter *IPRateLimiter, authLimiter *IPRateLimiter) {
	auth := AuthRequired(h.svc.Auth)

	api := r.Group("/api")
	if limiter != nil {
		api.Use(limiter.RateLimit())
	}
	{
		// 认证
		authGroup := api.Group("/auth")
		if authLimiter != nil {
			authGroup.POST("/login", authLimiter.RateLimit(), h.Login)
			authGroup.POST("/signup", authLimiter.RateLimit(), h.SignUp)
		} else {
			authGroup.POST("/login", h.Login)
			authGroup.POST("/signup", h.SignUp)
		}
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", auth, h.Logout)
		authGroup.GET("/session", auth, h.GetSession)

		// 地点
		api.GET("/locations/suggest", h.SuggestLocations)
		api.GET("/locations/reverse", h.ReverseGeocode)
		api.POST("/locations/validate", h.ValidateLocation)

		// 以下接口需要登录
		protected := api.Group("", auth)

		// 行程规划与附近充电站
		protected.POST("/trips/plan", h.PlanTrip)
		protected.POST("/stations/nearby", h.NearbyStations)

		// 客户端缓存
		protected.GET("/state", h.GetState)
		protected.DELETE("/state", h.ClearState)

		// 地图
		protected.POST("/map/view", h.MapView)
		protected.POST("/map/click", h.MapClick)

		// 车辆
		protected.GET("/vehicles", h.ListVehicles)
		protected.POST("/vehicles", h.CreateVehicle)
		protected.PUT("/vehicles/:id", h.UpdateVehicle)
		protected.DELETE("/vehicles/:id", h.DeleteVehicle)
		protected.POST("/vehicles/:id/select", h.SelectVehicle)

		// 个人资料
		protected.GET("/profile", h.GetProfile)
		protected.PUT("/profile", h.UpdateProfile)
	}

	// 邮箱验证回调
	r.GET("/auth/callback", h.AuthCallback)

	// 页面由前端渲染，登录检查在客户端完成
	r.GET("/dashboard", h.Page)
	r.GET("/dashboard/*path", h.Page)
	r.GET("/login", h.Page)
	r.GET("/signup", h.Page)

	// WebSocket
	r.GET("/ws", auth, h.HandleWebSocket)

	// 健康检查与指标
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	user := currentUser(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn, user.ID)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
		"sessions":   h.svc.Auth.Sessions().CountByState(),
	}
	if h.svc.Geocoder != nil {
		resp["geocoder_cache"] = h.svc.Geocoder.CacheSize(c.Request.Context())
	}
	c.JSON(http.StatusOK, resp)
}

// Page 页面请求转到前端站点
func (h *Handler) Page(c *gin.Context) {
	target := h.siteURL + c.Request.URL.Path
	if q := c.Request.URL.RawQuery; q != "" {
		target += "?" + q
	}
	c.Redirect(http.StatusFound, target)
}

// originChecker 允许的 WebSocket 来源，包含 "*" 时不限制
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
