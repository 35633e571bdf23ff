package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/time/rate"

	"github.com/langchou/evroute/internal/api/geocoder"
	"github.com/langchou/evroute/internal/api/handlers"
	"github.com/langchou/evroute/internal/api/identity"
	"github.com/langchou/evroute/internal/api/webhook"
	"github.com/langchou/evroute/internal/cache"
	"github.com/langchou/evroute/internal/config"
	"github.com/langchou/evroute/internal/mapview"
	"github.com/langchou/evroute/internal/models"
	"github.com/langchou/evroute/internal/repository"
	"github.com/langchou/evroute/internal/service"
	"github.com/langchou/evroute/pkg/ws"
)

// geocoderCacheEntries 内存缓存条目上限
const geocoderCacheEntries = 1000

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger := initLogger(cfg.Debug)
	defer logger.Sync()

	logger.Info("Starting EV route planner", zap.String("port", cfg.ServerPort))

	// 创建 context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 存储：配置了数据库时使用 PostgreSQL，否则使用内存
	var (
		vehicles service.VehicleStore
		states   service.ClientStateStore
	)
	if cfg.DatabaseURL != "" {
		db, err := repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect database", zap.Error(err))
		}
		defer db.Close()

		// 执行数据库迁移
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Info("Database migrated successfully")

		vehicles = repository.NewVehicleRepository(db)
		states = repository.NewClientStateRepository(db)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		vehicles = repository.NewMemoryVehicleStore()
		states = repository.NewMemoryClientStateStore()
	}

	// 地理编码缓存：配置了 Redis 时共享缓存
	var store cache.Store = cache.NewMemory(geocoderCacheEntries)
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "evroute:geocode:")
		if err != nil {
			logger.Fatal("Failed to connect redis", zap.Error(err))
		}
		defer rc.Close()
		store = rc
	}

	// 外部服务客户端
	webhookClient := webhook.NewClient(cfg.WebhookBaseURL, cfg.WebhookPlanPath, cfg.WebhookStationsPath, cfg.WebhookTimeout)
	geo := geocoder.NewClient(geocoder.Options{
		AmapAPIKey:   cfg.AmapAPIKey,
		CountryCodes: cfg.GeocoderCountryCodes,
		Timeout:      cfg.GeocoderTimeout,
	}, store, logger)
	identityClient := identity.NewClient(cfg.AuthURL, cfg.AuthAnonKey)

	var verifier service.TokenVerifier
	if v := identity.NewVerifier(cfg.AuthJWTSecret); v != nil {
		verifier = v
	} else {
		logger.Warn("AUTH_JWT_SECRET not set, access tokens are validated by the identity provider")
	}

	// 创建 WebSocket Hub
	wsHub := ws.NewHub(logger)

	// 创建服务
	authService := service.NewAuthService(logger, identityClient, verifier, states, wsHub, cfg.SiteURL)
	stateService := service.NewStateService(logger, states, wsHub)
	svc := handlers.Services{
		Auth:      authService,
		Trips:     service.NewTripService(logger, webhookClient, states, wsHub, cfg.FallbackOnError),
		Stations:  service.NewStationService(logger, webhookClient, states, wsHub, cfg.FallbackOnError),
		Locations: service.NewLocationService(logger, geo),
		Vehicles:  service.NewVehicleService(logger, vehicles),
		State:     stateService,
		Map:       mapview.NewComposer(models.Location{Lat: cfg.DefaultLat, Lng: cfg.DefaultLng}),
		Geocoder:  geo,
	}

	// 新连接推送会话与缓存状态
	wsHub.SetInitDataProvider(func(userID string) *ws.InitData {
		initCtx, initCancel := context.WithTimeout(ctx, 5*time.Second)
		defer initCancel()

		state, err := stateService.Get(initCtx, userID)
		if err != nil {
			logger.Warn("Failed to load init state", zap.String("user_id", userID), zap.Error(err))
			state = &models.ClientState{UserID: userID, CachedStations: []models.StationRecord{}}
		}
		return &ws.InitData{
			Session: authService.CurrentSession(userID),
			State:   state,
		}
	})
	go wsHub.Run(ctx)

	// 设置 Gin 模式
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(handlers.RequestLogger(logger))
	router.Use(handlers.CORS(cfg.CORSOrigins))

	var limiter *handlers.IPRateLimiter
	if cfg.RateLimit > 0 {
		limiter = handlers.NewIPRateLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)*2+1, logger)
	}

	// 注册路由
	handler := handlers.NewHandler(logger, svc, wsHub, cfg.SiteURL, cfg.CORSOrigins)
	handler.RegisterRoutes(router, limiter, handlers.NewAuthRateLimiter(logger))

	// 启动 HTTP 服务器
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", server.Addr),
		zap.String("geocoder", geo.GetProvider()),
		zap.Bool("fallback_on_error", cfg.FallbackOnError))

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// 优雅关闭
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// 关闭 WebSocket 连接
	cancel()

	logger.Info("Server exited")
}

// initLogger 初始化日志
func initLogger(debug bool) *zap.Logger {
	var config zap.Config
	if debug {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	logger, _ := config.Build()
	return logger
}
