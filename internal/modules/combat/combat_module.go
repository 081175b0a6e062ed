package combat

import (
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"time"

	custommiddleware "tsu-combat/internal/middleware"
	"tsu-combat/internal/modules/combat/handler"
	"tsu-combat/internal/modules/combat/service"
	"tsu-combat/internal/modules/combat/store"
	"tsu-combat/internal/modules/combat/tasks"
	"tsu-combat/internal/pkg/config"
	"tsu-combat/internal/pkg/log"
	"tsu-combat/internal/pkg/metrics"
	redisClient "tsu-combat/internal/pkg/redis"
	"tsu-combat/internal/pkg/response"
	"tsu-combat/internal/pkg/trace"
	"tsu-combat/internal/pkg/validator"
	"tsu-combat/internal/repository/impl"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/liangdas/mqant/conf"
	"github.com/liangdas/mqant/module"
	basemodule "github.com/liangdas/mqant/module/base"
	"github.com/liangdas/mqant/server"
	_ "github.com/lib/pq"
)

// CombatModule 战斗引擎模块
type CombatModule struct {
	basemodule.BaseModule
	db            *sql.DB
	redis         *redisClient.Client
	httpServer    *echo.Echo
	sessionStore  store.SessionStore
	sessions      *service.SessionService
	combatHandler *handler.CombatHandler
	rpcHandler    *handler.CombatRPCHandler
	sweeperTask   *tasks.SessionSweeperTask
	respWriter    response.Writer
}

// GetType returns module type
func (m *CombatModule) GetType() string {
	return "combat"
}

// Version returns module version
func (m *CombatModule) Version() string {
	return "1.0.0"
}

// OnAppConfigurationLoaded 当App初始化时调用
func (m *CombatModule) OnAppConfigurationLoaded(app module.App) {
	m.BaseModule.OnAppConfigurationLoaded(app)
}

// OnInit module initialization
func (m *CombatModule) OnInit(app module.App, settings *conf.ModuleSettings) {
	metrics.SetServiceName("combat")
	// TTL 必须大于心跳间隔
	m.BaseModule.OnInit(m, app, settings,
		server.RegisterInterval(15*time.Second),
		server.RegisterTTL(30*time.Second),
	)

	if err := m.initDatabase(settings); err != nil {
		panic(fmt.Sprintf("Failed to initialize database: %v", err))
	}

	if err := m.initRedis(); err != nil {
		panic(fmt.Sprintf("Failed to initialize Redis: %v", err))
	}

	m.initResponseWriter()
	m.initHTTPServer()
	m.initServicesAndHandlers()
	m.setupRoutes()
	m.setupRPCMethods()
	m.startCronTasks()

	go m.startHTTPServer(settings)

	m.GetServer().Options()
}

// initDatabase initializes database connection
func (m *CombatModule) initDatabase(settings *conf.ModuleSettings) error {
	var configURL string
	if settings != nil && settings.Settings != nil {
		if v, ok := settings.Settings["database_url"]; ok {
			configURL, _ = v.(string)
		}
	}

	dbURL := config.GetDatabaseURL("TSU_COMBAT_DATABASE_URL", configURL)
	if dbURL == "" {
		return fmt.Errorf("TSU_COMBAT_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	m.db = db
	fmt.Println("[Combat Module] Database initialized successfully")

	go m.startDBPoolMonitoring(db)
	return nil
}

// initRedis initializes Redis client for session storage
func (m *CombatModule) initRedis() error {
	cfg := redisClient.Config{
		Host:     config.GetEnvOrDefault("REDIS_HOST", "localhost"),
		Port:     config.GetEnvIntOrDefault("REDIS_PORT", 6379),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       config.GetEnvIntOrDefault("REDIS_DB", 0),
	}

	client, err := redisClient.NewClient(cfg, metrics.GetServiceName())
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	m.redis = client
	fmt.Printf("[Combat Module] Redis connected successfully (Host: %s:%d, DB: %d)\n", cfg.Host, cfg.Port, cfg.DB)
	return nil
}

// initResponseWriter initializes response writer
func (m *CombatModule) initResponseWriter() {
	environment := config.GetEnvOrDefault("ENVIRONMENT", "development")
	m.respWriter = response.NewResponseHandler(log.GetLogger(), environment)
	fmt.Println("[Combat Module] Response writer initialized")
}

// initHTTPServer initializes HTTP server
func (m *CombatModule) initHTTPServer() {
	m.httpServer = echo.New()
	m.httpServer.HideBanner = true
	m.httpServer.HidePort = true
	m.httpServer.Validator = validator.New()

	logger := log.GetLogger()
	environment := config.GetEnvOrDefault("ENVIRONMENT", "development")

	// ========== 中间件配置（顺序很重要！） ==========

	// 1. TraceID 中间件 - 最先执行，生成或提取 TraceID
	m.httpServer.Use(trace.Middleware())

	// 2. Metrics 中间件 - Prometheus 指标收集
	m.httpServer.Use(metrics.Middleware())

	// 3. Logging 中间件 - 记录请求日志（依赖 TraceID）
	loggingConfig := custommiddleware.DefaultLoggingConfig()
	if environment == "development" {
		loggingConfig.DetailedLog = true
	}
	m.httpServer.Use(custommiddleware.LoggingMiddlewareWithConfig(logger, loggingConfig))

	// 4. Recovery 中间件 - 捕获 panic
	m.httpServer.Use(custommiddleware.RecoveryMiddleware(m.respWriter, logger))

	// 5. Error 中间件 - 统一错误处理
	m.httpServer.Use(custommiddleware.ErrorMiddleware(m.respWriter, logger))

	// 6. CORS 中间件
	m.httpServer.Use(middleware.CORS())

	fmt.Println("[Combat Module] HTTP middlewares configured:")
	fmt.Println("  ✓ TraceID (自动生成追踪ID)")
	fmt.Println("  ✓ Metrics (Prometheus 指标收集)")
	fmt.Printf("  ✓ Logging (日志记录 - %s)\n", environment)
	fmt.Println("  ✓ Recovery (Panic 恢复)")
	fmt.Println("  ✓ Error (统一错误处理)")
	fmt.Println("  ✓ CORS (跨域支持)")
}

// initServicesAndHandlers initializes services and HTTP handlers
func (m *CombatModule) initServicesAndHandlers() {
	logger := log.GetLogger()

	m.sessionStore = store.NewRedisStore(m.redis)

	poolRepo := impl.NewLocationPoolRepository(m.db)
	statsRepo := impl.NewPlayerStatsRepository(m.db)
	progressionRepo := impl.NewProgressionRepository(m.db)
	currencyLedger := impl.NewCurrencyLedger(m.db)
	materialRepo := impl.NewMaterialRepository(m.db)
	itemRepo := impl.NewItemRepository(m.db)
	historyRepo := impl.NewCombatHistoryRepository(m.db)

	provider := service.NewProviderService(poolRepo, rand.New(rand.NewSource(time.Now().UnixNano())))
	settlement := service.NewSettlementService(
		service.NewSQLTxBeginner(m.db),
		provider,
		m.sessionStore,
		currencyLedger,
		materialRepo,
		itemRepo,
		progressionRepo,
		historyRepo,
		logger,
	)
	m.sessions = service.NewSessionService(
		m.sessionStore,
		provider,
		settlement,
		statsRepo,
		progressionRepo,
		rand.New(rand.NewSource(time.Now().UnixNano()+1)),
		logger,
	)

	m.combatHandler = handler.NewCombatHandler(m.sessions, m.respWriter)
	m.rpcHandler = handler.NewCombatRPCHandler(m.sessions)

	fmt.Println("[Combat Module] Handlers initialized successfully")
}

// setupRoutes sets up HTTP routes
func (m *CombatModule) setupRoutes() {
	v1 := m.httpServer.Group("/api/v1")

	sessions := v1.Group("/combat/sessions")
	{
		sessions.POST("", m.combatHandler.StartCombat)                         // 创建战斗会话
		sessions.GET("/:session_id", m.combatHandler.GetSession)               // 查询会话状态
		sessions.POST("/:session_id/attack", m.combatHandler.SubmitAttack)     // 攻击回合
		sessions.POST("/:session_id/defend", m.combatHandler.SubmitDefend)     // 防御回合
		sessions.POST("/:session_id/complete", m.combatHandler.CompleteCombat) // 结算（幂等）
		sessions.DELETE("/:session_id", m.combatHandler.AbandonCombat)         // 放弃战斗
	}

	// Health check
	m.httpServer.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]interface{}{
			"status": "ok",
			"module": "combat",
		})
	})

	// Prometheus metrics endpoint
	m.httpServer.GET("/metrics", metrics.EchoHandler())

	fmt.Println("[Combat Module] Routes configured successfully")
	fmt.Println("[Combat Module] Combat API routes: /api/v1/combat/sessions/*")
}

// setupRPCMethods 注册 RPC 方法，供其他模块调用
func (m *CombatModule) setupRPCMethods() {
	m.GetServer().RegisterGO("GetActiveSessionCount", m.rpcHandler.GetActiveSessionCount)
	m.GetServer().RegisterGO("ForceExpireSession", m.rpcHandler.ForceExpireSession)

	fmt.Println("[Combat Module] RPC methods registered:")
	fmt.Println("  ✓ GetActiveSessionCount - 获取存活会话数")
	fmt.Println("  ✓ ForceExpireSession - 强制过期会话")
}

// startCronTasks starts cron scheduled tasks
func (m *CombatModule) startCronTasks() {
	m.sweeperTask = tasks.NewSessionSweeperTask(m.sessionStore, log.GetLogger())
	m.sweeperTask.Start()

	fmt.Println("[Combat Module] Cron tasks started successfully:")
	fmt.Println("  ✓ Session Sweeper Task (每10分钟)")
}

// startHTTPServer starts HTTP server
func (m *CombatModule) startHTTPServer(settings *conf.ModuleSettings) {
	port := os.Getenv("COMBAT_HTTP_PORT")
	if port == "" {
		if settings != nil && settings.Settings != nil {
			if v, ok := settings.Settings["http_port"]; ok {
				port, _ = v.(string)
			}
		}
	}
	if port == "" {
		port = "8075"
	}

	fmt.Printf("[Combat Module] Starting HTTP server on port %s\n", port)
	if err := m.httpServer.Start(":" + port); err != nil {
		fmt.Printf("[Combat Module] HTTP server error: %v\n", err)
	}
}

// Run module run
func (m *CombatModule) Run(closeSig chan bool) {
	fmt.Println("[Combat Module] Started successfully")
	<-closeSig
}

// OnDestroy module destroy
func (m *CombatModule) OnDestroy() {
	if m.sweeperTask != nil {
		m.sweeperTask.Stop()
		fmt.Println("[Combat Module] Cron tasks stopped")
	}

	if m.httpServer != nil {
		if err := m.httpServer.Close(); err != nil {
			fmt.Printf("[Combat Module] Failed to close HTTP server: %v\n", err)
		} else {
			fmt.Println("[Combat Module] HTTP server closed")
		}
	}

	if m.db != nil {
		if err := m.db.Close(); err != nil {
			fmt.Printf("[Combat Module] Failed to close database: %v\n", err)
		} else {
			fmt.Println("[Combat Module] Database connection closed")
		}
	}

	m.BaseModule.OnDestroy()
	fmt.Println("[Combat Module] Destroyed")
}

// Module creates Combat module instance
func Module() module.Module {
	return new(CombatModule)
}

// startDBPoolMonitoring 启动数据库连接池监控
// 每 30 秒报告一次连接池统计信息到 Prometheus
func (m *CombatModule) startDBPoolMonitoring(db *sql.DB) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		stats := db.Stats()
		metrics.DefaultResourceMetrics.RecordDBPoolStats(
			metrics.GetServiceName(),
			"postgres",
			stats.OpenConnections,
			stats.InUse,
			stats.Idle,
			25, // 与 SetMaxOpenConns 保持一致
			stats.WaitCount,
			stats.WaitDuration,
		)
	}
}
