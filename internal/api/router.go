package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/guess-game/internal/config"
	"github.com/wfunc/guess-game/internal/game"
	"github.com/wfunc/guess-game/internal/middleware"
	"github.com/wfunc/guess-game/internal/utils"
	"github.com/wfunc/guess-game/internal/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	store          *game.Store
	hub            *websocket.Hub
	sessionHandler *SessionHandler
	statsHandler   *StatsHandler
	adminHandler   *AdminHandler
	watchHandler   *WatchHandler
	authMiddleware *middleware.AuthMiddleware
	log            *zap.Logger
}

// NewRouter 创建路由器
func NewRouter(db *gorm.DB, store *game.Store, cfg *config.Config, log *zap.Logger) *Router {
	// 创建Gin引擎
	engine := gin.New()

	// 全局中间件
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	// 观战Hub
	hub := websocket.NewHub(store.Events(), log)
	go hub.Run()

	// JWT管理器（管理端接口）
	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
	)

	router := &Router{
		engine:         engine,
		db:             db,
		store:          store,
		hub:            hub,
		sessionHandler: NewSessionHandler(store),
		statsHandler:   NewStatsHandler(store, cfg.Game.BestScoresLimit),
		adminHandler:   NewAdminHandler(store, jwtManager, cfg, log),
		watchHandler:   NewWatchHandler(store, hub, log),
		authMiddleware: middleware.NewAuthMiddleware(jwtManager),
		log:            log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	// 健康检查
	r.engine.GET("/health", r.healthCheck)

	// API v1路由组
	v1 := r.engine.Group("/api/v1")
	{
		// 游戏会话路由
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", r.sessionHandler.Create)
			sessions.GET("/:id", r.sessionHandler.Get)
			sessions.POST("/:id/guesses", r.sessionHandler.SubmitGuess)
			sessions.POST("/:id/hint", r.sessionHandler.RequestHint)
			sessions.GET("/:id/attempts", r.sessionHandler.ListAttempts)
			sessions.GET("/:id/watch", r.watchHandler.Watch)
		}

		// 统计与排行
		v1.GET("/stats", r.statsHandler.GetStatistics)
		v1.GET("/scores/best", r.statsHandler.BestScores)

		// 对局归档
		v1.GET("/history", r.statsHandler.ListHistory)
		v1.PUT("/history/:id/rating", r.statsHandler.RateMatch)

		// 管理端令牌签发（不需要认证）
		v1.POST("/admin/token", r.adminHandler.IssueToken)

		// 管理员路由（需要管理员权限）
		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.RequireAuth(), r.authMiddleware.RequireRole("admin"))
		{
			admin.POST("/cleanup", r.adminHandler.Cleanup)
			admin.GET("/config", r.adminHandler.GetConfig)
			admin.PUT("/config", r.adminHandler.UpdateConfig)
		}
	}

	// Swagger文档（仅在 -tags swagger 时启用）
	registerSwaggerRoutes(r.engine)

	// 404处理
	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"code":    "NOT_FOUND",
			"message": "接口不存在",
		})
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(500, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(200, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
