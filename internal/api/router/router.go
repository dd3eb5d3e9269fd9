package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/danishayman/Timetable-Webapp-sub001/config"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/api/handler"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/api/middleware"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// db / rdb 仅用于健康检查，均可为 nil
func Setup(cfg *config.Config, h *handler.Handler, db *gorm.DB, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 健康检查 ──
	r.GET("/health", healthCheck(db, rdb))

	// 无 Redis 时显式传 nil 接口，限流降级放行
	var limiter middleware.RateLimiter
	if rdb != nil {
		limiter = rdb
	}
	generateLimit := middleware.RateLimit(limiter, cfg.Server.RateLimit.Generate, cfg.Server.RateLimit.Window, logger)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 科目目录（只读）
		subjects := v1.Group("/subjects")
		{
			subjects.GET("", h.Subject.ListSubjects)
			subjects.GET("/:id", h.Subject.GetSubject)
		}

		// 无状态生成与冲突检测
		timetables := v1.Group("/timetables")
		{
			timetables.POST("/generate", generateLimit, h.Timetable.Generate)
			timetables.POST("/clashes", h.Timetable.DetectClashes)
			timetables.POST("/clashes/candidate", h.Timetable.CheckCandidate)
		}

		// 工作课表
		working := v1.Group("/working")
		{
			working.POST("", generateLimit, h.Working.Create)
			working.GET("/:id", h.Working.Get)
			working.DELETE("/:id", h.Working.Delete)
			working.PUT("/:id/selection", generateLimit, h.Working.UpdateSelection)
			working.POST("/:id/custom", h.Working.AddCustom)
			working.PUT("/:id/custom/:slot_id", h.Working.UpdateCustom)
			working.DELETE("/:id/slots/:slot_id", h.Working.RemoveSlot)
			working.POST("/:id/resolve", h.Working.Resolve)
			working.POST("/:id/reset", h.Working.Reset)

			// 导入 / 导出
			working.POST("/:id/import-ics", h.Export.ImportICS)
			working.GET("/:id/export.ics", h.Export.ExportICS)
			working.GET("/:id/export.xlsx", h.Export.ExportXLSX)
		}
	}

	return r
}

// healthCheck 数据库不可用时返回 503；Redis 为可选依赖，仅报告状态
func healthCheck(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		dbState := "ok"
		if err := pingDB(ctx, db); err != nil {
			status = http.StatusServiceUnavailable
			dbState = "unavailable"
		}

		redisState := "disabled"
		if rdb != nil {
			redisState = "ok"
			if err := rdb.Ping(ctx); err != nil {
				redisState = "unavailable"
			}
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":   overall,
			"database": dbState,
			"redis":    redisState,
		})
	}
}

func pingDB(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return gorm.ErrInvalidDB
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
