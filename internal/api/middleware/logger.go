package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const slowRequestThreshold = 2 * time.Second

// Logger 请求日志中间件（基于 Zap 结构化日志）
// 需挂在 RequestID 之后，以便每条日志携带 request_id
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		fields := []zap.Field{
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.Int("status", statusCode),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", latency),
			zap.Int("size", c.Writer.Size()),
		}

		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.ByType(gin.ErrorTypePrivate).String()))
		}

		// 超过阈值的请求额外标记 slow
		if latency > slowRequestThreshold {
			fields = append(fields, zap.Bool("slow", true))
		}

		switch {
		case statusCode >= 500:
			logger.Error("请求处理失败", fields...)
		case statusCode >= 400:
			logger.Warn("客户端错误", fields...)
		case path == "/health":
			logger.Debug("健康检查", fields...)
		default:
			logger.Info("请求完成", fields...)
		}
	}
}
