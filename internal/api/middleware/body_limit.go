package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danishayman/Timetable-Webapp-sub001/pkg/response"
)

// BodyLimit 全局请求体大小限制中间件
// maxBytes: 允许的最大请求体字节数（如 1<<20 = 1MB），<=0 表示不限制
//
// Content-Length 已超限的请求直接拒绝；分块上传在读取时由 MaxBytesReader 截断，
// Handler 绑定失败后若错误为 *http.MaxBytesError 则改写为 413。
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

		c.Next()

		if c.Writer.Written() {
			return
		}
		for _, ginErr := range c.Errors {
			var tooLarge *http.MaxBytesError
			if errors.As(ginErr.Err, &tooLarge) {
				response.Error(c, http.StatusRequestEntityTooLarge, 10005, "请求体过大")
				return
			}
		}
	}
}
