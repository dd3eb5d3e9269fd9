package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/danishayman/Timetable-Webapp-sub001/pkg/response"
)

// pathParamMaxLen 路径参数最大长度（UUID / 课次 ID / 科目代码）
const pathParamMaxLen = 64

// MustGetParam 从路径中安全提取参数。
// 参数为空或超长时写入 400 响应并返回 false，调用方应直接 return。
func MustGetParam(c *gin.Context, name, label string) (string, bool) {
	v := strings.TrimSpace(c.Param(name))
	if v == "" {
		response.BadRequest(c, 10001, label+"不能为空")
		return "", false
	}
	if len(v) > pathParamMaxLen {
		response.BadRequest(c, 10001, label+"格式无效")
		return "", false
	}
	return v, true
}

// GetRequestID 读取 RequestID 中间件注入的追踪 ID，未注入时返回空串
func GetRequestID(c *gin.Context) string {
	return c.GetString("request_id")
}

// internalError 记录未映射的错误并返回 500，details 携带 request_id 便于对照日志
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	rid := GetRequestID(c)
	if rid == "" {
		response.InternalError(c)
		return
	}
	response.ErrorWithDetails(c, http.StatusInternalServerError, 50000, "服务器内部错误", "request_id="+rid)
}
