package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/service"
	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/response"
)

// TimetableHandler 课表生成与冲突检测 Handler
type TimetableHandler struct {
	svc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler 实例
func NewTimetableHandler(svc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{svc: svc}
}

// Generate 根据科目选择生成课表
// POST /api/v1/timetables/generate
//
// filter_clashes 缺省为 true：按选择顺序逐个课次贪心放置，只有与已放置课次冲突的那个课次
// 进入 unplaced，同科目的其余课次照常放置。
// 单个科目查询失败只会出现在 skipped 中，不影响其他科目。
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	resp, err := h.svc.Generate(c.Request.Context(), &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}

	response.OK(c, resp)
}

// DetectClashes 检测给定 Slot 集合中的全部冲突
// POST /api/v1/timetables/clashes
func (h *TimetableHandler) DetectClashes(c *gin.Context) {
	var req dto.DetectClashesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	report, err := h.svc.DetectClashes(c.Request.Context(), &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}

	response.OK(c, report)
}

// CheckCandidate 检测候选 Slot 与已有 Slot 的冲突
// POST /api/v1/timetables/clashes/candidate
func (h *TimetableHandler) CheckCandidate(c *gin.Context) {
	var req dto.CheckCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	report, err := h.svc.CheckCandidate(c.Request.Context(), &req)
	if err != nil {
		handleTimetableError(c, err)
		return
	}

	response.OK(c, report)
}

// handleTimetableError 将 Service 层错误映射为 HTTP 响应
func handleTimetableError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 12001, "课次时间或类型无效", err.Error())
	case errors.Is(err, pkgerrors.ErrLookupFailure):
		response.ErrorWithDetails(c, http.StatusNotFound, 12002, "科目或辅导组不存在", err.Error())
	case errors.Is(err, pkgerrors.ErrAssemblyFailure):
		response.ErrorWithDetails(c, http.StatusServiceUnavailable, 12003, "课程数据暂不可用，请稍后重试", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusServiceUnavailable, 12004, "请求已取消或超时")
	default:
		internalError(c, err)
	}
}
