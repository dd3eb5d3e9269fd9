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

// WorkingHandler 工作课表 HTTP 处理器
//
// 所有变更接口均返回变更后的完整视图（Slot、冲突、建议、派生列表），
// 前端无需再单独调用 GET。
type WorkingHandler struct {
	workingSvc service.WorkingTimetableService
}

// NewWorkingHandler 创建 WorkingHandler
func NewWorkingHandler(workingSvc service.WorkingTimetableService) *WorkingHandler {
	return &WorkingHandler{workingSvc: workingSvc}
}

// Create 创建工作课表
// POST /api/v1/working
func (h *WorkingHandler) Create(c *gin.Context) {
	var req dto.CreateWorkingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	view, err := h.workingSvc.Create(c.Request.Context(), &req)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.Created(c, view)
}

// Get 获取工作课表
// GET /api/v1/working/:id
func (h *WorkingHandler) Get(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	view, err := h.workingSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.OK(c, view)
}

// UpdateSelection 替换科目选择并重新生成
// PUT /api/v1/working/:id/selection
func (h *WorkingHandler) UpdateSelection(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	var req dto.UpdateSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	view, err := h.workingSvc.UpdateSelection(c.Request.Context(), id, &req)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.OK(c, view)
}

// AddCustom 新增自定义条目
// POST /api/v1/working/:id/custom
func (h *WorkingHandler) AddCustom(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	var req dto.CustomEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	view, err := h.workingSvc.AddCustom(c.Request.Context(), id, &req)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.Created(c, view)
}

// UpdateCustom 修改自定义条目
// PUT /api/v1/working/:id/custom/:slot_id
func (h *WorkingHandler) UpdateCustom(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}
	slotID, ok := MustGetParam(c, "slot_id", "条目ID")
	if !ok {
		return
	}

	var req dto.CustomEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	view, err := h.workingSvc.UpdateCustom(c.Request.Context(), id, slotID, &req)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.OK(c, view)
}

// RemoveSlot 移除课次或自定义条目
// DELETE /api/v1/working/:id/slots/:slot_id
func (h *WorkingHandler) RemoveSlot(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}
	slotID, ok := MustGetParam(c, "slot_id", "课次ID")
	if !ok {
		return
	}

	view, err := h.workingSvc.RemoveSlot(c.Request.Context(), id, slotID)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.OK(c, view)
}

// Resolve 应用冲突处理建议
// POST /api/v1/working/:id/resolve
func (h *WorkingHandler) Resolve(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	var req dto.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 10001, "参数校验失败", err.Error())
		return
	}

	view, err := h.workingSvc.ApplyResolution(c.Request.Context(), id, &req)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.OK(c, view)
}

// Reset 清空工作课表
// POST /api/v1/working/:id/reset
func (h *WorkingHandler) Reset(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	view, err := h.workingSvc.Reset(c.Request.Context(), id)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.OK(c, view)
}

// Delete 删除工作课表
// DELETE /api/v1/working/:id
func (h *WorkingHandler) Delete(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	if err := h.workingSvc.Delete(c.Request.Context(), id); err != nil {
		handleWorkingError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleWorkingError 将工作课表相关错误映射为 HTTP 响应
func handleWorkingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrWorkingNotFound):
		response.NotFound(c, 13001, "工作课表不存在或已过期")
	case errors.Is(err, service.ErrWorkingSlotNotFound):
		response.NotFound(c, 13002, "课表中不存在该课次")
	case errors.Is(err, service.ErrWorkingCustomNotFound):
		response.NotFound(c, 13003, "自定义条目不存在")
	case errors.Is(err, service.ErrWorkingClashNotFound):
		response.NotFound(c, 13004, "冲突不存在或已解决")
	case errors.Is(err, service.ErrWorkingInvalidResolution):
		response.ErrorWithDetails(c, http.StatusBadRequest, 13005, "处理方式不适用于该冲突", err.Error())
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 13006, "工作课表已被其他操作修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrValidation):
		response.ErrorWithDetails(c, http.StatusBadRequest, 13007, "条目时间或类型无效", err.Error())
	case errors.Is(err, pkgerrors.ErrLookupFailure):
		response.ErrorWithDetails(c, http.StatusNotFound, 13008, "科目或辅导组不存在", err.Error())
	case errors.Is(err, pkgerrors.ErrAssemblyFailure):
		response.ErrorWithDetails(c, http.StatusServiceUnavailable, 13009, "课程数据暂不可用，请稍后重试", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusServiceUnavailable, 13010, "请求已取消或超时")
	default:
		internalError(c, err)
	}
}
