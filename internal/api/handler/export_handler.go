package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/service"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/response"
)

const (
	contentTypeICS  = "text/calendar; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExportHandler 工作课表导入 / 导出 HTTP 处理器
type ExportHandler struct {
	workingSvc service.WorkingTimetableService
	exportSvc  service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(workingSvc service.WorkingTimetableService, exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{workingSvc: workingSvc, exportSvc: exportSvc}
}

// ExportICS 导出为 iCalendar（每周重复事件）
// GET /api/v1/working/:id/export.ics
func (h *ExportHandler) ExportICS(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	view, err := h.workingSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	data, filename, err := h.exportSvc.ExportICS(c.Request.Context(), view.Working.Scheduled())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeICS, data)
}

// ExportXLSX 导出为 Excel 周视图
// GET /api/v1/working/:id/export.xlsx
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	view, err := h.workingSvc.Get(c.Request.Context(), id)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	buf, filename, err := h.exportSvc.ExportXLSX(c.Request.Context(), view.Working.Scheduled(), view.ScheduledClashes())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, filename, contentTypeXLSX, buf.Bytes())
}

// ImportICS 将 ICS 日历中的事件导入为自定义条目
// POST /api/v1/working/:id/import-ics
//
// 支持两种方式：
//   - 文件上传: multipart/form-data, field="file"
//   - URL 导入: application/json, body={"url": "..."}（支持 webcal://）
func (h *ExportHandler) ImportICS(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "工作课表ID")
	if !ok {
		return
	}

	body, ok := h.openICSSource(c)
	if !ok {
		return
	}
	defer body.Close()

	entries, err := h.exportSvc.ImportCustomICS(c.Request.Context(), body)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	view, err := h.workingSvc.AddCustomEntries(c.Request.Context(), id, entries)
	if err != nil {
		handleWorkingError(c, err)
		return
	}

	response.Created(c, dto.ImportICSResponse{
		ImportedCount: len(entries),
		Working:       view,
	})
}

// openICSSource 优先读取上传文件，其次读取 URL；失败时已写入响应
func (h *ExportHandler) openICSSource(c *gin.Context) (io.ReadCloser, bool) {
	if file, _, err := c.Request.FormFile("file"); err == nil {
		return file, true
	}

	var req dto.ImportICSRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		// 也可能是纯 form 提交
		req.URL = c.PostForm("url")
	}
	if req.URL == "" {
		response.BadRequest(c, 14001, "请上传 ICS 文件或提供 ICS URL")
		return nil, false
	}

	body, err := h.exportSvc.FetchICS(c.Request.Context(), req.URL)
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, 14002, "ICS URL 获取失败", err.Error())
		return nil, false
	}
	return body, true
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportEmpty):
		response.BadRequest(c, 14003, "课表中没有可导出的课次")
	case errors.Is(err, service.ErrImportICSParseFailed):
		response.ErrorWithDetails(c, http.StatusBadRequest, 14004, "ICS 文件解析失败", err.Error())
	case errors.Is(err, service.ErrImportICSEmpty):
		response.BadRequest(c, 14005, "ICS 文件中没有可导入的事件")
	default:
		internalError(c, err)
	}
}
