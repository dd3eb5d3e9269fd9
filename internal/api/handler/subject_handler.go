package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/service"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/response"
)

// SubjectHandler 科目目录 HTTP 处理器
type SubjectHandler struct {
	subjectSvc service.SubjectService
}

// NewSubjectHandler 创建 SubjectHandler
func NewSubjectHandler(subjectSvc service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectSvc: subjectSvc}
}

// ListSubjects 获取科目列表（分页）
// GET /api/v1/subjects?keyword=&include_inactive=&page=&page_size=
func (h *SubjectHandler) ListSubjects(c *gin.Context) {
	var req dto.ListSubjectsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	list, total, err := h.subjectSvc.List(c.Request.Context(), &req)
	if err != nil {
		internalError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetSubject 获取科目详情（含课次与辅导组）
// GET /api/v1/subjects/:id    id 可为 UUID 或科目代码
func (h *SubjectHandler) GetSubject(c *gin.Context) {
	id, ok := MustGetParam(c, "id", "科目ID")
	if !ok {
		return
	}

	detail, err := h.subjectSvc.GetDetail(c.Request.Context(), id)
	if err != nil {
		h.handleSubjectError(c, err)
		return
	}

	response.OK(c, detail)
}

func (h *SubjectHandler) handleSubjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 11001, "科目不存在")
	default:
		internalError(c, err)
	}
}
