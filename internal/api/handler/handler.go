package handler

import "github.com/danishayman/Timetable-Webapp-sub001/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Subject   *SubjectHandler
	Timetable *TimetableHandler
	Working   *WorkingHandler
	Export    *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Subject:   NewSubjectHandler(svc.Subject),
		Timetable: NewTimetableHandler(svc.Timetable),
		Working:   NewWorkingHandler(svc.Working),
		Export:    NewExportHandler(svc.Working, svc.Export),
	}
}
