package dto

import "github.com/danishayman/Timetable-Webapp-sub001/internal/model"

// ListSubjectsRequest 科目列表查询参数
type ListSubjectsRequest struct {
	PaginationRequest
	Keyword         string `form:"keyword"          binding:"omitempty,max=50"`
	IncludeInactive bool   `form:"include_inactive"`
}

// SubjectResponse 科目简要信息
type SubjectResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreditHours int    `json:"credit_hours"`
	IsActive    bool   `json:"is_active"`
}

// SessionResponse 课次信息
type SessionResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Venue      string `json:"venue"`
	Instructor string `json:"instructor,omitempty"`
}

// TutorialResponse 辅导组信息
type TutorialResponse struct {
	ID         string `json:"id"`
	GroupLabel string `json:"group_label"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Venue      string `json:"venue"`
	Instructor string `json:"instructor,omitempty"`
	Capacity   int    `json:"capacity"`
}

// SubjectDetailResponse 科目详情（含课次与辅导组）
type SubjectDetailResponse struct {
	SubjectResponse
	Sessions  []SessionResponse  `json:"sessions"`
	Tutorials []TutorialResponse `json:"tutorials"`
}

// ToSubjectResponse 将 model.Subject 转换为 SubjectResponse
func ToSubjectResponse(s *model.Subject) SubjectResponse {
	return SubjectResponse{
		ID:          s.SubjectID,
		Code:        s.Code,
		Name:        s.Name,
		Description: s.Description,
		CreditHours: s.CreditHours,
		IsActive:    s.IsActive,
	}
}

// ToSubjectDetailResponse 将带关联的 model.Subject 转换为详情
func ToSubjectDetailResponse(s *model.Subject) *SubjectDetailResponse {
	resp := &SubjectDetailResponse{
		SubjectResponse: ToSubjectResponse(s),
		Sessions:        make([]SessionResponse, 0, len(s.Sessions)),
		Tutorials:       make([]TutorialResponse, 0, len(s.Tutorials)),
	}
	for _, cs := range s.Sessions {
		resp.Sessions = append(resp.Sessions, SessionResponse{
			ID:         cs.SessionID,
			Kind:       cs.Kind,
			DayOfWeek:  cs.DayOfWeek,
			StartTime:  cs.StartTime,
			EndTime:    cs.EndTime,
			Venue:      cs.Venue,
			Instructor: cs.Instructor,
		})
	}
	for _, tg := range s.Tutorials {
		resp.Tutorials = append(resp.Tutorials, TutorialResponse{
			ID:         tg.TutorialID,
			GroupLabel: tg.GroupLabel,
			DayOfWeek:  tg.DayOfWeek,
			StartTime:  tg.StartTime,
			EndTime:    tg.EndTime,
			Venue:      tg.Venue,
			Instructor: tg.Instructor,
			Capacity:   tg.Capacity,
		})
	}
	return resp
}
