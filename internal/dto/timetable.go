package dto

import "github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"

// ── 选择与自定义条目 ──

// SelectionItem 一项科目选择
type SelectionItem struct {
	SubjectID       string `json:"subject_id"        binding:"required,max=64"`
	TutorialGroupID string `json:"tutorial_group_id" binding:"omitempty,max=64"`
}

// CustomEntryRequest 自定义条目
// day_of_week 0=周日 … 6=周六；end_time 省略时按类型默认时长推算。
// 不接受客户端 ID：新增时由服务端生成，修改时取路径参数
type CustomEntryRequest struct {
	Title      string `json:"title"       binding:"required,max=100"`
	Kind       string `json:"kind"        binding:"omitempty,oneof=lecture tutorial lab practical custom"`
	DayOfWeek  int    `json:"day_of_week" binding:"weekday"`
	StartTime  string `json:"start_time"  binding:"required,hhmm"`
	EndTime    string `json:"end_time"    binding:"omitempty,hhmm"`
	Venue      string `json:"venue"       binding:"omitempty,max=100"`
	Instructor string `json:"instructor"  binding:"omitempty,max=100"`
	Color      string `json:"color"       binding:"omitempty,hexcolor"`
}

// ToEntry 转为核心层的 CustomEntry
func (r CustomEntryRequest) ToEntry() timetable.CustomEntry {
	return timetable.CustomEntry{
		Title:      r.Title,
		Kind:       r.Kind,
		DayOfWeek:  r.DayOfWeek,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Venue:      r.Venue,
		Instructor: r.Instructor,
		Color:      r.Color,
	}
}

// ToSelected 转为核心层的选择列表
func ToSelected(items []SelectionItem) []timetable.SelectedSubject {
	out := make([]timetable.SelectedSubject, 0, len(items))
	for _, it := range items {
		out = append(out, timetable.SelectedSubject{
			SubjectID:       it.SubjectID,
			TutorialGroupID: it.TutorialGroupID,
		})
	}
	return out
}

// ToEntries 批量转换自定义条目
func ToEntries(items []CustomEntryRequest) []timetable.CustomEntry {
	out := make([]timetable.CustomEntry, 0, len(items))
	for _, it := range items {
		out = append(out, it.ToEntry())
	}
	return out
}

// ── 生成 ──

// GenerateRequest 生成课表请求
type GenerateRequest struct {
	Selected []SelectionItem      `json:"selected" binding:"max=30,dive"`
	Custom   []CustomEntryRequest `json:"custom"   binding:"max=50,dive"`
	// FilterClashes 为 false 时使用简单模式，全部 Slot 视为已放置；缺省为 true
	FilterClashes *bool `json:"filter_clashes"`
}

// ShouldFilter 是否启用贪心冲突过滤
func (r *GenerateRequest) ShouldFilter() bool {
	return r.FilterClashes == nil || *r.FilterClashes
}

// GenerateResponse 生成结果
type GenerateResponse struct {
	Placed           []timetable.Slot       `json:"placed"`
	Unplaced         []timetable.Slot       `json:"unplaced"`
	Clashes          []timetable.Clash      `json:"clashes"`
	Resolutions      []timetable.Resolution `json:"resolutions"`
	NonConflicting   []timetable.Slot       `json:"non_conflicting"`
	ConflictingCodes []string               `json:"conflicting_codes"`
	Skipped          []timetable.Skipped    `json:"skipped"`
}

// ── 冲突检测 ──

// DetectClashesRequest 对任意 Slot 集合检测冲突
type DetectClashesRequest struct {
	Slots []timetable.Slot `json:"slots" binding:"required,max=200"`
}

// CheckCandidateRequest 检测候选 Slot 与已有 Slot 的冲突
type CheckCandidateRequest struct {
	Candidate timetable.Slot   `json:"candidate"`
	Existing  []timetable.Slot `json:"existing" binding:"max=200"`
}

// ClashReport 冲突检测结果
type ClashReport struct {
	Clashes     []timetable.Clash      `json:"clashes"`
	Resolutions []timetable.Resolution `json:"resolutions"`
	// HasErrors 至少存在一个 error 级冲突
	HasErrors bool `json:"has_errors"`
}
