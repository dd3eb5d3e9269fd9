package timetable

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// Slot 课表网格上的一次课（TimetableSlot）
//
// 由科目课次、辅导组或自定义条目转换而来；构造后不可变，
// 自定义条目的编辑以整体替换的方式进行。
type Slot struct {
	ID          string `json:"id"`
	SubjectID   string `json:"subject_id"`
	SubjectCode string `json:"subject_code"`
	SubjectName string `json:"subject_name"`
	Kind        Kind   `json:"kind"`
	DayOfWeek   int    `json:"day_of_week"` // 0=Sunday … 6=Saturday
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Venue       string `json:"venue"`
	Instructor  string `json:"instructor,omitempty"`
	Color       string `json:"color"`
	GroupLabel  string `json:"group_label,omitempty"`
	IsCustom    bool   `json:"is_custom"`
}

// Validate 校验时间格式、星期范围与起止先后
func (s Slot) Validate() error {
	return validateTiming(s.DayOfWeek, s.StartTime, s.EndTime)
}

// Label 用于提示信息的名称：科目代码 → 标题 → "Custom entry"
func (s Slot) Label() string {
	if s.SubjectCode != "" {
		return s.SubjectCode
	}
	if name := strings.TrimSpace(s.SubjectName); name != "" {
		return name
	}
	return "Custom entry"
}

// SelectedSubject 学生的一项选择：科目 + 可选辅导组
type SelectedSubject struct {
	SubjectID       string `json:"subject_id"`
	TutorialGroupID string `json:"tutorial_group_id,omitempty"`
}

// SubjectInfo 科目元数据
type SubjectInfo struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SessionRecord 数据源返回的课次定义
type SessionRecord struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	Venue      string `json:"venue"`
	Instructor string `json:"instructor"`
	Color      string `json:"color,omitempty"`
}

// TutorialRecord 辅导组记录，在课次结构上多一个组名
type TutorialRecord struct {
	SessionRecord
	SubjectID  string `json:"subject_id"`
	GroupLabel string `json:"group_label"`
}

// CustomEntry 用户自定义条目（不属于任何科目）
type CustomEntry struct {
	ID         string `json:"id,omitempty"`
	Title      string `json:"title"`
	Kind       string `json:"kind,omitempty"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time,omitempty"`
	Venue      string `json:"venue,omitempty"`
	Instructor string `json:"instructor,omitempty"`
	Color      string `json:"color,omitempty"`
}

// ── 转换 ──

// FromScheduledSession 将课次记录 1:1 转为 Slot
func FromScheduledSession(rec SessionRecord, subjectID, subjectCode, subjectName string) (Slot, error) {
	kind, err := ParseKind(rec.Kind)
	if err != nil {
		return Slot{}, err
	}
	return buildSubjectSlot(rec, kind, subjectID, subjectCode, subjectName, "")
}

// FromTutorial 将辅导组记录转为 Slot，类型固定为 tutorial
func FromTutorial(rec TutorialRecord, subjectID, subjectCode, subjectName string) (Slot, error) {
	return buildSubjectSlot(rec.SessionRecord, KindTutorial, subjectID, subjectCode, subjectName, rec.GroupLabel)
}

func buildSubjectSlot(rec SessionRecord, kind Kind, subjectID, code, name, group string) (Slot, error) {
	if strings.TrimSpace(rec.ID) == "" {
		return Slot{}, pkgerrors.NewValidationError("id", "", "session record has no id")
	}
	slot := Slot{
		ID:          rec.ID,
		SubjectID:   subjectID,
		SubjectCode: code,
		SubjectName: name,
		Kind:        kind,
		DayOfWeek:   rec.DayOfWeek,
		StartTime:   rec.StartTime,
		EndTime:     rec.EndTime,
		Venue:       strings.TrimSpace(rec.Venue),
		Instructor:  strings.TrimSpace(rec.Instructor),
		Color:       resolveColor(rec.Color, kind),
		GroupLabel:  group,
	}
	if err := slot.Validate(); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

// FromCustomEntry 将自定义条目转为 Slot
//
// 未给出结束时间时按类型默认时长推算；未给出 ID 时生成新的 UUID。
func FromCustomEntry(entry CustomEntry) (Slot, error) {
	kind := KindCustom
	if strings.TrimSpace(entry.Kind) != "" {
		k, err := ParseKind(entry.Kind)
		if err != nil {
			return Slot{}, err
		}
		kind = k
	}

	end := entry.EndTime
	if end == "" {
		derived, err := AddMinutes(entry.StartTime, kind.DefaultDuration())
		if err != nil {
			return Slot{}, err
		}
		end = derived
	}

	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}

	slot := Slot{
		ID:          id,
		SubjectName: strings.TrimSpace(entry.Title),
		Kind:        kind,
		DayOfWeek:   entry.DayOfWeek,
		StartTime:   entry.StartTime,
		EndTime:     end,
		Venue:       strings.TrimSpace(entry.Venue),
		Instructor:  strings.TrimSpace(entry.Instructor),
		Color:       resolveColor(entry.Color, kind),
		IsCustom:    true,
	}
	if err := slot.Validate(); err != nil {
		return Slot{}, err
	}
	return slot, nil
}

func validateTiming(day int, start, end string) error {
	if day < 0 || day > 6 {
		return pkgerrors.NewValidationError("day_of_week", "", "must be between 0 (Sunday) and 6 (Saturday)")
	}
	if !IsClock(start) {
		return pkgerrors.NewValidationError("start_time", start, "expected 24-hour HH:MM")
	}
	if !IsClock(end) {
		return pkgerrors.NewValidationError("end_time", end, "expected 24-hour HH:MM")
	}
	if start >= end {
		return pkgerrors.NewValidationError("end_time", end, "must be after start_time "+start)
	}
	return nil
}

// copySlots 返回切片副本，保证不修改调用方的输入
func copySlots(slots []Slot) []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}
