package timetable

import (
	"encoding/json"
	"errors"
	"testing"

	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if got, err := ParseKind(" LAB "); err != nil || got != KindLab {
		t.Errorf("大小写与空白应被忽略: %v, %v", got, err)
	}
	got, err := ParseKind("seminar")
	if got != KindUnrecognized || !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("未知类型应返回 KindUnrecognized + ErrValidation, 实际 %v, %v", got, err)
	}
}

func TestKind_DefaultColor(t *testing.T) {
	if KindLecture.DefaultColor() == KindTutorial.DefaultColor() {
		t.Error("不同类型应有不同默认色")
	}
	if KindUnrecognized.DefaultColor() != FallbackColor {
		t.Errorf("未识别类型应回落到 %s", FallbackColor)
	}
	if Kind(42).DefaultColor() != FallbackColor {
		t.Error("越界类型应回落到通用颜色")
	}
}

func TestFromScheduledSession(t *testing.T) {
	rec := SessionRecord{
		ID: "sess-1", Kind: "lecture", DayOfWeek: 1,
		StartTime: "09:00", EndTime: "10:30", Venue: " Room A101 ", Instructor: "Dr. Tan",
	}
	slot, err := FromScheduledSession(rec, "subj-cs101", "CS101", "Intro to CS")
	if err != nil {
		t.Fatalf("FromScheduledSession 失败: %v", err)
	}
	if slot.ID != "sess-1" || slot.SubjectCode != "CS101" || slot.Kind != KindLecture {
		t.Errorf("字段映射错误: %+v", slot)
	}
	if slot.IsCustom {
		t.Error("科目课次不应为自定义")
	}
	if slot.Venue != "Room A101" {
		t.Errorf("Venue 应去除首尾空白, 实际 %q", slot.Venue)
	}
	if slot.Color != KindLecture.DefaultColor() {
		t.Errorf("未指定颜色应使用类型默认色, 实际 %s", slot.Color)
	}

	rec.Color = "#000000"
	slot, _ = FromScheduledSession(rec, "subj-cs101", "CS101", "Intro to CS")
	if slot.Color != "#000000" {
		t.Errorf("显式颜色应优先, 实际 %s", slot.Color)
	}
}

func TestFromScheduledSession_Invalid(t *testing.T) {
	base := SessionRecord{ID: "s", Kind: "lecture", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00"}

	cases := map[string]func(r *SessionRecord){
		"结束早于开始": func(r *SessionRecord) { r.EndTime = "08:00" },
		"起止相同":   func(r *SessionRecord) { r.EndTime = "09:00" },
		"星期越界":   func(r *SessionRecord) { r.DayOfWeek = 7 },
		"负数星期":   func(r *SessionRecord) { r.DayOfWeek = -1 },
		"时间格式错误": func(r *SessionRecord) { r.StartTime = "9:00" },
		"未知类型":   func(r *SessionRecord) { r.Kind = "seminar" },
		"缺少 ID":  func(r *SessionRecord) { r.ID = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			rec := base
			mutate(&rec)
			if _, err := FromScheduledSession(rec, "x", "X", "X"); !errors.Is(err, pkgerrors.ErrValidation) {
				t.Errorf("期望 ErrValidation, 实际 %v", err)
			}
		})
	}
}

func TestFromTutorial(t *testing.T) {
	rec := TutorialRecord{
		SessionRecord: SessionRecord{ID: "tut-3", Kind: "lecture", DayOfWeek: 3, StartTime: "14:00", EndTime: "15:00"},
		GroupLabel:    "T3",
	}
	slot, err := FromTutorial(rec, "subj", "CS101", "Intro")
	if err != nil {
		t.Fatalf("FromTutorial 失败: %v", err)
	}
	if slot.Kind != KindTutorial {
		t.Errorf("辅导组类型应固定为 tutorial, 实际 %s", slot.Kind)
	}
	if slot.GroupLabel != "T3" {
		t.Errorf("GroupLabel 期望 T3, 实际 %s", slot.GroupLabel)
	}
}

func TestFromCustomEntry(t *testing.T) {
	slot, err := FromCustomEntry(CustomEntry{Title: "Part-time job", DayOfWeek: 6, StartTime: "10:00", EndTime: "14:00"})
	if err != nil {
		t.Fatalf("FromCustomEntry 失败: %v", err)
	}
	if !slot.IsCustom || slot.SubjectID != "" || slot.SubjectCode != "" {
		t.Errorf("自定义条目应无科目信息: %+v", slot)
	}
	if slot.Kind != KindCustom {
		t.Errorf("默认类型应为 custom, 实际 %s", slot.Kind)
	}
	if slot.ID == "" {
		t.Error("未给出 ID 时应生成新 ID")
	}
	if slot.Label() != "Part-time job" {
		t.Errorf("Label 应为标题, 实际 %s", slot.Label())
	}

	other, _ := FromCustomEntry(CustomEntry{Title: "Gym", DayOfWeek: 1, StartTime: "07:00", EndTime: "08:00"})
	if other.ID == slot.ID {
		t.Error("两次生成的 ID 不应相同")
	}
}

func TestFromCustomEntry_DefaultDuration(t *testing.T) {
	slot, err := FromCustomEntry(CustomEntry{ID: "c1", Title: "Study", DayOfWeek: 2, StartTime: "20:00"})
	if err != nil {
		t.Fatalf("FromCustomEntry 失败: %v", err)
	}
	if slot.EndTime != "21:00" {
		t.Errorf("custom 默认时长 60 分钟, 期望 21:00, 实际 %s", slot.EndTime)
	}
	if slot.ID != "c1" {
		t.Errorf("应保留给定 ID, 实际 %s", slot.ID)
	}

	if _, err := FromCustomEntry(CustomEntry{Title: "Late", DayOfWeek: 2, StartTime: "23:30"}); !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("推算结束时间跨越午夜应返回 ErrValidation, 实际 %v", err)
	}
}

func TestSlot_JSONRoundTrip(t *testing.T) {
	slot := Slot{ID: "a", SubjectCode: "CS101", Kind: KindPractical, DayOfWeek: 2, StartTime: "08:00", EndTime: "10:00"}
	data, err := json.Marshal(slot)
	if err != nil {
		t.Fatalf("Marshal 失败: %v", err)
	}
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	if raw["kind"] != "practical" {
		t.Errorf("kind 应序列化为字符串, 实际 %v", raw["kind"])
	}

	var back Slot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal 失败: %v", err)
	}
	if back != slot {
		t.Errorf("往返后不一致: %+v vs %+v", back, slot)
	}
}
