package service

import (
	"strings"
	"testing"
	"time"
)

// ════════════════════════════════════════════════════════════
// ICS 解析器测试
// ════════════════════════════════════════════════════════════

// 标准 ICS 测试数据：2 门周重复课程 + 1 门单次事件
const testICSContent = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
SUMMARY:Calculus
DTSTART;TZID=Asia/Kuala_Lumpur:20250224T081000
DTEND;TZID=Asia/Kuala_Lumpur:20250224T100500
LOCATION:DK1
RRULE:FREQ=WEEKLY;COUNT=16
END:VEVENT
BEGIN:VEVENT
SUMMARY:English
DTSTART;TZID=Asia/Kuala_Lumpur:20250225T140000
DTEND;TZID=Asia/Kuala_Lumpur:20250225T160000
RRULE:FREQ=WEEKLY;COUNT=16
END:VEVENT
BEGIN:VEVENT
SUMMARY:Guest talk
DTSTART;TZID=Asia/Kuala_Lumpur:20250303T090000
DTEND;TZID=Asia/Kuala_Lumpur:20250303T110000
END:VEVENT
END:VCALENDAR`

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Skipf("时区数据不可用: %v", err)
	}
	return loc
}

func TestParseICS_BasicEvents(t *testing.T) {
	loc := mustLoad(t, "Asia/Kuala_Lumpur")

	entries, err := ParseICS(strings.NewReader(testICSContent), loc)
	if err != nil {
		t.Fatalf("ParseICS 失败: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("期望 3 个条目，实际: %d", len(entries))
	}

	calc := entries[0]
	if calc.Title != "Calculus" || calc.DayOfWeek != 1 || calc.StartTime != "08:10" || calc.EndTime != "10:05" {
		t.Errorf("Calculus 解析错误: %+v", calc)
	}
	if calc.Venue != "DK1" || calc.Kind != "custom" {
		t.Errorf("Calculus 地点或类型错误: %+v", calc)
	}
	if entries[1].DayOfWeek != 2 {
		t.Errorf("English 应为周二，实际: %d", entries[1].DayOfWeek)
	}
}

func TestParseICS_ConvertsToTargetZone(t *testing.T) {
	mustLoad(t, "Asia/Kuala_Lumpur")

	// 08:10 +08:00 → 00:10 UTC，仍为周一
	entries, err := ParseICS(strings.NewReader(testICSContent), time.UTC)
	if err != nil {
		t.Fatalf("ParseICS 失败: %v", err)
	}
	if entries[0].StartTime != "00:10" || entries[0].DayOfWeek != 1 {
		t.Errorf("时区换算错误: %+v", entries[0])
	}
}

func TestParseICS_MergesSameEvent(t *testing.T) {
	ics := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
SUMMARY:Lab
DTSTART:20250224T060000Z
DTEND:20250224T080000Z
END:VEVENT
BEGIN:VEVENT
SUMMARY:lab
DTSTART:20250303T060000Z
DTEND:20250303T080000Z
END:VEVENT
END:VCALENDAR`

	entries, err := ParseICS(strings.NewReader(ics), time.UTC)
	if err != nil {
		t.Fatalf("ParseICS 失败: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("同标题同时段的单次事件应合并，实际: %d", len(entries))
	}
}

func TestParseICS_SkipsUnrepresentableEvents(t *testing.T) {
	ics := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
SUMMARY:Holiday
DTSTART;VALUE=DATE:20250224
DTEND;VALUE=DATE:20250225
END:VEVENT
BEGIN:VEVENT
SUMMARY:Overnight
DTSTART:20250224T230000Z
DTEND:20250225T010000Z
END:VEVENT
BEGIN:VEVENT
DTSTART:20250224T090000Z
DTEND:20250224T100000Z
END:VEVENT
END:VCALENDAR`

	entries, err := ParseICS(strings.NewReader(ics), time.UTC)
	if err != nil {
		t.Fatalf("ParseICS 失败: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("全天 / 跨午夜 / 无标题事件应全部跳过，实际: %+v", entries)
	}
}

func TestParseICS_DurationAndMissingEnd(t *testing.T) {
	ics := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//Test//Test//EN
BEGIN:VEVENT
SUMMARY:Seminar
DTSTART:20250226T100000Z
DURATION:PT1H30M
END:VEVENT
BEGIN:VEVENT
SUMMARY:Office hour
DTSTART:20250227T150000Z
END:VEVENT
END:VCALENDAR`

	entries, err := ParseICS(strings.NewReader(ics), time.UTC)
	if err != nil {
		t.Fatalf("ParseICS 失败: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("期望 2 个条目，实际: %d", len(entries))
	}
	if entries[0].EndTime != "11:30" {
		t.Errorf("DURATION 推算结束时间错误: %s", entries[0].EndTime)
	}
	if entries[1].EndTime != "" {
		t.Errorf("缺少结束时间时应留空，实际: %s", entries[1].EndTime)
	}
}

func TestParseICSDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"PT1H30M", 90 * time.Minute, true},
		{"PT90M", 90 * time.Minute, true},
		{"P0DT2H", 2 * time.Hour, true},
		{"pt45m", 45 * time.Minute, true},
		{"P1W", 0, false},
		{"PT", 0, false},
		{"1H", 0, false},
		{"PT1H5", 0, false},
	}
	for _, tt := range tests {
		got, ok := parseICSDuration(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("parseICSDuration(%q) = (%v, %v)，期望 (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
