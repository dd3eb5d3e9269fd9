package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将标准 iCalendar (RFC 5545) 内容解析为自定义条目列表。
//
// 设计决策：
//   - DTSTART 确定星期几与开始时间，DTEND / DURATION 确定结束时间
//   - 两者都缺失时结束时间留空，由条目类型的默认时长推算
//   - 全天事件与跨午夜事件无法表示为周课次，直接跳过
//   - RRULE 不展开：周课表只关心星期与时段
//   - 合并同 title+day+time 的事件（ICS 可能以多个单次事件表示同一课程）
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize  = 5 * 1024 * 1024 // 5MB
	icsFetchTimeout = 30 * time.Second
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	client := &http.Client{Timeout: icsFetchTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小，防止恶意 URL 返回超大内容导致 OOM
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseICS 解析 ICS 内容为自定义条目，时间统一换算到 loc
func ParseICS(reader io.Reader, loc *time.Location) ([]timetable.CustomEntry, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	entries := make([]timetable.CustomEntry, 0, len(cal.Events()))
	seen := make(map[string]bool)
	for _, comp := range cal.Events() {
		entry, ok := parseVEvent(comp, loc)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%s|%d|%s|%s", strings.ToLower(entry.Title), entry.DayOfWeek, entry.StartTime, entry.EndTime)
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseVEvent 解析单个 VEVENT 组件
func parseVEvent(evt *ics.VEvent, loc *time.Location) (timetable.CustomEntry, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return timetable.CustomEntry{}, false
	}

	dtStart, allDay, err := parseICSDateTime(evt, ics.ComponentPropertyDtStart, loc)
	if err != nil || allDay {
		return timetable.CustomEntry{}, false
	}

	entry := timetable.CustomEntry{
		Title:     strings.TrimSpace(summary.Value),
		Kind:      eventKind(evt),
		DayOfWeek: int(dtStart.Weekday()),
		StartTime: dtStart.Format("15:04"),
	}
	if p := evt.GetProperty(ics.ComponentPropertyLocation); p != nil {
		entry.Venue = strings.TrimSpace(p.Value)
	}

	var dtEnd time.Time
	if end, _, err := parseICSDateTime(evt, ics.ComponentPropertyDtEnd, loc); err == nil {
		dtEnd = end
	} else if p := evt.GetProperty(ics.ComponentPropertyDuration); p != nil {
		if d, ok := parseICSDuration(p.Value); ok {
			dtEnd = dtStart.Add(d)
		}
	}
	if !dtEnd.IsZero() {
		if dtEnd.YearDay() != dtStart.YearDay() || dtEnd.Year() != dtStart.Year() || !dtEnd.After(dtStart) {
			return timetable.CustomEntry{}, false
		}
		entry.EndTime = dtEnd.Format("15:04")
	}
	return entry, true
}

// eventKind 导出时写入的 CATEGORIES 若为已知类型则沿用，否则视为自定义
func eventKind(evt *ics.VEvent) string {
	p := evt.GetProperty(ics.ComponentPropertyCategories)
	if p == nil {
		return timetable.KindCustom.String()
	}
	for _, c := range strings.Split(p.Value, ",") {
		if k, err := timetable.ParseKind(c); err == nil {
			return k.String()
		}
	}
	return timetable.KindCustom.String()
}

// parseICSDateTime 从 VEVENT 中解析日期时间属性，第二个返回值表示是否为全天日期
func parseICSDateTime(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, bool, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, false, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	// 检查 TZID 参数
	tzid := ""
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			tzid = v[0]
		}
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		return t.In(loc), false, nil
	}
	if t, err := time.Parse("20060102T150405", val); err == nil {
		if tzid != "" {
			if tzLoc, err := time.LoadLocation(tzid); err == nil {
				return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, tzLoc).In(loc), false, nil
			}
		}
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), false, nil
	}
	if t, err := time.ParseInLocation("20060102", val, loc); err == nil {
		return t, true, nil
	}

	return time.Time{}, false, fmt.Errorf("无法解析日期: %s", val)
}

// parseICSDuration 解析 RFC 5545 DURATION（如 PT1H30M、P0DT2H、PT90M），不支持周与负值
func parseICSDuration(value string) (time.Duration, bool) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if !strings.HasPrefix(v, "P") {
		return 0, false
	}
	v = v[1:]

	var total time.Duration
	inTime := false
	num := ""
	for _, r := range v {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			inTime = true
		default:
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, false
			}
			num = ""
			switch {
			case r == 'D' && !inTime:
				total += time.Duration(n) * 24 * time.Hour
			case r == 'H' && inTime:
				total += time.Duration(n) * time.Hour
			case r == 'M' && inTime:
				total += time.Duration(n) * time.Minute
			case r == 'S' && inTime:
				total += time.Duration(n) * time.Second
			default:
				return 0, false
			}
		}
	}
	if num != "" || total <= 0 {
		return 0, false
	}
	return total, true
}
