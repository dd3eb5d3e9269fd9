package timetable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// ── 时间运算 ──────────────────────────────────────────────
//
// 所有时间均为当天的 "HH:MM"（24 小时制、两位补零），不跨越午夜。
// 由于格式定宽，字符串字典序与时间先后一致。
// ─────────────────────────────────────────────────────────────

const minutesPerDay = 24 * 60

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// ParseToMinutes 将 "HH:MM" 解析为自零点起的分钟数
func ParseToMinutes(hhmm string) (int, error) {
	m := clockPattern.FindStringSubmatch(hhmm)
	if m == nil {
		return 0, pkgerrors.NewValidationError("time", hhmm, "expected 24-hour HH:MM")
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return hour*60 + minute, nil
}

// IsClock 判断字符串是否为合法的 "HH:MM"
func IsClock(hhmm string) bool {
	return clockPattern.MatchString(hhmm)
}

// IntervalsOverlap 判断两个半开区间是否重叠，首尾相接不算重叠
func IntervalsOverlap(startA, endA, startB, endB string) bool {
	return !(endA <= startB || endB <= startA)
}

// OverlapMinutes 计算两个区间重叠的分钟数，不重叠时为 0
func OverlapMinutes(startA, endA, startB, endB string) int {
	sa, errSA := ParseToMinutes(startA)
	ea, errEA := ParseToMinutes(endA)
	sb, errSB := ParseToMinutes(startB)
	eb, errEB := ParseToMinutes(endB)
	if errSA != nil || errEA != nil || errSB != nil || errEB != nil {
		return 0
	}
	overlap := min(ea, eb) - max(sa, sb)
	if overlap < 0 {
		return 0
	}
	return overlap
}

// AddMinutes 在 "HH:MM" 上加减分钟，结果越过当天边界时报错
func AddMinutes(hhmm string, delta int) (string, error) {
	base, err := ParseToMinutes(hhmm)
	if err != nil {
		return "", err
	}
	total := base + delta
	if total < 0 || total >= minutesPerDay {
		return "", pkgerrors.NewValidationError("time", hhmm,
			fmt.Sprintf("adding %d minutes crosses midnight", delta))
	}
	return fmt.Sprintf("%02d:%02d", total/60, total%60), nil
}

// FormatMinutes 渲染时长，如 "1 hour and 15 minutes"、"30 minutes"
func FormatMinutes(total int) string {
	if total <= 0 {
		return "0 minutes"
	}
	hours, minutes := total/60, total%60
	var parts []string
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	return strings.Join(parts, " and ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
