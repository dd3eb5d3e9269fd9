package timetable

import (
	"encoding/json"
	"strings"

	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// Kind 课次类型（封闭枚举）。零值 KindUnrecognized 仅用于无法识别的输入。
type Kind int

const (
	KindUnrecognized Kind = iota
	KindLecture
	KindTutorial
	KindLab
	KindPractical
	KindCustom
)

// FallbackColor 无法识别类型时使用的通用颜色
const FallbackColor = "#9CA3AF"

type kindInfo struct {
	name     string
	color    string
	duration int // 分钟
}

var kindTable = [...]kindInfo{
	KindUnrecognized: {name: "unrecognized", color: FallbackColor, duration: 60},
	KindLecture:      {name: "lecture", color: "#3B82F6", duration: 120},
	KindTutorial:     {name: "tutorial", color: "#10B981", duration: 60},
	KindLab:          {name: "lab", color: "#F59E0B", duration: 180},
	KindPractical:    {name: "practical", color: "#8B5CF6", duration: 120},
	KindCustom:       {name: "custom", color: "#6B7280", duration: 60},
}

// Kinds 按声明顺序返回所有合法类型
func Kinds() []Kind {
	return []Kind{KindLecture, KindTutorial, KindLab, KindPractical, KindCustom}
}

// ParseKind 将线上字符串解析为 Kind，大小写不敏感
func ParseKind(s string) (Kind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if kindTable[k].name == name {
			return k, nil
		}
	}
	return KindUnrecognized, pkgerrors.NewValidationError("kind", s, "unknown session kind")
}

func (k Kind) info() kindInfo {
	if k < 0 || int(k) >= len(kindTable) {
		return kindTable[KindUnrecognized]
	}
	return kindTable[k]
}

// String 返回线上字符串
func (k Kind) String() string { return k.info().name }

// Valid 是否为封闭集合中的类型
func (k Kind) Valid() bool { return k >= KindLecture && k <= KindCustom }

// DefaultColor 类型默认颜色；未识别类型回落到 FallbackColor
func (k Kind) DefaultColor() string { return k.info().color }

// DefaultDuration 类型默认时长（分钟）
func (k Kind) DefaultDuration() int { return k.info().duration }

// MarshalJSON 序列化为字符串
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON 从字符串反序列化
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// resolveColor 显式颜色 → 类型默认色 → 通用回落色
func resolveColor(explicit string, k Kind) string {
	if c := strings.TrimSpace(explicit); c != "" {
		return c
	}
	return k.DefaultColor()
}
