package timetable

import "fmt"

// ResolutionAction 冲突处理动作
type ResolutionAction string

const (
	ActionRemoveSlot ResolutionAction = "remove_slot"
	ActionIgnore     ResolutionAction = "ignore"
)

// Resolution 针对某个冲突的一条处理建议，纯数据，不直接修改任何状态
type Resolution struct {
	ClashID string           `json:"clash_id"`
	Action  ResolutionAction `json:"action"`
	SlotID  string           `json:"slot_id,omitempty"`
	Label   string           `json:"label"`
}

// SuggestResolutions 每个冲突都给出“移除 A”“移除 B”；
// 仅地点冲突额外给出“忽略”，时间冲突只能通过移除课次解决。
func SuggestResolutions(clashes []Clash) []Resolution {
	out := make([]Resolution, 0, len(clashes)*3)
	for _, c := range clashes {
		out = append(out,
			removeOption(c, c.SlotA),
			removeOption(c, c.SlotB),
		)
		if c.Category == CategoryVenue {
			out = append(out, Resolution{
				ClashID: c.ID,
				Action:  ActionIgnore,
				Label:   fmt.Sprintf("Keep both and ignore the shared venue %s", c.SlotA.Venue),
			})
		}
	}
	return out
}

func removeOption(c Clash, s Slot) Resolution {
	return Resolution{
		ClashID: c.ID,
		Action:  ActionRemoveSlot,
		SlotID:  s.ID,
		Label: fmt.Sprintf("Remove %s %s (%s %s-%s)",
			s.Label(), s.Kind, weekdayName(s.DayOfWeek), s.StartTime, s.EndTime),
	}
}

// ApplyResolution 返回应用建议后的新 Slot 列表；ignore 时原样复制
//
// 调用方需在之后重新检测冲突。
func ApplyResolution(slots []Slot, r Resolution) []Slot {
	if r.Action != ActionRemoveSlot || r.SlotID == "" {
		return copySlots(slots)
	}
	return RemoveSlot(slots, r.SlotID)
}

// RemoveSlot 返回去掉指定 ID 后的新 Slot 列表
func RemoveSlot(slots []Slot, slotID string) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if s.ID != slotID {
			out = append(out, s)
		}
	}
	return out
}

var weekdayNames = [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

func weekdayName(day int) string {
	if day < 0 || day > 6 {
		return "?"
	}
	return weekdayNames[day]
}
