package timetable

import (
	"context"
	"errors"
	"time"
)

// ErrWorkingNotFound 工作课表不存在（或已过期）
var ErrWorkingNotFound = errors.New("working timetable not found")

// Working 调用方持有的工作课表状态
//
// 所有变更都通过返回新值的纯函数完成，冲突从不存储，读取时由 View 重新计算；
// 持久化由调用方在每次变更后显式调用 Store.Save。
type Working struct {
	ID       string            `json:"id"`
	Selected []SelectedSubject `json:"selected"`
	Placed   []Slot            `json:"placed"`
	Unplaced []Slot            `json:"unplaced"`
	Custom   []Slot            `json:"custom"`
	Skipped  []Skipped         `json:"skipped"`
	// Ignored 已忽略的地点冲突 ID
	Ignored   []string  `json:"ignored"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store 工作课表持久化接口
type Store interface {
	Load(ctx context.Context, id string) (*Working, error)
	// Save 以 Version 做乐观锁，成功后 Version 加一
	Save(ctx context.Context, w *Working) error
	Delete(ctx context.Context, id string) error
}

// NewWorking 创建空的工作课表
func NewWorking(id string) *Working {
	return &Working{
		ID:       id,
		Selected: []SelectedSubject{},
		Placed:   []Slot{},
		Unplaced: []Slot{},
		Custom:   []Slot{},
		Skipped:  []Skipped{},
		Ignored:  []string{},
	}
}

func (w *Working) clone() *Working {
	cp := *w
	cp.Selected = append([]SelectedSubject{}, w.Selected...)
	cp.Placed = copySlots(w.Placed)
	cp.Unplaced = copySlots(w.Unplaced)
	cp.Custom = copySlots(w.Custom)
	cp.Skipped = append([]Skipped{}, w.Skipped...)
	cp.Ignored = append([]string{}, w.Ignored...)
	return &cp
}

// WithPlacement 用新的生成结果替换科目 Slot，自定义条目保留
func (w *Working) WithPlacement(selected []SelectedSubject, p *Placement) *Working {
	next := w.clone()
	next.Selected = append([]SelectedSubject{}, selected...)
	next.Placed = copySlots(p.Placed)
	next.Unplaced = copySlots(p.Unplaced)
	next.Skipped = append([]Skipped{}, p.Skipped...)
	next.Ignored = []string{}
	return next
}

// WithCustom 追加自定义 Slot；ID 已存在时整体替换
func (w *Working) WithCustom(slot Slot) *Working {
	next := w.clone()
	for i, s := range next.Custom {
		if s.ID == slot.ID {
			next.Custom[i] = slot
			return next
		}
	}
	next.Custom = append(next.Custom, slot)
	return next
}

// HasCustom 是否存在指定 ID 的自定义 Slot
func (w *Working) HasCustom(slotID string) bool {
	for _, s := range w.Custom {
		if s.ID == slotID {
			return true
		}
	}
	return false
}

// HasSlot 是否存在指定 ID 的任意 Slot
func (w *Working) HasSlot(slotID string) bool {
	for _, s := range w.candidates() {
		if s.ID == slotID {
			return true
		}
	}
	return false
}

// WithoutSlot 从所有列表中移除指定 Slot，并对剩余科目 Slot 重新贪心放置：
// 已放置的排在前面保持不动，此前被挡住的未放置 Slot 按原顺序补位
func (w *Working) WithoutSlot(slotID string, d *Detector) *Working {
	if d == nil {
		d = defaultDetector
	}
	next := w.clone()
	next.Custom = RemoveSlot(next.Custom, slotID)
	next.Placed, next.Unplaced = d.Place(concatSlots(
		RemoveSlot(next.Placed, slotID),
		RemoveSlot(next.Unplaced, slotID),
	))
	return next
}

// WithIgnored 记录一个被忽略的冲突
func (w *Working) WithIgnored(clashID string) *Working {
	next := w.clone()
	for _, id := range next.Ignored {
		if id == clashID {
			return next
		}
	}
	next.Ignored = append(next.Ignored, clashID)
	return next
}

// Reset 清空所有内容，保留 ID 与版本
func (w *Working) Reset() *Working {
	next := NewWorking(w.ID)
	next.Version = w.Version
	return next
}

// Scheduled 实际排入课表的 Slot：已放置 + 自定义（导出使用）
func (w *Working) Scheduled() []Slot {
	return concatSlots(w.Placed, w.Custom)
}

// candidates 全部候选 Slot：已放置 + 未放置 + 自定义
func (w *Working) candidates() []Slot {
	return concatSlots(w.Placed, w.Unplaced, w.Custom)
}

// WorkingView 读取时推导出的视图
type WorkingView struct {
	Working          *Working     `json:"working"`
	Slots            []Slot       `json:"slots"`
	Clashes          []Clash      `json:"clashes"`
	Resolutions      []Resolution `json:"resolutions"`
	NonConflicting   []Slot       `json:"non_conflicting"`
	ConflictingCodes []string     `json:"conflicting_codes"`
}

// View 重新计算冲突及派生视图；被忽略的地点冲突不再出现
func (w *Working) View(d *Detector) *WorkingView {
	if d == nil {
		d = defaultDetector
	}
	all := w.candidates()

	ignored := make(map[string]bool, len(w.Ignored))
	for _, id := range w.Ignored {
		ignored[id] = true
	}
	clashes := make([]Clash, 0)
	for _, c := range d.FindAllClashes(all) {
		if c.Category == CategoryVenue && ignored[c.ID] {
			continue
		}
		clashes = append(clashes, c)
	}

	return &WorkingView{
		Working:          w,
		Slots:            all,
		Clashes:          clashes,
		Resolutions:      SuggestResolutions(clashes),
		NonConflicting:   NonConflicting(all, clashes, w.Unplaced),
		ConflictingCodes: ConflictingSubjectCodes(clashes, w.Unplaced),
	}
}

// FindClash 在当前视图中按 ID 查找冲突
func (v *WorkingView) FindClash(clashID string) (Clash, bool) {
	for _, c := range v.Clashes {
		if c.ID == clashID {
			return c, true
		}
	}
	return Clash{}, false
}

// ScheduledClashes 仅保留双方都已排入课表的冲突（与 Scheduled 对应）
func (v *WorkingView) ScheduledClashes() []Clash {
	unplaced := make(map[string]bool, len(v.Working.Unplaced))
	for _, s := range v.Working.Unplaced {
		unplaced[s.ID] = true
	}
	out := make([]Clash, 0, len(v.Clashes))
	for _, c := range v.Clashes {
		if unplaced[c.SlotA.ID] || unplaced[c.SlotB.ID] {
			continue
		}
		out = append(out, c)
	}
	return out
}
