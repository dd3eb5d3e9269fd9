package timetable

import (
	"fmt"
	"strings"
)

// Category 冲突类别
type Category string

const (
	CategoryTime  Category = "time"
	CategoryVenue Category = "venue"
)

// Severity 冲突严重程度
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// DefaultErrorThresholdMinutes 重叠达到该分钟数即为 error
const DefaultErrorThresholdMinutes = 30

// Clash 两个 Slot 之间的一次冲突。每次 Slot 集合变化后都重新计算，从不单独持久化。
type Clash struct {
	ID             string   `json:"id"`
	SlotA          Slot     `json:"slot_a"`
	SlotB          Slot     `json:"slot_b"`
	Category       Category `json:"category"`
	Severity       Severity `json:"severity"`
	OverlapMinutes int      `json:"overlap_minutes"`
	Message        string   `json:"message"`
}

// Involves 冲突是否涉及指定 Slot
func (c Clash) Involves(slotID string) bool {
	return c.SlotA.ID == slotID || c.SlotB.ID == slotID
}

// ── Detector ──────────────────────────────────────────────
//
// 冲突检测策略：
//   - ExemptSameSubjectKind：同科目同类型的两个非自定义 Slot 不比较
//     （多个讲座班次并非真实冲突），可通过配置关闭
//   - ErrorThresholdMinutes：重叠分钟数 >= 阈值为 error，否则 warning
// ─────────────────────────────────────────────────────────────

// Detector 冲突检测器，无状态、可并发复用
type Detector struct {
	exemptSameSubjectKind bool
	errorThreshold        int
}

// DetectorOption 检测器配置项
type DetectorOption func(*Detector)

// WithSameSubjectExemption 设置同科目同类型豁免
func WithSameSubjectExemption(exempt bool) DetectorOption {
	return func(d *Detector) { d.exemptSameSubjectKind = exempt }
}

// WithErrorThreshold 设置 error 严重度阈值（分钟），非正数时忽略
func WithErrorThreshold(minutes int) DetectorOption {
	return func(d *Detector) {
		if minutes > 0 {
			d.errorThreshold = minutes
		}
	}
}

// NewDetector 创建 Detector，默认开启同科目豁免、阈值 30 分钟
func NewDetector(opts ...DetectorOption) *Detector {
	d := &Detector{
		exemptSameSubjectKind: true,
		errorThreshold:        DefaultErrorThresholdMinutes,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

var defaultDetector = NewDetector()

// FindAllClashes 使用默认策略检测所有冲突
func FindAllClashes(slots []Slot) []Clash {
	return defaultDetector.FindAllClashes(slots)
}

// FindClashesForNewSlot 使用默认策略检测候选 Slot 与已有 Slot 的冲突
func FindClashesForNewSlot(candidate Slot, existing []Slot) []Clash {
	return defaultDetector.FindClashesForNewSlot(candidate, existing)
}

// FindAllClashes 按输入顺序检查每一对 (i, j)，i < j，输出顺序稳定
func (d *Detector) FindAllClashes(slots []Slot) []Clash {
	clashes := make([]Clash, 0)
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if c, ok := d.compare(slots[i], slots[j]); ok {
				clashes = append(clashes, c)
			}
		}
	}
	return clashes
}

// FindClashesForNewSlot 只返回涉及 candidate 的冲突
func (d *Detector) FindClashesForNewSlot(candidate Slot, existing []Slot) []Clash {
	all := make([]Slot, 0, len(existing)+1)
	all = append(all, existing...)
	all = append(all, candidate)

	result := make([]Clash, 0)
	for _, c := range d.FindAllClashes(all) {
		if c.Involves(candidate.ID) {
			result = append(result, c)
		}
	}
	return result
}

func (d *Detector) compare(a, b Slot) (Clash, bool) {
	// 1. 同科目同类型豁免
	if d.exemptSameSubjectKind && !a.IsCustom && !b.IsCustom &&
		a.SubjectID == b.SubjectID && a.Kind == b.Kind {
		return Clash{}, false
	}
	// 2. 不同日
	if a.DayOfWeek != b.DayOfWeek {
		return Clash{}, false
	}
	// 3. 时间不重叠
	if !IntervalsOverlap(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
		return Clash{}, false
	}

	overlap := OverlapMinutes(a.StartTime, a.EndTime, b.StartTime, b.EndTime)
	category := CategoryTime
	if sameVenue(a.Venue, b.Venue) {
		category = CategoryVenue
	}
	severity := SeverityWarning
	if overlap >= d.errorThreshold {
		severity = SeverityError
	}

	return Clash{
		ID:             clashID(a, b),
		SlotA:          a,
		SlotB:          b,
		Category:       category,
		Severity:       severity,
		OverlapMinutes: overlap,
		Message:        clashMessage(a, b, category, overlap),
	}, true
}

// sameVenue 大小写不敏感比较，空地点从不构成地点冲突
func sameVenue(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}

func clashID(a, b Slot) string {
	return a.ID + ":" + b.ID
}

func clashMessage(a, b Slot, category Category, overlap int) string {
	if category == CategoryVenue {
		return fmt.Sprintf("Venue clash: %s (%s) and %s (%s) are both booked in %s",
			a.Label(), a.Kind, b.Label(), b.Kind, a.Venue)
	}
	return fmt.Sprintf("Time clash: %s (%s) overlaps %s (%s) by %s",
		a.Label(), a.Kind, b.Label(), b.Kind, FormatMinutes(overlap))
}
