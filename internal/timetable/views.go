package timetable

import "sort"

// NonConflicting 所有 Slot 去掉任一冲突引用的 ID 以及未放置的 ID
func NonConflicting(all []Slot, clashes []Clash, unplaced []Slot) []Slot {
	excluded := make(map[string]bool, len(clashes)*2+len(unplaced))
	for _, c := range clashes {
		excluded[c.SlotA.ID] = true
		excluded[c.SlotB.ID] = true
	}
	for _, s := range unplaced {
		excluded[s.ID] = true
	}

	out := make([]Slot, 0, len(all))
	for _, s := range all {
		if !excluded[s.ID] {
			out = append(out, s)
		}
	}
	return out
}

// ConflictingSubjectCodes 出现在任一冲突两侧或未放置列表中的科目代码（排序去重）
//
// 用于提示“整个科目存在未解决冲突”，自定义条目没有科目代码，不计入。
func ConflictingSubjectCodes(clashes []Clash, unplaced []Slot) []string {
	set := make(map[string]struct{})
	add := func(s Slot) {
		if s.SubjectCode != "" {
			set[s.SubjectCode] = struct{}{}
		}
	}
	for _, c := range clashes {
		add(c.SlotA)
		add(c.SlotB)
	}
	for _, s := range unplaced {
		add(s)
	}

	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
