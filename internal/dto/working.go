package dto

import "github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"

// CreateWorkingRequest 创建工作课表
type CreateWorkingRequest struct {
	Selected []SelectionItem      `json:"selected" binding:"max=30,dive"`
	Custom   []CustomEntryRequest `json:"custom"   binding:"max=50,dive"`
}

// UpdateSelectionRequest 替换科目选择并重新生成
type UpdateSelectionRequest struct {
	Selected []SelectionItem `json:"selected" binding:"max=30,dive"`
}

// ResolveRequest 应用一条冲突处理建议
type ResolveRequest struct {
	ClashID string `json:"clash_id" binding:"required,max=200"`
	Action  string `json:"action"   binding:"required,oneof=remove_slot ignore"`
	SlotID  string `json:"slot_id"  binding:"required_if=Action remove_slot,max=64"`
}

// ToResolution 转为核心层的 Resolution
func (r ResolveRequest) ToResolution() timetable.Resolution {
	return timetable.Resolution{
		ClashID: r.ClashID,
		Action:  timetable.ResolutionAction(r.Action),
		SlotID:  r.SlotID,
	}
}

// ImportICSRequest 通过 URL 导入 ICS（文件上传走 multipart）
type ImportICSRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// ImportICSResponse ICS 导入结果
type ImportICSResponse struct {
	ImportedCount int                    `json:"imported_count"`
	Working       *timetable.WorkingView `json:"working"`
}
