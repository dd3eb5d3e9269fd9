package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// ── TimetableService 接口 ──────────────────────────────────
//
// 设计说明：
//   - Generate 为无状态生成：选择 → Slot → 可选贪心过滤 → 冲突 / 建议 / 派生视图
//   - 自定义条目在贪心放置之后追加，不参与过滤，但参与冲突检测
//   - DetectClashes / CheckCandidate 对调用方给出的 Slot 直接检测，不访问数据源
// ─────────────────────────────────────────────────────────────

// TimetableService 课表生成与冲突检测业务接口
type TimetableService interface {
	// Generate 根据选择生成课表
	Generate(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResponse, error)
	// DetectClashes 检测任意 Slot 集合中的全部冲突
	DetectClashes(ctx context.Context, req *dto.DetectClashesRequest) (*dto.ClashReport, error)
	// CheckCandidate 检测候选 Slot 与已有 Slot 的冲突
	CheckCandidate(ctx context.Context, req *dto.CheckCandidateRequest) (*dto.ClashReport, error)
}

type timetableService struct {
	assembler *timetable.Assembler
	logger    *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(assembler *timetable.Assembler, logger *zap.Logger) TimetableService {
	return &timetableService{assembler: assembler, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Generate 生成课表
// ════════════════════════════════════════════════════════════
//
// 流程：
//   1. 先校验自定义条目（无效输入在访问数据源前即失败）
//   2. 过滤模式：GenerateWithClashFiltering；简单模式：Generate，全部视为已放置
//   3. 追加自定义条目，在 已放置 + 未放置 + 自定义 上重新检测冲突

func (s *timetableService) Generate(ctx context.Context, req *dto.GenerateRequest) (*dto.GenerateResponse, error) {
	custom, err := timetable.MergeCustom(nil, dto.ToEntries(req.Custom))
	if err != nil {
		return nil, err
	}
	selected := dto.ToSelected(req.Selected)

	var placed, unplaced []timetable.Slot
	var skipped []timetable.Skipped
	if req.ShouldFilter() {
		p, err := s.assembler.GenerateWithClashFiltering(ctx, selected)
		if err != nil {
			s.logger.Error("课表生成失败", zap.Int("selected", len(selected)), zap.Error(err))
			return nil, err
		}
		placed, unplaced, skipped = p.Placed, p.Unplaced, p.Skipped
	} else {
		gen, err := s.assembler.Generate(ctx, selected)
		if err != nil {
			s.logger.Error("课表生成失败", zap.Int("selected", len(selected)), zap.Error(err))
			return nil, err
		}
		placed, unplaced, skipped = gen.Slots, []timetable.Slot{}, gen.Skipped
	}
	placed = append(placed, custom...)

	all := make([]timetable.Slot, 0, len(placed)+len(unplaced))
	all = append(all, placed...)
	all = append(all, unplaced...)
	clashes := s.assembler.Detector().FindAllClashes(all)

	if len(skipped) > 0 {
		s.logger.Info("课表生成完成（部分选择被跳过）",
			zap.Int("placed", len(placed)),
			zap.Int("unplaced", len(unplaced)),
			zap.Int("skipped", len(skipped)),
		)
	}

	return &dto.GenerateResponse{
		Placed:           placed,
		Unplaced:         unplaced,
		Clashes:          clashes,
		Resolutions:      timetable.SuggestResolutions(clashes),
		NonConflicting:   timetable.NonConflicting(all, clashes, unplaced),
		ConflictingCodes: timetable.ConflictingSubjectCodes(clashes, unplaced),
		Skipped:          skipped,
	}, nil
}

// ════════════════════════════════════════════════════════════
// DetectClashes / CheckCandidate
// ════════════════════════════════════════════════════════════

func (s *timetableService) DetectClashes(_ context.Context, req *dto.DetectClashesRequest) (*dto.ClashReport, error) {
	if err := validateSlots(req.Slots); err != nil {
		return nil, err
	}
	return newClashReport(s.assembler.Detector().FindAllClashes(req.Slots)), nil
}

func (s *timetableService) CheckCandidate(_ context.Context, req *dto.CheckCandidateRequest) (*dto.ClashReport, error) {
	all := make([]timetable.Slot, 0, len(req.Existing)+1)
	all = append(all, req.Existing...)
	all = append(all, req.Candidate)
	if err := validateSlots(all); err != nil {
		return nil, err
	}
	return newClashReport(s.assembler.Detector().FindClashesForNewSlot(req.Candidate, req.Existing)), nil
}

// validateSlots 校验时间字段、类型，并要求 ID 非空且唯一
func validateSlots(slots []timetable.Slot) error {
	seen := make(map[string]bool, len(slots))
	for i, slot := range slots {
		if slot.ID == "" {
			return fmt.Errorf("slot %d: %w", i, pkgerrors.NewValidationError("id", "", "must not be empty"))
		}
		if seen[slot.ID] {
			return fmt.Errorf("slot %d: %w", i, pkgerrors.NewValidationError("id", slot.ID, "duplicate slot id"))
		}
		seen[slot.ID] = true
		if !slot.Kind.Valid() {
			return fmt.Errorf("slot %d: %w", i, pkgerrors.NewValidationError("kind", slot.Kind.String(), "unknown session kind"))
		}
		if err := slot.Validate(); err != nil {
			return fmt.Errorf("slot %d: %w", i, err)
		}
	}
	return nil
}

func newClashReport(clashes []timetable.Clash) *dto.ClashReport {
	report := &dto.ClashReport{
		Clashes:     clashes,
		Resolutions: timetable.SuggestResolutions(clashes),
	}
	for _, c := range clashes {
		if c.Severity == timetable.SeverityError {
			report.HasErrors = true
			break
		}
	}
	return report
}
