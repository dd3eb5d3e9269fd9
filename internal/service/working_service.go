package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// ── 工作课表模块业务错误 ──

var (
	ErrWorkingNotFound          = timetable.ErrWorkingNotFound
	ErrWorkingSlotNotFound      = errors.New("课表中不存在该课次")
	ErrWorkingCustomNotFound    = errors.New("自定义条目不存在")
	ErrWorkingClashNotFound     = errors.New("冲突不存在或已解决")
	ErrWorkingInvalidResolution = errors.New("处理方式不适用于该冲突")
)

// ── WorkingTimetableService 接口 ───────────────────────────
//
// 设计说明：
//   - 状态由调用方通过 ID 显式持有，每次变更 = 加载 → 纯函数变换 → Store.Save
//   - 冲突从不持久化，每次返回都基于最新 Slot 集合重新计算
//   - Save 带乐观锁，并发修改同一工作课表时后到者收到 ErrOptimisticLock
// ─────────────────────────────────────────────────────────────

// WorkingTimetableService 工作课表业务接口
type WorkingTimetableService interface {
	Create(ctx context.Context, req *dto.CreateWorkingRequest) (*timetable.WorkingView, error)
	Get(ctx context.Context, id string) (*timetable.WorkingView, error)
	// UpdateSelection 替换科目选择并重新生成，自定义条目保留
	UpdateSelection(ctx context.Context, id string, req *dto.UpdateSelectionRequest) (*timetable.WorkingView, error)
	AddCustom(ctx context.Context, id string, req *dto.CustomEntryRequest) (*timetable.WorkingView, error)
	// AddCustomEntries 批量追加自定义条目（ICS 导入）
	AddCustomEntries(ctx context.Context, id string, entries []timetable.CustomEntry) (*timetable.WorkingView, error)
	// UpdateCustom 整体替换指定自定义条目
	UpdateCustom(ctx context.Context, id, slotID string, req *dto.CustomEntryRequest) (*timetable.WorkingView, error)
	RemoveSlot(ctx context.Context, id, slotID string) (*timetable.WorkingView, error)
	ApplyResolution(ctx context.Context, id string, req *dto.ResolveRequest) (*timetable.WorkingView, error)
	Reset(ctx context.Context, id string) (*timetable.WorkingView, error)
	Delete(ctx context.Context, id string) error
}

type workingService struct {
	assembler *timetable.Assembler
	store     timetable.Store
	logger    *zap.Logger
}

// NewWorkingTimetableService 创建 WorkingTimetableService 实例
func NewWorkingTimetableService(assembler *timetable.Assembler, store timetable.Store, logger *zap.Logger) WorkingTimetableService {
	return &workingService{assembler: assembler, store: store, logger: logger}
}

func (s *workingService) Create(ctx context.Context, req *dto.CreateWorkingRequest) (*timetable.WorkingView, error) {
	custom, err := timetable.MergeCustom(nil, dto.ToEntries(req.Custom))
	if err != nil {
		return nil, err
	}

	selected := dto.ToSelected(req.Selected)
	p, err := s.assembler.GenerateWithClashFiltering(ctx, selected)
	if err != nil {
		s.logger.Error("创建工作课表失败", zap.Error(err))
		return nil, err
	}

	w := timetable.NewWorking(uuid.NewString()).WithPlacement(selected, p)
	for _, slot := range custom {
		w = w.WithCustom(slot)
	}
	if err := s.store.Save(ctx, w); err != nil {
		s.logger.Error("保存工作课表失败", zap.String("working_id", w.ID), zap.Error(err))
		return nil, fmt.Errorf("保存工作课表失败: %w", err)
	}

	s.logger.Info("工作课表已创建",
		zap.String("working_id", w.ID),
		zap.Int("placed", len(w.Placed)),
		zap.Int("unplaced", len(w.Unplaced)),
	)
	return w.View(s.assembler.Detector()), nil
}

func (s *workingService) Get(ctx context.Context, id string) (*timetable.WorkingView, error) {
	w, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return w.View(s.assembler.Detector()), nil
}

func (s *workingService) UpdateSelection(ctx context.Context, id string, req *dto.UpdateSelectionRequest) (*timetable.WorkingView, error) {
	return s.mutate(ctx, id, func(w *timetable.Working) (*timetable.Working, error) {
		selected := dto.ToSelected(req.Selected)
		p, err := s.assembler.GenerateWithClashFiltering(ctx, selected)
		if err != nil {
			return nil, err
		}
		return w.WithPlacement(selected, p), nil
	})
}

func (s *workingService) AddCustom(ctx context.Context, id string, req *dto.CustomEntryRequest) (*timetable.WorkingView, error) {
	return s.AddCustomEntries(ctx, id, []timetable.CustomEntry{req.ToEntry()})
}

func (s *workingService) AddCustomEntries(ctx context.Context, id string, entries []timetable.CustomEntry) (*timetable.WorkingView, error) {
	slots, err := timetable.MergeCustom(nil, entries)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(w *timetable.Working) (*timetable.Working, error) {
		for _, slot := range slots {
			w = w.WithCustom(slot)
		}
		return w, nil
	})
}

func (s *workingService) UpdateCustom(ctx context.Context, id, slotID string, req *dto.CustomEntryRequest) (*timetable.WorkingView, error) {
	entry := req.ToEntry()
	entry.ID = slotID
	slot, err := timetable.FromCustomEntry(entry)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(w *timetable.Working) (*timetable.Working, error) {
		if !w.HasCustom(slotID) {
			return nil, ErrWorkingCustomNotFound
		}
		return w.WithCustom(slot), nil
	})
}

func (s *workingService) RemoveSlot(ctx context.Context, id, slotID string) (*timetable.WorkingView, error) {
	return s.mutate(ctx, id, func(w *timetable.Working) (*timetable.Working, error) {
		if !w.HasSlot(slotID) {
			return nil, ErrWorkingSlotNotFound
		}
		return w.WithoutSlot(slotID, s.assembler.Detector()), nil
	})
}

// ApplyResolution 仅接受当前视图中仍然存在的冲突：
//   - remove_slot 的 slot_id 必须是冲突两侧之一
//   - ignore 仅适用于地点冲突
func (s *workingService) ApplyResolution(ctx context.Context, id string, req *dto.ResolveRequest) (*timetable.WorkingView, error) {
	r := req.ToResolution()
	return s.mutate(ctx, id, func(w *timetable.Working) (*timetable.Working, error) {
		clash, ok := w.View(s.assembler.Detector()).FindClash(r.ClashID)
		if !ok {
			return nil, ErrWorkingClashNotFound
		}

		switch r.Action {
		case timetable.ActionRemoveSlot:
			if !clash.Involves(r.SlotID) {
				return nil, fmt.Errorf("%w: slot %s is not part of clash %s", ErrWorkingInvalidResolution, r.SlotID, clash.ID)
			}
			return w.WithoutSlot(r.SlotID, s.assembler.Detector()), nil
		case timetable.ActionIgnore:
			if clash.Category != timetable.CategoryVenue {
				return nil, fmt.Errorf("%w: only venue clashes can be ignored", ErrWorkingInvalidResolution)
			}
			return w.WithIgnored(clash.ID), nil
		default:
			return nil, fmt.Errorf("%w: unknown action %q", ErrWorkingInvalidResolution, r.Action)
		}
	})
}

func (s *workingService) Reset(ctx context.Context, id string) (*timetable.WorkingView, error) {
	return s.mutate(ctx, id, func(w *timetable.Working) (*timetable.Working, error) {
		return w.Reset(), nil
	})
}

func (s *workingService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if !errors.Is(err, ErrWorkingNotFound) {
			s.logger.Error("删除工作课表失败", zap.String("working_id", id), zap.Error(err))
		}
		return err
	}
	return nil
}

// mutate 加载 → 变换 → 保存 → 重新计算视图
func (s *workingService) mutate(ctx context.Context, id string,
	fn func(w *timetable.Working) (*timetable.Working, error)) (*timetable.WorkingView, error) {

	w, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := fn(w)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, next); err != nil {
		if errors.Is(err, pkgerrors.ErrOptimisticLock) || errors.Is(err, ErrWorkingNotFound) {
			return nil, err
		}
		s.logger.Error("保存工作课表失败", zap.String("working_id", id), zap.Error(err))
		return nil, fmt.Errorf("保存工作课表失败: %w", err)
	}
	return next.View(s.assembler.Detector()), nil
}
