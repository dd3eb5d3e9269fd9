package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// ── 测试辅助 ──

func setupTestWorkingService() (WorkingTimetableService, *testRepos, *fakeCache) {
	repos := newSeededRepos()
	cache := newFakeCache()
	a := timetable.NewAssembler(NewRepositorySource(repos.repository()), zap.NewNop())
	svc := NewWorkingTimetableService(a, NewRedisWorkingStore(cache, time.Hour), zap.NewNop())
	return svc, repos, cache
}

// createConflicting 创建含 CS101 + T1 + MATH201 的工作课表（MATH201 讲座未放置）
func createConflicting(t *testing.T, svc WorkingTimetableService) *timetable.WorkingView {
	t.Helper()
	view, err := svc.Create(context.Background(), &dto.CreateWorkingRequest{
		Selected: []dto.SelectionItem{
			{SubjectID: subjCS101, TutorialGroupID: tutCS101T1},
			{SubjectID: subjMATH201},
		},
	})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	return view
}

// ════════════════════════════════════════════════════════════
// Create / Get
// ════════════════════════════════════════════════════════════

func TestWorkingService_CreateAndGet(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	view := createConflicting(t, svc)

	if view.Working.ID == "" || view.Working.Version != 1 {
		t.Fatalf("新建工作课表应有 ID 且 version=1: %+v", view.Working)
	}
	if len(view.Working.Unplaced) != 1 || view.Working.Unplaced[0].ID != "math201-lec" {
		t.Errorf("未放置错误: %v", slotIDs(view.Working.Unplaced))
	}
	if len(view.Clashes) != 1 {
		t.Errorf("期望 1 个冲突，实际: %d", len(view.Clashes))
	}

	got, err := svc.Get(context.Background(), view.Working.ID)
	if err != nil {
		t.Fatalf("Get 失败: %v", err)
	}
	if len(got.Clashes) != 1 || got.Clashes[0].ID != view.Clashes[0].ID {
		t.Errorf("读取时应重新计算出相同冲突: %+v", got.Clashes)
	}
}

func TestWorkingService_Get_NotFound(t *testing.T) {
	svc, _, _ := setupTestWorkingService()

	_, err := svc.Get(context.Background(), "nope")
	if !errors.Is(err, ErrWorkingNotFound) {
		t.Errorf("期望 ErrWorkingNotFound，实际: %v", err)
	}
}

func TestWorkingService_Create_InvalidCustomEntry(t *testing.T) {
	svc, _, cache := setupTestWorkingService()

	_, err := svc.Create(context.Background(), &dto.CreateWorkingRequest{
		Custom: []dto.CustomEntryRequest{{Title: "Bad", DayOfWeek: 9, StartTime: "09:00"}},
	})
	if !errors.Is(err, pkgerrors.ErrValidation) {
		t.Errorf("期望 ErrValidation，实际: %v", err)
	}
	if len(cache.items) != 0 {
		t.Error("无效输入不应写入存储")
	}
}

func TestWorkingService_Create_IgnoresClientCustomID(t *testing.T) {
	svc, _, _ := setupTestWorkingService()

	var entry dto.CustomEntryRequest
	raw := `{"id":"cs101-lec","title":"Gym","day_of_week":6,"start_time":"08:00"}`
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		t.Fatalf("解析请求失败: %v", err)
	}

	view, err := svc.Create(context.Background(), &dto.CreateWorkingRequest{
		Selected: []dto.SelectionItem{{SubjectID: subjCS101}},
		Custom:   []dto.CustomEntryRequest{entry},
	})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if len(view.Working.Custom) != 1 {
		t.Fatalf("期望 1 个自定义条目: %+v", view.Working.Custom)
	}
	customID := view.Working.Custom[0].ID
	if customID == "cs101-lec" {
		t.Fatal("自定义条目不应沿用客户端给出的 ID")
	}
	if _, err := uuid.Parse(customID); err != nil {
		t.Errorf("自定义条目 ID 应为新生成的 UUID: %q", customID)
	}

	view, err = svc.RemoveSlot(context.Background(), view.Working.ID, "cs101-lec")
	if err != nil {
		t.Fatalf("RemoveSlot 失败: %v", err)
	}
	if !view.Working.HasCustom(customID) {
		t.Error("移除课次不应连带移除自定义条目")
	}
}

// ════════════════════════════════════════════════════════════
// 自定义条目
// ════════════════════════════════════════════════════════════

func TestWorkingService_AddAndUpdateCustom(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	ctx := context.Background()
	view := createConflicting(t, svc)
	id := view.Working.ID

	view, err := svc.AddCustom(ctx, id, &dto.CustomEntryRequest{
		Title: "Gym", DayOfWeek: 5, StartTime: "18:00",
	})
	if err != nil {
		t.Fatalf("AddCustom 失败: %v", err)
	}
	if len(view.Working.Custom) != 1 {
		t.Fatalf("期望 1 个自定义条目，实际: %d", len(view.Working.Custom))
	}
	custom := view.Working.Custom[0]
	if custom.ID == "ignored-id" || custom.EndTime != "19:00" {
		t.Errorf("新增条目应生成新 ID 并按默认时长推算结束时间: %+v", custom)
	}

	// 改到与 CS101 实验冲突
	view, err = svc.UpdateCustom(ctx, id, custom.ID, &dto.CustomEntryRequest{
		Title: "Gym", DayOfWeek: 3, StartTime: "16:00", EndTime: "17:30",
	})
	if err != nil {
		t.Fatalf("UpdateCustom 失败: %v", err)
	}
	if len(view.Working.Custom) != 1 || view.Working.Custom[0].ID != custom.ID {
		t.Errorf("UpdateCustom 应原位替换: %+v", view.Working.Custom)
	}
	if len(view.Clashes) != 2 {
		t.Errorf("更新后应出现新的冲突，实际: %d", len(view.Clashes))
	}
	if view.Working.Version != 3 {
		t.Errorf("两次修改后 version 应为 3，实际: %d", view.Working.Version)
	}
}

func TestWorkingService_UpdateCustom_NotFound(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	view := createConflicting(t, svc)

	_, err := svc.UpdateCustom(context.Background(), view.Working.ID, "cs101-lec", &dto.CustomEntryRequest{
		Title: "X", DayOfWeek: 1, StartTime: "09:00",
	})
	if !errors.Is(err, ErrWorkingCustomNotFound) {
		t.Errorf("科目课次不能作为自定义条目更新，期望 ErrWorkingCustomNotFound，实际: %v", err)
	}
}

// ════════════════════════════════════════════════════════════
// RemoveSlot / ApplyResolution
// ════════════════════════════════════════════════════════════

func TestWorkingService_RemoveSlot(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	ctx := context.Background()
	view := createConflicting(t, svc)

	view, err := svc.RemoveSlot(ctx, view.Working.ID, "math201-lec")
	if err != nil {
		t.Fatalf("RemoveSlot 失败: %v", err)
	}
	if len(view.Clashes) != 0 || len(view.ConflictingCodes) != 0 {
		t.Errorf("移除后应无冲突: %+v", view.Clashes)
	}

	if _, err := svc.RemoveSlot(ctx, view.Working.ID, "math201-lec"); !errors.Is(err, ErrWorkingSlotNotFound) {
		t.Errorf("重复移除期望 ErrWorkingSlotNotFound，实际: %v", err)
	}
}

func TestWorkingService_ApplyResolution_RemoveSlot(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	view := createConflicting(t, svc)
	clash := view.Clashes[0]

	view, err := svc.ApplyResolution(context.Background(), view.Working.ID, &dto.ResolveRequest{
		ClashID: clash.ID, Action: "remove_slot", SlotID: clash.SlotA.ID,
	})
	if err != nil {
		t.Fatalf("ApplyResolution 失败: %v", err)
	}
	if view.Working.HasSlot(clash.SlotA.ID) {
		t.Error("被移除的 Slot 不应保留")
	}
	if len(view.Clashes) != 0 {
		t.Errorf("冲突应已解决: %+v", view.Clashes)
	}

	// 移除已放置的一方后，被挡住的 MATH201 讲座补位进入课表
	if len(view.Working.Unplaced) != 0 {
		t.Errorf("不应再有未放置 Slot: %v", slotIDs(view.Working.Unplaced))
	}
	if !containsSlot(view.Working.Scheduled(), "math201-lec") || !containsSlot(view.NonConflicting, "math201-lec") {
		t.Errorf("math201-lec 应进入课表: scheduled=%v", slotIDs(view.Working.Scheduled()))
	}

	got, _ := svc.Get(context.Background(), view.Working.ID)
	if !containsSlot(got.Working.Placed, "math201-lec") {
		t.Error("补位结果应被持久化")
	}
}

func TestWorkingService_RemoveSlot_PlacedSideFreesBlockedSlot(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	view := createConflicting(t, svc)

	view, err := svc.RemoveSlot(context.Background(), view.Working.ID, "cs101-lec")
	if err != nil {
		t.Fatalf("RemoveSlot 失败: %v", err)
	}
	if !containsSlot(view.Working.Placed, "math201-lec") || len(view.Working.Unplaced) != 0 {
		t.Errorf("placed=%v unplaced=%v", slotIDs(view.Working.Placed), slotIDs(view.Working.Unplaced))
	}
}

func containsSlot(slots []timetable.Slot, id string) bool {
	for _, s := range slots {
		if s.ID == id {
			return true
		}
	}
	return false
}

func TestWorkingService_ApplyResolution_Rejections(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	view := createConflicting(t, svc)
	id, clashID := view.Working.ID, view.Clashes[0].ID

	tests := []struct {
		name string
		req  dto.ResolveRequest
		want error
	}{
		{"冲突不存在", dto.ResolveRequest{ClashID: "x:y", Action: "ignore"}, ErrWorkingClashNotFound},
		{"移除非冲突方", dto.ResolveRequest{ClashID: clashID, Action: "remove_slot", SlotID: "cs101-lab"}, ErrWorkingInvalidResolution},
		{"忽略时间冲突", dto.ResolveRequest{ClashID: clashID, Action: "ignore"}, ErrWorkingInvalidResolution},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyResolution(context.Background(), id, &tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("期望 %v，实际: %v", tt.want, err)
			}
		})
	}
}

func TestWorkingService_ApplyResolution_IgnoreVenueClash(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	ctx := context.Background()

	view, err := svc.Create(ctx, &dto.CreateWorkingRequest{
		Selected: []dto.SelectionItem{{SubjectID: subjCS101}},
		Custom: []dto.CustomEntryRequest{
			{Title: "Chess club", DayOfWeek: 1, StartTime: "10:15", EndTime: "11:00", Venue: "c301"},
		},
	})
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if len(view.Clashes) != 1 || view.Clashes[0].Category != timetable.CategoryVenue {
		t.Fatalf("期望 1 个地点冲突: %+v", view.Clashes)
	}

	view, err = svc.ApplyResolution(ctx, view.Working.ID, &dto.ResolveRequest{
		ClashID: view.Clashes[0].ID, Action: "ignore",
	})
	if err != nil {
		t.Fatalf("ApplyResolution 失败: %v", err)
	}
	if len(view.Clashes) != 0 {
		t.Errorf("被忽略的地点冲突不应再出现: %+v", view.Clashes)
	}

	got, _ := svc.Get(ctx, view.Working.ID)
	if len(got.Clashes) != 0 {
		t.Error("忽略状态应被持久化")
	}
}

// ════════════════════════════════════════════════════════════
// UpdateSelection / Reset / Delete / 并发
// ════════════════════════════════════════════════════════════

func TestWorkingService_UpdateSelectionKeepsCustom(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	ctx := context.Background()
	view := createConflicting(t, svc)
	id := view.Working.ID

	if _, err := svc.AddCustom(ctx, id, &dto.CustomEntryRequest{Title: "Gym", DayOfWeek: 6, StartTime: "08:00"}); err != nil {
		t.Fatalf("AddCustom 失败: %v", err)
	}

	view, err := svc.UpdateSelection(ctx, id, &dto.UpdateSelectionRequest{
		Selected: []dto.SelectionItem{{SubjectID: subjMATH201}},
	})
	if err != nil {
		t.Fatalf("UpdateSelection 失败: %v", err)
	}
	if !sameIDs(slotIDs(view.Working.Placed), "math201-lec") || len(view.Working.Unplaced) != 0 {
		t.Errorf("重新生成结果错误: placed=%v unplaced=%v", slotIDs(view.Working.Placed), slotIDs(view.Working.Unplaced))
	}
	if len(view.Working.Custom) != 1 {
		t.Error("自定义条目应保留")
	}
}

func TestWorkingService_Reset(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	view := createConflicting(t, svc)

	view, err := svc.Reset(context.Background(), view.Working.ID)
	if err != nil {
		t.Fatalf("Reset 失败: %v", err)
	}
	if len(view.Slots) != 0 || len(view.Working.Selected) != 0 {
		t.Errorf("Reset 后应为空: %+v", view.Working)
	}
}

func TestWorkingService_Delete(t *testing.T) {
	svc, _, _ := setupTestWorkingService()
	ctx := context.Background()
	view := createConflicting(t, svc)

	if err := svc.Delete(ctx, view.Working.ID); err != nil {
		t.Fatalf("Delete 失败: %v", err)
	}
	if _, err := svc.Get(ctx, view.Working.ID); !errors.Is(err, ErrWorkingNotFound) {
		t.Errorf("删除后期望 ErrWorkingNotFound，实际: %v", err)
	}
	if err := svc.Delete(ctx, view.Working.ID); !errors.Is(err, ErrWorkingNotFound) {
		t.Errorf("重复删除期望 ErrWorkingNotFound，实际: %v", err)
	}
}

func TestWorkingService_ConcurrentWriteIsOptimisticLock(t *testing.T) {
	svc, _, cache := setupTestWorkingService()
	view := createConflicting(t, svc)

	cache.conflict = true
	_, err := svc.RemoveSlot(context.Background(), view.Working.ID, "cs101-lab")
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}
