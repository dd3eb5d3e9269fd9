package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// RepositorySource
// ════════════════════════════════════════════════════════════

func TestRepositorySource_GetSubject(t *testing.T) {
	src := NewRepositorySource(newSeededRepos().repository())

	info, err := src.GetSubject(context.Background(), subjCS101)
	if err != nil {
		t.Fatalf("GetSubject 失败: %v", err)
	}
	if info.Code != "CS101" || info.Name != "Intro to Programming" {
		t.Errorf("科目信息错误: %+v", info)
	}
}

func TestRepositorySource_NotFoundIsLookupFailure(t *testing.T) {
	src := NewRepositorySource(newSeededRepos().repository())

	_, err := src.GetSubject(context.Background(), "missing")
	if !errors.Is(err, pkgerrors.ErrLookupFailure) {
		t.Errorf("期望 ErrLookupFailure，实际: %v", err)
	}

	_, err = src.GetTutorial(context.Background(), "missing")
	if !errors.Is(err, pkgerrors.ErrLookupFailure) {
		t.Errorf("辅导组不存在期望 ErrLookupFailure，实际: %v", err)
	}
}

func TestRepositorySource_InactiveSubjectIsLookupFailure(t *testing.T) {
	src := NewRepositorySource(newSeededRepos().repository())

	_, err := src.GetSubject(context.Background(), subjOLD100)
	if !errors.Is(err, pkgerrors.ErrLookupFailure) {
		t.Errorf("已停用科目期望 ErrLookupFailure，实际: %v", err)
	}
}

func TestRepositorySource_DatabaseErrorIsNotLookupFailure(t *testing.T) {
	repos := newSeededRepos()
	repos.subject.getErr = errors.New("connection refused")
	src := NewRepositorySource(repos.repository())

	_, err := src.GetSubject(context.Background(), subjCS101)
	if err == nil {
		t.Fatal("期望返回错误")
	}
	if errors.Is(err, pkgerrors.ErrLookupFailure) {
		t.Error("数据库故障不应归类为 ErrLookupFailure")
	}
}

func TestRepositorySource_TutorialRecord(t *testing.T) {
	src := NewRepositorySource(newSeededRepos().repository())

	rec, err := src.GetTutorial(context.Background(), tutCS101T1)
	if err != nil {
		t.Fatalf("GetTutorial 失败: %v", err)
	}
	if rec.SubjectID != subjCS101 || rec.GroupLabel != "T1" || rec.Kind != "tutorial" {
		t.Errorf("辅导组记录错误: %+v", rec)
	}
	if rec.DayOfWeek != 2 || rec.StartTime != "10:00" {
		t.Errorf("辅导组时间错误: %+v", rec)
	}
}

// ════════════════════════════════════════════════════════════
// CachedSource
// ════════════════════════════════════════════════════════════

func TestCachedSource_SecondReadHitsCache(t *testing.T) {
	repos := newSeededRepos()
	cache := newFakeCache()
	src := NewCachedSource(NewRepositorySource(repos.repository()), cache, 0, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := src.GetSubject(ctx, subjCS101); err != nil {
			t.Fatalf("GetSubject 失败: %v", err)
		}
		sessions, err := src.ListSessions(ctx, subjCS101)
		if err != nil {
			t.Fatalf("ListSessions 失败: %v", err)
		}
		if len(sessions) != 2 {
			t.Fatalf("期望 2 个课次，实际: %d", len(sessions))
		}
	}

	if repos.subject.getCalls != 1 {
		t.Errorf("科目应只回源 1 次，实际: %d", repos.subject.getCalls)
	}
	if repos.session.listCalls != 1 {
		t.Errorf("课次应只回源 1 次，实际: %d", repos.session.listCalls)
	}
}

func TestCachedSource_FailuresAreNotCached(t *testing.T) {
	repos := newSeededRepos()
	cache := newFakeCache()
	src := NewCachedSource(NewRepositorySource(repos.repository()), cache, 0, zap.NewNop())

	if _, err := src.GetSubject(context.Background(), "missing"); err == nil {
		t.Fatal("期望返回错误")
	}
	if cache.sets != 0 {
		t.Errorf("查询失败不应写入缓存，写入次数: %d", cache.sets)
	}
}

func TestCachedSource_CacheErrorsFallBackToInner(t *testing.T) {
	repos := newSeededRepos()
	cache := newFakeCache()
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	src := NewCachedSource(NewRepositorySource(repos.repository()), cache, 0, zap.NewNop())

	info, err := src.GetSubject(context.Background(), subjMATH201)
	if err != nil {
		t.Fatalf("缓存故障不应影响查询: %v", err)
	}
	if info.Code != "MATH201" {
		t.Errorf("期望 MATH201，实际: %s", info.Code)
	}
}

func TestCachedSource_DrivesAssembler(t *testing.T) {
	repos := newSeededRepos()
	src := NewCachedSource(NewRepositorySource(repos.repository()), newFakeCache(), 0, zap.NewNop())
	a := timetable.NewAssembler(src, zap.NewNop())

	gen, err := a.Generate(context.Background(), []timetable.SelectedSubject{
		{SubjectID: subjCS101, TutorialGroupID: tutCS101T1},
	})
	if err != nil {
		t.Fatalf("Generate 失败: %v", err)
	}
	if len(gen.Slots) != 3 {
		t.Fatalf("期望 3 个 Slot（2 课次 + 1 辅导），实际: %d", len(gen.Slots))
	}
	if gen.Slots[2].Kind != timetable.KindTutorial || gen.Slots[2].GroupLabel != "T1" {
		t.Errorf("辅导 Slot 错误: %+v", gen.Slots[2])
	}
}
