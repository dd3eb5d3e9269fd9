package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
)

func TestSubjectService_List(t *testing.T) {
	repos := newSeededRepos()
	svc := NewSubjectService(repos.repository(), zap.NewNop())

	list, total, err := svc.List(context.Background(), &dto.ListSubjectsRequest{})
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 2 || len(list) != 2 {
		t.Fatalf("默认应排除停用科目: total=%d len=%d", total, len(list))
	}
	if list[0].Code != "CS101" || list[1].Code != "MATH201" {
		t.Errorf("排序错误: %s, %s", list[0].Code, list[1].Code)
	}

	list, total, _ = svc.List(context.Background(), &dto.ListSubjectsRequest{IncludeInactive: true, Keyword: " old "})
	if total != 1 || list[0].Code != "OLD100" {
		t.Errorf("关键字 + 含停用查询错误: total=%d %+v", total, list)
	}
}

func TestSubjectService_List_Pagination(t *testing.T) {
	repos := newSeededRepos()
	svc := NewSubjectService(repos.repository(), zap.NewNop())

	req := &dto.ListSubjectsRequest{PaginationRequest: dto.PaginationRequest{Page: 2, PageSize: 1}}
	list, total, err := svc.List(context.Background(), req)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 2 || len(list) != 1 || list[0].Code != "MATH201" {
		t.Errorf("第 2 页应为 MATH201: total=%d %+v", total, list)
	}
}

func TestSubjectService_GetDetail_ByIDOrCode(t *testing.T) {
	repos := newSeededRepos()
	svc := NewSubjectService(repos.repository(), zap.NewNop())

	for _, key := range []string{subjCS101, "cs101"} {
		detail, err := svc.GetDetail(context.Background(), key)
		if err != nil {
			t.Fatalf("GetDetail(%s) 失败: %v", key, err)
		}
		if detail.ID != subjCS101 || detail.Code != "CS101" {
			t.Errorf("GetDetail(%s) 返回错误科目: %+v", key, detail.SubjectResponse)
		}
	}
}

func TestSubjectService_GetDetail_NotFound(t *testing.T) {
	repos := newSeededRepos()
	svc := NewSubjectService(repos.repository(), zap.NewNop())

	for _, key := range []string{"99999999-9999-9999-9999-999999999999", "NOPE999"} {
		_, err := svc.GetDetail(context.Background(), key)
		if !errors.Is(err, ErrSubjectNotFound) {
			t.Errorf("GetDetail(%s) 期望 ErrSubjectNotFound，实际: %v", key, err)
		}
	}
}
