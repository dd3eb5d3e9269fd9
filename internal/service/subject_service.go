package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/repository"
)

// ── 科目模块业务错误 ──

var (
	ErrSubjectNotFound = errors.New("科目不存在")
)

// SubjectService 科目目录查询接口（只读）
type SubjectService interface {
	List(ctx context.Context, req *dto.ListSubjectsRequest) ([]dto.SubjectResponse, int64, error)
	// GetDetail 按 UUID 或科目代码查询，包含课次与辅导组
	GetDetail(ctx context.Context, idOrCode string) (*dto.SubjectDetailResponse, error)
}

type subjectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, logger: logger}
}

// ────────────────────── List ──────────────────────

func (s *subjectService) List(ctx context.Context, req *dto.ListSubjectsRequest) ([]dto.SubjectResponse, int64, error) {
	subjects, total, err := s.repo.Subject.List(ctx, repository.SubjectListParams{
		Keyword:         strings.TrimSpace(req.Keyword),
		IncludeInactive: req.IncludeInactive,
		Offset:          req.GetOffset(),
		Limit:           req.GetPageSize(),
	})
	if err != nil {
		s.logger.Error("查询科目列表失败", zap.Error(err))
		return nil, 0, err
	}

	list := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		list = append(list, dto.ToSubjectResponse(&subjects[i]))
	}
	return list, total, nil
}

// ────────────────────── GetDetail ──────────────────────

func (s *subjectService) GetDetail(ctx context.Context, idOrCode string) (*dto.SubjectDetailResponse, error) {
	id := idOrCode
	if _, err := uuid.Parse(idOrCode); err != nil {
		// 非 UUID 视为科目代码
		subject, err := s.repo.Subject.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(idOrCode)))
		if err != nil {
			return nil, s.wrapLookupErr(err)
		}
		id = subject.SubjectID
	}

	subject, err := s.repo.Subject.GetDetail(ctx, id)
	if err != nil {
		return nil, s.wrapLookupErr(err)
	}
	return dto.ToSubjectDetailResponse(subject), nil
}

func (s *subjectService) wrapLookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrSubjectNotFound
	}
	s.logger.Error("查询科目失败", zap.Error(err))
	return err
}
