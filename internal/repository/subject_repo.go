package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/model"
	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// SubjectListParams 科目列表查询参数
type SubjectListParams struct {
	Keyword         string // 匹配代码或名称
	IncludeInactive bool
	Offset          int
	Limit           int
}

// SubjectRepository 科目数据访问接口
type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	GetByID(ctx context.Context, id string) (*model.Subject, error)
	GetByCode(ctx context.Context, code string) (*model.Subject, error)
	// GetDetail 连同课次与辅导组一并加载
	GetDetail(ctx context.Context, id string) (*model.Subject, error)
	List(ctx context.Context, params SubjectListParams) ([]model.Subject, int64, error)
	// Update 乐观锁更新，版本不匹配时返回 pkgerrors.ErrOptimisticLock
	Update(ctx context.Context, subject *model.Subject) error
}

type subjectRepo struct {
	db *gorm.DB
}

// NewSubjectRepo 创建 SubjectRepository 实例
func NewSubjectRepo(db *gorm.DB) SubjectRepository {
	return &subjectRepo{db: db}
}

func (r *subjectRepo) Create(ctx context.Context, subject *model.Subject) error {
	return r.db.WithContext(ctx).Create(subject).Error
}

func (r *subjectRepo) GetByID(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", id).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetByCode(ctx context.Context, code string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) GetDetail(ctx context.Context, id string) (*model.Subject, error) {
	var subject model.Subject
	err := r.db.WithContext(ctx).
		Preload("Sessions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC, day_of_week ASC, start_time ASC")
		}).
		Preload("Tutorials", func(db *gorm.DB) *gorm.DB {
			return db.Order("group_label ASC")
		}).
		Where("subject_id = ?", id).
		First(&subject).Error
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (r *subjectRepo) List(ctx context.Context, params SubjectListParams) ([]model.Subject, int64, error) {
	var subjects []model.Subject
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Subject{})
	if !params.IncludeInactive {
		db = db.Where("is_active = ?", true)
	}
	if params.Keyword != "" {
		like := "%" + params.Keyword + "%"
		db = db.Where("code ILIKE ? OR name ILIKE ?", like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Offset(params.Offset).Limit(params.Limit).
		Order("code ASC").
		Find(&subjects).Error; err != nil {
		return nil, 0, err
	}

	return subjects, total, nil
}

func (r *subjectRepo) Update(ctx context.Context, subject *model.Subject) error {
	oldVersion := subject.Version
	result := r.db.WithContext(ctx).
		Model(subject).
		Where("subject_id = ? AND version = ?", subject.SubjectID, oldVersion).
		Updates(map[string]interface{}{
			"code":         subject.Code,
			"name":         subject.Name,
			"description":  subject.Description,
			"credit_hours": subject.CreditHours,
			"is_active":    subject.IsActive,
			"version":      oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	subject.Version = oldVersion + 1
	return nil
}
