package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/model"
)

// TutorialRepository 辅导组数据访问接口
type TutorialRepository interface {
	Create(ctx context.Context, group *model.TutorialGroup) error
	GetByID(ctx context.Context, id string) (*model.TutorialGroup, error)
	ListBySubject(ctx context.Context, subjectID string) ([]model.TutorialGroup, error)
}

type tutorialRepo struct {
	db *gorm.DB
}

// NewTutorialRepo 创建 TutorialRepository 实例
func NewTutorialRepo(db *gorm.DB) TutorialRepository {
	return &tutorialRepo{db: db}
}

func (r *tutorialRepo) Create(ctx context.Context, group *model.TutorialGroup) error {
	return r.db.WithContext(ctx).Create(group).Error
}

func (r *tutorialRepo) GetByID(ctx context.Context, id string) (*model.TutorialGroup, error) {
	var group model.TutorialGroup
	err := r.db.WithContext(ctx).
		Where("tutorial_id = ?", id).
		First(&group).Error
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *tutorialRepo) ListBySubject(ctx context.Context, subjectID string) ([]model.TutorialGroup, error) {
	var groups []model.TutorialGroup
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("group_label ASC").
		Find(&groups).Error
	return groups, err
}
