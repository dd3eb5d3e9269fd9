package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/model"
)

// ClassSessionRepository 课次数据访问接口
type ClassSessionRepository interface {
	BatchCreate(ctx context.Context, sessions []model.ClassSession) error
	// ListBySubject 按 sort_order、星期、开始时间排序，保证生成顺序稳定
	ListBySubject(ctx context.Context, subjectID string) ([]model.ClassSession, error)
}

type classSessionRepo struct {
	db *gorm.DB
}

// NewClassSessionRepo 创建 ClassSessionRepository 实例
func NewClassSessionRepo(db *gorm.DB) ClassSessionRepository {
	return &classSessionRepo{db: db}
}

func (r *classSessionRepo) BatchCreate(ctx context.Context, sessions []model.ClassSession) error {
	if len(sessions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&sessions).Error
}

func (r *classSessionRepo) ListBySubject(ctx context.Context, subjectID string) ([]model.ClassSession, error) {
	var sessions []model.ClassSession
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("sort_order ASC, day_of_week ASC, start_time ASC").
		Find(&sessions).Error
	return sessions, err
}
