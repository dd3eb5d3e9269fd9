package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/model"
)

// CatalogEntry 一门科目及其完整的课次与辅导组
type CatalogEntry struct {
	Subject   model.Subject
	Sessions  []model.ClassSession
	Tutorials []model.TutorialGroup
}

// CatalogResult 单门科目的写入结果
type CatalogResult struct {
	SubjectID string
	Code      string
	Created   bool
	// RemovedTutorialIDs 被替换掉的旧辅导组，调用方据此清理缓存
	RemovedTutorialIDs []string
}

// CatalogRepository 科目目录批量写入接口
type CatalogRepository interface {
	// Replace 按科目代码整体替换课次与辅导组：已存在的科目更新基本信息并重建关联，
	// 不存在的科目新建。全部条目在同一事务中写入，任一失败则全部回滚。
	Replace(ctx context.Context, entries []CatalogEntry) ([]CatalogResult, error)
}

type catalogRepo struct {
	db *gorm.DB
}

// NewCatalogRepo 创建 CatalogRepository 实例
func NewCatalogRepo(db *gorm.DB) CatalogRepository {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) Replace(ctx context.Context, entries []CatalogEntry) ([]CatalogResult, error) {
	results := make([]CatalogResult, 0, len(entries))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range entries {
			res, err := replaceEntry(tx, &entries[i])
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func replaceEntry(tx *gorm.DB, e *CatalogEntry) (CatalogResult, error) {
	res := CatalogResult{Code: e.Subject.Code}

	var existing model.Subject
	err := tx.Where("code = ?", e.Subject.Code).First(&existing).Error
	switch {
	case err == nil:
		if err := tx.Model(&existing).Updates(map[string]interface{}{
			"name":         e.Subject.Name,
			"description":  e.Subject.Description,
			"credit_hours": e.Subject.CreditHours,
			"is_active":    true,
			"version":      gorm.Expr("version + 1"),
		}).Error; err != nil {
			return res, err
		}
		if err := tx.Model(&model.TutorialGroup{}).
			Where("subject_id = ?", existing.SubjectID).
			Pluck("tutorial_id", &res.RemovedTutorialIDs).Error; err != nil {
			return res, err
		}
		// 硬删除：目录替换场景无需保留旧课次
		if err := tx.Unscoped().Where("subject_id = ?", existing.SubjectID).
			Delete(&model.ClassSession{}).Error; err != nil {
			return res, err
		}
		if err := tx.Unscoped().Where("subject_id = ?", existing.SubjectID).
			Delete(&model.TutorialGroup{}).Error; err != nil {
			return res, err
		}
		res.SubjectID = existing.SubjectID

	case errors.Is(err, gorm.ErrRecordNotFound):
		subject := e.Subject
		subject.IsActive = true
		if err := tx.Create(&subject).Error; err != nil {
			return res, err
		}
		res.SubjectID = subject.SubjectID
		res.Created = true

	default:
		return res, err
	}

	for i := range e.Sessions {
		e.Sessions[i].SubjectID = res.SubjectID
	}
	for i := range e.Tutorials {
		e.Tutorials[i].SubjectID = res.SubjectID
	}
	if len(e.Sessions) > 0 {
		if err := tx.Create(&e.Sessions).Error; err != nil {
			return res, err
		}
	}
	if len(e.Tutorials) > 0 {
		if err := tx.Create(&e.Tutorials).Error; err != nil {
			return res, err
		}
	}
	return res, nil
}
