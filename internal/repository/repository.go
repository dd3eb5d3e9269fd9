package repository

import "gorm.io/gorm"

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Subject      SubjectRepository
	ClassSession ClassSessionRepository
	Tutorial     TutorialRepository
	Catalog      CatalogRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Subject:      NewSubjectRepo(db),
		ClassSession: NewClassSessionRepo(db),
		Tutorial:     NewTutorialRepo(db),
		Catalog:      NewCatalogRepo(db),
	}
}
