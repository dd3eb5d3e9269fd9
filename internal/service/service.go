package service

import (
	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/config"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/repository"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Subject   SubjectService
	Timetable TimetableService
	Working   WorkingTimetableService
	Export    ExportService
	Catalog   CatalogService
}

// NewService 创建 Service 聚合
//
// rdb 可为 nil：此时科目查询不走缓存，工作课表退化为进程内存储。
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	detector := timetable.NewDetector(
		timetable.WithSameSubjectExemption(cfg.Timetable.ExemptSameSubjectKind),
		timetable.WithErrorThreshold(cfg.Timetable.ErrorThresholdMinutes),
	)

	source := NewRepositorySource(repo)
	var store timetable.Store
	if rdb != nil {
		source = NewCachedSource(source, rdb, cfg.Redis.CacheTTL, logger)
		store = NewRedisWorkingStore(rdb, cfg.Redis.WorkingTTL)
	} else {
		logger.Warn("Redis 不可用，工作课表仅保存在进程内存中")
		store = NewMemoryWorkingStore(cfg.Redis.WorkingTTL, cfg.Timetable.MemoryStoreMax)
	}

	assembler := timetable.NewAssembler(source, logger,
		timetable.WithDetector(detector),
		timetable.WithFetchConcurrency(cfg.Timetable.FetchConcurrency),
	)

	// 显式传 nil，避免 *redis.Client(nil) 装进接口后判空失效
	var invalidator CacheInvalidator
	if rdb != nil {
		invalidator = rdb
	}

	return &Service{
		Subject:   NewSubjectService(repo, logger),
		Timetable: NewTimetableService(assembler, logger),
		Working:   NewWorkingTimetableService(assembler, store, logger),
		Export:    NewExportService(cfg.Export, logger),
		Catalog:   NewCatalogService(repo, invalidator, logger),
	}
}
