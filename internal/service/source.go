package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/repository"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/redis"
)

// ── 数据库数据源 ────────────────────────────────────────────
//
// 将 Repository 适配为 timetable.Source：
//   - gorm.ErrRecordNotFound / 已停用科目 → pkgerrors.ErrLookupFailure
//   - 其他数据库错误原样包装，由 Assembler 视为数据源故障
// ─────────────────────────────────────────────────────────────

type repositorySource struct {
	repo *repository.Repository
}

// NewRepositorySource 创建基于数据库的 Source
func NewRepositorySource(repo *repository.Repository) timetable.Source {
	return &repositorySource{repo: repo}
}

func (s *repositorySource) GetSubject(ctx context.Context, subjectID string) (timetable.SubjectInfo, error) {
	subject, err := s.repo.Subject.GetByID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return timetable.SubjectInfo{}, pkgerrors.LookupFailed("subject", subjectID, nil)
		}
		return timetable.SubjectInfo{}, fmt.Errorf("查询科目失败: %w", err)
	}
	if !subject.IsActive {
		return timetable.SubjectInfo{}, pkgerrors.LookupFailed("subject", subjectID, errors.New("inactive"))
	}
	return timetable.SubjectInfo{Code: subject.Code, Name: subject.Name}, nil
}

func (s *repositorySource) ListSessions(ctx context.Context, subjectID string) ([]timetable.SessionRecord, error) {
	sessions, err := s.repo.ClassSession.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("查询课次失败: %w", err)
	}
	records := make([]timetable.SessionRecord, 0, len(sessions))
	for _, cs := range sessions {
		records = append(records, timetable.SessionRecord{
			ID:         cs.SessionID,
			Kind:       cs.Kind,
			DayOfWeek:  cs.DayOfWeek,
			StartTime:  cs.StartTime,
			EndTime:    cs.EndTime,
			Venue:      cs.Venue,
			Instructor: cs.Instructor,
			Color:      cs.Color,
		})
	}
	return records, nil
}

func (s *repositorySource) GetTutorial(ctx context.Context, tutorialID string) (timetable.TutorialRecord, error) {
	tg, err := s.repo.Tutorial.GetByID(ctx, tutorialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return timetable.TutorialRecord{}, pkgerrors.LookupFailed("tutorial group", tutorialID, nil)
		}
		return timetable.TutorialRecord{}, fmt.Errorf("查询辅导组失败: %w", err)
	}
	return timetable.TutorialRecord{
		SessionRecord: timetable.SessionRecord{
			ID:         tg.TutorialID,
			Kind:       timetable.KindTutorial.String(),
			DayOfWeek:  tg.DayOfWeek,
			StartTime:  tg.StartTime,
			EndTime:    tg.EndTime,
			Venue:      tg.Venue,
			Instructor: tg.Instructor,
		},
		SubjectID:  tg.SubjectID,
		GroupLabel: tg.GroupLabel,
	}, nil
}

// ── Redis 缓存数据源 ────────────────────────────────────────
//
// 以装饰器形式为任意 Source 增加 JSON 缓存：
//   - 仅缓存成功结果，不缓存查询失败
//   - 缓存读写失败只记录 Warn 并回源，Redis 故障不影响课表生成
// ─────────────────────────────────────────────────────────────

// JSONCache Source 缓存所需的最小能力，*redis.Client 满足该接口
type JSONCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

const (
	cacheKeySubject  = "timetable:subject:"
	cacheKeySessions = "timetable:sessions:"
	cacheKeyTutorial = "timetable:tutorial:"
)

type cachedSource struct {
	inner  timetable.Source
	cache  JSONCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedSource 创建带缓存的 Source
func NewCachedSource(inner timetable.Source, cache JSONCache, ttl time.Duration, logger *zap.Logger) timetable.Source {
	return &cachedSource{inner: inner, cache: cache, ttl: ttl, logger: logger}
}

func (s *cachedSource) GetSubject(ctx context.Context, subjectID string) (timetable.SubjectInfo, error) {
	return cachedLoad(ctx, s, cacheKeySubject+subjectID, func() (timetable.SubjectInfo, error) {
		return s.inner.GetSubject(ctx, subjectID)
	})
}

func (s *cachedSource) ListSessions(ctx context.Context, subjectID string) ([]timetable.SessionRecord, error) {
	return cachedLoad(ctx, s, cacheKeySessions+subjectID, func() ([]timetable.SessionRecord, error) {
		return s.inner.ListSessions(ctx, subjectID)
	})
}

func (s *cachedSource) GetTutorial(ctx context.Context, tutorialID string) (timetable.TutorialRecord, error) {
	return cachedLoad(ctx, s, cacheKeyTutorial+tutorialID, func() (timetable.TutorialRecord, error) {
		return s.inner.GetTutorial(ctx, tutorialID)
	})
}

func cachedLoad[T any](ctx context.Context, s *cachedSource, key string, load func() (T, error)) (T, error) {
	var v T
	err := s.cache.GetJSON(ctx, key, &v)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, redis.ErrCacheMiss) {
		s.logger.Warn("读取缓存失败，回源查询", zap.String("key", key), zap.Error(err))
	}

	v, err = load()
	if err != nil {
		return v, err
	}
	if err := s.cache.SetJSON(ctx, key, v, s.ttl); err != nil {
		s.logger.Warn("写入缓存失败", zap.String("key", key), zap.Error(err))
	}
	return v, nil
}
