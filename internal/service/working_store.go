package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/redis"
)

// ── 工作课表存储 ────────────────────────────────────────────
//
// Save 的乐观锁约定（两种实现一致）：
//   - Version == 0 表示新建，键已存在时返回 ErrOptimisticLock
//   - 否则存储中的 Version 必须与 w.Version 相同，写入后两者同时加一
//   - 已过期 / 已删除的工作课表返回 timetable.ErrWorkingNotFound
// ─────────────────────────────────────────────────────────────

// WorkingCache Redis 工作课表存储所需能力，*redis.Client 满足该接口
type WorkingCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	UpdateJSON(ctx context.Context, key string, ttl time.Duration, fn func(current []byte, exists bool) (any, error)) error
	Delete(ctx context.Context, keys ...string) (int64, error)
}

const workingKeyPrefix = "timetable:working:"

type redisWorkingStore struct {
	cache WorkingCache
	ttl   time.Duration
}

// NewRedisWorkingStore 创建基于 Redis 的工作课表存储，每次保存都会刷新 TTL
func NewRedisWorkingStore(cache WorkingCache, ttl time.Duration) timetable.Store {
	return &redisWorkingStore{cache: cache, ttl: ttl}
}

func (s *redisWorkingStore) Load(ctx context.Context, id string) (*timetable.Working, error) {
	var w timetable.Working
	if err := s.cache.GetJSON(ctx, workingKeyPrefix+id, &w); err != nil {
		if errors.Is(err, redis.ErrCacheMiss) {
			return nil, timetable.ErrWorkingNotFound
		}
		return nil, err
	}
	return &w, nil
}

func (s *redisWorkingStore) Save(ctx context.Context, w *timetable.Working) error {
	now := time.Now()
	err := s.cache.UpdateJSON(ctx, workingKeyPrefix+w.ID, s.ttl, func(current []byte, exists bool) (any, error) {
		if err := checkStoredVersion(current, exists, w.Version); err != nil {
			return nil, err
		}
		next := *w
		next.Version = w.Version + 1
		next.UpdatedAt = now
		return next, nil
	})
	if errors.Is(err, redis.ErrConcurrentUpdate) {
		return pkgerrors.ErrOptimisticLock
	}
	if err != nil {
		return err
	}
	w.Version++
	w.UpdatedAt = now
	return nil
}

func (s *redisWorkingStore) Delete(ctx context.Context, id string) error {
	n, err := s.cache.Delete(ctx, workingKeyPrefix+id)
	if err != nil {
		return err
	}
	if n == 0 {
		return timetable.ErrWorkingNotFound
	}
	return nil
}

func checkStoredVersion(current []byte, exists bool, expected int) error {
	if !exists {
		if expected != 0 {
			return timetable.ErrWorkingNotFound
		}
		return nil
	}
	if expected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	var stored struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(current, &stored); err != nil {
		return err
	}
	if stored.Version != expected {
		return pkgerrors.ErrOptimisticLock
	}
	return nil
}

// ── 内存存储（Redis 不可用时降级使用，进程重启即丢失）──
//
// 与 Redis 存储一致：每次保存刷新 TTL，过期条目读取时视为不存在。
// 条目数达到上限时，新建会先清理过期条目，仍不足则淘汰最早到期的一条。

const defaultMemoryStoreMax = 10000

type memoryEntry struct {
	raw     []byte
	expires time.Time // 零值表示不过期
}

type memoryWorkingStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	max   int
	now   func() time.Time
}

// NewMemoryWorkingStore 创建进程内工作课表存储；ttl<=0 不过期，maxEntries<=0 使用默认上限
func NewMemoryWorkingStore(ttl time.Duration, maxEntries int) timetable.Store {
	if maxEntries <= 0 {
		maxEntries = defaultMemoryStoreMax
	}
	return &memoryWorkingStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		max:   maxEntries,
		now:   time.Now,
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// lookup 取出未过期条目，顺带删除已过期的；调用方需持有锁
func (s *memoryWorkingStore) lookup(id string) ([]byte, bool) {
	e, ok := s.items[id]
	if !ok {
		return nil, false
	}
	if e.expired(s.now()) {
		delete(s.items, id)
		return nil, false
	}
	return e.raw, true
}

// makeRoom 为新条目腾出空间；调用方需持有锁
func (s *memoryWorkingStore) makeRoom() {
	if len(s.items) < s.max {
		return
	}
	now := s.now()
	for id, e := range s.items {
		if e.expired(now) {
			delete(s.items, id)
		}
	}
	for len(s.items) >= s.max {
		var oldestID string
		var oldest time.Time
		for id, e := range s.items {
			if oldestID == "" || e.expires.Before(oldest) {
				oldestID, oldest = id, e.expires
			}
		}
		delete(s.items, oldestID)
	}
}

func (s *memoryWorkingStore) Load(_ context.Context, id string) (*timetable.Working, error) {
	s.mu.Lock()
	raw, ok := s.lookup(id)
	s.mu.Unlock()
	if !ok {
		return nil, timetable.ErrWorkingNotFound
	}
	var w timetable.Working
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *memoryWorkingStore) Save(_ context.Context, w *timetable.Working) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.lookup(w.ID)
	if err := checkStoredVersion(current, exists, w.Version); err != nil {
		return err
	}

	now := s.now()
	next := *w
	next.Version = w.Version + 1
	next.UpdatedAt = now
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}

	if !exists {
		s.makeRoom()
	}
	entry := memoryEntry{raw: raw}
	if s.ttl > 0 {
		entry.expires = now.Add(s.ttl)
	}
	s.items[w.ID] = entry
	w.Version = next.Version
	w.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *memoryWorkingStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(id); !ok {
		return timetable.ErrWorkingNotFound
	}
	delete(s.items, id)
	return nil
}
