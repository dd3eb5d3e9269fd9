package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/model"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/repository"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/redis"
)

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	mu       sync.Mutex // Assembler 并发查询
	subjects map[string]*model.Subject
	getErr   error // 非 nil 时所有查询返回该错误
	getCalls int
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if s, ok := m.subjects[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetByCode(_ context.Context, code string) (*model.Subject, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, s := range m.subjects {
		if s.Code == code {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetDetail(ctx context.Context, id string) (*model.Subject, error) {
	return m.GetByID(ctx, id)
}

func (m *mockSubjectRepo) List(_ context.Context, params repository.SubjectListParams) ([]model.Subject, int64, error) {
	if m.getErr != nil {
		return nil, 0, m.getErr
	}
	var matched []model.Subject
	for _, s := range m.subjects {
		if !params.IncludeInactive && !s.IsActive {
			continue
		}
		kw := strings.ToLower(params.Keyword)
		if kw != "" && !strings.Contains(strings.ToLower(s.Code), kw) && !strings.Contains(strings.ToLower(s.Name), kw) {
			continue
		}
		matched = append(matched, *s)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })

	total := int64(len(matched))
	if params.Offset >= len(matched) {
		return []model.Subject{}, total, nil
	}
	end := params.Offset + params.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[params.Offset:end], total, nil
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.Subject) error {
	m.subjects[subject.SubjectID] = subject
	return nil
}

// ── Mock ClassSessionRepository ──

type mockClassSessionRepo struct {
	mu        sync.Mutex
	sessions  map[string][]model.ClassSession
	listErr   error
	listCalls int
}

func newMockClassSessionRepo() *mockClassSessionRepo {
	return &mockClassSessionRepo{sessions: make(map[string][]model.ClassSession)}
}

func (m *mockClassSessionRepo) BatchCreate(_ context.Context, sessions []model.ClassSession) error {
	for _, cs := range sessions {
		m.sessions[cs.SubjectID] = append(m.sessions[cs.SubjectID], cs)
	}
	return nil
}

func (m *mockClassSessionRepo) ListBySubject(_ context.Context, subjectID string) ([]model.ClassSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.sessions[subjectID], nil
}

// ── Mock TutorialRepository ──

type mockTutorialRepo struct {
	groups map[string]*model.TutorialGroup
}

func newMockTutorialRepo() *mockTutorialRepo {
	return &mockTutorialRepo{groups: make(map[string]*model.TutorialGroup)}
}

func (m *mockTutorialRepo) Create(_ context.Context, group *model.TutorialGroup) error {
	m.groups[group.TutorialID] = group
	return nil
}

func (m *mockTutorialRepo) GetByID(_ context.Context, id string) (*model.TutorialGroup, error) {
	if g, ok := m.groups[id]; ok {
		cp := *g
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTutorialRepo) ListBySubject(_ context.Context, subjectID string) ([]model.TutorialGroup, error) {
	var result []model.TutorialGroup
	for _, g := range m.groups {
		if g.SubjectID == subjectID {
			result = append(result, *g)
		}
	}
	return result, nil
}

// ── 测试数据 ──

const (
	subjCS101   = "11111111-1111-1111-1111-111111111111"
	subjMATH201 = "22222222-2222-2222-2222-222222222222"
	subjOLD100  = "33333333-3333-3333-3333-333333333333"
	tutCS101T1  = "44444444-4444-4444-4444-444444444444"
)

type testRepos struct {
	subject  *mockSubjectRepo
	session  *mockClassSessionRepo
	tutorial *mockTutorialRepo
	catalog  *mockCatalogRepo
}

func (r *testRepos) repository() *repository.Repository {
	return &repository.Repository{
		Subject:      r.subject,
		ClassSession: r.session,
		Tutorial:     r.tutorial,
		Catalog:      r.catalog,
	}
}

// newSeededRepos 构造两门有冲突的科目：
//   - CS101：周一 09:00-10:30 讲座（C301），周三 14:00-17:00 实验；辅导组 T1 周二 10:00-11:00
//   - MATH201：周一 10:00-11:00 讲座（D201）
//   - OLD100：已停用
func newSeededRepos() *testRepos {
	r := &testRepos{
		subject:  newMockSubjectRepo(),
		session:  newMockClassSessionRepo(),
		tutorial: newMockTutorialRepo(),
		catalog:  &mockCatalogRepo{},
	}
	ctx := context.Background()
	_ = r.subject.Create(ctx, &model.Subject{SubjectID: subjCS101, Code: "CS101", Name: "Intro to Programming", CreditHours: 4, IsActive: true})
	_ = r.subject.Create(ctx, &model.Subject{SubjectID: subjMATH201, Code: "MATH201", Name: "Linear Algebra", CreditHours: 3, IsActive: true})
	_ = r.subject.Create(ctx, &model.Subject{SubjectID: subjOLD100, Code: "OLD100", Name: "Retired", IsActive: false})

	_ = r.session.BatchCreate(ctx, []model.ClassSession{
		{SessionID: "cs101-lec", SubjectID: subjCS101, Kind: "lecture", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:30", Venue: "C301"},
		{SessionID: "cs101-lab", SubjectID: subjCS101, Kind: "lab", DayOfWeek: 3, StartTime: "14:00", EndTime: "17:00", Venue: "Lab 2"},
		{SessionID: "math201-lec", SubjectID: subjMATH201, Kind: "lecture", DayOfWeek: 1, StartTime: "10:00", EndTime: "11:00", Venue: "D201"},
	})
	_ = r.tutorial.Create(ctx, &model.TutorialGroup{
		TutorialID: tutCS101T1, SubjectID: subjCS101, GroupLabel: "T1",
		DayOfWeek: 2, StartTime: "10:00", EndTime: "11:00", Venue: "C105",
	})
	return r
}

// ── Fake Redis JSON 缓存（满足 JSONCache 与 WorkingCache）──

type fakeCache struct {
	mu       sync.Mutex
	items    map[string][]byte
	getErr   error
	setErr   error
	conflict bool // 为 true 时 UpdateJSON 模拟 WATCH 失败
	sets     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dest any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.items[key]
	if !ok {
		return redis.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.items[key] = raw
	f.sets++
	return nil
}

func (f *fakeCache) UpdateJSON(_ context.Context, key string, _ time.Duration, fn func(current []byte, exists bool) (any, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflict {
		return redis.ErrConcurrentUpdate
	}
	current, exists := f.items[key]
	next, err := fn(current, exists)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(next)
	if err != nil {
		return err
	}
	f.items[key] = raw
	return nil
}

func (f *fakeCache) Delete(_ context.Context, keys ...string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.items[k]; ok {
			delete(f.items, k)
			n++
		}
	}
	return n, nil
}

// ── Mock CatalogRepository ──

type mockCatalogRepo struct {
	calls    int
	entries  []repository.CatalogEntry
	existing map[string]string   // code -> subject_id，命中视为更新
	removed  map[string][]string // subject_id -> 被替换的辅导组
	err      error
}

func (m *mockCatalogRepo) Replace(_ context.Context, entries []repository.CatalogEntry) ([]repository.CatalogResult, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	m.entries = append(m.entries, entries...)
	results := make([]repository.CatalogResult, 0, len(entries))
	for _, e := range entries {
		if id, ok := m.existing[e.Subject.Code]; ok {
			results = append(results, repository.CatalogResult{
				SubjectID: id, Code: e.Subject.Code, RemovedTutorialIDs: m.removed[id],
			})
			continue
		}
		results = append(results, repository.CatalogResult{
			SubjectID: "new-" + strings.ToLower(e.Subject.Code), Code: e.Subject.Code, Created: true,
		})
	}
	return results, nil
}
