package timetable

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	pkgerrors "github.com/danishayman/Timetable-Webapp-sub001/pkg/errors"
)

// Source 课表生成所依赖的数据源
//
// 约定：记录不存在时返回包装了 pkgerrors.ErrLookupFailure 的错误；
// 其他错误视为数据源故障。科目没有课次时返回空切片与 nil。
type Source interface {
	ListSessions(ctx context.Context, subjectID string) ([]SessionRecord, error)
	GetTutorial(ctx context.Context, tutorialID string) (TutorialRecord, error)
	GetSubject(ctx context.Context, subjectID string) (SubjectInfo, error)
}

// DefaultFetchConcurrency 默认并发查询数
const DefaultFetchConcurrency = 4

// Skipped 生成过程中被跳过的选择（或其中的单个课次 / 辅导组）
type Skipped struct {
	SubjectID       string `json:"subject_id"`
	TutorialGroupID string `json:"tutorial_group_id,omitempty"`
	SessionID       string `json:"session_id,omitempty"`
	Reason          string `json:"reason"`
}

// Generation Generate 的结果
type Generation struct {
	Slots   []Slot    `json:"slots"`
	Skipped []Skipped `json:"skipped"`
}

// Placement GenerateWithClashFiltering 的结果
type Placement struct {
	Placed   []Slot    `json:"placed"`
	Unplaced []Slot    `json:"unplaced"`
	Clashes  []Clash   `json:"clashes"`
	Skipped  []Skipped `json:"skipped"`
}

// ── Assembler ─────────────────────────────────────────────
//
// 流程：
//   1. 按选择顺序去重（同一科目只保留第一次选择）
//   2. 并发解析每个科目：元数据 → 课次 → 可选辅导组
//   3. 按选择顺序合并；单个科目失败只记录 Skipped，不影响其他科目
//   4. 仅当全部科目失败且存在数据源故障时返回 ErrAssemblyFailure
// ─────────────────────────────────────────────────────────────

// Assembler 课表组装器
type Assembler struct {
	source      Source
	detector    *Detector
	logger      *zap.Logger
	concurrency int
}

// AssemblerOption 组装器配置项
type AssemblerOption func(*Assembler)

// WithDetector 指定冲突检测策略
func WithDetector(d *Detector) AssemblerOption {
	return func(a *Assembler) {
		if d != nil {
			a.detector = d
		}
	}
}

// WithFetchConcurrency 指定并发查询上限
func WithFetchConcurrency(n int) AssemblerOption {
	return func(a *Assembler) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// NewAssembler 创建 Assembler
func NewAssembler(source Source, logger *zap.Logger, opts ...AssemblerOption) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assembler{
		source:      source,
		detector:    defaultDetector,
		logger:      logger,
		concurrency: DefaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Detector 返回组装器使用的检测器
func (a *Assembler) Detector() *Detector { return a.detector }

type subjectResult struct {
	slots       []Slot
	skipped     []Skipped
	failed      bool
	unreachable bool
}

// Generate 简单模式：为每个选择生成 Slot，不做冲突过滤
func (a *Assembler) Generate(ctx context.Context, selected []SelectedSubject) (*Generation, error) {
	gen := &Generation{Slots: []Slot{}, Skipped: []Skipped{}}

	selections := dedupeSelections(selected)
	if len(selections) == 0 {
		return gen, nil
	}

	results := make([]subjectResult, len(selections))
	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, sel := range selections {
		g.Go(func() error {
			results[i] = a.resolve(ctx, sel)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", pkgerrors.ErrAssemblyFailure, err)
	}

	failed, unreachable := 0, false
	for _, r := range results {
		gen.Slots = append(gen.Slots, r.slots...)
		gen.Skipped = append(gen.Skipped, r.skipped...)
		if r.failed {
			failed++
			unreachable = unreachable || r.unreachable
		}
	}

	if failed == len(selections) && unreachable {
		a.logger.Error("所有科目均无法解析，课表生成失败", zap.Int("selected", len(selections)))
		return nil, fmt.Errorf("%w: data source unavailable for all %d selected subjects",
			pkgerrors.ErrAssemblyFailure, len(selections))
	}

	return gen, nil
}

// GenerateWithClashFiltering 贪心放置：先到先得，已放置的 Slot 不会被回退
func (a *Assembler) GenerateWithClashFiltering(ctx context.Context, selected []SelectedSubject) (*Placement, error) {
	gen, err := a.Generate(ctx, selected)
	if err != nil {
		return nil, err
	}

	placed, unplaced := a.detector.Place(gen.Slots)
	return &Placement{
		Placed:   placed,
		Unplaced: unplaced,
		Clashes:  a.detector.FindAllClashes(concatSlots(placed, unplaced)),
		Skipped:  gen.Skipped,
	}, nil
}

// resolve 解析单个选择
func (a *Assembler) resolve(ctx context.Context, sel SelectedSubject) subjectResult {
	var res subjectResult

	subjectID := strings.TrimSpace(sel.SubjectID)
	if subjectID == "" {
		res.failed = true
		res.skipped = append(res.skipped, a.skip(sel, "", errors.New("empty subject id")))
		return res
	}

	info, err := a.source.GetSubject(ctx, subjectID)
	if err != nil {
		return a.failSubject(sel, err)
	}

	sessions, err := a.source.ListSessions(ctx, subjectID)
	if err != nil {
		return a.failSubject(sel, err)
	}

	for _, rec := range sessions {
		slot, err := FromScheduledSession(rec, subjectID, info.Code, info.Name)
		if err != nil {
			res.skipped = append(res.skipped, a.skip(sel, rec.ID, err))
			continue
		}
		res.slots = append(res.slots, slot)
	}

	if tutorialID := strings.TrimSpace(sel.TutorialGroupID); tutorialID != "" {
		slot, err := a.resolveTutorial(ctx, subjectID, tutorialID, info)
		if err != nil {
			res.skipped = append(res.skipped, a.skip(sel, "", err))
		} else {
			res.slots = append(res.slots, slot)
		}
	}

	return res
}

func (a *Assembler) resolveTutorial(ctx context.Context, subjectID, tutorialID string, info SubjectInfo) (Slot, error) {
	rec, err := a.source.GetTutorial(ctx, tutorialID)
	if err != nil {
		return Slot{}, err
	}
	if rec.SubjectID != "" && rec.SubjectID != subjectID {
		return Slot{}, pkgerrors.LookupFailed("tutorial group", tutorialID,
			fmt.Errorf("belongs to subject %s", rec.SubjectID))
	}
	return FromTutorial(rec, subjectID, info.Code, info.Name)
}

func (a *Assembler) failSubject(sel SelectedSubject, err error) subjectResult {
	return subjectResult{
		skipped:     []Skipped{a.skip(sel, "", err)},
		failed:      true,
		unreachable: !errors.Is(err, pkgerrors.ErrLookupFailure),
	}
}

func (a *Assembler) skip(sel SelectedSubject, sessionID string, err error) Skipped {
	a.logger.Warn("跳过无法解析的选择",
		zap.String("subject_id", sel.SubjectID),
		zap.String("tutorial_group_id", sel.TutorialGroupID),
		zap.String("session_id", sessionID),
		zap.Error(err),
	)
	return Skipped{
		SubjectID:       sel.SubjectID,
		TutorialGroupID: sel.TutorialGroupID,
		SessionID:       sessionID,
		Reason:          err.Error(),
	}
}

// ── 贪心放置 ──

// Place 使用默认策略做贪心放置
func Place(candidates []Slot) (placed, unplaced []Slot) {
	return defaultDetector.Place(candidates)
}

// Place 按候选顺序逐个与已放置集合比较，无冲突则放置，否则进入未放置列表
func (d *Detector) Place(candidates []Slot) (placed, unplaced []Slot) {
	placed = make([]Slot, 0, len(candidates))
	unplaced = make([]Slot, 0)
	for _, c := range candidates {
		if len(d.FindClashesForNewSlot(c, placed)) == 0 {
			placed = append(placed, c)
		} else {
			unplaced = append(unplaced, c)
		}
	}
	return placed, unplaced
}

// MergeCustom 将自定义条目追加到 Slot 列表副本末尾，不做冲突检测
func MergeCustom(slots []Slot, entries []CustomEntry) ([]Slot, error) {
	out := make([]Slot, 0, len(slots)+len(entries))
	out = append(out, slots...)
	for i, e := range entries {
		slot, err := FromCustomEntry(e)
		if err != nil {
			return nil, fmt.Errorf("custom entry %d: %w", i, err)
		}
		out = append(out, slot)
	}
	return out, nil
}

// dedupeSelections 保留每个科目的第一次选择，保持原有顺序
func dedupeSelections(selected []SelectedSubject) []SelectedSubject {
	seen := make(map[string]bool, len(selected))
	out := make([]SelectedSubject, 0, len(selected))
	for _, s := range selected {
		key := strings.TrimSpace(s.SubjectID)
		if key != "" && seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func concatSlots(parts ...[]Slot) []Slot {
	n := 0
	for _, p := range parts {
		n += len(p)
	}
	out := make([]Slot, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
