package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/internal/dto"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/model"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/repository"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
)

// ── 科目目录导入 ─────────────────────────────────────────────
//
// Excel 第一张表，第一行为表头（列序不限），每行一个课次或辅导组：
//   code | name | credit_hours | kind | group | day | start | end | venue | instructor | capacity
//
// kind=tutorial 的行写入 tutorial_groups（group 必填），其余写入 class_sessions。
// 同一科目任一行校验失败，整门科目跳过；通过校验的科目在一个事务中整体替换。
// ─────────────────────────────────────────────────────────────

const maxCatalogRows = 5000

var (
	ErrCatalogNoData      = errors.New("Excel 文件无数据行（第一行为表头）")
	ErrCatalogTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxCatalogRows)
	ErrCatalogBadHeader   = errors.New("Excel 表头缺少必要列（code/name/kind/day/start/end）")
)

// CatalogRow Excel 中的一行原始数据
type CatalogRow struct {
	Row         int
	Code        string
	Name        string
	CreditHours string
	Kind        string
	Group       string
	Day         string
	Start       string
	End         string
	Venue       string
	Instructor  string
	Capacity    string
}

// CacheInvalidator 目录变更后清理查询缓存，*redis.Client 满足该接口
type CacheInvalidator interface {
	Delete(ctx context.Context, keys ...string) (int64, error)
}

// CatalogService 科目目录导入接口
type CatalogService interface {
	ParseCatalogFile(reader io.Reader) ([]CatalogRow, error)
	// ImportCatalog dryRun 为 true 时只校验不写库
	ImportCatalog(ctx context.Context, rows []CatalogRow, dryRun bool) (*dto.ImportCatalogResponse, error)
}

type catalogService struct {
	repo   *repository.Repository
	cache  CacheInvalidator
	logger *zap.Logger
}

// NewCatalogService 创建 CatalogService 实例；cache 可为 nil
func NewCatalogService(repo *repository.Repository, cache CacheInvalidator, logger *zap.Logger) CatalogService {
	return &catalogService{repo: repo, cache: cache, logger: logger}
}

// ────────────────────── ParseCatalogFile ──────────────────────

func (s *catalogService) ParseCatalogFile(reader io.Reader) ([]CatalogRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析 Excel 文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}
	if len(excelRows) < 2 {
		return nil, ErrCatalogNoData
	}

	col := parseCatalogHeader(excelRows[0])
	for _, required := range []string{"code", "name", "kind", "day", "start", "end"} {
		if col[required] < 0 {
			return nil, ErrCatalogBadHeader
		}
	}

	var rows []CatalogRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		get := func(name string) string {
			idx := col[name]
			if idx < 0 || idx >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[idx])
		}

		item := CatalogRow{
			Row:         i + 1,
			Code:        get("code"),
			Name:        get("name"),
			CreditHours: get("credit_hours"),
			Kind:        get("kind"),
			Group:       get("group"),
			Day:         get("day"),
			Start:       get("start"),
			End:         get("end"),
			Venue:       get("venue"),
			Instructor:  get("instructor"),
			Capacity:    get("capacity"),
		}

		// 跳过全空行
		if item.Code == "" && item.Kind == "" && item.Day == "" && item.Start == "" {
			continue
		}
		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrCatalogNoData
	}
	if len(rows) > maxCatalogRows {
		return nil, ErrCatalogTooManyRows
	}
	return rows, nil
}

// parseCatalogHeader 解析表头，返回列名 -> 列索引映射（缺失为 -1）
func parseCatalogHeader(header []string) map[string]int {
	aliases := map[string][]string{
		"code":         {"code", "subject_code", "科目代码"},
		"name":         {"name", "subject_name", "科目名称"},
		"credit_hours": {"credit_hours", "credits", "学分"},
		"kind":         {"kind", "type", "类型"},
		"group":        {"group", "group_label", "组别"},
		"day":          {"day", "day_of_week", "星期"},
		"start":        {"start", "start_time", "开始时间"},
		"end":          {"end", "end_time", "结束时间"},
		"venue":        {"venue", "room", "地点"},
		"instructor":   {"instructor", "lecturer", "教师"},
		"capacity":     {"capacity", "容量"},
	}

	idx := make(map[string]int, len(aliases))
	for key := range aliases {
		idx[key] = -1
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		for key, names := range aliases {
			for _, n := range names {
				if lower == n && idx[key] < 0 {
					idx[key] = i
				}
			}
		}
	}
	return idx
}

// ────────────────────── ImportCatalog ──────────────────────

func (s *catalogService) ImportCatalog(ctx context.Context, rows []CatalogRow, dryRun bool) (*dto.ImportCatalogResponse, error) {
	resp := &dto.ImportCatalogResponse{TotalRows: len(rows), DryRun: dryRun}

	// 第一阶段：按科目代码分组并逐行校验（不接触数据库）
	entries := s.buildEntries(rows, resp)
	for _, e := range entries {
		resp.Sessions += len(e.Sessions)
		resp.Tutorials += len(e.Tutorials)
	}
	if dryRun || len(entries) == 0 {
		return resp, nil
	}

	// 第二阶段：单事务写入
	results, err := s.repo.Catalog.Replace(ctx, entries)
	if err != nil {
		s.logger.Error("科目目录写入失败，事务回滚", zap.Int("subjects", len(entries)), zap.Error(err))
		return nil, fmt.Errorf("写入数据库失败，已回滚全部导入: %w", err)
	}

	var staleKeys []string
	for _, r := range results {
		if r.Created {
			resp.SubjectsCreated++
		} else {
			resp.SubjectsUpdated++
		}
		staleKeys = append(staleKeys, cacheKeySubject+r.SubjectID, cacheKeySessions+r.SubjectID)
		for _, tid := range r.RemovedTutorialIDs {
			staleKeys = append(staleKeys, cacheKeyTutorial+tid)
		}
	}
	s.invalidate(ctx, staleKeys)

	s.logger.Info("科目目录导入完成",
		zap.Int("created", resp.SubjectsCreated),
		zap.Int("updated", resp.SubjectsUpdated),
		zap.Int("sessions", resp.Sessions),
		zap.Int("tutorials", resp.Tutorials),
		zap.Int("failed_rows", resp.Failed),
	)
	return resp, nil
}

// buildEntries 将行数据转换为 CatalogEntry；失败行记入 resp，含失败行的科目整体丢弃
func (s *catalogService) buildEntries(rows []CatalogRow, resp *dto.ImportCatalogResponse) []repository.CatalogEntry {
	var order []string
	grouped := make(map[string]*repository.CatalogEntry)
	rejected := make(map[string]bool)
	labels := make(map[string]map[string]bool)

	fail := func(row CatalogRow, code, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportRowError{Row: row.Row, Code: code, Reason: reason})
		if code != "" {
			rejected[code] = true
		}
	}

	for _, row := range rows {
		code := strings.ToUpper(row.Code)
		if code == "" {
			fail(row, "", "科目代码为空")
			continue
		}

		e, ok := grouped[code]
		if !ok {
			e = &repository.CatalogEntry{Subject: model.Subject{Code: code}}
			grouped[code] = e
			labels[code] = make(map[string]bool)
			order = append(order, code)
		}
		if e.Subject.Name == "" && row.Name != "" {
			e.Subject.Name = row.Name
		}
		if row.CreditHours != "" {
			credits, err := strconv.Atoi(row.CreditHours)
			if err != nil || credits < 0 {
				fail(row, code, fmt.Sprintf("学分无效: %s", row.CreditHours))
				continue
			}
			e.Subject.CreditHours = credits
		}

		kind, err := timetable.ParseKind(row.Kind)
		if err != nil || kind == timetable.KindCustom {
			fail(row, code, fmt.Sprintf("课次类型无效: %s", row.Kind))
			continue
		}
		day, ok := parseCatalogDay(row.Day)
		if !ok {
			fail(row, code, fmt.Sprintf("星期无效: %s", row.Day))
			continue
		}
		start, end := normalizeClock(row.Start), normalizeClock(row.End)
		probe := timetable.Slot{DayOfWeek: day, StartTime: start, EndTime: end}
		if err := probe.Validate(); err != nil {
			fail(row, code, err.Error())
			continue
		}

		if kind == timetable.KindTutorial {
			label := strings.ToUpper(row.Group)
			if label == "" {
				fail(row, code, "辅导组缺少组别")
				continue
			}
			if labels[code][label] {
				fail(row, code, fmt.Sprintf("辅导组重复: %s", label))
				continue
			}
			capacity := 0
			if row.Capacity != "" {
				if capacity, err = strconv.Atoi(row.Capacity); err != nil || capacity < 0 {
					fail(row, code, fmt.Sprintf("容量无效: %s", row.Capacity))
					continue
				}
			}
			labels[code][label] = true
			e.Tutorials = append(e.Tutorials, model.TutorialGroup{
				GroupLabel: label,
				DayOfWeek:  day,
				StartTime:  start,
				EndTime:    end,
				Venue:      row.Venue,
				Instructor: row.Instructor,
				Capacity:   capacity,
			})
			continue
		}

		e.Sessions = append(e.Sessions, model.ClassSession{
			Kind:       kind.String(),
			DayOfWeek:  day,
			StartTime:  start,
			EndTime:    end,
			Venue:      row.Venue,
			Instructor: row.Instructor,
			SortOrder:  len(e.Sessions),
		})
	}

	entries := make([]repository.CatalogEntry, 0, len(order))
	for _, code := range order {
		e := grouped[code]
		if rejected[code] {
			continue
		}
		if e.Subject.Name == "" {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportRowError{Code: code, Reason: "科目名称为空"})
			continue
		}
		entries = append(entries, *e)
	}
	return entries
}

func (s *catalogService) invalidate(ctx context.Context, keys []string) {
	if s.cache == nil || len(keys) == 0 {
		return
	}
	if _, err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("清理科目缓存失败，旧数据将在过期后失效", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

var catalogDays = map[string]int{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tues": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thur": 4, "thurs": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// parseCatalogDay 接受 0-6（0=周日）或英文星期名 / 缩写
func parseCatalogDay(v string) (int, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	if d, err := strconv.Atoi(v); err == nil {
		return d, d >= 0 && d <= 6
	}
	d, ok := catalogDays[v]
	return d, ok
}

// normalizeClock 将 Excel 常见的 "9:00" 补齐为 "09:00"，其余原样返回交给校验
func normalizeClock(v string) string {
	v = strings.TrimSpace(v)
	if len(v) == 4 && v[1] == ':' {
		return "0" + v
	}
	return v
}
