package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/config"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/timetable"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmpty          = errors.New("课表中没有可导出的课次")
	ErrExportGenerateFail   = errors.New("生成导出文件失败")
	ErrImportICSParseFailed = errors.New("ICS 文件解析失败")
	ErrImportICSEmpty       = errors.New("ICS 文件中没有可导入的事件")
)

// ExportService 导出 / 导入业务接口
//
// 设计说明：
//   - 导出对象为调用方给出的 Slot 集合，未放置的 Slot 不应传入
//   - ICS 以每周重复事件表示课次，首次日期为学期起始日当周或之后的对应星期
//   - XLSX 为周视图（行 = 时段，列 = 星期）加一张冲突明细表
//   - 导出以字节返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportICS 导出为 iCalendar，返回内容与建议文件名
	ExportICS(ctx context.Context, slots []timetable.Slot) ([]byte, string, error)
	// ExportXLSX 导出为 Excel 周视图
	ExportXLSX(ctx context.Context, slots []timetable.Slot, clashes []timetable.Clash) (*bytes.Buffer, string, error)
	// ImportCustomICS 将 ICS 事件解析为自定义条目
	ImportCustomICS(ctx context.Context, reader io.Reader) ([]timetable.CustomEntry, error)
	// FetchICS 从 http(s) / webcal URL 下载 ICS
	FetchICS(ctx context.Context, rawURL string) (io.ReadCloser, error)
}

type exportService struct {
	calendarName string
	loc          *time.Location
	termStart    time.Time
	logger       *zap.Logger
	now          func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(cfg config.ExportConfig, logger *zap.Logger) ExportService {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("导出时区无效，使用 UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}
	termStart, err := cfg.TermStartDate()
	if err != nil {
		logger.Warn("学期起始日期无效，使用导出当天", zap.String("term_start", cfg.TermStart), zap.Error(err))
		termStart = time.Time{}
	}
	name := strings.TrimSpace(cfg.CalendarName)
	if name == "" {
		name = "Timetable"
	}
	return &exportService{
		calendarName: name,
		loc:          loc,
		termStart:    termStart,
		logger:       logger,
		now:          time.Now,
	}
}

// ════════════════════════════════════════════════════════════
// ExportICS 导出为 iCalendar
// ════════════════════════════════════════════════════════════

func (s *exportService) ExportICS(_ context.Context, slots []timetable.Slot) ([]byte, string, error) {
	if len(slots) == 0 {
		return nil, "", ErrExportEmpty
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Timetable//Weekly Timetable//EN")
	cal.SetXWRCalName(s.calendarName)
	cal.SetXWRTimezone(s.loc.String())

	stamp := s.now().UTC()
	anchor := s.anchorDate()
	for _, slot := range sortSlots(slots) {
		start, end, err := s.firstOccurrence(anchor, slot)
		if err != nil {
			s.logger.Error("计算课次日期失败", zap.String("slot_id", slot.ID), zap.Error(err))
			return nil, "", fmt.Errorf("%w: %v", ErrExportGenerateFail, err)
		}

		event := cal.AddEvent(slot.ID + "@timetable")
		event.SetDtStampTime(stamp)
		s.setEventTime(event, ics.ComponentPropertyDtStart, start)
		s.setEventTime(event, ics.ComponentPropertyDtEnd, end)
		event.AddRrule("FREQ=WEEKLY")
		event.SetSummary(eventSummary(slot))
		if slot.Venue != "" {
			event.SetLocation(slot.Venue)
		}
		if desc := eventDescription(slot); desc != "" {
			event.SetDescription(desc)
		}
		event.SetProperty(ics.ComponentPropertyCategories, slot.Kind.String())
	}

	return []byte(cal.Serialize()), s.calendarName + ".ics", nil
}

// anchorDate 学期起始日（导出时区的零点）；未配置时取导出当天
func (s *exportService) anchorDate() time.Time {
	d := s.termStart
	if d.IsZero() {
		d = s.now().In(s.loc)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, s.loc)
}

// firstOccurrence 返回 anchor 当天或之后第一个与 slot 星期相同的日期上的起止时间
func (s *exportService) firstOccurrence(anchor time.Time, slot timetable.Slot) (time.Time, time.Time, error) {
	startMin, err := timetable.ParseToMinutes(slot.StartTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endMin, err := timetable.ParseToMinutes(slot.EndTime)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	offset := (slot.DayOfWeek - int(anchor.Weekday()) + 7) % 7
	day := anchor.AddDate(0, 0, offset)
	start := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, s.loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), endMin/60, endMin%60, 0, 0, s.loc)
	return start, end, nil
}

// setEventTime UTC 直接写 Z 格式；其他时区写本地时间 + TZID，保证夏令时切换后课次时刻不漂移
func (s *exportService) setEventTime(event *ics.VEvent, prop ics.ComponentProperty, t time.Time) {
	if s.loc == time.UTC {
		event.SetProperty(prop, t.UTC().Format("20060102T150405Z"))
		return
	}
	event.SetProperty(prop, t.Format("20060102T150405"), &ics.KeyValues{
		Key:   string(ics.ParameterTzid),
		Value: []string{s.loc.String()},
	})
}

func eventSummary(slot timetable.Slot) string {
	if slot.IsCustom {
		return slot.Label()
	}
	summary := fmt.Sprintf("%s %s", slot.SubjectCode, kindTitle(slot.Kind))
	if slot.GroupLabel != "" {
		summary += " (" + slot.GroupLabel + ")"
	}
	return summary
}

func eventDescription(slot timetable.Slot) string {
	var parts []string
	if !slot.IsCustom && slot.SubjectName != "" {
		parts = append(parts, slot.SubjectName)
	}
	if slot.Instructor != "" {
		parts = append(parts, "Instructor: "+slot.Instructor)
	}
	return strings.Join(parts, "\n")
}

// ════════════════════════════════════════════════════════════
// ExportXLSX 导出为 Excel 周视图
// ════════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Timetable"：行头为时段（按开始时间排序），列头为 Monday ~ Sunday
//   - 单元格：科目代码 + 类型 + 地点，同一时段多个课次换行并列
//   - Sheet "Clashes"：冲突列表（无冲突时仅表头）

var xlsxDayOrder = []int{1, 2, 3, 4, 5, 6, 0}

var xlsxDayNames = map[int]string{
	0: "Sunday", 1: "Monday", 2: "Tuesday", 3: "Wednesday",
	4: "Thursday", 5: "Friday", 6: "Saturday",
}

func (s *exportService) ExportXLSX(_ context.Context, slots []timetable.Slot, clashes []timetable.Clash) (*bytes.Buffer, string, error) {
	if len(slots) == 0 {
		return nil, "", ErrExportEmpty
	}

	// 1. 收集唯一时段并建立 (时段, 星期) → 单元格文本 索引
	type band struct{ start, end string }
	var bands []band
	bandSeen := make(map[band]bool)
	cells := make(map[string][]string)
	for _, slot := range sortSlots(slots) {
		b := band{slot.StartTime, slot.EndTime}
		if !bandSeen[b] {
			bandSeen[b] = true
			bands = append(bands, b)
		}
		key := fmt.Sprintf("%s-%s:%d", b.start, b.end, slot.DayOfWeek)
		cells[key] = append(cells[key], cellText(slot))
	}
	sort.Slice(bands, func(i, j int) bool {
		if bands[i].start != bands[j].start {
			return bands[i].start < bands[j].start
		}
		return bands[i].end < bands[j].end
	})

	// 2. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Timetable"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, "", s.xlsxFail(err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	bodyStyle, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Vertical: "top", WrapText: true},
	})

	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, colName(1), colName(len(xlsxDayOrder)), 24)

	// 标题行
	f.SetCellValue(sheet, "A1", s.calendarName)
	f.MergeCell(sheet, "A1", cell(colName(len(xlsxDayOrder)), 1))
	f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	// 表头
	f.SetCellValue(sheet, cell("A", 2), "Time")
	for i, day := range xlsxDayOrder {
		f.SetCellValue(sheet, cell(colName(i+1), 2), xlsxDayNames[day])
	}
	f.SetCellStyle(sheet, "A2", cell(colName(len(xlsxDayOrder)), 2), headerStyle)

	// 数据行
	row := 3
	for _, b := range bands {
		f.SetCellValue(sheet, cell("A", row), fmt.Sprintf("%s-%s", b.start, b.end))
		for i, day := range xlsxDayOrder {
			if texts, ok := cells[fmt.Sprintf("%s-%s:%d", b.start, b.end, day)]; ok {
				f.SetCellValue(sheet, cell(colName(i+1), row), strings.Join(texts, "\n"))
			}
		}
		row++
	}
	if row > 3 {
		f.SetCellStyle(sheet, "A3", cell(colName(len(xlsxDayOrder)), row-1), bodyStyle)
	}

	// 3. 冲突明细
	if err := writeClashSheet(f, clashes, headerStyle); err != nil {
		return nil, "", s.xlsxFail(err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, "", s.xlsxFail(err)
	}
	return buf, s.calendarName + ".xlsx", nil
}

func writeClashSheet(f *excelize.File, clashes []timetable.Clash, headerStyle int) error {
	sheet := "Clashes"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	headers := []string{"Clash", "Category", "Severity", "Overlap (min)", "Message"}
	for i, h := range headers {
		f.SetCellValue(sheet, cell(colName(i), 1), h)
	}
	f.SetCellStyle(sheet, "A1", cell(colName(len(headers)-1), 1), headerStyle)
	f.SetColWidth(sheet, "A", "A", 40)
	f.SetColWidth(sheet, "E", "E", 80)

	for i, c := range clashes {
		row := i + 2
		f.SetCellValue(sheet, cell("A", row), c.ID)
		f.SetCellValue(sheet, cell("B", row), string(c.Category))
		f.SetCellValue(sheet, cell("C", row), string(c.Severity))
		f.SetCellValue(sheet, cell("D", row), c.OverlapMinutes)
		f.SetCellValue(sheet, cell("E", row), c.Message)
	}
	return nil
}

func (s *exportService) xlsxFail(err error) error {
	s.logger.Error("写入 Excel 失败", zap.Error(err))
	return ErrExportGenerateFail
}

func cellText(slot timetable.Slot) string {
	text := eventSummary(slot)
	if slot.Venue != "" {
		text += " @ " + slot.Venue
	}
	return text
}

// ════════════════════════════════════════════════════════════
// ImportCustomICS / FetchICS
// ════════════════════════════════════════════════════════════

func (s *exportService) ImportCustomICS(_ context.Context, reader io.Reader) ([]timetable.CustomEntry, error) {
	entries, err := ParseICS(io.LimitReader(reader, icsMaxFileSize), s.loc)
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrImportICSParseFailed, err)
	}
	if len(entries) == 0 {
		return nil, ErrImportICSEmpty
	}
	return entries, nil
}

func (s *exportService) FetchICS(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	body, err := FetchICSContent(ctx, rawURL)
	if err != nil {
		s.logger.Warn("获取远程 ICS 失败", zap.String("url", rawURL), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrImportICSParseFailed, err)
	}
	return body, nil
}

// ── 辅助函数 ──

// sortSlots 按 星期 → 开始时间 → ID 排序的副本，保证导出内容稳定
func sortSlots(slots []timetable.Slot) []timetable.Slot {
	out := make([]timetable.Slot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DayOfWeek != out[j].DayOfWeek {
			return out[i].DayOfWeek < out[j].DayOfWeek
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func kindTitle(k timetable.Kind) string {
	name := k.String()
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
