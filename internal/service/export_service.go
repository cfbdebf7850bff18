package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/repository"
	"dom-study/backend/internal/scheduling"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoGoals      = errors.New("该计划暂无可导出的目标")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 排期表导出为 Excel (.xlsx)，日历导出为 iCalendar (.ics)
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 已省略的目标不导出
type ExportService interface {
	// ExportSchedule 导出排期表为 Excel
	ExportSchedule(ctx context.Context, planID, callerID string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出全天事件日历，每个目标一个 VEVENT
	ExportCalendar(ctx context.Context, planID, callerID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	engine *redistributor
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, engine *redistributor, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, engine: engine, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportSchedule 导出排期表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "排期表"：按 日期 + 当天序号 排列的目标明细
//   - Sheet "每日汇总"：每天的计划分钟数与预算
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

var weekdayNames = [7]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"}

func (s *exportService) ExportSchedule(ctx context.Context, planID, callerID string) (*bytes.Buffer, string, error) {
	plan, goals, err := s.loadGoals(ctx, planID, callerID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "排期表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "B", 12)
	f.SetColWidth(sheetName, "C", "E", 10)
	f.SetColWidth(sheetName, "F", "F", 40)
	f.SetColWidth(sheetName, "G", "I", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	headers := []string{"日期", "星期", "序号", "编号", "类型", "标题", "时长(分钟)", "状态", "固定"}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s 排期表", plan.Name))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行
	type dayTotal struct {
		date    time.Time
		minutes int
	}
	var totals []dayTotal
	row = 3
	for i := range goals {
		g := &goals[i]
		fixed := ""
		if g.Fixed {
			fixed = "是"
		}
		values := []interface{}{
			g.ScheduledDate.Format(dto.DateLayout),
			weekdayNames[g.ScheduledDate.Weekday()],
			g.ScheduledOrder,
			g.DisplayNumber,
			string(g.Type),
			g.Title,
			g.DurationPlannedMinutes,
			string(g.Status),
			fixed,
		}
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), row), v)
		}
		row++

		if len(totals) == 0 || !scheduling.SameDay(totals[len(totals)-1].date, g.ScheduledDate) {
			totals = append(totals, dayTotal{date: g.ScheduledDate})
		}
		if scheduling.ClaimsCapacity(g) {
			totals[len(totals)-1].minutes += g.DurationPlannedMinutes
		}
	}

	// 每日汇总
	summary := "每日汇总"
	f.NewSheet(summary)
	f.SetColWidth(summary, "A", "D", 14)
	for i, h := range []string{"日期", "计划分钟", "预算分钟", "剩余分钟"} {
		f.SetCellValue(summary, cell(colName(i), 1), h)
	}
	f.SetCellStyle(summary, "A1", "D1", headerStyle)
	budget := plan.BudgetMinutes()
	for i, t := range totals {
		r := i + 2
		f.SetCellValue(summary, cell("A", r), t.date.Format(dto.DateLayout))
		f.SetCellValue(summary, cell("B", r), t.minutes)
		f.SetCellValue(summary, cell("C", r), budget)
		f.SetCellValue(summary, cell("D", r), budget-t.minutes)
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("排期表_%s.xlsx", plan.Name)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar 导出 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportCalendar(ctx context.Context, planID, callerID string) (*bytes.Buffer, string, error) {
	plan, goals, err := s.loadGoals(ctx, planID, callerID)
	if err != nil {
		return nil, "", err
	}

	now := s.engine.clock().UTC()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//dom-study//planner//PT")
	cal.SetXWRCalName(plan.Name)
	cal.SetXWRTimezone(s.engine.cfg.Location().String())

	for i := range goals {
		g := &goals[i]
		evt := cal.AddEvent(fmt.Sprintf("%s@dom-study", g.GoalID))
		evt.SetDtStampTime(now)
		evt.SetAllDayStartAt(g.ScheduledDate)
		evt.SetAllDayEndAt(scheduling.AddDays(g.ScheduledDate, 1))
		evt.SetSummary(fmt.Sprintf("%s %s", g.DisplayNumber, g.Title))
		desc := fmt.Sprintf("类型: %s\n时长: %d 分钟\n状态: %s", g.Type, g.DurationPlannedMinutes, g.Status)
		if g.Guidance != "" {
			desc += "\n" + g.Guidance
		}
		evt.SetDescription(desc)
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("plan_%s.ics", plan.PlanID)
	return buf, filename, nil
}

// ── 辅助函数 ──

// loadGoals 按 日期 + 当天序号 返回计划中未省略的目标
func (s *exportService) loadGoals(ctx context.Context, planID, callerID string) (*model.StudyPlan, []model.Goal, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, nil, err
	}
	all, _, err := s.repo.Goal.ListByPlan(ctx, planID, repository.GoalFilter{})
	if err != nil {
		s.logger.Error("查询计划目标失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, nil, err
	}
	goals := make([]model.Goal, 0, len(all))
	for _, g := range all {
		if !g.Omitted {
			goals = append(goals, g)
		}
	}
	if len(goals) == 0 {
		return nil, nil, ErrExportNoGoals
	}
	return plan, goals, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
