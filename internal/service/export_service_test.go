package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

func setupTestExportService() (ExportService, *testEnv) {
	env := newTestEnv()
	return NewExportService(env.repo, env.engine, zap.NewNop()), env
}

func TestExportService_NoGoals(t *testing.T) {
	svc, env := setupTestExportService()
	plan := env.addPlan(2)

	_, _, err := svc.ExportSchedule(context.Background(), plan.PlanID, testOwner)
	if !errors.Is(err, ErrExportNoGoals) {
		t.Errorf("期望 ErrExportNoGoals，实际: %v", err)
	}
	_, _, err = svc.ExportCalendar(context.Background(), plan.PlanID, "someone-else")
	if !errors.Is(err, ErrPlanNotFound) {
		t.Errorf("期望 ErrPlanNotFound，实际: %v", err)
	}
}

func TestExportService_ExportSchedule(t *testing.T) {
	svc, env := setupTestExportService()
	plan := env.addPlan(2)
	env.addGoal(plan, 1, 60, "2026-03-02", 1)
	env.addGoal(plan, 2, 30, "2026-03-02", 2)
	env.addGoal(plan, 3, 45, "2026-03-03", 1)
	omitted := env.addGoal(plan, 4, 45, "2026-03-03", 2)
	omitted.Omitted = true
	env.goals.put(omitted)

	buf, filename, err := svc.ExportSchedule(context.Background(), plan.PlanID, testOwner)
	if err != nil {
		t.Fatalf("ExportSchedule 失败: %v", err)
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾: %s", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("无法打开导出的 Excel: %v", err)
	}
	defer f.Close()

	rows, _ := f.GetRows("排期表")
	// 标题 + 表头 + 3 个目标（省略的不导出）
	if len(rows) != 5 {
		t.Fatalf("期望 5 行，实际 %d", len(rows))
	}
	if rows[2][3] != "#001" || rows[4][3] != "#003" {
		t.Errorf("目标顺序不符: %v / %v", rows[2], rows[4])
	}

	summary, _ := f.GetRows("每日汇总")
	if len(summary) != 3 || summary[1][1] != "90" || summary[2][3] != "75" {
		t.Errorf("每日汇总不符: %v", summary)
	}
}

func TestExportService_ExportCalendar(t *testing.T) {
	svc, env := setupTestExportService()
	plan := env.addPlan(2)
	g := env.addGoal(plan, 1, 60, "2026-03-02", 1)
	g.Guidance = "Ler arts. 481-532"
	env.goals.put(g)
	env.addGoal(plan, 2, 30, "2026-03-03", 1)

	buf, filename, err := svc.ExportCalendar(context.Background(), plan.PlanID, testOwner)
	if err != nil {
		t.Fatalf("ExportCalendar 失败: %v", err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾: %s", filename)
	}

	cal, err := ics.ParseCalendar(buf)
	if err != nil {
		t.Fatalf("无法解析导出的日历: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("期望 2 个事件，实际 %d", len(events))
	}
	summary := events[0].GetProperty(ics.ComponentPropertySummary)
	if summary == nil || !strings.HasPrefix(summary.Value, "#001") {
		t.Errorf("事件标题应以编号开头: %+v", summary)
	}
	start := events[0].GetProperty(ics.ComponentPropertyDtStart)
	if start == nil || start.Value != "20260302" {
		t.Errorf("期望全天事件 20260302，实际 %+v", start)
	}
}
