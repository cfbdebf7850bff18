package job

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"dom-study/backend/config"
	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/scheduling"
	"dom-study/backend/internal/service"
)

type mockOverdue struct {
	ids    []string
	before time.Time
	err    error
}

func (m *mockOverdue) ListOverduePlanIDs(_ context.Context, before time.Time) ([]string, error) {
	m.before = before
	return m.ids, m.err
}

type mockRedistributor struct {
	results map[string]*dto.RedistributionResponse
	errs    map[string]error
	calls   []string
}

func (m *mockRedistributor) RedistributeSystem(_ context.Context, planID, reason string) (*dto.RedistributionResponse, error) {
	m.calls = append(m.calls, planID+":"+reason)
	return m.results[planID], m.errs[planID]
}

func newTestRollover(plans OverduePlanLister, sched PlanRedistributor) *Rollover {
	cfg := &config.Config{
		Scheduler: config.SchedulerConfig{Timezone: "America/Sao_Paulo"},
		Job:       config.JobConfig{RolloverCron: "5 0 * * *"},
	}
	r := NewRollover(cfg, plans, sched, zap.NewNop())
	// 02:30 UTC 在圣保罗仍是前一天
	r.now = func() time.Time { return time.Date(2026, 3, 3, 2, 30, 0, 0, time.UTC) }
	return r
}

func TestRollover_RunOnce(t *testing.T) {
	overdue := &mockOverdue{ids: []string{"p1", "p2", "p3", "p4", "p5"}}
	sched := &mockRedistributor{
		results: map[string]*dto.RedistributionResponse{
			"p1": {PlanID: "p1", GoalsUpdated: 3},
			"p2": {PlanID: "p2"},
		},
		errs: map[string]error{
			"p3": service.ErrRedistributionInProgress,
			"p4": &scheduling.PlacementError{DisplayNumber: "#004"},
			"p5": errors.New("db down"),
		},
	}

	sum, err := newTestRollover(overdue, sched).RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce 失败: %v", err)
	}

	if !overdue.before.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("today 应按计划时区计算，实际 %v", overdue.before)
	}
	if len(sched.calls) != 5 || sched.calls[0] != "p1:rollover" {
		t.Errorf("调用不符: %v", sched.calls)
	}
	want := Summary{Plans: 5, Updated: 1, Skipped: 1, Failed: 2}
	if *sum != want {
		t.Errorf("统计不符: got %+v, want %+v", *sum, want)
	}
}

func TestRollover_RunOnce_ListError(t *testing.T) {
	overdue := &mockOverdue{err: errors.New("db down")}
	if _, err := newTestRollover(overdue, &mockRedistributor{}).RunOnce(context.Background()); err == nil {
		t.Error("查询失败时应返回错误")
	}
}

func TestRollover_Start_InvalidSpec(t *testing.T) {
	r := newTestRollover(&mockOverdue{}, &mockRedistributor{})
	r.spec = "every night"
	if err := r.Start(); err == nil {
		t.Error("无效的 cron 表达式应返回错误")
	}

	r.spec = "5 0 * * *"
	if err := r.Start(); err != nil {
		t.Fatalf("Start 失败: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}
