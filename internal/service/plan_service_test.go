package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/scheduling"
	pkgerrors "dom-study/backend/pkg/errors"
)

func setupTestPlanService() (PlanService, *testEnv) {
	env := newTestEnv()
	return NewPlanService(env.repo, env.engine, zap.NewNop()), env
}

func ptr[T any](v T) *T { return &v }

// ── Create ──

func TestPlanService_Create(t *testing.T) {
	svc, _ := setupTestPlanService()

	resp, err := svc.Create(context.Background(), &dto.CreatePlanRequest{
		Name:          "OAB 1ª fase",
		DailyHours:    1.5,
		AvailableDays: 0b0111110, // 周一至周五
		StartDate:     "2026-03-02",
	}, testOwner)
	if err != nil {
		t.Fatalf("Create 失败: %v", err)
	}
	if resp.BudgetMinutes != 90 {
		t.Errorf("期望预算 90 分钟，实际 %d", resp.BudgetMinutes)
	}
	if len(resp.Weekdays) != 5 || resp.Weekdays[0] != 1 || resp.Weekdays[4] != 5 {
		t.Errorf("期望周一至周五，实际 %v", resp.Weekdays)
	}
	if len(resp.ReviewOffsets) != 3 {
		t.Errorf("期望使用默认复习周期，实际 %v", resp.ReviewOffsets)
	}
	if resp.Status != string(model.PlanStatusActive) {
		t.Errorf("期望 ACTIVE，实际 %s", resp.Status)
	}
}

func TestPlanService_Create_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     dto.CreatePlanRequest
		wantErr error
	}{
		{"无可学习日", dto.CreatePlanRequest{Name: "x", DailyHours: 1, AvailableDays: 0, StartDate: "2026-03-02"}, scheduling.ErrNoAvailableDay},
		{"掩码越界", dto.CreatePlanRequest{Name: "x", DailyHours: 1, AvailableDays: 128, StartDate: "2026-03-02"}, scheduling.ErrNoAvailableDay},
		{"开始日期无效", dto.CreatePlanRequest{Name: "x", DailyHours: 1, AvailableDays: 127, StartDate: "2026/03/02"}, ErrInvalidDate},
		{"结束早于开始", dto.CreatePlanRequest{Name: "x", DailyHours: 1, AvailableDays: 127, StartDate: "2026-03-02", EndDate: ptr("2026-03-01")}, ErrPlanEndBeforeStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := setupTestPlanService()
			_, err := svc.Create(context.Background(), &tt.req, testOwner)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("期望 %v，实际: %v", tt.wantErr, err)
			}
		})
	}
}

// ── Update ──

func TestPlanService_Update_BudgetTriggersRedistribution(t *testing.T) {
	svc, env := setupTestPlanService()
	plan := env.addPlan(2)
	env.addGoal(plan, 1, 60, "2026-03-02", 1)
	env.addGoal(plan, 2, 60, "2026-03-02", 2)
	g3 := env.addGoal(plan, 3, 60, "2026-03-03", 1)

	resp, err := svc.Update(context.Background(), plan.PlanID, &dto.UpdatePlanRequest{
		DailyHours: ptr(3.0),
		Version:    1,
	}, testOwner)
	if err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	if resp.Redistribution == nil || resp.Redistribution.GoalsUpdated != 1 {
		t.Fatalf("期望重新分配 1 个目标，实际 %+v", resp.Redistribution)
	}
	assertAt(t, env.goal(g3.GoalID), "2026-03-02", 3)
	if resp.Plan.Version != 2 || resp.Plan.BudgetMinutes != 180 {
		t.Errorf("期望 version=2 budget=180，实际 %+v", resp.Plan)
	}
}

func TestPlanService_Update_NameOnlyDoesNotRedistribute(t *testing.T) {
	svc, env := setupTestPlanService()
	plan := env.addPlan(2)
	g1 := env.addGoal(plan, 1, 60, "2026-02-20", 1)

	resp, err := svc.Update(context.Background(), plan.PlanID, &dto.UpdatePlanRequest{Name: ptr("新名称"), Version: 1}, testOwner)
	if err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	if resp.Redistribution != nil {
		t.Errorf("仅改名不应触发重新分配")
	}
	assertAt(t, env.goal(g1.GoalID), "2026-02-20", 1)
}

func TestPlanService_Update_FixedOverflowWarning(t *testing.T) {
	svc, env := setupTestPlanService()
	plan := env.addPlan(3)
	fixed := env.addGoal(plan, 1, 150, "2026-03-05", 1)
	fixed.Fixed = true
	env.goals.put(fixed)

	resp, err := svc.Update(context.Background(), plan.PlanID, &dto.UpdatePlanRequest{DailyHours: ptr(2.0), Version: 1}, testOwner)
	if err != nil {
		t.Fatalf("Update 失败: %v", err)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Date != "2026-03-05" {
		t.Errorf("期望 2026-03-05 的固定目标提示，实际 %+v", resp.Warnings)
	}
	if resp.Plan.BudgetMinutes != 120 {
		t.Errorf("提示不应阻止修改，实际预算 %d", resp.Plan.BudgetMinutes)
	}
}

func TestPlanService_Update_VersionConflict(t *testing.T) {
	svc, env := setupTestPlanService()
	plan := env.addPlan(2)

	_, err := svc.Update(context.Background(), plan.PlanID, &dto.UpdatePlanRequest{DailyHours: ptr(1.0), Version: 7}, testOwner)
	if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}

// ── 生命周期 ──

func TestPlanService_PauseResume(t *testing.T) {
	svc, env := setupTestPlanService()
	plan := env.addPlan(2)
	g1 := env.addGoal(plan, 1, 60, "2026-02-20", 1)

	if _, err := svc.Pause(context.Background(), plan.PlanID, testOwner); err != nil {
		t.Fatalf("Pause 失败: %v", err)
	}
	if _, err := svc.Pause(context.Background(), plan.PlanID, testOwner); !errors.Is(err, ErrPlanStatusInvalid) {
		t.Errorf("重复暂停期望 ErrPlanStatusInvalid，实际: %v", err)
	}

	resp, err := svc.Resume(context.Background(), plan.PlanID, testOwner)
	if err != nil {
		t.Fatalf("Resume 失败: %v", err)
	}
	if resp.Plan.Status != string(model.PlanStatusActive) {
		t.Errorf("期望 ACTIVE，实际 %s", resp.Plan.Status)
	}
	assertAt(t, env.goal(g1.GoalID), "2026-03-02", 1)
}

func TestPlanService_Finish(t *testing.T) {
	svc, env := setupTestPlanService()
	plan := env.addPlan(2)

	resp, err := svc.Finish(context.Background(), plan.PlanID, testOwner)
	if err != nil {
		t.Fatalf("Finish 失败: %v", err)
	}
	if resp.Status != string(model.PlanStatusDone) {
		t.Errorf("期望 DONE，实际 %s", resp.Status)
	}
	_, err = svc.Update(context.Background(), plan.PlanID, &dto.UpdatePlanRequest{Name: ptr("x"), Version: resp.Version}, testOwner)
	if !errors.Is(err, ErrPlanStatusInvalid) {
		t.Errorf("已结束计划期望 ErrPlanStatusInvalid，实际: %v", err)
	}
}

func TestPlanService_List(t *testing.T) {
	svc, env := setupTestPlanService()
	env.addPlan(1)
	env.addPlan(2)
	other := env.addPlan(3)
	env.plans.plans[other.PlanID].UserID = "someone-else"

	items, total, err := svc.List(context.Background(), &dto.PlanListRequest{}, testOwner)
	if err != nil {
		t.Fatalf("List 失败: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Errorf("期望 2 个计划，实际 total=%d len=%d", total, len(items))
	}
}
