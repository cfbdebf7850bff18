package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"dom-study/backend/internal/model"
)

// ── 测试辅助 ──

func pendingGoal(id string, base, minutes int, date time.Time) model.Goal {
	return model.Goal{
		GoalID:                 id,
		NumberBase:             base,
		DisplayNumber:          FormatDisplayNumber(base, nil),
		OrderKey:               MakeOrderKey(base, nil),
		Type:                   model.GoalTypeStudy,
		DurationPlannedMinutes: minutes,
		ScheduledDate:          date,
		ScheduledOrder:         1,
		Status:                 model.GoalStatusPending,
	}
}

func placementOf(t *testing.T, res *Result, goalID string) Placement {
	t.Helper()
	for _, p := range res.Placements {
		if p.GoalID == goalID {
			return p
		}
	}
	t.Fatalf("未找到目标 %s 的放置结果", goalID)
	return Placement{}
}

// ════════════════════════════════════════════════════════════
// 端到端场景
// ════════════════════════════════════════════════════════════

func TestDistribute_FillsDayThenRollsForward(t *testing.T) {
	monday := day("2025-01-06")
	in := Input{
		BudgetMinutes: 120,
		AvailableDays: AllDays,
		StartDate:     monday,
		Today:         monday,
		Backlog: []model.Goal{
			pendingGoal("C", 3, 60, monday),
			pendingGoal("A", 1, 60, monday),
			pendingGoal("B", 2, 60, monday),
		},
	}

	res, err := Distribute(in)
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}

	a, b, c := placementOf(t, res, "A"), placementOf(t, res, "B"), placementOf(t, res, "C")
	if !a.Date.Equal(monday) || a.Order != 1 {
		t.Errorf("A 期望周一第 1 位，实际=%s/%d", a.Date.Format("2006-01-02"), a.Order)
	}
	if !b.Date.Equal(monday) || b.Order != 2 {
		t.Errorf("B 期望周一第 2 位，实际=%s/%d", b.Date.Format("2006-01-02"), b.Order)
	}
	if !c.Date.Equal(day("2025-01-07")) || c.Order != 1 {
		t.Errorf("C 期望周二第 1 位，实际=%s/%d", c.Date.Format("2006-01-02"), c.Order)
	}

	if res.Report.GoalsPlaced != 3 || res.Report.DaysTouched != 2 {
		t.Errorf("期望放置 3 个、涉及 2 天，实际=%+v", res.Report)
	}
	if !res.Report.FirstDate.Equal(monday) || !res.Report.LastDate.Equal(day("2025-01-07")) {
		t.Errorf("日期范围错误: %v ~ %v", res.Report.FirstDate, res.Report.LastDate)
	}
}

func TestDistribute_FixedGoalShrinksCapacity(t *testing.T) {
	monday := day("2025-01-06")
	fixed := pendingGoal("A", 1, 90, monday)
	fixed.Fixed = true

	res, err := Distribute(Input{
		BudgetMinutes: 120,
		AvailableDays: AllDays,
		StartDate:     monday,
		Today:         monday,
		Backlog:       []model.Goal{pendingGoal("B", 2, 60, monday)},
		Committed:     []model.Goal{fixed},
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}

	b := placementOf(t, res, "B")
	if !b.Date.Equal(day("2025-01-07")) {
		t.Errorf("B 周一只剩 30 分钟，应顺延到周二，实际=%s", b.Date.Format("2006-01-02"))
	}
	if len(res.Placements) != 1 {
		t.Errorf("固定目标不应出现在放置结果中")
	}
}

func TestDistribute_DoneGoalUntouchedAfterMaskChange(t *testing.T) {
	done := pendingGoal("D", 1, 60, day("2025-01-10"))
	done.Status = model.GoalStatusDone
	done.ScheduledOrder = 1

	today := day("2025-01-08") // 周三
	backlog := []model.Goal{
		pendingGoal("P1", 2, 60, day("2025-01-08")),
		pendingGoal("P2", 3, 60, day("2025-01-09")),
	}
	// 可用日改成只有周五和周六
	mask := MaskFromWeekdays([]time.Weekday{time.Friday, time.Saturday})

	res, err := Distribute(Input{
		BudgetMinutes: 120,
		AvailableDays: mask,
		StartDate:     day("2025-01-01"),
		Today:         today,
		Backlog:       backlog,
		Committed:     []model.Goal{done},
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}

	for _, p := range res.Placements {
		if p.GoalID == "D" {
			t.Fatal("已完成目标不能被重新放置")
		}
	}

	// 周五已被完成目标占用 60 分钟
	p1, p2 := placementOf(t, res, "P1"), placementOf(t, res, "P2")
	if !p1.Date.Equal(day("2025-01-10")) || p1.Order != 2 {
		t.Errorf("P1 期望周五第 2 位，实际=%s/%d", p1.Date.Format("2006-01-02"), p1.Order)
	}
	if !p2.Date.Equal(day("2025-01-11")) {
		t.Errorf("P2 期望周六，实际=%s", p2.Date.Format("2006-01-02"))
	}
	if !p1.Changed || !p2.Changed {
		t.Error("待办目标都应发生移动")
	}
}

func TestDistribute_AnchorUsesLaterOfTodayAndStart(t *testing.T) {
	res, err := Distribute(Input{
		BudgetMinutes: 60,
		AvailableDays: AllDays,
		StartDate:     day("2025-03-01"),
		Today:         day("2025-01-06"),
		Backlog:       []model.Goal{pendingGoal("A", 1, 30, day("2025-01-01"))},
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if !res.Anchor.Equal(day("2025-03-01")) {
		t.Errorf("期望起点为计划开始日，实际=%s", res.Anchor.Format("2006-01-02"))
	}
}

func TestDistribute_NoAvailableDay(t *testing.T) {
	_, err := Distribute(Input{
		BudgetMinutes: 60,
		AvailableDays: 0,
		StartDate:     day("2025-01-06"),
		Today:         day("2025-01-06"),
		Backlog:       []model.Goal{pendingGoal("A", 1, 30, day("2025-01-06"))},
	})
	if !errors.Is(err, ErrNoAvailableDay) {
		t.Errorf("期望 ErrNoAvailableDay，实际=%v", err)
	}
}

func TestDistribute_CannotPlaceKeepsPrefix(t *testing.T) {
	monday := day("2025-01-06")
	big := pendingGoal("B", 2, 500, day("2025-01-20"))
	big.ScheduledOrder = 1

	res, err := Distribute(Input{
		BudgetMinutes: 120,
		AvailableDays: AllDays,
		StartDate:     monday,
		Today:         monday,
		Backlog: []model.Goal{
			pendingGoal("A", 1, 60, day("2025-01-20")),
			big,
			pendingGoal("C", 3, 60, monday),
		},
	})

	var pe *PlacementError
	if !errors.As(err, &pe) || pe.GoalID != "B" {
		t.Fatalf("期望目标 B 的 PlacementError，实际=%v", err)
	}
	if !errors.Is(err, ErrCannotPlace) {
		t.Error("PlacementError 应匹配 ErrCannotPlace")
	}
	if len(res.Placements) != 1 || res.Placements[0].GoalID != "A" {
		t.Fatalf("只应返回 A 的放置结果，实际=%+v", res.Placements)
	}
	if !res.Placements[0].Date.Equal(monday) {
		t.Errorf("A 期望周一，实际=%s", res.Placements[0].Date.Format("2006-01-02"))
	}
}

func TestDistribute_PrefixAvoidsSlotsOfUnplacedGoals(t *testing.T) {
	monday := day("2025-01-06")
	// C 排在 B 之后，放置失败后 C 留在周一第 1 位并占用 60 分钟
	stuck := pendingGoal("C", 3, 60, monday)
	stuck.ScheduledOrder = 1

	res, err := Distribute(Input{
		BudgetMinutes: 90,
		AvailableDays: AllDays,
		StartDate:     monday,
		Today:         monday,
		Backlog: []model.Goal{
			pendingGoal("A", 1, 60, day("2025-02-01")),
			pendingGoal("B", 2, 200, day("2025-02-01")),
			stuck,
		},
	})
	if !errors.Is(err, ErrCannotPlace) {
		t.Fatalf("期望 ErrCannotPlace，实际=%v", err)
	}

	a := placementOf(t, res, "A")
	if a.Date.Equal(monday) {
		t.Error("A 不应挤进 C 仍占用的周一")
	}
	if !a.Date.Equal(day("2025-01-07")) || a.Order != 1 {
		t.Errorf("A 期望周二第 1 位，实际=%s/%d", a.Date.Format("2006-01-02"), a.Order)
	}
}

func TestDistribute_OversizedGoalKeepsOnlyItsOrder(t *testing.T) {
	monday := day("2025-01-06")
	// B 超过每日预算，留在周一第 1 位但不占容量
	oversized := pendingGoal("B", 2, 500, monday)

	res, err := Distribute(Input{
		BudgetMinutes: 120,
		AvailableDays: AllDays,
		StartDate:     monday,
		Today:         monday,
		Backlog: []model.Goal{
			pendingGoal("A", 1, 60, day("2025-02-01")),
			oversized,
		},
	})
	var pe *PlacementError
	if !errors.As(err, &pe) || pe.GoalID != "B" {
		t.Fatalf("期望目标 B 的 PlacementError，实际=%v", err)
	}

	a := placementOf(t, res, "A")
	if !a.Date.Equal(monday) || a.Order != 2 {
		t.Errorf("A 期望周一第 2 位，实际=%s/%d", a.Date.Format("2006-01-02"), a.Order)
	}
}

func TestDistribute_Idempotent(t *testing.T) {
	monday := day("2025-01-06")
	in := Input{
		BudgetMinutes: 120,
		AvailableDays: AllDays,
		StartDate:     monday,
		Today:         monday,
		Backlog: []model.Goal{
			pendingGoal("A", 1, 60, day("2025-02-01")),
			pendingGoal("B", 2, 60, day("2025-02-01")),
			pendingGoal("C", 3, 60, day("2025-02-01")),
		},
	}
	first, err := Distribute(in)
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}

	// 把第一次的结果写回，再跑一次
	for i := range in.Backlog {
		p := placementOf(t, first, in.Backlog[i].GoalID)
		in.Backlog[i].ScheduledDate = p.Date
		in.Backlog[i].ScheduledOrder = p.Order
	}
	second, err := Distribute(in)
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if second.Report.GoalsUpdated != 0 {
		t.Errorf("重复运行不应产生变化，实际更新 %d 个", second.Report.GoalsUpdated)
	}
}

func TestDistribute_BeyondEndDate(t *testing.T) {
	monday := day("2025-01-06")
	end := monday
	res, err := Distribute(Input{
		BudgetMinutes: 60,
		AvailableDays: AllDays,
		StartDate:     monday,
		EndDate:       &end,
		Today:         monday,
		Backlog: []model.Goal{
			pendingGoal("A", 1, 60, monday),
			pendingGoal("B", 2, 60, monday),
		},
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if res.Report.BeyondEndDate != 1 {
		t.Errorf("期望 1 个目标超出结束日期，实际=%d", res.Report.BeyondEndDate)
	}
}

// ════════════════════════════════════════════════════════════
// 性质测试
// ════════════════════════════════════════════════════════════

func TestDistribute_OrderPreservationAndCapacity(t *testing.T) {
	monday := day("2025-01-06")
	mask := MaskFromWeekdays([]time.Weekday{time.Monday, time.Wednesday, time.Thursday, time.Saturday})
	durations := []int{45, 30, 90, 15, 60, 60, 120, 30, 25, 80, 10, 55}

	var backlog []model.Goal
	for i, d := range durations {
		backlog = append(backlog, pendingGoal(fmt.Sprintf("g%02d", i), i+1, d, monday))
	}
	fixed := pendingGoal("fixed", 100, 70, day("2025-01-08"))
	fixed.Fixed = true
	inProgress := pendingGoal("wip", 101, 40, monday)
	inProgress.Status = model.GoalStatusInProgress
	committed := []model.Goal{fixed, inProgress}

	res, err := Distribute(Input{
		BudgetMinutes: 120,
		AvailableDays: mask,
		StartDate:     monday,
		Today:         monday,
		Backlog:       backlog,
		Committed:     committed,
	})
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}

	// 按 (date, order) 遍历应与 orderKey 顺序一致
	placed := append([]Placement(nil), res.Placements...)
	sort.Slice(placed, func(i, j int) bool {
		if !placed[i].Date.Equal(placed[j].Date) {
			return placed[i].Date.Before(placed[j].Date)
		}
		return placed[i].Order < placed[j].Order
	})
	for i, p := range placed {
		if p.GoalID != backlog[i].GoalID {
			t.Fatalf("位置 %d 期望 %s，实际=%s", i, backlog[i].GoalID, p.GoalID)
		}
		if !IsDayAvailable(p.Date, mask) {
			t.Errorf("%s 被放到不可用日 %s", p.GoalID, p.Date.Weekday())
		}
	}

	// 每日占用不超过预算，且同日序号唯一
	used := map[time.Time]int{}
	orders := map[time.Time]map[int]bool{}
	track := func(d time.Time, o, minutes int) {
		used[d] += minutes
		if orders[d] == nil {
			orders[d] = map[int]bool{}
		}
		if orders[d][o] {
			t.Errorf("%s 序号 %d 重复", d.Format("2006-01-02"), o)
		}
		orders[d][o] = true
	}
	for _, g := range committed {
		track(g.ScheduledDate, g.ScheduledOrder, g.DurationPlannedMinutes)
	}
	for _, p := range res.Placements {
		for _, g := range backlog {
			if g.GoalID == p.GoalID {
				track(p.Date, p.Order, g.DurationPlannedMinutes)
			}
		}
	}
	for d, m := range used {
		if m > 120 {
			t.Errorf("%s 占用 %d 分钟，超过预算", d.Format("2006-01-02"), m)
		}
	}
}
