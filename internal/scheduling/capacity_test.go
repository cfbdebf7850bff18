package scheduling

import (
	"testing"

	"dom-study/backend/internal/model"
)

func TestAvailableCapacity(t *testing.T) {
	goals := []model.Goal{
		{DurationPlannedMinutes: 30, Status: model.GoalStatusPending},
		{DurationPlannedMinutes: 20, Status: model.GoalStatusInProgress},
		{DurationPlannedMinutes: 10, Status: model.GoalStatusDone},
		{DurationPlannedMinutes: 40, Status: model.GoalStatusPending, Omitted: true},
		{DurationPlannedMinutes: 50, Status: model.GoalStatusNeedsMoreTime},
		{DurationPlannedMinutes: 60, Status: model.GoalStatusOmitted},
	}

	if got := AvailableCapacity(120, goals); got != 60 {
		t.Errorf("期望剩余 60，实际=%d", got)
	}
	if got := AvailableCapacity(30, goals); got != 0 {
		t.Errorf("剩余容量应下限为 0，实际=%d", got)
	}
}

func TestValidateFixedGoalsFit(t *testing.T) {
	monday := day("2025-01-06")
	goals := []model.Goal{
		{DurationPlannedMinutes: 90, Fixed: true, ScheduledDate: monday},
		{DurationPlannedMinutes: 60, Fixed: true, Omitted: true, ScheduledDate: monday},
		{DurationPlannedMinutes: 60, ScheduledDate: monday},
	}

	res := ValidateFixedGoalsFit(monday, 120, goals)
	if !res.Valid || res.FixedMinutes != 90 {
		t.Errorf("期望 valid 且固定 90 分钟，实际=%+v", res)
	}

	res = ValidateFixedGoalsFit(monday, 60, goals)
	if res.Valid {
		t.Error("固定目标超出预算应返回 valid=false")
	}
	if res.Message == "" {
		t.Error("期望提示信息")
	}
}

func TestFixedGoalOverflows(t *testing.T) {
	goals := []model.Goal{
		{DurationPlannedMinutes: 90, Fixed: true, ScheduledDate: day("2025-01-08")},
		{DurationPlannedMinutes: 60, Fixed: true, ScheduledDate: day("2025-01-08")},
		{DurationPlannedMinutes: 50, Fixed: true, ScheduledDate: day("2025-01-07")},
		{DurationPlannedMinutes: 200, Fixed: true, ScheduledDate: day("2025-01-06")},
	}

	overflows := FixedGoalOverflows(120, goals)
	if len(overflows) != 2 {
		t.Fatalf("期望 2 个超限日期，实际=%d", len(overflows))
	}
	if !overflows[0].Date.Equal(day("2025-01-06")) || !overflows[1].Date.Equal(day("2025-01-08")) {
		t.Errorf("应按日期升序返回，实际=%v / %v", overflows[0].Date, overflows[1].Date)
	}
}
