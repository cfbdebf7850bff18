package scheduling

import (
	"testing"
	"time"

	"dom-study/backend/internal/model"
)

func TestBuildReviewGoals(t *testing.T) {
	completed := time.Date(2025, 2, 1, 21, 30, 0, 0, time.UTC)
	parent := &model.Goal{
		GoalID:        "study-1",
		PlanID:        "plan-1",
		NumberBase:    15,
		Type:          model.GoalTypeStudy,
		Title:         "Direito Constitucional",
		ScheduledDate: day("2025-02-01"),
		Status:        model.GoalStatusDone,
		CompletedAt:   &completed,
	}

	reviews := BuildReviewGoals(parent, ReviewOptions{
		Offsets:         []int{7, 1},
		DurationMinutes: 30,
		FirstSuffix:     1,
		Base:            ReviewBaseDate(parent, time.UTC),
	})
	if len(reviews) != 2 {
		t.Fatalf("期望 2 个复习目标，实际=%d", len(reviews))
	}

	expected := []struct {
		date    string
		display string
		days    int
	}{
		{"2025-02-02", "#015.1", 1},
		{"2025-02-08", "#015.2", 7},
	}
	for i, e := range expected {
		r := reviews[i]
		if !r.ScheduledDate.Equal(day(e.date)) {
			t.Errorf("复习 %d 期望日期 %s，实际=%s", i, e.date, r.ScheduledDate.Format("2006-01-02"))
		}
		if r.DisplayNumber != e.display {
			t.Errorf("复习 %d 期望编号 %s，实际=%s", i, e.display, r.DisplayNumber)
		}
		if r.Type != model.GoalTypeReview || !r.AutoGenerated || r.Status != model.GoalStatusPending {
			t.Errorf("复习 %d 属性错误: %+v", i, r)
		}
		if r.ParentGoalID == nil || *r.ParentGoalID != "study-1" {
			t.Errorf("复习 %d 应指向父目标", i)
		}
		if r.DaysAfterStudy == nil || *r.DaysAfterStudy != e.days {
			t.Errorf("复习 %d 期望偏移 %d", i, e.days)
		}
	}
}

func TestReviewBaseDate_FallsBackToCompletion(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skip("时区数据不可用")
	}
	// UTC 2 月 2 日 01:00 在圣保罗仍是 2 月 1 日
	completed := time.Date(2025, 2, 2, 1, 0, 0, 0, time.UTC)
	parent := &model.Goal{CompletedAt: &completed}

	if got := ReviewBaseDate(parent, loc); !got.Equal(day("2025-02-01")) {
		t.Errorf("期望 2025-02-01，实际=%s", got.Format("2006-01-02"))
	}
}

func TestNormalizeOffsets(t *testing.T) {
	got := NormalizeOffsets([]int{30, 1, 7, 1, 0, -2})
	if len(got) != 3 || got[0] != 1 || got[1] != 7 || got[2] != 30 {
		t.Errorf("期望 [1 7 30]，实际=%v", got)
	}
}

func TestReallocateReviews(t *testing.T) {
	one, seven := 1, 7
	children := []model.Goal{
		{GoalID: "r1", Type: model.GoalTypeReview, DaysAfterStudy: &one, ScheduledDate: day("2025-02-02"), Status: model.GoalStatusPending},
		{GoalID: "r7", Type: model.GoalTypeReview, DaysAfterStudy: &seven, ScheduledDate: day("2025-02-08"), Status: model.GoalStatusDone},
		{GoalID: "cont", Type: model.GoalTypeStudy, ScheduledDate: day("2025-02-03")},
	}

	moves := ReallocateReviews(children, day("2025-02-10"))
	if len(moves) != 1 {
		t.Fatalf("期望只移动 1 个复习目标，实际=%d", len(moves))
	}
	if moves[0].GoalID != "r1" || !moves[0].To.Equal(day("2025-02-11")) {
		t.Errorf("期望 r1 → 2025-02-11，实际=%+v", moves[0])
	}
}
