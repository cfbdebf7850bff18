package scheduling

import (
	"fmt"
	"sort"
	"time"

	"dom-study/backend/internal/model"
)

// ClaimsCapacity 目标是否占用当天容量
// 未省略且状态为 PENDING / IN_PROGRESS / DONE；NEEDS_MORE_TIME 的时长由续作目标承担
func ClaimsCapacity(g *model.Goal) bool {
	if g.Omitted {
		return false
	}
	switch g.Status {
	case model.GoalStatusPending, model.GoalStatusInProgress, model.GoalStatusDone:
		return true
	}
	return false
}

// ClaimedMinutes 汇总 goals 中占用容量的分钟数；调用方负责按日期过滤
func ClaimedMinutes(goals []model.Goal) int {
	total := 0
	for i := range goals {
		if ClaimsCapacity(&goals[i]) {
			total += goals[i].DurationPlannedMinutes
		}
	}
	return total
}

// AvailableCapacity 当天剩余分钟数，下限为 0
func AvailableCapacity(budgetMinutes int, goalsOnDay []model.Goal) int {
	return Remaining(budgetMinutes, ClaimedMinutes(goalsOnDay))
}

// Remaining 预算减去已占用，下限为 0
func Remaining(budgetMinutes, claimed int) int {
	free := budgetMinutes - claimed
	if free < 0 {
		return 0
	}
	return free
}

// FixedCheck 固定目标容量校验结果（仅提示，不阻断）
type FixedCheck struct {
	Date          time.Time `json:"date"`
	Valid         bool      `json:"valid"`
	FixedMinutes  int       `json:"fixed_minutes"`
	BudgetMinutes int       `json:"budget_minutes"`
	Message       string    `json:"message,omitempty"`
}

// FixedMinutes 汇总固定且未省略目标的分钟数
func FixedMinutes(goals []model.Goal) int {
	total := 0
	for i := range goals {
		if goals[i].Fixed && !goals[i].Omitted {
			total += goals[i].DurationPlannedMinutes
		}
	}
	return total
}

// ValidateFixedGoalsFit 固定目标之和不得超过当天预算
func ValidateFixedGoalsFit(date time.Time, budgetMinutes int, goalsOnDay []model.Goal) FixedCheck {
	return checkFixed(DateOf(date), budgetMinutes, FixedMinutes(goalsOnDay))
}

func checkFixed(date time.Time, budgetMinutes, fixed int) FixedCheck {
	res := FixedCheck{Date: date, Valid: true, FixedMinutes: fixed, BudgetMinutes: budgetMinutes}
	if fixed > budgetMinutes {
		res.Valid = false
		res.Message = fmt.Sprintf("%s 的固定目标共 %d 分钟，超过每日预算 %d 分钟",
			date.Format("2006-01-02"), fixed, budgetMinutes)
	}
	return res
}

// FixedGoalOverflows 按日期分组检查所有固定目标，返回超出预算的日期（升序）
func FixedGoalOverflows(budgetMinutes int, goals []model.Goal) []FixedCheck {
	byDay := make(map[time.Time]int)
	for i := range goals {
		g := &goals[i]
		if g.Fixed && !g.Omitted {
			byDay[DateOf(g.ScheduledDate)] += g.DurationPlannedMinutes
		}
	}

	var out []FixedCheck
	for day, minutes := range byDay {
		if c := checkFixed(day, budgetMinutes, minutes); !c.Valid {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
