package scheduling

import (
	"fmt"
	"sort"
	"time"

	"dom-study/backend/internal/model"
)

// ── 复习周期 ──
//
// STUDY 目标完成后，按复习偏移为每个偏移生成一个 REVIEW 子目标，
// 日期 = 父目标排期日（缺失时为完成日）+ 偏移天数。
// 复习目标不参与容量校验，也不进入重新分配队列。

// DefaultReviewOffsets 计划未配置时使用的复习偏移
var DefaultReviewOffsets = []int{1, 7, 30}

// NormalizeOffsets 去重、去掉非正数并升序
func NormalizeOffsets(offsets []int) []int {
	seen := make(map[int]struct{}, len(offsets))
	out := make([]int, 0, len(offsets))
	for _, d := range offsets {
		if d <= 0 {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// ReviewBaseDate 复习的基准日期；两者都缺失时返回零值
func ReviewBaseDate(parent *model.Goal, loc *time.Location) time.Time {
	if !parent.ScheduledDate.IsZero() {
		return DateOf(parent.ScheduledDate)
	}
	if parent.CompletedAt != nil {
		return Today(*parent.CompletedAt, loc)
	}
	return time.Time{}
}

// ReviewOptions 生成复习目标的参数
type ReviewOptions struct {
	Offsets         []int
	DurationMinutes int
	// FirstSuffix 第一个复习目标使用的编号后缀，其余依次 +1
	FirstSuffix int
	Base        time.Time
}

// BuildReviewGoals 按偏移生成复习目标；ScheduledOrder 由调用方按当天最大序号填写
func BuildReviewGoals(parent *model.Goal, opts ReviewOptions) []model.Goal {
	offsets := NormalizeOffsets(opts.Offsets)
	goals := make([]model.Goal, 0, len(offsets))
	suffix := opts.FirstSuffix
	if suffix <= 0 {
		suffix = 1
	}

	for _, offset := range offsets {
		s := suffix
		days := offset
		parentID := parent.GoalID
		goals = append(goals, model.Goal{
			PlanID:                 parent.PlanID,
			NumberBase:             parent.NumberBase,
			NumberSuffix:           &s,
			DisplayNumber:          FormatDisplayNumber(parent.NumberBase, &s),
			OrderKey:               MakeOrderKey(parent.NumberBase, &s),
			Type:                   model.GoalTypeReview,
			SubjectID:              parent.SubjectID,
			TopicID:                parent.TopicID,
			SubtopicID:             parent.SubtopicID,
			Title:                  fmt.Sprintf("复习 D+%d：%s", offset, parent.Title),
			DurationPlannedMinutes: opts.DurationMinutes,
			ScheduledDate:          AddDays(opts.Base, offset),
			Status:                 model.GoalStatusPending,
			AutoGenerated:          true,
			ParentGoalID:           &parentID,
			DaysAfterStudy:         &days,
		})
		suffix++
	}
	return goals
}

// ReviewMove 复习目标的日期调整
type ReviewMove struct {
	GoalID string    `json:"goal_id"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// ReallocateReviews 父目标改期后重新计算复习日期 newDate + daysAfterStudy
// 已完成或缺少偏移的复习目标保持不变
func ReallocateReviews(children []model.Goal, newDate time.Time) []ReviewMove {
	var moves []ReviewMove
	for i := range children {
		c := &children[i]
		if c.Type != model.GoalTypeReview || c.IsDone() || c.DaysAfterStudy == nil {
			continue
		}
		to := AddDays(newDate, *c.DaysAfterStudy)
		from := DateOf(c.ScheduledDate)
		if from.Equal(to) {
			continue
		}
		moves = append(moves, ReviewMove{GoalID: c.GoalID, From: from, To: to})
	}
	return moves
}
