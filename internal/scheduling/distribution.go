package scheduling

import (
	"errors"
	"sort"
	"time"

	"dom-study/backend/internal/model"
)

// ════════════════════════════════════════════════════════════
// 重新分配算法
//
// 1. 待排队列：PENDING、未省略、非固定、非复习的目标，按 orderKey 升序
// 2. 起点：max(today, startDate)，再推进到下一个可学习日
// 3. 逐个放置：当天剩余容量 ≥ 时长则放入（当天最大序号 + 1），
//    候选日期不回退；否则推进到下一个可学习日重试，单个目标最多推进 MaxAttempts 次
// 4. 全部计算在内存台账中完成，由调用方一次性写入
//
// 某个目标放置失败时，它之前的目标仍然返回放置结果，
// 它自己及之后的目标保持原位（继续占用原日期的容量与序号）；
// 时长超过每日预算的目标无论如何都放不下，只保留序号，不占容量。
// ════════════════════════════════════════════════════════════

// DefaultMaxAttempts 单个目标最多推进的天数
const DefaultMaxAttempts = 365

// Input 一次重新分配运行的输入
type Input struct {
	BudgetMinutes int
	AvailableDays int
	StartDate     time.Time
	EndDate       *time.Time
	Today         time.Time

	// Backlog 待重新放置的目标
	Backlog []model.Goal
	// Committed 计划中其余目标（固定、进行中、已完成、复习等），只读，用于构建台账
	Committed []model.Goal

	LookaheadDays int
	MaxAttempts   int
}

// Placement 单个目标的新位置
type Placement struct {
	GoalID        string    `json:"goal_id"`
	DisplayNumber string    `json:"display_number"`
	FromDate      time.Time `json:"from_date"`
	FromOrder     int       `json:"from_order"`
	Date          time.Time `json:"date"`
	Order         int       `json:"order"`
	Changed       bool      `json:"changed"`
}

// Report 运行摘要
type Report struct {
	GoalsPlaced   int        `json:"goals_placed"`
	GoalsUpdated  int        `json:"goals_updated"`
	DaysTouched   int        `json:"days_touched"`
	FirstDate     *time.Time `json:"first_date,omitempty"`
	LastDate      *time.Time `json:"last_date,omitempty"`
	BeyondEndDate int        `json:"beyond_end_date"`
}

// Result 运行结果；失败时 Placements 为失败目标之前的部分结果
type Result struct {
	Anchor     time.Time   `json:"anchor"`
	Placements []Placement `json:"placements"`
	Report     Report      `json:"report"`
}

// Changed 只返回位置实际变化的放置结果
func (r *Result) Changed() []Placement {
	out := make([]Placement, 0, len(r.Placements))
	for _, p := range r.Placements {
		if p.Changed {
			out = append(out, p)
		}
	}
	return out
}

// InBacklog 目标是否参与重新分配
func InBacklog(g *model.Goal) bool {
	return g.Status == model.GoalStatusPending &&
		!g.Omitted &&
		!g.Fixed &&
		g.Type != model.GoalTypeReview
}

// SortBacklog 按 orderKey 稳定排序，orderKey 相同按创建时间
func SortBacklog(goals []model.Goal) {
	sort.SliceStable(goals, func(i, j int) bool {
		if goals[i].OrderKey != goals[j].OrderKey {
			return goals[i].OrderKey < goals[j].OrderKey
		}
		return goals[i].CreatedAt.Before(goals[j].CreatedAt)
	})
}

// Distribute 执行一次重新分配
func Distribute(in Input) (*Result, error) {
	if in.LookaheadDays <= 0 {
		in.LookaheadDays = DefaultLookaheadDays
	}
	if in.MaxAttempts <= 0 {
		in.MaxAttempts = DefaultMaxAttempts
	}

	backlog := make([]model.Goal, len(in.Backlog))
	copy(backlog, in.Backlog)
	SortBacklog(backlog)

	anchor, err := NextAvailableDay(MaxDate(in.Today, in.StartDate), in.AvailableDays, in.LookaheadDays)
	if err != nil {
		return &Result{}, err
	}

	// 失败时，失败目标及其后的目标保持原位，需要重新计算前缀以避开它们的原位置。
	// 每次重算只会让失败下标变小，循环必然终止。
	limit := len(backlog)
	var fatal error
	for {
		placements, failed, err := pack(in, anchor, backlog[:limit], backlog[limit:])
		if err == nil {
			res := buildResult(in, anchor, placements)
			return res, fatal
		}
		if !errors.Is(err, ErrCannotPlace) {
			return &Result{Anchor: anchor}, err
		}
		fatal = err
		if failed == 0 {
			return &Result{Anchor: anchor}, fatal
		}
		limit = failed
	}
}

// ledger 每日已占用分钟数与最大序号
type ledger struct {
	used     map[time.Time]int
	maxOrder map[time.Time]int
}

func newLedger(goals ...[]model.Goal) *ledger {
	l := &ledger{used: make(map[time.Time]int), maxOrder: make(map[time.Time]int)}
	for _, set := range goals {
		for i := range set {
			l.add(&set[i])
		}
	}
	return l
}

func (l *ledger) add(g *model.Goal) {
	day := DateOf(g.ScheduledDate)
	if ClaimsCapacity(g) {
		l.used[day] += g.DurationPlannedMinutes
	}
	l.reserveOrder(g)
}

func (l *ledger) reserveOrder(g *model.Goal) {
	day := DateOf(g.ScheduledDate)
	if g.ScheduledOrder > l.maxOrder[day] {
		l.maxOrder[day] = g.ScheduledOrder
	}
}

// pack 放置 goals；stay 中的目标保持原位并计入台账
// 返回失败目标在 goals 中的下标
func pack(in Input, anchor time.Time, goals, stay []model.Goal) ([]Placement, int, error) {
	l := newLedger(in.Committed)
	for i := range stay {
		if stay[i].DurationPlannedMinutes > in.BudgetMinutes {
			l.reserveOrder(&stay[i])
			continue
		}
		l.add(&stay[i])
	}
	candidate := anchor
	placements := make([]Placement, 0, len(goals))

	for i := range goals {
		g := &goals[i]
		attempts := 0
		for Remaining(in.BudgetMinutes, l.used[candidate]) < g.DurationPlannedMinutes {
			attempts++
			if attempts > in.MaxAttempts {
				return nil, i, &PlacementError{
					GoalID:        g.GoalID,
					DisplayNumber: g.DisplayNumber,
					Duration:      g.DurationPlannedMinutes,
					Attempts:      in.MaxAttempts,
				}
			}
			next, err := NextAvailableDay(candidate.AddDate(0, 0, 1), in.AvailableDays, in.LookaheadDays)
			if err != nil {
				return nil, i, err
			}
			candidate = next
		}

		order := l.maxOrder[candidate] + 1
		l.used[candidate] += g.DurationPlannedMinutes
		l.maxOrder[candidate] = order

		from := DateOf(g.ScheduledDate)
		placements = append(placements, Placement{
			GoalID:        g.GoalID,
			DisplayNumber: g.DisplayNumber,
			FromDate:      from,
			FromOrder:     g.ScheduledOrder,
			Date:          candidate,
			Order:         order,
			Changed:       !from.Equal(candidate) || g.ScheduledOrder != order,
		})
	}
	return placements, len(goals), nil
}

func buildResult(in Input, anchor time.Time, placements []Placement) *Result {
	res := &Result{Anchor: anchor, Placements: placements}
	days := make(map[time.Time]struct{})
	for _, p := range placements {
		res.Report.GoalsPlaced++
		if p.Changed {
			res.Report.GoalsUpdated++
		}
		days[p.Date] = struct{}{}
		if res.Report.FirstDate == nil || p.Date.Before(*res.Report.FirstDate) {
			d := p.Date
			res.Report.FirstDate = &d
		}
		if res.Report.LastDate == nil || p.Date.After(*res.Report.LastDate) {
			d := p.Date
			res.Report.LastDate = &d
		}
		if in.EndDate != nil && p.Date.After(DateOf(*in.EndDate)) {
			res.Report.BeyondEndDate++
		}
	}
	res.Report.DaysTouched = len(days)
	return res
}
