package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dom-study/backend/config"
	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/repository"
	"dom-study/backend/internal/scheduling"
)

// ── 排期模块业务错误 ──

var (
	ErrPlanNotFound  = errors.New("学习计划不存在")
	ErrPlanNotActive = errors.New("计划未处于进行中状态")
	ErrInvalidDate   = errors.New("日期格式无效，应为 YYYY-MM-DD")
)

// SchedulingService 排期业务接口
type SchedulingService interface {
	Redistribute(ctx context.Context, planID, callerID string) (*dto.RedistributionResponse, error)
	AvailableCapacity(ctx context.Context, planID, date, callerID string) (*dto.CapacityResponse, error)
	ValidateFixedGoals(ctx context.Context, planID, callerID string) (*dto.FixedCheckResponse, error)
	// RedistributeSystem 系统触发（定时任务 / 运维 CLI），不校验归属
	RedistributeSystem(ctx context.Context, planID, reason string) (*dto.RedistributionResponse, error)
}

type schedulingService struct {
	repo   *repository.Repository
	engine *redistributor
	logger *zap.Logger
}

// NewSchedulingService 创建 SchedulingService 实例
func NewSchedulingService(repo *repository.Repository, engine *redistributor, logger *zap.Logger) SchedulingService {
	return &schedulingService{repo: repo, engine: engine, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Redistribute 用户手动触发重新分配
// ════════════════════════════════════════════════════════════

func (s *schedulingService) Redistribute(ctx context.Context, planID, callerID string) (*dto.RedistributionResponse, error) {
	if _, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID); err != nil {
		return nil, err
	}
	res, err := s.runActive(ctx, planID, "manual")
	// 部分放置失败时，已写入的结果随错误一起返回
	return toRedistributionResponse(planID, res), err
}

func (s *schedulingService) RedistributeSystem(ctx context.Context, planID, reason string) (*dto.RedistributionResponse, error) {
	res, err := s.runActive(ctx, planID, reason)
	return toRedistributionResponse(planID, res), err
}

// runActive 持锁后重新读取计划，预算与可用日以锁内读取为准
func (s *schedulingService) runActive(ctx context.Context, planID, reason string) (*scheduling.Result, error) {
	var res *scheduling.Result
	err := s.engine.withPlanLock(ctx, planID, func() error {
		plan, err := s.engine.loadPlan(ctx, planID)
		if err != nil {
			return err
		}
		if plan.Status != model.PlanStatusActive {
			return ErrPlanNotActive
		}
		res, err = s.engine.run(ctx, plan, reason)
		return err
	})
	return res, err
}

// ════════════════════════════════════════════════════════════
// AvailableCapacity 某天剩余容量
// ════════════════════════════════════════════════════════════

func (s *schedulingService) AvailableCapacity(ctx context.Context, planID, date, callerID string) (*dto.CapacityResponse, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, err
	}
	day, err := parseDate(date)
	if err != nil {
		return nil, err
	}

	claimed, err := s.repo.Goal.SumClaimedMinutes(ctx, planID, day)
	if err != nil {
		s.logger.Error("查询当日占用失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}

	budget := plan.BudgetMinutes()
	return &dto.CapacityResponse{
		Date:             day.Format(dto.DateLayout),
		DayAvailable:     scheduling.IsDayAvailable(day, plan.AvailableDays),
		BudgetMinutes:    budget,
		ClaimedMinutes:   claimed,
		AvailableMinutes: scheduling.Remaining(budget, claimed),
	}, nil
}

// ════════════════════════════════════════════════════════════
// ValidateFixedGoals 固定目标容量提示
// ════════════════════════════════════════════════════════════

func (s *schedulingService) ValidateFixedGoals(ctx context.Context, planID, callerID string) (*dto.FixedCheckResponse, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, err
	}
	overflows, err := s.engine.fixedOverflows(ctx, planID, plan.BudgetMinutes())
	if err != nil {
		return nil, err
	}
	return &dto.FixedCheckResponse{Valid: len(overflows) == 0, Overflows: overflows}, nil
}

// ════════════════════════════════════════════════════════════
// redistributor 所有触发点共用的运行器
// ════════════════════════════════════════════════════════════

type redistributor struct {
	cfg      *config.SchedulerConfig
	repo     *repository.Repository
	locker   PlanLocker
	notifier Notifier
	logger   *zap.Logger
	clock    func() time.Time
}

func newRedistributor(cfg *config.SchedulerConfig, repo *repository.Repository, locker PlanLocker, notifier Notifier, logger *zap.Logger) *redistributor {
	return &redistributor{
		cfg:      cfg,
		repo:     repo,
		locker:   locker,
		notifier: notifier,
		logger:   logger,
		clock:    time.Now,
	}
}

// today 排期时区下的今天
func (r *redistributor) today() time.Time {
	return scheduling.Today(r.clock(), r.cfg.Location())
}

// reviewOffsets 计划未配置时使用全局默认
func (r *redistributor) reviewOffsets(plan *model.StudyPlan) []int {
	if len(plan.ReviewOffsets) > 0 {
		return plan.ReviewOffsets.Ints()
	}
	if len(r.cfg.ReviewOffsets) > 0 {
		return r.cfg.ReviewOffsets
	}
	return scheduling.DefaultReviewOffsets
}

// withPlanLock 持有计划锁执行 fn
func (r *redistributor) withPlanLock(ctx context.Context, planID string, fn func() error) error {
	release, err := r.locker.TryLock(ctx, planID)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// run 执行一次重新分配并写入；调用方必须已持有计划锁
// 放置失败时仍写入失败目标之前的结果，并同时返回结果与错误
func (r *redistributor) run(ctx context.Context, plan *model.StudyPlan, reason string) (*scheduling.Result, error) {
	today := r.today()

	backlog, err := r.repo.Goal.ListBacklog(ctx, plan.PlanID)
	if err != nil {
		r.logger.Error("查询待排目标失败", zap.String("plan_id", plan.PlanID), zap.Error(err))
		return nil, err
	}
	window, err := r.repo.Goal.ListFrom(ctx, plan.PlanID, scheduling.MaxDate(today, plan.StartDate))
	if err != nil {
		r.logger.Error("查询计划目标失败", zap.String("plan_id", plan.PlanID), zap.Error(err))
		return nil, err
	}
	committed := make([]model.Goal, 0, len(window))
	for i := range window {
		if !scheduling.InBacklog(&window[i]) {
			committed = append(committed, window[i])
		}
	}

	res, fatal := scheduling.Distribute(scheduling.Input{
		BudgetMinutes: plan.BudgetMinutes(),
		AvailableDays: plan.AvailableDays,
		StartDate:     plan.StartDate,
		EndDate:       plan.EndDate,
		Today:         today,
		Backlog:       backlog,
		Committed:     committed,
		LookaheadDays: r.cfg.LookaheadDays,
		MaxAttempts:   r.cfg.MaxPlacementAttempts,
	})
	if fatal != nil && !errors.Is(fatal, scheduling.ErrCannotPlace) {
		r.logger.Warn("重新分配失败", zap.String("plan_id", plan.PlanID), zap.Error(fatal))
		return nil, fatal
	}

	if err := r.commit(ctx, res.Changed()); err != nil {
		r.logger.Error("写入排期失败", zap.String("plan_id", plan.PlanID), zap.Error(err))
		return nil, err
	}

	r.logger.Info("重新分配完成",
		zap.String("plan_id", plan.PlanID),
		zap.String("reason", reason),
		zap.Int("goals_placed", res.Report.GoalsPlaced),
		zap.Int("goals_updated", res.Report.GoalsUpdated),
		zap.Int("days_touched", res.Report.DaysTouched),
		zap.Bool("partial", fatal != nil),
	)
	if res.Report.GoalsUpdated > 0 {
		r.notifier.ScheduleChanged(ctx, plan, res.Report, reason)
	}

	return res, fatal
}

// commit 在单个事务中写入所有变化的放置结果
func (r *redistributor) commit(ctx context.Context, changes []scheduling.Placement) error {
	if len(changes) == 0 {
		return nil
	}
	placements := make([]repository.Placement, len(changes))
	for i, p := range changes {
		placements[i] = repository.Placement{GoalID: p.GoalID, Date: p.Date, Order: p.Order}
	}

	return inTx(ctx, r.repo, func(txRepo *repository.Repository) error {
		return txRepo.Goal.ApplyPlacements(ctx, placements)
	})
}

// runIfActive 重新读取计划，处于进行中时执行重新分配，否则跳过；调用方必须已持有计划锁
func (r *redistributor) runIfActive(ctx context.Context, planID, reason string) (*scheduling.Result, error) {
	plan, err := r.loadPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != model.PlanStatusActive {
		return nil, nil
	}
	return r.run(ctx, plan, reason)
}

func (r *redistributor) loadPlan(ctx context.Context, planID string) (*model.StudyPlan, error) {
	plan, err := r.repo.StudyPlan.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		r.logger.Error("查询计划失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}
	return plan, nil
}

func (r *redistributor) fixedOverflows(ctx context.Context, planID string, budget int) ([]dto.FixedOverflow, error) {
	fixed, err := r.repo.Goal.ListFixed(ctx, planID)
	if err != nil {
		r.logger.Error("查询固定目标失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}
	checks := scheduling.FixedGoalOverflows(budget, fixed)
	out := make([]dto.FixedOverflow, 0, len(checks))
	for _, c := range checks {
		out = append(out, dto.FixedOverflow{
			Date:          c.Date.Format(dto.DateLayout),
			FixedMinutes:  c.FixedMinutes,
			BudgetMinutes: c.BudgetMinutes,
			Message:       c.Message,
		})
	}
	return out, nil
}

// ── 内部辅助方法 ──

// loadOwnedPlan 计划不存在或不属于调用者时统一返回 ErrPlanNotFound
func loadOwnedPlan(ctx context.Context, repo *repository.Repository, logger *zap.Logger, planID, callerID string) (*model.StudyPlan, error) {
	plan, err := repo.StudyPlan.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlanNotFound
		}
		logger.Error("查询计划失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}
	if plan.UserID != callerID {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dto.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	return scheduling.DateOf(t), nil
}

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dto.DateLayout)
	return &s
}

func toRedistributionResponse(planID string, res *scheduling.Result) *dto.RedistributionResponse {
	if res == nil {
		return nil
	}
	resp := &dto.RedistributionResponse{
		PlanID:        planID,
		GoalsPlaced:   res.Report.GoalsPlaced,
		GoalsUpdated:  res.Report.GoalsUpdated,
		DaysTouched:   res.Report.DaysTouched,
		FirstDate:     formatDatePtr(res.Report.FirstDate),
		LastDate:      formatDatePtr(res.Report.LastDate),
		BeyondEndDate: res.Report.BeyondEndDate,
	}
	if !res.Anchor.IsZero() {
		resp.Anchor = res.Anchor.Format(dto.DateLayout)
	}
	for _, p := range res.Changed() {
		resp.Changes = append(resp.Changes, dto.PlacementResponse{
			GoalID:        p.GoalID,
			DisplayNumber: p.DisplayNumber,
			FromDate:      p.FromDate.Format(dto.DateLayout),
			FromOrder:     p.FromOrder,
			Date:          p.Date.Format(dto.DateLayout),
			Order:         p.Order,
		})
	}
	return resp
}
