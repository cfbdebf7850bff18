package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"dom-study/backend/config"
	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/scheduling"
	"dom-study/backend/internal/service"
)

// cronParser 标准 5 段 cron 表达式（分 时 日 月 周）
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// OverduePlanLister 查询存在逾期待办目标的活动计划，由 repository.GoalRepository 实现
type OverduePlanLister interface {
	ListOverduePlanIDs(ctx context.Context, before time.Time) ([]string, error)
}

// PlanRedistributor 系统触发的重新分配，由 service.SchedulingService 实现
type PlanRedistributor interface {
	RedistributeSystem(ctx context.Context, planID, reason string) (*dto.RedistributionResponse, error)
}

// Summary 一次滚动运行的统计
type Summary struct {
	Plans   int
	Updated int
	Skipped int
	Failed  int
}

// Rollover 每日把逾期的待办目标重新分配到今天之后
type Rollover struct {
	spec   string
	loc    *time.Location
	plans  OverduePlanLister
	sched  PlanRedistributor
	logger *zap.Logger
	now    func() time.Time
	cron   *cron.Cron
}

// NewRollover 创建滚动任务
func NewRollover(cfg *config.Config, plans OverduePlanLister, sched PlanRedistributor, logger *zap.Logger) *Rollover {
	return &Rollover{
		spec:   cfg.Job.RolloverCron,
		loc:    cfg.Scheduler.Location(),
		plans:  plans,
		sched:  sched,
		logger: logger,
		now:    time.Now,
	}
}

// Start 按 cron 表达式启动任务；上一次未结束时跳过本次触发
func (r *Rollover) Start() error {
	if _, err := cronParser.Parse(r.spec); err != nil {
		return fmt.Errorf("无效的 cron 表达式 %q: %w", r.spec, err)
	}

	r.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(r.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := r.cron.AddFunc(r.spec, func() {
		if _, err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error("滚动排期失败", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("滚动排期任务已启动", zap.String("cron", r.spec), zap.String("timezone", r.loc.String()))
	return nil
}

// Stop 停止调度并等待正在运行的任务结束
func (r *Rollover) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
		r.logger.Warn("等待滚动排期任务结束超时")
	}
}

// RunOnce 对所有存在逾期目标的活动计划执行一次重新分配
// 单个计划失败不影响其余计划
func (r *Rollover) RunOnce(ctx context.Context) (*Summary, error) {
	today := scheduling.Today(r.now(), r.loc)
	ids, err := r.plans.ListOverduePlanIDs(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("查询逾期计划失败: %w", err)
	}

	sum := &Summary{Plans: len(ids)}
	for _, id := range ids {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}

		resp, err := r.sched.RedistributeSystem(ctx, id, "rollover")
		switch {
		case err == nil:
			if resp != nil && resp.GoalsUpdated > 0 {
				sum.Updated++
			}
		case errors.Is(err, service.ErrRedistributionInProgress), errors.Is(err, service.ErrPlanNotActive):
			// 正在被其他请求排期或已暂停，下一次再处理
			sum.Skipped++
			r.logger.Info("跳过计划", zap.String("plan_id", id), zap.Error(err))
		case errors.Is(err, scheduling.ErrCannotPlace), errors.Is(err, scheduling.ErrNoAvailableDay):
			sum.Failed++
			r.logger.Warn("计划无法完成滚动排期", zap.String("plan_id", id), zap.Error(err))
		default:
			sum.Failed++
			r.logger.Error("滚动排期出错", zap.String("plan_id", id), zap.Error(err))
		}
	}

	r.logger.Info("滚动排期完成",
		zap.Time("today", today),
		zap.Int("plans", sum.Plans),
		zap.Int("updated", sum.Updated),
		zap.Int("skipped", sum.Skipped),
		zap.Int("failed", sum.Failed),
	)
	return sum, nil
}
