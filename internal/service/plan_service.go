package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/repository"
	"dom-study/backend/internal/scheduling"
	pkgerrors "dom-study/backend/pkg/errors"
)

// ── 计划模块业务错误 ──

var (
	ErrPlanEndBeforeStart = errors.New("结束日期不能早于开始日期")
	ErrPlanStatusInvalid  = errors.New("计划当前状态不允许该操作")
)

// PlanService 学习计划业务接口
type PlanService interface {
	Create(ctx context.Context, req *dto.CreatePlanRequest, callerID string) (*dto.PlanResponse, error)
	Get(ctx context.Context, planID, callerID string) (*dto.PlanResponse, error)
	List(ctx context.Context, req *dto.PlanListRequest, callerID string) ([]dto.PlanResponse, int64, error)
	Update(ctx context.Context, planID string, req *dto.UpdatePlanRequest, callerID string) (*dto.UpdatePlanResponse, error)
	Pause(ctx context.Context, planID, callerID string) (*dto.PlanResponse, error)
	Resume(ctx context.Context, planID, callerID string) (*dto.UpdatePlanResponse, error)
	Finish(ctx context.Context, planID, callerID string) (*dto.PlanResponse, error)
}

type planService struct {
	repo   *repository.Repository
	engine *redistributor
	logger *zap.Logger
}

// NewPlanService 创建 PlanService 实例
func NewPlanService(repo *repository.Repository, engine *redistributor, logger *zap.Logger) PlanService {
	return &planService{repo: repo, engine: engine, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create
// ════════════════════════════════════════════════════════════

func (s *planService) Create(ctx context.Context, req *dto.CreatePlanRequest, callerID string) (*dto.PlanResponse, error) {
	if err := scheduling.ValidateMask(req.AvailableDays); err != nil {
		return nil, err
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return nil, err
	}
	var end *time.Time
	if req.EndDate != nil && *req.EndDate != "" {
		e, err := parseDate(*req.EndDate)
		if err != nil {
			return nil, err
		}
		if e.Before(start) {
			return nil, ErrPlanEndBeforeStart
		}
		end = &e
	}

	plan := &model.StudyPlan{
		UserID:        callerID,
		Name:          req.Name,
		DailyHours:    req.DailyHours,
		AvailableDays: req.AvailableDays,
		StartDate:     start,
		EndDate:       end,
		Status:        model.PlanStatusActive,
	}
	if offsets := scheduling.NormalizeOffsets(req.ReviewOffsets); len(offsets) > 0 {
		plan.ReviewOffsets = model.IntArray(offsets)
	}
	plan.CreatedBy = &callerID

	if err := s.repo.StudyPlan.Create(ctx, plan); err != nil {
		s.logger.Error("创建计划失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("计划已创建", zap.String("plan_id", plan.PlanID), zap.String("user_id", callerID))
	return s.toPlanResponse(plan), nil
}

// ════════════════════════════════════════════════════════════
// Get / List
// ════════════════════════════════════════════════════════════

func (s *planService) Get(ctx context.Context, planID, callerID string) (*dto.PlanResponse, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, err
	}
	return s.toPlanResponse(plan), nil
}

func (s *planService) List(ctx context.Context, req *dto.PlanListRequest, callerID string) ([]dto.PlanResponse, int64, error) {
	plans, total, err := s.repo.StudyPlan.ListByUser(ctx, callerID, model.PlanStatus(req.Status), req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询计划列表失败", zap.String("user_id", callerID), zap.Error(err))
		return nil, 0, err
	}
	items := make([]dto.PlanResponse, 0, len(plans))
	for i := range plans {
		items = append(items, *s.toPlanResponse(&plans[i]))
	}
	return items, total, nil
}

// ════════════════════════════════════════════════════════════
// Update 每日时长 / 可用日变化触发全量重新分配
// ════════════════════════════════════════════════════════════

func (s *planService) Update(ctx context.Context, planID string, req *dto.UpdatePlanRequest, callerID string) (*dto.UpdatePlanResponse, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusDone {
		return nil, ErrPlanStatusInvalid
	}
	if plan.Version != req.Version {
		return nil, pkgerrors.ErrOptimisticLock
	}

	capacityChanged := false
	if req.Name != nil {
		plan.Name = *req.Name
	}
	if req.DailyHours != nil && *req.DailyHours != plan.DailyHours {
		plan.DailyHours = *req.DailyHours
		capacityChanged = true
	}
	if req.AvailableDays != nil && *req.AvailableDays != plan.AvailableDays {
		if err := scheduling.ValidateMask(*req.AvailableDays); err != nil {
			return nil, err
		}
		plan.AvailableDays = *req.AvailableDays
		capacityChanged = true
	}
	if req.ClearEndDate {
		plan.EndDate = nil
	} else if req.EndDate != nil {
		end, err := parseDate(*req.EndDate)
		if err != nil {
			return nil, err
		}
		if end.Before(scheduling.DateOf(plan.StartDate)) {
			return nil, ErrPlanEndBeforeStart
		}
		plan.EndDate = &end
	}
	if req.ReviewOffsets != nil {
		plan.ReviewOffsets = model.IntArray(scheduling.NormalizeOffsets(req.ReviewOffsets))
	}
	plan.UpdatedBy = &callerID

	resp := &dto.UpdatePlanResponse{}
	err = s.engine.withPlanLock(ctx, planID, func() error {
		// 固定目标超出新预算只做提示，不阻断修改
		warnings, err := s.engine.fixedOverflows(ctx, planID, plan.BudgetMinutes())
		if err != nil {
			return err
		}
		resp.Warnings = warnings

		if err := s.repo.StudyPlan.Update(ctx, plan); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("更新计划失败", zap.String("plan_id", planID), zap.Error(err))
			}
			return err
		}

		if capacityChanged {
			res, err := s.engine.runIfActive(ctx, planID, "plan_updated")
			resp.Redistribution = toRedistributionResponse(planID, res)
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp.Plan = *s.toPlanResponse(plan)
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// 生命周期：Pause / Resume / Finish
// ════════════════════════════════════════════════════════════

func (s *planService) Pause(ctx context.Context, planID, callerID string) (*dto.PlanResponse, error) {
	plan, err := s.transition(ctx, planID, callerID, model.PlanStatusActive, model.PlanStatusPaused)
	if err != nil {
		return nil, err
	}
	return s.toPlanResponse(plan), nil
}

// Resume 恢复后立即重新分配，把暂停期间过期的目标排到今天之后
func (s *planService) Resume(ctx context.Context, planID, callerID string) (*dto.UpdatePlanResponse, error) {
	resp := &dto.UpdatePlanResponse{}
	err := s.engine.withPlanLock(ctx, planID, func() error {
		plan, err := s.transition(ctx, planID, callerID, model.PlanStatusPaused, model.PlanStatusActive)
		if err != nil {
			return err
		}
		resp.Plan = *s.toPlanResponse(plan)
		res, err := s.engine.run(ctx, plan, "plan_resumed")
		resp.Redistribution = toRedistributionResponse(planID, res)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Finish 软删除：计划状态置为 DONE，目标保留
func (s *planService) Finish(ctx context.Context, planID, callerID string) (*dto.PlanResponse, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusDone {
		return nil, ErrPlanStatusInvalid
	}
	plan.UpdatedBy = &callerID
	if err := s.repo.StudyPlan.UpdateStatus(ctx, plan, model.PlanStatusDone); err != nil {
		s.logger.Error("结束计划失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}
	return s.toPlanResponse(plan), nil
}

func (s *planService) transition(ctx context.Context, planID, callerID string, from, to model.PlanStatus) (*model.StudyPlan, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, err
	}
	if plan.Status != from {
		return nil, ErrPlanStatusInvalid
	}
	plan.UpdatedBy = &callerID
	if err := s.repo.StudyPlan.UpdateStatus(ctx, plan, to); err != nil {
		s.logger.Error("更新计划状态失败", zap.String("plan_id", planID), zap.String("to", string(to)), zap.Error(err))
		return nil, err
	}
	return plan, nil
}

// ── 内部辅助方法 ──

func (s *planService) toPlanResponse(plan *model.StudyPlan) *dto.PlanResponse {
	weekdays := scheduling.WeekdaysFromMask(plan.AvailableDays)
	days := make([]int, len(weekdays))
	for i, d := range weekdays {
		days[i] = int(d)
	}
	return &dto.PlanResponse{
		ID:            plan.PlanID,
		Name:          plan.Name,
		DailyHours:    plan.DailyHours,
		BudgetMinutes: plan.BudgetMinutes(),
		AvailableDays: plan.AvailableDays,
		Weekdays:      days,
		StartDate:     plan.StartDate.Format(dto.DateLayout),
		EndDate:       formatDatePtr(plan.EndDate),
		Status:        string(plan.Status),
		ReviewOffsets: s.engine.reviewOffsets(plan),
		Version:       plan.Version,
		CreatedAt:     plan.CreatedAt.Format(time.RFC3339),
	}
}
