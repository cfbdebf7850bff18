package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/model"
	"dom-study/backend/internal/repository"
	"dom-study/backend/internal/scheduling"
	pkgerrors "dom-study/backend/pkg/errors"
)

// ── 目标模块业务错误 ──

var (
	ErrGoalNotFound         = errors.New("目标不存在")
	ErrGoalDone             = errors.New("已完成的目标不可修改")
	ErrGoalStatusInvalid    = errors.New("目标当前状态不允许该操作")
	ErrParentNumberNotFound = errors.New("父编号不存在")
	ErrGoalNeedsDate        = errors.New("固定目标和复习目标必须指定日期")
)

// GoalService 学习目标业务接口
type GoalService interface {
	Create(ctx context.Context, planID string, req *dto.CreateGoalRequest, callerID string) (*dto.GoalResponse, error)
	Get(ctx context.Context, goalID, callerID string) (*dto.GoalResponse, error)
	List(ctx context.Context, planID string, req *dto.GoalListRequest, callerID string) ([]dto.GoalResponse, int64, error)
	Start(ctx context.Context, goalID, callerID string) (*dto.GoalResponse, error)
	Complete(ctx context.Context, goalID string, req *dto.CompleteGoalRequest, callerID string) (*dto.CompleteGoalResponse, error)
	NeedsMoreTime(ctx context.Context, goalID string, req *dto.NeedsMoreTimeRequest, callerID string) (*dto.NeedsMoreTimeResponse, error)
	Omit(ctx context.Context, goalID, callerID string) (*dto.GoalMutationResponse, error)
	Restore(ctx context.Context, goalID, callerID string) (*dto.GoalMutationResponse, error)
	Move(ctx context.Context, goalID string, req *dto.MoveGoalRequest, callerID string) (*dto.MoveGoalResponse, error)
	Delete(ctx context.Context, goalID, callerID string) error
}

type goalService struct {
	repo   *repository.Repository
	engine *redistributor
	logger *zap.Logger
}

// NewGoalService 创建 GoalService 实例
func NewGoalService(repo *repository.Repository, engine *redistributor, logger *zap.Logger) GoalService {
	return &goalService{repo: repo, engine: engine, logger: logger}
}

// ════════════════════════════════════════════════════════════
// Create：编号在事务内锁定计划行后分配
// ════════════════════════════════════════════════════════════

func (s *goalService) Create(ctx context.Context, planID string, req *dto.CreateGoalRequest, callerID string) (*dto.GoalResponse, error) {
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID)
	if err != nil {
		return nil, err
	}
	if plan.Status == model.PlanStatusDone {
		return nil, ErrPlanStatusInvalid
	}

	typ := model.GoalType(req.Type)
	var date time.Time
	pinned := req.ScheduledDate != nil && *req.ScheduledDate != ""
	if pinned {
		if date, err = parseDate(*req.ScheduledDate); err != nil {
			return nil, err
		}
	} else {
		if req.Fixed || typ == model.GoalTypeReview {
			return nil, ErrGoalNeedsDate
		}
		// 种子日期，由随后的重新分配确定最终位置
		date = scheduling.MaxDate(s.engine.today(), plan.StartDate)
	}

	goal := &model.Goal{
		PlanID:                 planID,
		Type:                   typ,
		SubjectID:              req.SubjectID,
		TopicID:                req.TopicID,
		SubtopicID:             req.SubtopicID,
		Title:                  req.Title,
		Guidance:               req.Guidance,
		DurationPlannedMinutes: req.DurationPlannedMinutes,
		ScheduledDate:          date,
		Status:                 model.GoalStatusPending,
		Fixed:                  req.Fixed,
	}
	goal.CreatedBy = &callerID

	err = s.engine.withPlanLock(ctx, planID, func() error {
		err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
			if _, err := txRepo.StudyPlan.GetByIDForUpdate(ctx, planID); err != nil {
				return err
			}
			base, suffix, err := allocateNumber(ctx, txRepo, planID, req.ParentNumber)
			if err != nil {
				return err
			}
			setNumber(goal, base, suffix)
			if typ == model.GoalTypeReview && suffix != nil {
				if err := linkReviewParent(ctx, txRepo, goal); err != nil {
					return err
				}
			}

			maxOrder, err := txRepo.Goal.MaxOrder(ctx, planID, date)
			if err != nil {
				return err
			}
			goal.ScheduledOrder = maxOrder + 1
			return txRepo.Goal.Create(ctx, goal)
		})
		if err != nil {
			if !errors.Is(err, ErrParentNumberNotFound) && !errors.Is(err, scheduling.ErrMalformedNumber) {
				s.logger.Error("创建目标失败", zap.String("plan_id", planID), zap.Error(err))
			}
			return err
		}

		if scheduling.InBacklog(goal) {
			_, err = s.engine.runIfActive(ctx, planID, "goal_created")
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, goal)
}

// ════════════════════════════════════════════════════════════
// Get / List
// ════════════════════════════════════════════════════════════

func (s *goalService) Get(ctx context.Context, goalID, callerID string) (*dto.GoalResponse, error) {
	goal, _, err := s.loadOwnedGoal(ctx, goalID, callerID)
	if err != nil {
		return nil, err
	}
	return toGoalResponse(goal), nil
}

func (s *goalService) List(ctx context.Context, planID string, req *dto.GoalListRequest, callerID string) ([]dto.GoalResponse, int64, error) {
	if _, err := loadOwnedPlan(ctx, s.repo, s.logger, planID, callerID); err != nil {
		return nil, 0, err
	}

	filter := repository.GoalFilter{
		Status: model.GoalStatus(req.Status),
		Type:   model.GoalType(req.Type),
		Offset: req.GetOffset(),
		Limit:  req.GetPageSize(),
	}
	if req.From != "" {
		from, err := parseDate(req.From)
		if err != nil {
			return nil, 0, err
		}
		filter.From = &from
	}
	if req.To != "" {
		to, err := parseDate(req.To)
		if err != nil {
			return nil, 0, err
		}
		filter.To = &to
	}

	goals, total, err := s.repo.Goal.ListByPlan(ctx, planID, filter)
	if err != nil {
		s.logger.Error("查询目标列表失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, 0, err
	}
	items := make([]dto.GoalResponse, 0, len(goals))
	for i := range goals {
		items = append(items, *toGoalResponse(&goals[i]))
	}
	return items, total, nil
}

// ════════════════════════════════════════════════════════════
// Start：PENDING → IN_PROGRESS
// ════════════════════════════════════════════════════════════

func (s *goalService) Start(ctx context.Context, goalID, callerID string) (*dto.GoalResponse, error) {
	goal, _, err := s.loadOwnedGoal(ctx, goalID, callerID)
	if err != nil {
		return nil, err
	}
	if goal.Status != model.GoalStatusPending || goal.Omitted {
		return nil, ErrGoalStatusInvalid
	}

	goal.Status = model.GoalStatusInProgress
	goal.UpdatedBy = &callerID
	if err := s.repo.Goal.Update(ctx, goal, model.GoalStatusPending); err != nil {
		if !errors.Is(err, pkgerrors.ErrStaleGoal) {
			s.logger.Error("开始目标失败", zap.String("goal_id", goalID), zap.Error(err))
		}
		return nil, err
	}
	return toGoalResponse(goal), nil
}

// ════════════════════════════════════════════════════════════
// Complete：STUDY 目标完成后生成复习周期
// ════════════════════════════════════════════════════════════

func (s *goalService) Complete(ctx context.Context, goalID string, req *dto.CompleteGoalRequest, callerID string) (*dto.CompleteGoalResponse, error) {
	goal, plan, err := s.loadOwnedGoal(ctx, goalID, callerID)
	if err != nil {
		return nil, err
	}
	if goal.IsDone() {
		return nil, ErrGoalDone
	}
	if goal.Omitted || (goal.Status != model.GoalStatusPending && goal.Status != model.GoalStatusInProgress) {
		return nil, ErrGoalStatusInvalid
	}

	from := goal.Status
	now := s.engine.clock()
	goal.Status = model.GoalStatusDone
	goal.CompletedAt = &now
	goal.ElapsedSeconds = req.ElapsedSeconds
	goal.UpdatedBy = &callerID

	var reviews []model.Goal
	err = inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
		if _, err := txRepo.StudyPlan.GetByIDForUpdate(ctx, plan.PlanID); err != nil {
			return err
		}
		if err := txRepo.Goal.Update(ctx, goal, from); err != nil {
			return err
		}
		if goal.Type != model.GoalTypeStudy {
			return nil
		}

		existing, err := txRepo.Goal.CountReviewChildren(ctx, goal.GoalID)
		if err != nil || existing > 0 {
			return err
		}

		maxSuffix, err := txRepo.Goal.MaxNumberSuffix(ctx, plan.PlanID, goal.NumberBase)
		if err != nil {
			return err
		}
		reviews = scheduling.BuildReviewGoals(goal, scheduling.ReviewOptions{
			Offsets:         s.engine.reviewOffsets(plan),
			DurationMinutes: s.engine.cfg.ReviewDurationMinutes,
			FirstSuffix:     scheduling.NextNumber(maxSuffix),
			Base:            scheduling.ReviewBaseDate(goal, s.engine.cfg.Location()),
		})

		orders := newOrderAllocator(txRepo, plan.PlanID)
		for i := range reviews {
			order, err := orders.next(ctx, reviews[i].ScheduledDate)
			if err != nil {
				return err
			}
			reviews[i].ScheduledOrder = order
			reviews[i].CreatedBy = &callerID
		}
		return txRepo.Goal.BatchCreate(ctx, reviews)
	})
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrStaleGoal) {
			s.logger.Error("完成目标失败", zap.String("goal_id", goalID), zap.Error(err))
		}
		return nil, err
	}

	if len(reviews) > 0 {
		s.engine.notifier.ReviewsCreated(ctx, plan, goal, len(reviews))
	}

	resp := &dto.CompleteGoalResponse{Goal: *toGoalResponse(goal)}
	for i := range reviews {
		resp.Reviews = append(resp.Reviews, *toGoalResponse(&reviews[i]))
	}
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// NeedsMoreTime：原目标标记为 NEEDS_MORE_TIME，以相同编号续作
// ════════════════════════════════════════════════════════════

func (s *goalService) NeedsMoreTime(ctx context.Context, goalID string, req *dto.NeedsMoreTimeRequest, callerID string) (*dto.NeedsMoreTimeResponse, error) {
	goal, plan, err := s.loadOwnedGoal(ctx, goalID, callerID)
	if err != nil {
		return nil, err
	}
	if goal.IsDone() {
		return nil, ErrGoalDone
	}
	if goal.Omitted || (goal.Status != model.GoalStatusPending && goal.Status != model.GoalStatusInProgress) {
		return nil, ErrGoalStatusInvalid
	}

	from := goal.Status
	var continuation *model.Goal
	resp := &dto.NeedsMoreTimeResponse{}
	err = s.engine.withPlanLock(ctx, plan.PlanID, func() error {
		err := inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
			goal.Status = model.GoalStatusNeedsMoreTime
			goal.ElapsedSeconds = req.ElapsedSeconds
			goal.UpdatedBy = &callerID
			// 读取后目标可能已被完成，条件写入失败时不创建续作
			if err := txRepo.Goal.Update(ctx, goal, from); err != nil {
				return err
			}

			continuation = continuationOf(goal, scheduling.AddDays(s.engine.today(), 1))
			continuation.CreatedBy = &callerID
			maxOrder, err := txRepo.Goal.MaxOrder(ctx, plan.PlanID, continuation.ScheduledDate)
			if err != nil {
				return err
			}
			continuation.ScheduledOrder = maxOrder + 1
			return txRepo.Goal.Create(ctx, continuation)
		})
		if err != nil {
			if !errors.Is(err, pkgerrors.ErrStaleGoal) {
				s.logger.Error("创建续作目标失败", zap.String("goal_id", goalID), zap.Error(err))
			}
			return err
		}

		res, err := s.engine.runIfActive(ctx, plan.PlanID, "needs_more_time")
		resp.Redistribution = toRedistributionResponse(plan.PlanID, res)
		return err
	})
	if err != nil {
		return nil, err
	}

	resp.Original = *toGoalResponse(goal)
	fresh, err := s.reload(ctx, continuation)
	if err != nil {
		return nil, err
	}
	resp.Continuation = *fresh
	return resp, nil
}

// continuationOf 复制原目标的编号、分类、时长与类型，日期为种子日期
func continuationOf(goal *model.Goal, seed time.Time) *model.Goal {
	parentID := goal.GoalID
	var suffix *int
	if goal.NumberSuffix != nil {
		v := *goal.NumberSuffix
		suffix = &v
	}
	return &model.Goal{
		PlanID:                 goal.PlanID,
		NumberBase:             goal.NumberBase,
		NumberSuffix:           suffix,
		DisplayNumber:          goal.DisplayNumber,
		OrderKey:               goal.OrderKey,
		Type:                   goal.Type,
		SubjectID:              goal.SubjectID,
		TopicID:                goal.TopicID,
		SubtopicID:             goal.SubtopicID,
		Title:                  goal.Title,
		Guidance:               goal.Guidance,
		DurationPlannedMinutes: goal.DurationPlannedMinutes,
		ScheduledDate:          seed,
		Status:                 model.GoalStatusPending,
		AutoGenerated:          true,
		ParentGoalID:           &parentID,
		DaysAfterStudy:         goal.DaysAfterStudy,
	}
}

// ════════════════════════════════════════════════════════════
// Omit / Restore：改变容量占用后重新分配
// ════════════════════════════════════════════════════════════

func (s *goalService) Omit(ctx context.Context, goalID, callerID string) (*dto.GoalMutationResponse, error) {
	return s.toggleOmitted(ctx, goalID, callerID, true)
}

func (s *goalService) Restore(ctx context.Context, goalID, callerID string) (*dto.GoalMutationResponse, error) {
	return s.toggleOmitted(ctx, goalID, callerID, false)
}

func (s *goalService) toggleOmitted(ctx context.Context, goalID, callerID string, omit bool) (*dto.GoalMutationResponse, error) {
	goal, plan, err := s.loadOwnedGoal(ctx, goalID, callerID)
	if err != nil {
		return nil, err
	}
	if goal.IsDone() {
		return nil, ErrGoalDone
	}

	from := goal.Status
	reason := "goal_restored"
	if omit {
		// NEEDS_MORE_TIME 的工作已由续作承接，不可省略
		if goal.Omitted || (from != model.GoalStatusPending && from != model.GoalStatusInProgress) {
			return nil, ErrGoalStatusInvalid
		}
		reason = "goal_omitted"
		goal.Omitted = true
		goal.OmittedFromStatus = &from
		goal.Status = model.GoalStatusOmitted
	} else {
		if !goal.Omitted {
			return nil, ErrGoalStatusInvalid
		}
		goal.Omitted = false
		goal.Status = restoredStatus(goal.OmittedFromStatus)
		goal.OmittedFromStatus = nil
	}
	goal.UpdatedBy = &callerID

	resp := &dto.GoalMutationResponse{}
	err = s.engine.withPlanLock(ctx, plan.PlanID, func() error {
		if err := s.repo.Goal.Update(ctx, goal, from); err != nil {
			if !errors.Is(err, pkgerrors.ErrStaleGoal) {
				s.logger.Error("更新目标省略状态失败", zap.String("goal_id", goalID), zap.Error(err))
			}
			return err
		}

		res, err := s.engine.runIfActive(ctx, plan.PlanID, reason)
		resp.Redistribution = toRedistributionResponse(plan.PlanID, res)
		return err
	})
	if err != nil {
		return nil, err
	}

	fresh, err := s.reload(ctx, goal)
	if err != nil {
		return nil, err
	}
	resp.Goal = *fresh
	return resp, nil
}

// restoredStatus 恢复到省略前的状态，未记录时回到 PENDING
func restoredStatus(prev *model.GoalStatus) model.GoalStatus {
	if prev != nil && *prev == model.GoalStatusInProgress {
		return model.GoalStatusInProgress
	}
	return model.GoalStatusPending
}

// ════════════════════════════════════════════════════════════
// Move：手动改期（默认固定），复习目标随之调整
// ════════════════════════════════════════════════════════════

func (s *goalService) Move(ctx context.Context, goalID string, req *dto.MoveGoalRequest, callerID string) (*dto.MoveGoalResponse, error) {
	goal, plan, err := s.loadOwnedGoal(ctx, goalID, callerID)
	if err != nil {
		return nil, err
	}
	if goal.IsDone() {
		return nil, ErrGoalDone
	}
	newDate, err := parseDate(req.ScheduledDate)
	if err != nil {
		return nil, err
	}

	from := goal.Status
	resp := &dto.MoveGoalResponse{}
	err = s.engine.withPlanLock(ctx, plan.PlanID, func() error {
		return inTx(ctx, s.repo, func(txRepo *repository.Repository) error {
			orders := newOrderAllocator(txRepo, plan.PlanID)
			if !scheduling.SameDay(goal.ScheduledDate, newDate) {
				order, err := orders.next(ctx, newDate)
				if err != nil {
					return err
				}
				goal.ScheduledDate = newDate
				goal.ScheduledOrder = order
			}
			goal.Fixed = true
			if req.Fixed != nil {
				goal.Fixed = *req.Fixed
			}
			goal.UpdatedBy = &callerID
			if err := txRepo.Goal.Update(ctx, goal, from); err != nil {
				return err
			}

			if goal.Type != model.GoalTypeStudy {
				return nil
			}
			children, err := txRepo.Goal.ListReviewChildren(ctx, goal.GoalID)
			if err != nil {
				return err
			}
			for _, m := range scheduling.ReallocateReviews(children, newDate) {
				order, err := orders.next(ctx, m.To)
				if err != nil {
					return err
				}
				if err := txRepo.Goal.UpdateSchedule(ctx, m.GoalID, m.To, order); err != nil {
					return err
				}
				resp.ReviewsMoved = append(resp.ReviewsMoved, dto.ReviewMoveResponse{
					GoalID: m.GoalID,
					From:   m.From.Format(dto.DateLayout),
					To:     m.To.Format(dto.DateLayout),
				})
			}
			return nil
		})
	})
	if err != nil {
		if !errors.Is(err, ErrRedistributionInProgress) && !errors.Is(err, pkgerrors.ErrStaleGoal) {
			s.logger.Error("目标改期失败", zap.String("goal_id", goalID), zap.Error(err))
		}
		return nil, err
	}

	resp.Goal = *toGoalResponse(goal)
	return resp, nil
}

// ════════════════════════════════════════════════════════════
// Delete：已完成目标不可删除
// ════════════════════════════════════════════════════════════

func (s *goalService) Delete(ctx context.Context, goalID, callerID string) error {
	goal, _, err := s.loadOwnedGoal(ctx, goalID, callerID)
	if err != nil {
		return err
	}
	if goal.IsDone() {
		return ErrGoalDone
	}
	if err := s.repo.Goal.Delete(ctx, goalID); err != nil {
		if !errors.Is(err, pkgerrors.ErrStaleGoal) {
			s.logger.Error("删除目标失败", zap.String("goal_id", goalID), zap.Error(err))
		}
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

// loadOwnedGoal 目标不存在或所属计划不属于调用者时统一返回 ErrGoalNotFound
func (s *goalService) loadOwnedGoal(ctx context.Context, goalID, callerID string) (*model.Goal, *model.StudyPlan, error) {
	goal, err := s.repo.Goal.GetByID(ctx, goalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrGoalNotFound
		}
		s.logger.Error("查询目标失败", zap.String("goal_id", goalID), zap.Error(err))
		return nil, nil, err
	}
	plan, err := loadOwnedPlan(ctx, s.repo, s.logger, goal.PlanID, callerID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return nil, nil, ErrGoalNotFound
		}
		return nil, nil, err
	}
	return goal, plan, nil
}

// reload 重新分配后读取目标的最终位置
func (s *goalService) reload(ctx context.Context, goal *model.Goal) (*dto.GoalResponse, error) {
	fresh, err := s.repo.Goal.GetByID(ctx, goal.GoalID)
	if err != nil {
		s.logger.Error("查询目标失败", zap.String("goal_id", goal.GoalID), zap.Error(err))
		return nil, err
	}
	return toGoalResponse(fresh), nil
}

// allocateNumber parentNumber 为空时分配新的基础编号，否则在该编号下分配新后缀
func allocateNumber(ctx context.Context, repo *repository.Repository, planID, parentNumber string) (int, *int, error) {
	maxBase, err := repo.Goal.MaxNumberBase(ctx, planID)
	if err != nil {
		return 0, nil, err
	}
	if parentNumber == "" {
		return scheduling.NextNumber(maxBase), nil, nil
	}

	base, _, err := scheduling.ParseDisplayNumber(parentNumber)
	if err != nil {
		return 0, nil, err
	}
	if base > maxBase {
		return 0, nil, fmt.Errorf("%w: %s", ErrParentNumberNotFound, parentNumber)
	}
	maxSuffix, err := repo.Goal.MaxNumberSuffix(ctx, planID, base)
	if err != nil {
		return 0, nil, err
	}
	suffix := scheduling.NextNumber(maxSuffix)
	return base, &suffix, nil
}

// linkReviewParent 手动创建的复习挂到同编号的 STUDY 目标下，父目标改期时随之调整
func linkReviewParent(ctx context.Context, repo *repository.Repository, review *model.Goal) error {
	parent, err := repo.Goal.GetByNumber(ctx, review.PlanID, review.NumberBase)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if parent.Type != model.GoalTypeStudy {
		return nil
	}
	review.ParentGoalID = &parent.GoalID
	days := int(review.ScheduledDate.Sub(scheduling.DateOf(parent.ScheduledDate)).Hours() / 24)
	if days > 0 {
		review.DaysAfterStudy = &days
	}
	return nil
}

func setNumber(goal *model.Goal, base int, suffix *int) {
	goal.NumberBase = base
	goal.NumberSuffix = suffix
	goal.DisplayNumber = scheduling.FormatDisplayNumber(base, suffix)
	goal.OrderKey = scheduling.MakeOrderKey(base, suffix)
}

// orderAllocator 同一事务内为多个目标分配当天序号
type orderAllocator struct {
	repo   *repository.Repository
	planID string
	max    map[time.Time]int
}

func newOrderAllocator(repo *repository.Repository, planID string) *orderAllocator {
	return &orderAllocator{repo: repo, planID: planID, max: make(map[time.Time]int)}
}

func (a *orderAllocator) next(ctx context.Context, date time.Time) (int, error) {
	day := scheduling.DateOf(date)
	current, ok := a.max[day]
	if !ok {
		var err error
		if current, err = a.repo.Goal.MaxOrder(ctx, a.planID, day); err != nil {
			return 0, err
		}
	}
	a.max[day] = current + 1
	return current + 1, nil
}

func toGoalResponse(g *model.Goal) *dto.GoalResponse {
	resp := &dto.GoalResponse{
		ID:                     g.GoalID,
		PlanID:                 g.PlanID,
		DisplayNumber:          g.DisplayNumber,
		OrderKey:               g.OrderKey,
		Type:                   string(g.Type),
		SubjectID:              g.SubjectID,
		TopicID:                g.TopicID,
		SubtopicID:             g.SubtopicID,
		Title:                  g.Title,
		Guidance:               g.Guidance,
		DurationPlannedMinutes: g.DurationPlannedMinutes,
		ScheduledDate:          g.ScheduledDate.Format(dto.DateLayout),
		ScheduledOrder:         g.ScheduledOrder,
		Status:                 string(g.Status),
		Fixed:                  g.Fixed,
		AutoGenerated:          g.AutoGenerated,
		Omitted:                g.Omitted,
		ParentGoalID:           g.ParentGoalID,
		DaysAfterStudy:         g.DaysAfterStudy,
		ElapsedSeconds:         g.ElapsedSeconds,
	}
	if g.CompletedAt != nil {
		s := g.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	return resp
}
