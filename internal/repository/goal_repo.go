package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"dom-study/backend/internal/model"
	pkgerrors "dom-study/backend/pkg/errors"
)

// GoalFilter 目标列表筛选条件
type GoalFilter struct {
	From   *time.Time
	To     *time.Time
	Status model.GoalStatus
	Type   model.GoalType
	Offset int
	Limit  int
}

// Placement 一次排期写入：目标的新日期与当天序号
type Placement struct {
	GoalID string
	Date   time.Time
	Order  int
}

// GoalRepository 学习目标数据访问接口
type GoalRepository interface {
	Create(ctx context.Context, goal *model.Goal) error
	BatchCreate(ctx context.Context, goals []model.Goal) error
	GetByID(ctx context.Context, id string) (*model.Goal, error)
	// GetByNumber 查找编号为 base 且无后缀的目标
	GetByNumber(ctx context.Context, planID string, base int) (*model.Goal, error)
	ListByPlan(ctx context.Context, planID string, filter GoalFilter) ([]model.Goal, int64, error)
	// ListBacklog 待重新分配队列：PENDING、未省略、非固定、非复习，按 order_key 升序
	ListBacklog(ctx context.Context, planID string) ([]model.Goal, error)
	// ListFrom 计划中排期日期 >= from 的全部目标
	ListFrom(ctx context.Context, planID string, from time.Time) ([]model.Goal, error)
	ListOnDate(ctx context.Context, planID string, date time.Time) ([]model.Goal, error)
	ListFixed(ctx context.Context, planID string) ([]model.Goal, error)
	// ListOverduePlanIDs 活动计划中存在排期早于 before 的待办目标的计划
	ListOverduePlanIDs(ctx context.Context, before time.Time) ([]string, error)
	SumClaimedMinutes(ctx context.Context, planID string, date time.Time) (int, error)
	SumFixedMinutes(ctx context.Context, planID string, date time.Time) (int, error)
	MaxOrder(ctx context.Context, planID string, date time.Time) (int, error)
	MaxNumberBase(ctx context.Context, planID string) (int, error)
	MaxNumberSuffix(ctx context.Context, planID string, base int) (int, error)
	ExistsRowHash(ctx context.Context, planID, rowHash string) (bool, error)
	ListReviewChildren(ctx context.Context, parentID string) ([]model.Goal, error)
	CountReviewChildren(ctx context.Context, parentID string) (int64, error)
	// Update 仅当目标仍处于 from 状态时写入，否则返回 pkgerrors.ErrStaleGoal
	Update(ctx context.Context, goal *model.Goal, from model.GoalStatus) error
	// UpdateSchedule 改写未完成目标的日期与序号，已完成返回 pkgerrors.ErrStaleGoal
	UpdateSchedule(ctx context.Context, goalID string, date time.Time, order int) error
	// ApplyPlacements 批量写入排期，只更新仍为 PENDING 的目标
	// 任一目标状态已变化返回 pkgerrors.ErrStaleGoal，调用方应回滚事务
	ApplyPlacements(ctx context.Context, placements []Placement) error
	// Delete 软删除未完成目标，已完成返回 pkgerrors.ErrStaleGoal
	Delete(ctx context.Context, id string) error
}

type goalRepo struct {
	db *gorm.DB
}

func NewGoalRepo(db *gorm.DB) GoalRepository {
	return &goalRepo{db: db}
}

// claimsCapacity 与 scheduling.ClaimsCapacity 保持一致
const claimsCapacity = "omitted = false AND status IN ('PENDING', 'IN_PROGRESS', 'DONE')"

func (r *goalRepo) Create(ctx context.Context, goal *model.Goal) error {
	return r.db.WithContext(ctx).Create(goal).Error
}

func (r *goalRepo) BatchCreate(ctx context.Context, goals []model.Goal) error {
	if len(goals) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&goals, 200).Error
}

func (r *goalRepo) GetByID(ctx context.Context, id string) (*model.Goal, error) {
	var goal model.Goal
	err := r.db.WithContext(ctx).
		Where("goal_id = ?", id).
		First(&goal).Error
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepo) GetByNumber(ctx context.Context, planID string, base int) (*model.Goal, error) {
	var goal model.Goal
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND number_base = ? AND number_suffix IS NULL", planID, base).
		Order("created_at ASC").
		First(&goal).Error
	if err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *goalRepo) ListByPlan(ctx context.Context, planID string, filter GoalFilter) ([]model.Goal, int64, error) {
	var goals []model.Goal
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Goal{}).Where("plan_id = ?", planID)
	if filter.From != nil {
		db = db.Where("scheduled_date >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("scheduled_date <= ?", *filter.To)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		db = db.Where("type = ?", filter.Type)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = db.Order("scheduled_date ASC, scheduled_order ASC")
	if filter.Limit > 0 {
		db = db.Offset(filter.Offset).Limit(filter.Limit)
	}
	err := db.Find(&goals).Error
	return goals, total, err
}

func (r *goalRepo) ListBacklog(ctx context.Context, planID string) ([]model.Goal, error) {
	var goals []model.Goal
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND status = ? AND omitted = false AND fixed = false AND type <> ?",
			planID, model.GoalStatusPending, model.GoalTypeReview).
		Order("order_key ASC, created_at ASC").
		Find(&goals).Error
	return goals, err
}

func (r *goalRepo) ListFrom(ctx context.Context, planID string, from time.Time) ([]model.Goal, error) {
	var goals []model.Goal
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND scheduled_date >= ?", planID, from).
		Order("scheduled_date ASC, scheduled_order ASC").
		Find(&goals).Error
	return goals, err
}

func (r *goalRepo) ListOnDate(ctx context.Context, planID string, date time.Time) ([]model.Goal, error) {
	var goals []model.Goal
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND scheduled_date = ?", planID, date).
		Order("scheduled_order ASC").
		Find(&goals).Error
	return goals, err
}

func (r *goalRepo) ListFixed(ctx context.Context, planID string) ([]model.Goal, error) {
	var goals []model.Goal
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND fixed = true AND omitted = false", planID).
		Order("scheduled_date ASC, scheduled_order ASC").
		Find(&goals).Error
	return goals, err
}

func (r *goalRepo) ListOverduePlanIDs(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Distinct("goals.plan_id").
		Joins("JOIN study_plans ON study_plans.plan_id = goals.plan_id AND study_plans.deleted_at IS NULL").
		Where("study_plans.status = ?", model.PlanStatusActive).
		Where("goals.status = ? AND goals.omitted = false AND goals.fixed = false AND goals.type <> ?",
			model.GoalStatusPending, model.GoalTypeReview).
		Where("goals.scheduled_date < ?", before).
		Pluck("goals.plan_id", &ids).Error
	return ids, err
}

func (r *goalRepo) SumClaimedMinutes(ctx context.Context, planID string, date time.Time) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Select("COALESCE(SUM(duration_planned_minutes), 0)").
		Where("plan_id = ? AND scheduled_date = ?", planID, date).
		Where(claimsCapacity).
		Scan(&sum).Error
	return sum, err
}

func (r *goalRepo) SumFixedMinutes(ctx context.Context, planID string, date time.Time) (int, error) {
	var sum int
	err := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Select("COALESCE(SUM(duration_planned_minutes), 0)").
		Where("plan_id = ? AND scheduled_date = ? AND fixed = true AND omitted = false", planID, date).
		Scan(&sum).Error
	return sum, err
}

func (r *goalRepo) MaxOrder(ctx context.Context, planID string, date time.Time) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Select("COALESCE(MAX(scheduled_order), 0)").
		Where("plan_id = ? AND scheduled_date = ?", planID, date).
		Scan(&max).Error
	return max, err
}

// MaxNumberBase 包含已软删除的目标，已用过的编号不再复用
func (r *goalRepo) MaxNumberBase(ctx context.Context, planID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Goal{}).
		Select("COALESCE(MAX(number_base), 0)").
		Where("plan_id = ?", planID).
		Scan(&max).Error
	return max, err
}

func (r *goalRepo) MaxNumberSuffix(ctx context.Context, planID string, base int) (int, error) {
	var max int
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&model.Goal{}).
		Select("COALESCE(MAX(number_suffix), 0)").
		Where("plan_id = ? AND number_base = ?", planID, base).
		Scan(&max).Error
	return max, err
}

func (r *goalRepo) ExistsRowHash(ctx context.Context, planID, rowHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Where("plan_id = ? AND row_hash = ?", planID, rowHash).
		Count(&count).Error
	return count > 0, err
}

func (r *goalRepo) ListReviewChildren(ctx context.Context, parentID string) ([]model.Goal, error) {
	var goals []model.Goal
	err := r.db.WithContext(ctx).
		Where("parent_goal_id = ? AND type = ?", parentID, model.GoalTypeReview).
		Order("order_key ASC").
		Find(&goals).Error
	return goals, err
}

func (r *goalRepo) CountReviewChildren(ctx context.Context, parentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Where("parent_goal_id = ? AND type = ?", parentID, model.GoalTypeReview).
		Count(&count).Error
	return count, err
}

func (r *goalRepo) Update(ctx context.Context, goal *model.Goal, from model.GoalStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Where("goal_id = ? AND status = ?", goal.GoalID, from).
		Updates(map[string]interface{}{
			"title":                    goal.Title,
			"guidance":                 goal.Guidance,
			"duration_planned_minutes": goal.DurationPlannedMinutes,
			"scheduled_date":           goal.ScheduledDate,
			"scheduled_order":          goal.ScheduledOrder,
			"status":                   goal.Status,
			"fixed":                    goal.Fixed,
			"omitted":                  goal.Omitted,
			"omitted_from_status":      goal.OmittedFromStatus,
			"elapsed_seconds":          goal.ElapsedSeconds,
			"completed_at":             goal.CompletedAt,
			"updated_by":               goal.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleGoal
	}
	return nil
}

func (r *goalRepo) UpdateSchedule(ctx context.Context, goalID string, date time.Time, order int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Goal{}).
		Where("goal_id = ? AND status <> ?", goalID, model.GoalStatusDone).
		Updates(map[string]interface{}{
			"scheduled_date":  date,
			"scheduled_order": order,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleGoal
	}
	return nil
}

func (r *goalRepo) ApplyPlacements(ctx context.Context, placements []Placement) error {
	db := r.db.WithContext(ctx)
	for _, p := range placements {
		result := db.Model(&model.Goal{}).
			Where("goal_id = ? AND status = ? AND omitted = false", p.GoalID, model.GoalStatusPending).
			Updates(map[string]interface{}{
				"scheduled_date":  p.Date,
				"scheduled_order": p.Order,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return pkgerrors.ErrStaleGoal
		}
	}
	return nil
}

func (r *goalRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("goal_id = ? AND status <> ?", id, model.GoalStatusDone).
		Delete(&model.Goal{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrStaleGoal
	}
	return nil
}
