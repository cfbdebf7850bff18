package repository

import (
	"context"

	"gorm.io/gorm"

	"dom-study/backend/internal/model"
	pkgerrors "dom-study/backend/pkg/errors"
)

// StudyPlanRepository 学习计划数据访问接口
type StudyPlanRepository interface {
	Create(ctx context.Context, plan *model.StudyPlan) error
	GetByID(ctx context.Context, id string) (*model.StudyPlan, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 锁定计划行
	// 必须在已有事务的 *gorm.DB 上调用（通过 Repository.WithTx 注入事务连接）
	GetByIDForUpdate(ctx context.Context, id string) (*model.StudyPlan, error)
	ListByUser(ctx context.Context, userID string, status model.PlanStatus, offset, limit int) ([]model.StudyPlan, int64, error)
	ListActive(ctx context.Context) ([]model.StudyPlan, error)
	Update(ctx context.Context, plan *model.StudyPlan) error
	UpdateStatus(ctx context.Context, plan *model.StudyPlan, status model.PlanStatus) error
}

type studyPlanRepo struct {
	db *gorm.DB
}

func NewStudyPlanRepo(db *gorm.DB) StudyPlanRepository {
	return &studyPlanRepo{db: db}
}

func (r *studyPlanRepo) Create(ctx context.Context, plan *model.StudyPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *studyPlanRepo) GetByID(ctx context.Context, id string) (*model.StudyPlan, error) {
	var plan model.StudyPlan
	err := r.db.WithContext(ctx).
		Where("plan_id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *studyPlanRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.StudyPlan, error) {
	var plan model.StudyPlan
	err := r.db.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		Where("plan_id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *studyPlanRepo) ListByUser(ctx context.Context, userID string, status model.PlanStatus, offset, limit int) ([]model.StudyPlan, int64, error) {
	var plans []model.StudyPlan
	var total int64

	db := r.db.WithContext(ctx).Model(&model.StudyPlan{}).Where("user_id = ?", userID)
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&plans).Error
	return plans, total, err
}

func (r *studyPlanRepo) ListActive(ctx context.Context) ([]model.StudyPlan, error) {
	var plans []model.StudyPlan
	err := r.db.WithContext(ctx).
		Where("status = ?", model.PlanStatusActive).
		Order("created_at ASC").
		Find(&plans).Error
	return plans, err
}

func (r *studyPlanRepo) Update(ctx context.Context, plan *model.StudyPlan) error {
	oldVersion := plan.Version
	result := r.db.WithContext(ctx).
		Model(plan).
		Where("plan_id = ? AND version = ?", plan.PlanID, oldVersion).
		Updates(map[string]interface{}{
			"name":           plan.Name,
			"daily_hours":    plan.DailyHours,
			"available_days": plan.AvailableDays,
			"start_date":     plan.StartDate,
			"end_date":       plan.EndDate,
			"status":         plan.Status,
			"review_offsets": plan.ReviewOffsets,
			"updated_by":     plan.UpdatedBy,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	plan.Version = oldVersion + 1
	return nil
}

func (r *studyPlanRepo) UpdateStatus(ctx context.Context, plan *model.StudyPlan, status model.PlanStatus) error {
	oldVersion := plan.Version
	result := r.db.WithContext(ctx).
		Model(&model.StudyPlan{}).
		Where("plan_id = ? AND version = ?", plan.PlanID, oldVersion).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": plan.UpdatedBy,
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	plan.Status = status
	plan.Version = oldVersion + 1
	return nil
}
