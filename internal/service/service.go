package service

import (
	"context"

	"go.uber.org/zap"

	"dom-study/backend/config"
	"dom-study/backend/internal/repository"
	"dom-study/backend/pkg/jwt"
	"dom-study/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth         AuthService
	Plan         PlanService
	Goal         GoalService
	Scheduling   SchedulingService
	Import       ImportService
	Taxonomy     TaxonomyService
	Notification NotificationService
	Export       ExportService
}

// NewService 创建 Service 聚合
// rdb 可为 nil：计划锁退化为进程内互斥，Token 黑名单不可用
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	notification := NewNotificationService(repo, logger)
	locker := NewPlanLocker(rdb, cfg.Scheduler.LockTTL, logger)
	engine := newRedistributor(&cfg.Scheduler, repo, locker, notification, logger)

	return &Service{
		Auth:         NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		Plan:         NewPlanService(repo, engine, logger),
		Goal:         NewGoalService(repo, engine, logger),
		Scheduling:   NewSchedulingService(repo, engine, logger),
		Import:       NewImportService(&cfg.Import, repo, engine, logger),
		Taxonomy:     NewTaxonomyService(repo, logger),
		Notification: notification,
		Export:       NewExportService(repo, engine, logger),
	}
}

// inTx 在事务中执行 fn；fn 返回错误或 panic 时回滚
// 单元测试中 repo 未注入数据库连接，tx 为 nil，fn 直接使用原 repo
func inTx(ctx context.Context, repo *repository.Repository, fn func(txRepo *repository.Repository) error) (err error) {
	tx, err := repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}
	if tx != nil {
		return tx.Commit().Error
	}
	return nil
}
