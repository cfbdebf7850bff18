package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"dom-study/backend/pkg/redis"
)

// ErrRedistributionInProgress 同一计划同一时间只允许一次重新分配
var ErrRedistributionInProgress = errors.New("该计划正在重新排期，请稍后再试")

// PlanLocker 计划级互斥锁（非阻塞）
// 成功返回释放函数；锁已被占用返回 ErrRedistributionInProgress
type PlanLocker interface {
	TryLock(ctx context.Context, planID string) (func(), error)
}

// NewPlanLocker 有 Redis 时使用分布式锁，否则使用进程内锁
func NewPlanLocker(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) PlanLocker {
	if rdb == nil {
		logger.Warn("Redis 不可用，计划锁退化为进程内互斥")
		return NewLocalPlanLocker()
	}
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &redisPlanLocker{rdb: rdb, ttl: ttl, logger: logger}
}

// ── Redis 实现 ──

type redisPlanLocker struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func planLockKey(planID string) string { return "plan:" + planID }

func (l *redisPlanLocker) TryLock(ctx context.Context, planID string) (func(), error) {
	token, err := l.rdb.TryLock(ctx, planLockKey(planID), l.ttl)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return nil, ErrRedistributionInProgress
		}
		l.logger.Error("获取计划锁失败", zap.String("plan_id", planID), zap.Error(err))
		return nil, err
	}

	return func() {
		// 请求 ctx 可能已取消，释放锁使用独立超时
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = l.rdb.Unlock(releaseCtx, planLockKey(planID), token)
	}, nil
}

// ── 进程内实现 ──

type localPlanLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalPlanLocker 单实例部署或测试使用
func NewLocalPlanLocker() PlanLocker {
	return &localPlanLocker{held: make(map[string]struct{})}
}

func (l *localPlanLocker) TryLock(_ context.Context, planID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[planID]; ok {
		return nil, ErrRedistributionInProgress
	}
	l.held[planID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, planID)
			l.mu.Unlock()
		})
	}, nil
}
