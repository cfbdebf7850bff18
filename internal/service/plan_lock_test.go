package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestLocalPlanLocker(t *testing.T) {
	locker := NewLocalPlanLocker()
	ctx := context.Background()

	release, err := locker.TryLock(ctx, "plan-1")
	if err != nil {
		t.Fatalf("TryLock 失败: %v", err)
	}
	if _, err := locker.TryLock(ctx, "plan-1"); !errors.Is(err, ErrRedistributionInProgress) {
		t.Errorf("期望 ErrRedistributionInProgress，实际: %v", err)
	}

	other, err := locker.TryLock(ctx, "plan-2")
	if err != nil {
		t.Fatalf("不同计划不应互斥: %v", err)
	}
	other()

	release()
	release() // 重复释放无副作用

	again, err := locker.TryLock(ctx, "plan-1")
	if err != nil {
		t.Fatalf("释放后应能再次加锁: %v", err)
	}
	again()
}

func TestNewPlanLocker_FallsBackWithoutRedis(t *testing.T) {
	locker := NewPlanLocker(nil, 0, zap.NewNop())
	if _, ok := locker.(*localPlanLocker); !ok {
		t.Errorf("无 Redis 时期望进程内锁，实际 %T", locker)
	}
}
