package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrStaleGoal 批量写入排期时目标状态已变化（如已被完成），整个批次回滚
	ErrStaleGoal = errors.New("目标状态已变化，排期未写入")
)
