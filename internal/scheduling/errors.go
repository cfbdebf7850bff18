package scheduling

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAvailableDay 可用日掩码在搜索窗口内无任何可用星期（计划配置错误）
	ErrNoAvailableDay = errors.New("可用日设置无效：搜索窗口内没有可学习的星期")
	// ErrCannotPlace 目标在最大推进天数内找不到足够容量（计划严重超载）
	ErrCannotPlace = errors.New("无法在一年内为目标安排足够的学习时间")
	// ErrMalformedNumber 编号字符串无法解析
	ErrMalformedNumber = errors.New("目标编号格式无效")
)

// PlacementError 描述哪一个目标无法被安排
type PlacementError struct {
	GoalID        string
	DisplayNumber string
	Duration      int
	Attempts      int
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("目标 %s（%d 分钟）在 %d 天内找不到足够容量，请提高每日学习时长或增加可学习的星期",
		e.DisplayNumber, e.Duration, e.Attempts)
}

// Is 使 errors.Is(err, ErrCannotPlace) 成立
func (e *PlacementError) Is(target error) bool {
	return target == ErrCannotPlace
}
