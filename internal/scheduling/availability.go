package scheduling

import "time"

// AllDays 七天全部可用的掩码（0b1111111）
const AllDays = 127

// DefaultLookaheadDays 可用日搜索窗口
const DefaultLookaheadDays = 14

// IsDayAvailable 检查 (1 << weekday) 是否在掩码中；weekday 0=周日 … 6=周六
func IsDayAvailable(date time.Time, mask int) bool {
	return mask&(1<<uint(date.Weekday())) != 0
}

// NextAvailableDay 从 from（含当天）逐日向后查找第一个可用日，最多查找 lookahead 天
func NextAvailableDay(from time.Time, mask, lookahead int) (time.Time, error) {
	if lookahead <= 0 {
		lookahead = DefaultLookaheadDays
	}
	day := DateOf(from)
	for i := 0; i < lookahead; i++ {
		if IsDayAvailable(day, mask) {
			return day, nil
		}
		day = day.AddDate(0, 0, 1)
	}
	return time.Time{}, ErrNoAvailableDay
}

// ValidateMask 计划至少需要一个可学习的星期
func ValidateMask(mask int) error {
	if mask&AllDays == 0 || mask&^AllDays != 0 {
		return ErrNoAvailableDay
	}
	return nil
}

// MaskFromWeekdays 由星期列表构造掩码
func MaskFromWeekdays(days []time.Weekday) int {
	mask := 0
	for _, d := range days {
		mask |= 1 << uint(d)
	}
	return mask
}

// WeekdaysFromMask 把掩码展开成星期列表（升序）
func WeekdaysFromMask(mask int) []time.Weekday {
	var days []time.Weekday
	for d := time.Sunday; d <= time.Saturday; d++ {
		if mask&(1<<uint(d)) != 0 {
			days = append(days, d)
		}
	}
	return days
}
