package scheduling

import "time"

// DateOf 截断到日历日（UTC 零点），与 DATE 列的读写表示一致
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today 返回 loc 时区下 now 所在的日历日
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(now.In(loc))
}

// AddDays 日历日加减
func AddDays(date time.Time, days int) time.Time {
	return DateOf(date).AddDate(0, 0, days)
}

// MaxDate 返回较晚的日期
func MaxDate(a, b time.Time) time.Time {
	if DateOf(a).After(DateOf(b)) {
		return DateOf(a)
	}
	return DateOf(b)
}

// SameDay 判断两个时间是否同一日历日
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
