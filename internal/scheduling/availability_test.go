package scheduling

import (
	"errors"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestIsDayAvailable(t *testing.T) {
	monday := day("2025-01-06")
	weekdays := MaskFromWeekdays([]time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday})

	for i := 0; i < 7; i++ {
		d := monday.AddDate(0, 0, i)
		expected := d.Weekday() != time.Saturday && d.Weekday() != time.Sunday
		if got := IsDayAvailable(d, weekdays); got != expected {
			t.Errorf("%s(%s): 期望 %v，实际=%v", d.Format("2006-01-02"), d.Weekday(), expected, got)
		}
		if !IsDayAvailable(d, AllDays) {
			t.Errorf("掩码 127 应接受 %s", d.Weekday())
		}
		if IsDayAvailable(d, 0) {
			t.Errorf("掩码 0 不应接受 %s", d.Weekday())
		}
	}
}

func TestIsDayAvailable_SundayIsBitZero(t *testing.T) {
	sunday := day("2025-01-05")
	if !IsDayAvailable(sunday, 1) {
		t.Error("bit 0 应对应周日")
	}
	if IsDayAvailable(sunday.AddDate(0, 0, 1), 1) {
		t.Error("bit 0 不应包含周一")
	}
}

func TestNextAvailableDay(t *testing.T) {
	saturday := day("2025-01-11")
	weekdays := MaskFromWeekdays([]time.Weekday{time.Monday, time.Friday})

	got, err := NextAvailableDay(saturday, weekdays, 14)
	if err != nil {
		t.Fatalf("意外错误: %v", err)
	}
	if !got.Equal(day("2025-01-13")) {
		t.Errorf("期望 2025-01-13，实际=%s", got.Format("2006-01-02"))
	}

	// 包含起始日
	got, _ = NextAvailableDay(day("2025-01-10"), weekdays, 14)
	if !got.Equal(day("2025-01-10")) {
		t.Errorf("起始日可用时应返回起始日，实际=%s", got.Format("2006-01-02"))
	}
}

func TestNextAvailableDay_EmptyMask(t *testing.T) {
	_, err := NextAvailableDay(day("2025-01-06"), 0, 14)
	if !errors.Is(err, ErrNoAvailableDay) {
		t.Errorf("期望 ErrNoAvailableDay，实际=%v", err)
	}
}

func TestValidateMask(t *testing.T) {
	if ValidateMask(0) == nil {
		t.Error("掩码 0 应被拒绝")
	}
	if ValidateMask(128) == nil {
		t.Error("超出 7 位应被拒绝")
	}
	if err := ValidateMask(AllDays); err != nil {
		t.Errorf("掩码 127 应合法: %v", err)
	}
}

func TestWeekdaysFromMask(t *testing.T) {
	days := WeekdaysFromMask(MaskFromWeekdays([]time.Weekday{time.Saturday, time.Sunday, time.Wednesday}))
	if len(days) != 3 || days[0] != time.Sunday || days[1] != time.Wednesday || days[2] != time.Saturday {
		t.Errorf("期望 [Sunday Wednesday Saturday]，实际=%v", days)
	}
}
