package scheduling

import (
	"fmt"
	"strconv"
	"strings"
)

// ── 目标编号 ──
//
// displayNumber：面向用户，基础编号补零到 3 位，例如 #015、#015.2
// orderKey：固定宽度可字典序排序，"NNNNNN/SSSS"；无后缀时 SSSS=0000，
// 因此基础目标总是排在其带后缀的子项之前。

const (
	MaxNumberBase   = 999999
	MaxNumberSuffix = 9999
)

// NextNumber 在现有最大编号基础上 +1；无记录时从 1 开始
func NextNumber(currentMax int) int {
	if currentMax < 0 {
		currentMax = 0
	}
	return currentMax + 1
}

// FormatDisplayNumber 生成展示编号
func FormatDisplayNumber(base int, suffix *int) string {
	if suffix == nil {
		return fmt.Sprintf("#%03d", base)
	}
	return fmt.Sprintf("#%03d.%d", base, *suffix)
}

// MakeOrderKey 生成排序键
func MakeOrderKey(base int, suffix *int) string {
	s := 0
	if suffix != nil {
		s = *suffix
	}
	return fmt.Sprintf("%06d/%04d", base, s)
}

// ParseDisplayNumber FormatDisplayNumber 的逆操作
// 去掉前导 #，按 . 拆分；格式不合法返回 ErrMalformedNumber，由调用方决定如何处理
func ParseDisplayNumber(s string) (int, *int, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if raw == "" {
		return 0, nil, ErrMalformedNumber
	}

	basePart, suffixPart, hasSuffix := strings.Cut(raw, ".")
	base, err := strconv.Atoi(basePart)
	if err != nil || base <= 0 {
		return 0, nil, fmt.Errorf("%w: %q", ErrMalformedNumber, s)
	}
	if !hasSuffix {
		return base, nil, nil
	}

	suffix, err := strconv.Atoi(suffixPart)
	if err != nil || suffix <= 0 {
		return 0, nil, fmt.Errorf("%w: %q", ErrMalformedNumber, s)
	}
	return base, &suffix, nil
}
