package model

import (
	"math"
	"time"
)

// PlanStatus 学习计划生命周期状态
type PlanStatus string

const (
	PlanStatusActive PlanStatus = "ACTIVE"
	PlanStatusPaused PlanStatus = "PAUSED"
	PlanStatusDone   PlanStatus = "DONE"
)

// Valid 判断状态取值是否合法
func (s PlanStatus) Valid() bool {
	switch s {
	case PlanStatusActive, PlanStatusPaused, PlanStatusDone:
		return true
	}
	return false
}

// StudyPlan 学习计划表，对应 study_plans
type StudyPlan struct {
	PlanID        string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"plan_id"`
	UserID        string     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Name          string     `gorm:"type:varchar(200);not null"                     json:"name"`
	DailyHours    float64    `gorm:"type:numeric(4,2);not null"                     json:"daily_hours"`
	AvailableDays int        `gorm:"type:smallint;not null;default:127"             json:"available_days"` // bit k = weekday k (0=周日)
	StartDate     time.Time  `gorm:"type:date;not null"                             json:"start_date"`
	EndDate       *time.Time `gorm:"type:date"                                      json:"end_date,omitempty"`
	Status        PlanStatus `gorm:"type:varchar(20);not null;default:'ACTIVE'"     json:"status"`
	ReviewOffsets IntArray   `gorm:"type:int[]"                                     json:"review_offsets,omitempty"` // NULL 表示使用全局默认
	VersionedModel
}

// TableName 指定表名
func (StudyPlan) TableName() string { return "study_plans" }

// BudgetMinutes 每日可用学习分钟数（小时 × 60，四舍五入）
func (p *StudyPlan) BudgetMinutes() int {
	return int(math.Round(p.DailyHours * 60))
}
