package model

import "time"

// GoalType 目标类型
type GoalType string

const (
	GoalTypeStudy     GoalType = "STUDY"
	GoalTypeQuestions GoalType = "QUESTIONS"
	GoalTypeReview    GoalType = "REVIEW"
)

// Valid 判断类型取值是否合法
func (t GoalType) Valid() bool {
	switch t {
	case GoalTypeStudy, GoalTypeQuestions, GoalTypeReview:
		return true
	}
	return false
}

// GoalStatus 目标状态
type GoalStatus string

const (
	GoalStatusPending       GoalStatus = "PENDING"
	GoalStatusInProgress    GoalStatus = "IN_PROGRESS"
	GoalStatusDone          GoalStatus = "DONE"
	GoalStatusNeedsMoreTime GoalStatus = "NEEDS_MORE_TIME"
	GoalStatusOmitted       GoalStatus = "OMITTED"
)

// Goal 学习目标表，对应 goals
type Goal struct {
	GoalID        string   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"goal_id"`
	PlanID        string   `gorm:"type:uuid;not null;index"                       json:"plan_id"`
	NumberBase    int      `gorm:"not null"                                       json:"number_base"`
	NumberSuffix  *int     `json:"number_suffix,omitempty"`
	DisplayNumber string   `gorm:"type:varchar(20);not null"                      json:"display_number"`
	OrderKey      string   `gorm:"type:varchar(11);not null;index"                json:"order_key"`
	Type          GoalType `gorm:"type:varchar(20);not null"                      json:"type"`

	// 分类路径：disciplina / assunto / tópico
	SubjectID  *string `gorm:"type:uuid" json:"subject_id,omitempty"`
	TopicID    *string `gorm:"type:uuid" json:"topic_id,omitempty"`
	SubtopicID *string `gorm:"type:uuid" json:"subtopic_id,omitempty"`

	Title    string `gorm:"type:varchar(300)" json:"title"`
	Guidance string `gorm:"type:text"         json:"guidance,omitempty"`

	DurationPlannedMinutes int        `gorm:"not null"                                    json:"duration_planned_minutes"`
	ScheduledDate          time.Time  `gorm:"type:date;not null"                          json:"scheduled_date"`
	ScheduledOrder         int        `gorm:"not null"                                    json:"scheduled_order"`
	Status                 GoalStatus `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`

	Fixed         bool `gorm:"not null;default:false" json:"fixed"`
	AutoGenerated bool `gorm:"not null;default:false" json:"auto_generated"`
	Omitted       bool `gorm:"not null;default:false" json:"omitted"`

	// OmittedFromStatus 省略前的状态，恢复时还原
	OmittedFromStatus *GoalStatus `gorm:"type:varchar(20)" json:"omitted_from_status,omitempty"`

	ParentGoalID   *string    `gorm:"type:uuid;index" json:"parent_goal_id,omitempty"`
	DaysAfterStudy *int       `json:"days_after_study,omitempty"` // 仅 REVIEW 目标：复习偏移天数
	ElapsedSeconds int        `gorm:"not null;default:0" json:"elapsed_seconds"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	RowHash        *string    `gorm:"type:varchar(64);index" json:"row_hash,omitempty"`
	SoftDeleteModel
}

// TableName 指定表名
func (Goal) TableName() string { return "goals" }

// IsDone 已完成目标不可再被引擎修改
func (g *Goal) IsDone() bool { return g.Status == GoalStatusDone }
