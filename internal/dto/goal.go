package dto

// ── 学习目标 DTO ──

// CreateGoalRequest 手动创建目标
// ParentNumber 非空时作为该编号下的子项（#015 → #015.1）
type CreateGoalRequest struct {
	Type                   string  `json:"type"                     binding:"required,oneof=STUDY QUESTIONS REVIEW"`
	SubjectID              *string `json:"subject_id"               binding:"omitempty,uuid"`
	TopicID                *string `json:"topic_id"                 binding:"omitempty,uuid"`
	SubtopicID             *string `json:"subtopic_id"              binding:"omitempty,uuid"`
	Title                  string  `json:"title"                    binding:"max=300"`
	Guidance               string  `json:"guidance"`
	DurationPlannedMinutes int     `json:"duration_planned_minutes" binding:"required,min=1,max=1440"`
	ScheduledDate          *string `json:"scheduled_date"`
	Fixed                  bool    `json:"fixed"`
	ParentNumber           string  `json:"parent_number"`
}

// GoalListRequest 目标列表筛选
type GoalListRequest struct {
	PaginationRequest
	From   string `form:"from"`
	To     string `form:"to"`
	Status string `form:"status" binding:"omitempty,oneof=PENDING IN_PROGRESS DONE NEEDS_MORE_TIME OMITTED"`
	Type   string `form:"type"   binding:"omitempty,oneof=STUDY QUESTIONS REVIEW"`
}

// CompleteGoalRequest 完成目标
type CompleteGoalRequest struct {
	ElapsedSeconds int `json:"elapsed_seconds" binding:"min=0"`
}

// NeedsMoreTimeRequest 目标未在计划时间内完成
type NeedsMoreTimeRequest struct {
	ElapsedSeconds int `json:"elapsed_seconds" binding:"min=0"`
}

// MoveGoalRequest 手动改期
type MoveGoalRequest struct {
	ScheduledDate string `json:"scheduled_date" binding:"required"`
	Fixed         *bool  `json:"fixed"`
}

// GoalResponse 目标详情
type GoalResponse struct {
	ID                     string  `json:"id"`
	PlanID                 string  `json:"plan_id"`
	DisplayNumber          string  `json:"display_number"`
	OrderKey               string  `json:"order_key"`
	Type                   string  `json:"type"`
	SubjectID              *string `json:"subject_id,omitempty"`
	TopicID                *string `json:"topic_id,omitempty"`
	SubtopicID             *string `json:"subtopic_id,omitempty"`
	Title                  string  `json:"title"`
	Guidance               string  `json:"guidance,omitempty"`
	DurationPlannedMinutes int     `json:"duration_planned_minutes"`
	ScheduledDate          string  `json:"scheduled_date"`
	ScheduledOrder         int     `json:"scheduled_order"`
	Status                 string  `json:"status"`
	Fixed                  bool    `json:"fixed"`
	AutoGenerated          bool    `json:"auto_generated"`
	Omitted                bool    `json:"omitted"`
	ParentGoalID           *string `json:"parent_goal_id,omitempty"`
	DaysAfterStudy         *int    `json:"days_after_study,omitempty"`
	ElapsedSeconds         int     `json:"elapsed_seconds"`
	CompletedAt            *string `json:"completed_at,omitempty"`
}

// CompleteGoalResponse 完成结果，STUDY 目标附带新生成的复习目标
type CompleteGoalResponse struct {
	Goal    GoalResponse   `json:"goal"`
	Reviews []GoalResponse `json:"reviews,omitempty"`
}

// NeedsMoreTimeResponse 原目标与续作目标
type NeedsMoreTimeResponse struct {
	Original       GoalResponse            `json:"original"`
	Continuation   GoalResponse            `json:"continuation"`
	Redistribution *RedistributionResponse `json:"redistribution"`
}

// GoalMutationResponse 省略 / 恢复结果
type GoalMutationResponse struct {
	Goal           GoalResponse            `json:"goal"`
	Redistribution *RedistributionResponse `json:"redistribution"`
}

// ReviewMoveResponse 复习目标随父目标改期
type ReviewMoveResponse struct {
	GoalID string `json:"goal_id"`
	From   string `json:"from"`
	To     string `json:"to"`
}

// MoveGoalResponse 改期结果
type MoveGoalResponse struct {
	Goal         GoalResponse         `json:"goal"`
	ReviewsMoved []ReviewMoveResponse `json:"reviews_moved,omitempty"`
}
