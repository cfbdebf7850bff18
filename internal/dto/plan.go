package dto

// ── 学习计划 DTO ──

// CreatePlanRequest 创建计划
type CreatePlanRequest struct {
	Name          string  `json:"name"           binding:"required,max=200"`
	DailyHours    float64 `json:"daily_hours"    binding:"required,gt=0,lte=24"`
	AvailableDays int     `json:"available_days" binding:"required,min=1,max=127"` // bit k = weekday k (0=周日)
	StartDate     string  `json:"start_date"     binding:"required"`
	EndDate       *string `json:"end_date"`
	ReviewOffsets []int   `json:"review_offsets" binding:"omitempty,dive,min=1,max=365"`
}

// UpdatePlanRequest 修改计划；每日时长或可用日变化会触发重新分配
type UpdatePlanRequest struct {
	Name          *string  `json:"name"           binding:"omitempty,max=200"`
	DailyHours    *float64 `json:"daily_hours"    binding:"omitempty,gt=0,lte=24"`
	AvailableDays *int     `json:"available_days" binding:"omitempty,min=1,max=127"`
	EndDate       *string  `json:"end_date"`
	ClearEndDate  bool     `json:"clear_end_date"`
	ReviewOffsets []int    `json:"review_offsets" binding:"omitempty,dive,min=1,max=365"`
	Version       int      `json:"version"        binding:"required,min=1"`
}

// PlanListRequest 计划列表筛选
type PlanListRequest struct {
	PaginationRequest
	Status string `form:"status" binding:"omitempty,oneof=ACTIVE PAUSED DONE"`
}

// PlanResponse 计划详情
type PlanResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	DailyHours    float64 `json:"daily_hours"`
	BudgetMinutes int     `json:"budget_minutes"`
	AvailableDays int     `json:"available_days"`
	Weekdays      []int   `json:"weekdays"`
	StartDate     string  `json:"start_date"`
	EndDate       *string `json:"end_date,omitempty"`
	Status        string  `json:"status"`
	ReviewOffsets []int   `json:"review_offsets"`
	Version       int     `json:"version"`
	CreatedAt     string  `json:"created_at"`
}

// UpdatePlanResponse 修改结果，附带固定目标提示与重新分配摘要
type UpdatePlanResponse struct {
	Plan           PlanResponse            `json:"plan"`
	Warnings       []FixedOverflow         `json:"warnings,omitempty"`
	Redistribution *RedistributionResponse `json:"redistribution,omitempty"`
}
