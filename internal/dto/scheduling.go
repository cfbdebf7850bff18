package dto

// ── 排期 DTO ──

// PlacementResponse 单个目标的排期变化
type PlacementResponse struct {
	GoalID        string `json:"goal_id"`
	DisplayNumber string `json:"display_number"`
	FromDate      string `json:"from_date"`
	FromOrder     int    `json:"from_order"`
	Date          string `json:"date"`
	Order         int    `json:"order"`
}

// RedistributionResponse 重新分配运行摘要
type RedistributionResponse struct {
	PlanID        string              `json:"plan_id"`
	Anchor        string              `json:"anchor,omitempty"`
	GoalsPlaced   int                 `json:"goals_placed"`
	GoalsUpdated  int                 `json:"goals_updated"`
	DaysTouched   int                 `json:"days_touched"`
	FirstDate     *string             `json:"first_date,omitempty"`
	LastDate      *string             `json:"last_date,omitempty"`
	BeyondEndDate int                 `json:"beyond_end_date"`
	Changes       []PlacementResponse `json:"changes,omitempty"`
}

// CapacityRequest 查询某天容量
type CapacityRequest struct {
	Date string `form:"date" binding:"required"`
}

// CapacityResponse 某天容量
type CapacityResponse struct {
	Date             string `json:"date"`
	DayAvailable     bool   `json:"day_available"`
	BudgetMinutes    int    `json:"budget_minutes"`
	ClaimedMinutes   int    `json:"claimed_minutes"`
	AvailableMinutes int    `json:"available_minutes"`
}

// FixedOverflow 固定目标超出预算的日期
type FixedOverflow struct {
	Date          string `json:"date"`
	FixedMinutes  int    `json:"fixed_minutes"`
	BudgetMinutes int    `json:"budget_minutes"`
	Message       string `json:"message"`
}

// FixedCheckResponse 固定目标校验结果（仅提示）
type FixedCheckResponse struct {
	Valid     bool            `json:"valid"`
	Overflows []FixedOverflow `json:"overflows"`
}
