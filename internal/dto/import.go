package dto

// ── 批量导入 DTO ──

// ImportGoalRow 导入的一行原始数据（Excel 解析或 JSON 提交）
type ImportGoalRow struct {
	Row           int    `json:"row"`
	Type          string `json:"tipo"`
	SubjectCode   string `json:"disciplina"`
	TopicCode     string `json:"assunto"`
	SubtopicCode  string `json:"topico"`
	Duration      string `json:"duracaoPlanejadaMin"`
	Guidance      string `json:"orientacoes"`
	ScheduledDate string `json:"scheduledDate"`
	Fixed         string `json:"fixed"`
}

// ImportGoalsRequest JSON 方式导入
type ImportGoalsRequest struct {
	Rows   []ImportGoalRow `json:"rows"   binding:"required,min=1,dive"`
	Policy string          `json:"policy" binding:"omitempty,oneof=skip reject"`
}

// ImportRowIssue 行级错误或提示
type ImportRowIssue struct {
	Row    int    `json:"row"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
}

// ImportGoalsResponse 导入结果
type ImportGoalsResponse struct {
	Total          int                     `json:"total"`
	Imported       int                     `json:"imported"`
	Skipped        int                     `json:"skipped"`
	Failed         int                     `json:"failed"`
	Errors         []ImportRowIssue        `json:"errors,omitempty"`
	Warnings       []ImportRowIssue        `json:"warnings,omitempty"`
	Redistribution *RedistributionResponse `json:"redistribution,omitempty"`
}
