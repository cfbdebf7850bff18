package handler

import "dom-study/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth         *AuthHandler
	Plan         *PlanHandler
	Goal         *GoalHandler
	Scheduling   *SchedulingHandler
	Import       *ImportHandler
	Taxonomy     *TaxonomyHandler
	Notification *NotificationHandler
	Export       *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:         NewAuthHandler(svc.Auth),
		Plan:         NewPlanHandler(svc.Plan),
		Goal:         NewGoalHandler(svc.Goal),
		Scheduling:   NewSchedulingHandler(svc.Scheduling),
		Import:       NewImportHandler(svc.Import),
		Taxonomy:     NewTaxonomyHandler(svc.Taxonomy),
		Notification: NewNotificationHandler(svc.Notification),
		Export:       NewExportHandler(svc.Export),
	}
}
