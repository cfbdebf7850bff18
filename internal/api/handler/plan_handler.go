package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/service"
	"dom-study/backend/pkg/response"
)

// PlanHandler 学习计划模块 HTTP 处理器
type PlanHandler struct {
	planSvc service.PlanService
}

// NewPlanHandler 创建 PlanHandler
func NewPlanHandler(planSvc service.PlanService) *PlanHandler {
	return &PlanHandler{planSvc: planSvc}
}

// CreatePlan 创建学习计划
// POST /api/v1/plans
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req dto.CreatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handlePlanError(c, err, nil)
		return
	}

	response.Created(c, plan)
}

// ListPlans 获取当前用户的计划列表
// GET /api/v1/plans
func (h *PlanHandler) ListPlans(c *gin.Context) {
	var req dto.PlanListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.planSvc.List(c.Request.Context(), &req, callerID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetPlan 获取计划详情
// GET /api/v1/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Get(c.Request.Context(), id, callerID)
	if err != nil {
		h.handlePlanError(c, err, nil)
		return
	}

	response.OK(c, plan)
}

// UpdatePlan 修改计划（每日时长 / 可用日变化会重新分配）
// PUT /api/v1/plans/:id
func (h *PlanHandler) UpdatePlan(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}

	var req dto.UpdatePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.planSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handlePlanError(c, err, nil)
		return
	}

	response.OK(c, result)
}

// PausePlan 暂停计划
// POST /api/v1/plans/:id/pause
func (h *PlanHandler) PausePlan(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Pause(c.Request.Context(), id, callerID)
	if err != nil {
		h.handlePlanError(c, err, nil)
		return
	}

	response.OK(c, plan)
}

// ResumePlan 恢复计划并重新分配积压目标
// POST /api/v1/plans/:id/resume
func (h *PlanHandler) ResumePlan(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.planSvc.Resume(c.Request.Context(), id, callerID)
	if err != nil {
		h.handlePlanError(c, err, nil)
		return
	}

	response.OK(c, result)
}

// FinishPlan 结束计划（软删除）
// DELETE /api/v1/plans/:id
func (h *PlanHandler) FinishPlan(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	plan, err := h.planSvc.Finish(c.Request.Context(), id, callerID)
	if err != nil {
		h.handlePlanError(c, err, nil)
		return
	}

	response.OK(c, plan)
}

// handlePlanError 统一处理计划模块业务错误
func (h *PlanHandler) handlePlanError(c *gin.Context, err error, data interface{}) {
	switch {
	case errors.Is(err, service.ErrPlanEndBeforeStart):
		response.BadRequest(c, 12002, "结束日期不能早于开始日期")
	case errors.Is(err, service.ErrPlanStatusInvalid):
		response.Conflict(c, 12003, "计划当前状态不允许该操作")
	default:
		if !handleSchedulingError(c, err, data) {
			response.InternalError(c)
		}
	}
}
