package handler

import (
	"github.com/gin-gonic/gin"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/service"
	"dom-study/backend/pkg/response"
)

// SchedulingHandler 排期模块 HTTP 处理器
type SchedulingHandler struct {
	schedulingSvc service.SchedulingService
}

// NewSchedulingHandler 创建 SchedulingHandler
func NewSchedulingHandler(schedulingSvc service.SchedulingService) *SchedulingHandler {
	return &SchedulingHandler{schedulingSvc: schedulingSvc}
}

// Redistribute 手动触发重新分配
// POST /api/v1/plans/:id/redistribute
func (h *SchedulingHandler) Redistribute(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.schedulingSvc.Redistribute(c.Request.Context(), id, callerID)
	if err != nil {
		var partial interface{}
		if result != nil {
			partial = result
		}
		if !handleSchedulingError(c, err, partial) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

// GetCapacity 查询某天剩余容量
// GET /api/v1/plans/:id/capacity?date=YYYY-MM-DD
func (h *SchedulingHandler) GetCapacity(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}

	var req dto.CapacityRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "date 不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.schedulingSvc.AvailableCapacity(c.Request.Context(), id, req.Date, callerID)
	if err != nil {
		if !handleSchedulingError(c, err, nil) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}

// CheckFixedGoals 检查固定目标是否超出每日预算（仅提示）
// GET /api/v1/plans/:id/fixed-check
func (h *SchedulingHandler) CheckFixedGoals(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.schedulingSvc.ValidateFixedGoals(c.Request.Context(), id, callerID)
	if err != nil {
		if !handleSchedulingError(c, err, nil) {
			response.InternalError(c)
		}
		return
	}

	response.OK(c, result)
}
