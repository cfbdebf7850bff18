package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/scheduling"
	"dom-study/backend/internal/service"
	"dom-study/backend/pkg/response"
)

// GoalHandler 学习目标模块 HTTP 处理器
type GoalHandler struct {
	goalSvc service.GoalService
}

// NewGoalHandler 创建 GoalHandler
func NewGoalHandler(goalSvc service.GoalService) *GoalHandler {
	return &GoalHandler{goalSvc: goalSvc}
}

// CreateGoal 在计划中创建目标
// POST /api/v1/plans/:id/goals
func (h *GoalHandler) CreateGoal(c *gin.Context) {
	planID, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}

	var req dto.CreateGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	goal, err := h.goalSvc.Create(c.Request.Context(), planID, &req, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.Created(c, goal)
}

// ListGoals 获取计划中的目标
// GET /api/v1/plans/:id/goals?from=&to=&status=&type=
func (h *GoalHandler) ListGoals(c *gin.Context) {
	planID, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}

	var req dto.GoalListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	list, total, err := h.goalSvc.List(c.Request.Context(), planID, &req, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OKPage(c, list, total, req.GetPage(), req.GetPageSize())
}

// GetGoal 获取目标详情
// GET /api/v1/goals/:id
func (h *GoalHandler) GetGoal(c *gin.Context) {
	id, callerID, ok := h.goalAndCaller(c)
	if !ok {
		return
	}

	goal, err := h.goalSvc.Get(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, goal)
}

// StartGoal 开始目标
// POST /api/v1/goals/:id/start
func (h *GoalHandler) StartGoal(c *gin.Context) {
	id, callerID, ok := h.goalAndCaller(c)
	if !ok {
		return
	}

	goal, err := h.goalSvc.Start(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, goal)
}

// CompleteGoal 完成目标；STUDY 目标首次完成时生成复习目标
// POST /api/v1/goals/:id/complete
func (h *GoalHandler) CompleteGoal(c *gin.Context) {
	var req dto.CompleteGoalRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	id, callerID, ok := h.goalAndCaller(c)
	if !ok {
		return
	}

	result, err := h.goalSvc.Complete(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, result)
}

// NeedsMoreTime 标记目标需要更多时间，生成续作目标并重新分配
// POST /api/v1/goals/:id/needs-more-time
func (h *GoalHandler) NeedsMoreTime(c *gin.Context) {
	var req dto.NeedsMoreTimeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	id, callerID, ok := h.goalAndCaller(c)
	if !ok {
		return
	}

	result, err := h.goalSvc.NeedsMoreTime(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.Created(c, result)
}

// OmitGoal 省略目标并重新分配
// POST /api/v1/goals/:id/omit
func (h *GoalHandler) OmitGoal(c *gin.Context) {
	id, callerID, ok := h.goalAndCaller(c)
	if !ok {
		return
	}

	result, err := h.goalSvc.Omit(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, result)
}

// RestoreGoal 恢复已省略的目标并重新分配
// POST /api/v1/goals/:id/restore
func (h *GoalHandler) RestoreGoal(c *gin.Context) {
	id, callerID, ok := h.goalAndCaller(c)
	if !ok {
		return
	}

	result, err := h.goalSvc.Restore(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, result)
}

// MoveGoal 手动改期，复习目标随之调整
// PUT /api/v1/goals/:id/move
func (h *GoalHandler) MoveGoal(c *gin.Context) {
	var req dto.MoveGoalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}
	id, callerID, ok := h.goalAndCaller(c)
	if !ok {
		return
	}

	result, err := h.goalSvc.Move(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, result)
}

// DeleteGoal 删除未完成的目标
// DELETE /api/v1/goals/:id
func (h *GoalHandler) DeleteGoal(c *gin.Context) {
	id, callerID, ok := h.goalAndCaller(c)
	if !ok {
		return
	}

	if err := h.goalSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleGoalError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *GoalHandler) goalAndCaller(c *gin.Context) (string, string, bool) {
	id, ok := mustParam(c, "id", "目标ID不能为空")
	if !ok {
		return "", "", false
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return "", "", false
	}
	return id, callerID, true
}

// bindOptionalJSON 请求体可以为空
func bindOptionalJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, 10001, "参数校验失败")
		return false
	}
	return true
}

// handleGoalError 统一处理目标模块业务错误
func (h *GoalHandler) handleGoalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrGoalNotFound):
		response.NotFound(c, 13001, "目标不存在")
	case errors.Is(err, service.ErrGoalDone):
		response.Conflict(c, 13002, "已完成的目标不可修改")
	case errors.Is(err, service.ErrGoalStatusInvalid):
		response.Conflict(c, 13003, "目标当前状态不允许该操作")
	case errors.Is(err, service.ErrParentNumberNotFound):
		response.BadRequest(c, 13004, "父编号不存在")
	case errors.Is(err, service.ErrGoalNeedsDate):
		response.BadRequest(c, 13005, "固定目标和复习目标必须指定日期")
	case errors.Is(err, scheduling.ErrMalformedNumber):
		response.BadRequest(c, 13006, "目标编号格式无效")
	default:
		if !handleSchedulingError(c, err, nil) {
			response.InternalError(c)
		}
	}
}
