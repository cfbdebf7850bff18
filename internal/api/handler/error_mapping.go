package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dom-study/backend/internal/scheduling"
	"dom-study/backend/internal/service"
	pkgerrors "dom-study/backend/pkg/errors"
	"dom-study/backend/pkg/response"
)

// handleSchedulingError 处理计划、目标、导入共享的排期错误
// data 为部分完成的结果，可为 nil；返回 false 表示 err 不属于排期错误
func handleSchedulingError(c *gin.Context, err error, data interface{}) bool {
	var pe *scheduling.PlacementError
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, 12001, "学习计划不存在")
	case errors.Is(err, service.ErrPlanNotActive):
		response.Conflict(c, 12004, "计划未处于进行中状态")
	case errors.Is(err, service.ErrInvalidDate):
		response.BadRequest(c, 12005, "日期格式无效，应为 YYYY-MM-DD")
	case errors.Is(err, scheduling.ErrNoAvailableDay):
		response.Unprocessable(c, 12006, err.Error())
	case errors.As(err, &pe):
		// 失败目标之前的目标已写入，随错误返回本次结果
		response.ErrorWithData(c, http.StatusUnprocessableEntity, 12007, pe.Error(), data)
	case errors.Is(err, scheduling.ErrCannotPlace):
		response.Unprocessable(c, 12007, err.Error())
	case errors.Is(err, service.ErrRedistributionInProgress):
		response.Conflict(c, 12008, "该计划正在重新排期，请稍后再试")
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 12009, "数据已被其他操作修改，请刷新后重试")
	case errors.Is(err, pkgerrors.ErrStaleGoal):
		response.Conflict(c, 12010, "目标状态已变化，请刷新后重试")
	default:
		return false
	}
	return true
}
