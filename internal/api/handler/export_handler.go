package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dom-study/backend/internal/service"
	"dom-study/backend/pkg/response"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeICS  = "text/calendar; charset=utf-8"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportSchedule 导出计划排期表
// GET /api/v1/plans/:id/export.xlsx
func (h *ExportHandler) ExportSchedule(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportSchedule(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	response.Attachment(c, contentTypeXLSX, filename, buf.Bytes())
}

// ExportCalendar 导出计划日历
// GET /api/v1/plans/:id/calendar.ics
func (h *ExportHandler) ExportCalendar(c *gin.Context) {
	id, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportCalendar(c.Request.Context(), id, callerID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	response.Attachment(c, contentTypeICS, filename, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPlanNotFound):
		response.NotFound(c, 12001, "学习计划不存在")
	case errors.Is(err, service.ErrExportNoGoals):
		response.NotFound(c, 17001, "该计划暂无可导出的目标")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.Error(c, http.StatusInternalServerError, 17002, "生成导出文件失败")
	default:
		response.InternalError(c)
	}
}
