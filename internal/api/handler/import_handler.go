package handler

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/service"
	"dom-study/backend/pkg/response"
)

// ImportHandler 批量导入模块 HTTP 处理器
type ImportHandler struct {
	importSvc service.ImportService
}

// NewImportHandler 创建 ImportHandler
func NewImportHandler(importSvc service.ImportService) *ImportHandler {
	return &ImportHandler{importSvc: importSvc}
}

// ImportGoals 批量导入目标
// POST /api/v1/plans/:id/import
// 支持 multipart 上传 .xlsx（字段 file，可选 policy），或 JSON {rows, policy}
func (h *ImportHandler) ImportGoals(c *gin.Context) {
	planID, ok := mustParam(c, "id", "计划ID不能为空")
	if !ok {
		return
	}
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	var (
		rows   []dto.ImportGoalRow
		policy string
	)

	// 尝试文件上传方式
	file, header, err := c.Request.FormFile("file")
	if err == nil {
		defer file.Close()
		if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
			response.BadRequest(c, 14005, "仅支持 .xlsx 文件")
			return
		}
		rows, err = h.importSvc.ParseImportFile(file)
		if err != nil {
			h.handleImportError(c, err, nil)
			return
		}
		policy = c.PostForm("policy")
	} else {
		var req dto.ImportGoalsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 14005, "请上传 Excel 文件或提交导入数据")
			return
		}
		rows, policy = req.Rows, req.Policy
		for i := range rows {
			if rows[i].Row == 0 {
				rows[i].Row = i + 1
			}
		}
	}

	result, err := h.importSvc.Import(c.Request.Context(), planID, rows, policy, callerID)
	if err != nil {
		var partial interface{}
		if result != nil {
			partial = result
		}
		h.handleImportError(c, err, partial)
		return
	}

	response.Created(c, result)
}

// handleImportError 统一处理导入模块业务错误
func (h *ImportHandler) handleImportError(c *gin.Context, err error, data interface{}) {
	switch {
	case errors.Is(err, service.ErrImportBadFile):
		response.BadRequest(c, 14005, "无法解析Excel文件")
	case errors.Is(err, service.ErrImportNoData):
		response.BadRequest(c, 14001, "导入文件中没有有效数据行")
	case errors.Is(err, service.ErrImportTooManyRows):
		response.BadRequest(c, 14002, err.Error())
	case errors.Is(err, service.ErrImportBadHeader):
		response.BadRequest(c, 14003, "Excel表头缺少必要列（tipo/disciplina/duracaoPlanejadaMin）")
	case errors.Is(err, service.ErrImportPolicy):
		response.BadRequest(c, 14004, "重复处理策略只能为 skip 或 reject")
	case errors.Is(err, service.ErrPlanStatusInvalid):
		response.Conflict(c, 12003, "计划当前状态不允许该操作")
	default:
		if !handleSchedulingError(c, err, data) {
			response.InternalError(c)
		}
	}
}
