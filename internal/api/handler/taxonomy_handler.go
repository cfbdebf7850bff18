package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"dom-study/backend/internal/dto"
	"dom-study/backend/internal/service"
	"dom-study/backend/pkg/response"
)

// TaxonomyHandler 学科 / 知识点字典 HTTP 处理器
type TaxonomyHandler struct {
	taxonomySvc service.TaxonomyService
}

// NewTaxonomyHandler 创建 TaxonomyHandler
func NewTaxonomyHandler(taxonomySvc service.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomySvc: taxonomySvc}
}

// ListSubjects 获取学科列表
// GET /api/v1/taxonomy/subjects?all=true
func (h *TaxonomyHandler) ListSubjects(c *gin.Context) {
	activeOnly := c.Query("all") != "true"

	subjects, err := h.taxonomySvc.ListSubjects(c.Request.Context(), activeOnly)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": subjects})
}

// CreateSubject 创建学科
// POST /api/v1/taxonomy/subjects
func (h *TaxonomyHandler) CreateSubject(c *gin.Context) {
	var req dto.CreateSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	subject, err := h.taxonomySvc.CreateSubject(c.Request.Context(), &req)
	if err != nil {
		h.handleTaxonomyError(c, err)
		return
	}

	response.Created(c, subject)
}

// ListTopics 获取学科下的知识点
// GET /api/v1/taxonomy/subjects/:id/topics
func (h *TaxonomyHandler) ListTopics(c *gin.Context) {
	id, ok := mustParam(c, "id", "学科ID不能为空")
	if !ok {
		return
	}

	topics, err := h.taxonomySvc.ListTopics(c.Request.Context(), id)
	if err != nil {
		h.handleTaxonomyError(c, err)
		return
	}

	response.OK(c, gin.H{"list": topics})
}

// CreateTopic 创建知识点（assunto 或 tópico）
// POST /api/v1/taxonomy/topics
func (h *TaxonomyHandler) CreateTopic(c *gin.Context) {
	var req dto.CreateTopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	topic, err := h.taxonomySvc.CreateTopic(c.Request.Context(), &req)
	if err != nil {
		h.handleTaxonomyError(c, err)
		return
	}

	response.Created(c, topic)
}

func (h *TaxonomyHandler) handleTaxonomyError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 15001, "学科不存在")
	case errors.Is(err, service.ErrTopicNotFound):
		response.NotFound(c, 15002, "上级知识点不存在")
	case errors.Is(err, service.ErrTaxonomyCodeExists):
		response.Conflict(c, 15003, "分类编码已存在")
	default:
		response.InternalError(c)
	}
}
